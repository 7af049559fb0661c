package spinmutex

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	httpresponse "github.com/yudhasubki/spinmutex/pkg/http"
)

func runHttpTest(t *testing.T, test func(s *Stress[uint32], srv *httptest.Server)) {
	s := New[uint32](Config{Workers: 4, Iterations: 250})
	srv := httptest.NewServer((&Http{Stress: s}).Router())
	t.Cleanup(srv.Close)

	test(s, srv)
}

func TestHttpLastRun(t *testing.T) {
	t.Run("no run yet", func(t *testing.T) {
		runHttpTest(t, func(s *Stress[uint32], srv *httptest.Server) {
			resp, err := http.Get(srv.URL + "/runs/last")
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, http.StatusNotFound, resp.StatusCode)
			body, err := httpresponse.Read(resp)
			require.NoError(t, err)
			require.Equal(t, httpresponse.MessageNoRunYet, body.Message)
		})
	})

	t.Run("after a successful run", func(t *testing.T) {
		runHttpTest(t, func(s *Stress[uint32], srv *httptest.Server) {
			result, err := s.Run(context.Background())
			require.NoError(t, err)

			resp, err := http.Get(srv.URL + "/runs/last")
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, http.StatusOK, resp.StatusCode)
			body, err := httpresponse.Read(resp)
			require.NoError(t, err)
			require.Equal(t, httpresponse.MessageSuccess, body.Message)

			data, ok := body.Data.(map[string]any)
			require.True(t, ok)
			require.Equal(t, result.ID, data["id"])
			require.EqualValues(t, 1000, data["final"])
		})
	})
}

func TestHttpMetrics(t *testing.T) {
	runHttpTest(t, func(s *Stress[uint32], srv *httptest.Server) {
		_, err := s.Run(context.Background())
		require.NoError(t, err)

		resp, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Contains(t, string(b), "spinmutex_acquisitions_total")
		require.Contains(t, string(b), `spinmutex_runs_total{outcome="ok"}`)
		require.Contains(t, string(b), "spinmutex_run_duration_seconds")
	})
}
