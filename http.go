package spinmutex

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpresponse "github.com/yudhasubki/spinmutex/pkg/http"
)

type Reporter interface {
	Last() (Result, bool)
}

var (
	_ Reporter = (*Stress[uint32])(nil)
	_ Reporter = (*Stress[int64])(nil)
)

type Http struct {
	Stress Reporter
}

func (h *Http) Router() http.Handler {
	r := chi.NewRouter()

	r.Handle("/metrics", promhttp.Handler())
	r.Route("/runs", func(r chi.Router) {
		r.Get("/last", h.LastRun)
	})

	return r
}

func (h *Http) LastRun(w http.ResponseWriter, r *http.Request) {
	result, ok := h.Stress.Last()
	if !ok {
		httpresponse.Write(w, http.StatusNotFound, &httpresponse.Response{
			Message: httpresponse.MessageNoRunYet,
		})
		return
	}

	if result.Err != "" {
		httpresponse.Write(w, http.StatusOK, &httpresponse.Response{
			Message: httpresponse.MessageFailure,
			Error:   result.Err,
			Data:    result,
		})
		return
	}

	httpresponse.Write(w, http.StatusOK, &httpresponse.Response{
		Message: httpresponse.MessageSuccess,
		Data:    result,
	})
}
