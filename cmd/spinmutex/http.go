package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lesismal/nbio/nbhttp"
	"github.com/yudhasubki/spinmutex"
)

type Http struct{}

func (h *Http) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("spinmutex-http", flag.ContinueOnError)
	path := register(fs)
	fs.Usage = h.Usage

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	if *path == "" {
		return errorEmptyPath
	}

	cfg, err := ReadConfigFile(*path)
	if err != nil {
		return err
	}

	stress := spinmutex.New[uint32](cfg.Stress.Stress())

	mux := chi.NewRouter()
	mux.Mount("/", (&spinmutex.Http{
		Stress: stress,
	}).Router())

	engine := nbhttp.NewEngine(nbhttp.Config{
		Network: "tcp",
		Addrs:   []string{":" + cfg.Http.Port},
		Handler: mux,
		IOMod:   nbhttp.IOModNonBlocking,
	})

	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	err = engine.Start()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runDone := make(chan error, 1)
	go func() {
		_, err := stress.Run(ctx)
		runDone <- err
	}()

	select {
	case err = <-runDone:
		// a failed run is still reported over http; the process keeps serving it
		if err != nil {
			slog.Error("stress run failed, serving the result", "error", err)
		}
		slog.Info("serving stress result", "port", cfg.Http.Port)
		<-shutdown
	case <-shutdown:
		slog.Info("shutdown requested, abandoning stress run")
		cancel()
		err = <-runDone
	}

	cancel()
	engine.Stop()

	// handling graceful shutdown
	time.Sleep(cfg.Http.Shutdown)

	return err
}

func (h *Http) Usage() {
	fmt.Printf(`
The http command runs one stress pass and serves /runs/last and /metrics.

Usage:
	spinmutex http [arguments]

Arguments:
	-config PATH
	    Specifies the configuration file.
`[1:],
	)
}
