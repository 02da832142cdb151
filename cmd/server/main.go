package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scholarlab/datastet/internal/api"
	"github.com/scholarlab/datastet/internal/classifier"
	"github.com/scholarlab/datastet/internal/config"
	"github.com/scholarlab/datastet/internal/pipeline"
	"github.com/scholarlab/datastet/internal/relevance"
	"github.com/scholarlab/datastet/internal/runstore"
	"github.com/scholarlab/datastet/internal/segment"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	cl := classifier.NewClient(cfg.ClassifierURL, log)
	rel := relevance.NewClient(cfg.RelevanceURL)

	var seg *segment.Segmenter
	if cfg.SegmentSentences {
		seg = segment.New(nil, log)
	}

	runs, err := runstore.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open run store", "error", err)
		os.Exit(1)
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, cl, rel, seg, runs, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, cl, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		cl.Close()
		rel.Close()
		runs.Close()
	}()

	log.Info("starting datastet", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
