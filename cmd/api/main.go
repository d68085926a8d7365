package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"call-insights-go/internal/config"
	"call-insights-go/internal/events"
	"call-insights-go/internal/extractor"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/processor"
	"call-insights-go/internal/sentiment"
	"call-insights-go/internal/store"
	"call-insights-go/internal/summarizer"
	"call-insights-go/internal/web"
)

func main() {
	_ = godotenv.Load() // loads .env

	cfg, err := config.Load()
	if err != nil {
		logger.New().WithError(err).Fatal("invalid configuration")
	}

	log := logger.NewWithOptions(logger.Options{Environment: cfg.Environment, Level: cfg.LogLevel})
	log.WithField("service", "call-insights-go").Info("starting service")

	sum := summarizer.New(summarizer.Options{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		MaxRetries:  cfg.LLM.MaxRetries,
		Mock:        cfg.LLM.UseMock,
	}, log)
	log.WithField("model", cfg.LLM.Model).WithField("mock", cfg.LLM.UseMock).Info("summarizer ready")

	sink := store.NewCSVSink(cfg.Store.RecordsPath, log)
	log.WithField("records_path", cfg.Store.RecordsPath).Info("record store ready")

	// optional: the service works without NATS, it just announces nothing
	var pub processor.Publisher
	if cfg.NATS.URL != "" {
		p, err := events.Connect(cfg.NATS.URL, cfg.NATS.Token, cfg.NATS.Subject, log)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to NATS")
		}
		defer p.Close()
		pub = p
		log.WithField("url", cfg.NATS.URL).WithField("subject", cfg.NATS.Subject).Info("NATS connected")
	} else {
		log.Warn("NATS not configured - running without event publishing")
	}

	proc := processor.New(sum, sentiment.New(nil), extractor.New(), sink, pub, log)
	srv := web.NewServer(proc, sink, cfg.DatasetPath, log)

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLM.Timeout*time.Duration(cfg.LLM.MaxRetries+1) + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server terminated")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("stopped")
}
