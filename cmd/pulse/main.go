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

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/pulsefm/pulse/internal/config"
	"github.com/pulsefm/pulse/internal/engine"
	"github.com/pulsefm/pulse/internal/params"
	"github.com/pulsefm/pulse/internal/station"
	"github.com/pulsefm/pulse/internal/stream"
	"github.com/pulsefm/pulse/internal/synth"
)

const version = "0.1.0"

func main() {
	cfg := config.Load()

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("pulse exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	store, err := station.Open(ctx, cfg.DataDir, log)
	if err != nil {
		return fmt.Errorf("open station store: %w", err)
	}
	defer store.Close()

	llm := params.NewOllamaClient(cfg.OllamaHost, cfg.OllamaModel, cfg.OllamaTimeout, log)
	gen := params.NewGenerator(llm, log)

	syn := synth.NewClient(synth.Options{
		BaseURL:      cfg.ACEStepHost,
		APIKey:       cfg.ACEStepAPIKey,
		OutputDir:    cfg.ACEStepOutputDir,
		PollInterval: cfg.PollInterval,
		Timeout:      cfg.ACEStepTimeout,
	}, log)

	log.Info("pulse starting up",
		zap.String("version", version),
		zap.String("ollama", cfg.OllamaHost),
		zap.String("acestep", cfg.ACEStepHost),
		zap.String("data_dir", cfg.DataDir))

	readyCtx, readyCancel := context.WithTimeout(ctx, 30*time.Second)
	if !llm.WaitForReady(readyCtx) {
		log.Warn("ollama not reachable yet, parameter generation will fall back until it is")
	}
	readyCancel()

	hub := stream.NewHub(log)
	eng := engine.New(store, gen, syn, hub, engine.Options{
		LeadTime:        cfg.LeadTime,
		DefaultDuration: cfg.DefaultDuration,
		InferenceSteps:  cfg.InferenceSteps,
		AudioFormat:     cfg.AudioFormat,
		MinFreeMB:       int64(cfg.MinFreeMB),
	}, log)

	srv := stream.NewServer(stream.Options{
		Radio:       eng,
		Hub:         hub,
		Store:       store,
		Synth:       syn,
		OllamaHost:  cfg.OllamaHost,
		OllamaModel: cfg.OllamaModel,
		MinFreeMB:   int64(cfg.MinFreeMB),
		Version:     version,
	}, log)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: srv.Handler(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return eng.Run(ctx)
	})
	g.Go(func() error {
		log.Info("pulse live", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutCancel()
		return httpServer.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("pulse stopped")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zcfg.Build()
}
