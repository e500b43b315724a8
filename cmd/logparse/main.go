// Package main is the entry point for the log template mining pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/rhanqtl/aiops/internal/api"
	"github.com/rhanqtl/aiops/internal/config"
	"github.com/rhanqtl/aiops/internal/drain"
	"github.com/rhanqtl/aiops/internal/features"
	"github.com/rhanqtl/aiops/internal/storage"
)

func main() {
	fs := flag.NewFlagSet("logparse", flag.ExitOnError)
	var (
		configPath = fs.String("config", "config.yml", "path to the YAML configuration file")
		logFile    = fs.String("log-file", "", "raw log file to parse (omit with -serve to only serve existing data)")
		serve      = fs.Bool("serve", false, "serve the read-only API after parsing")
		apiAddr    = fs.String("api-addr", "0.0.0.0:8080", "listen address for the read-only API")
		verbose    = fs.Bool("verbose", false, "enable debug logging")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("LOGPARSE")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(*configPath, *logFile, *serve, *apiAddr, logger); err != nil {
		logger.Error("logparse failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, logFile string, serve bool, apiAddr string, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()

	structured, err := storage.NewLogStore(ctx, cfg.Storage, storage.TableStructuredLogs, logger)
	if err != nil {
		return err
	}
	defer structured.Close()

	events, err := storage.NewLogStore(ctx, cfg.Storage, storage.TableEventTemplates, logger)
	if err != nil {
		return err
	}
	defer events.Close()

	if logFile != "" {
		if err := parse(ctx, cfg, logFile, structured, events, logger); err != nil {
			return err
		}
	} else if !serve {
		return fmt.Errorf("nothing to do: pass -log-file to parse or -serve to serve")
	}

	if cfg.Features.Enabled {
		featureStore, err := storage.NewLogStore(ctx, cfg.Storage, storage.TableHDFSFeatures, logger)
		if err != nil {
			return err
		}
		defer featureStore.Close()

		logger.Info("extracting block-id session features")
		if err := features.Extract(ctx, structured, featureStore, cfg.Features.LabelFile); err != nil {
			return err
		}
	}

	if serve {
		return serveAPI(apiAddr, structured, events, logger)
	}
	return nil
}

func parse(ctx context.Context, cfg config.Config, logFile string, structured, events storage.LogStore, logger *slog.Logger) error {
	preprocess, err := cfg.CompilePreprocess()
	if err != nil {
		return err
	}

	opts := drain.DefaultOptions()
	opts.Depth = cfg.Depth
	opts.SimilarityThreshold = cfg.SimilarityThreshold
	opts.MaxChildren = cfg.MaxChildren
	opts.KeepParams = cfg.KeepParams
	opts.Preprocess = preprocess
	opts.Logger = logger

	parser, err := drain.New(cfg.LogFormat, structured, events, opts)
	if err != nil {
		return err
	}

	f, err := os.Open(logFile)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()

	logger.Info("parsing", "file", logFile, "backend", cfg.Storage.Backend)
	start := time.Now()
	if err := parser.Parse(ctx, drain.NewReaderSource(f)); err != nil {
		return err
	}
	logger.Info("parsing done", "elapsed", time.Since(start))
	return nil
}

func serveAPI(addr string, structured, events storage.LogStore, logger *slog.Logger) error {
	server := api.NewServer(addr, structured, events, logger)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("serving API", "addr", addr)
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
