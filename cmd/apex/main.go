package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/apexrules/apex/internal/cache"
	"github.com/apexrules/apex/internal/config"
	"github.com/apexrules/apex/internal/logging"
	"github.com/apexrules/apex/internal/metrics"
	"github.com/apexrules/apex/internal/orchestrator"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	var (
		configFile  = flag.String("config", "", "path to a rules/enrichments YAML configuration file")
		recordFile  = flag.String("record", "", "path to a JSON input record; defaults to stdin")
		envPrefix   = flag.String("env-prefix", "APEX", "environment variable prefix")
		logLevel    = flag.String("log-level", "info", "log level: debug, info, warn, error")
		logFormat   = flag.String("log-format", "json", "log format: json, text")
		watch       = flag.Bool("watch", false, "reload the configuration on file change for the lifetime of the process")
		metricsAddr = flag.String("metrics-addr", "", "address to serve /metrics on; disabled when empty")
	)
	flag.Parse()

	if *configFile == "" {
		log.Fatal("apex: -config is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logging.New(config.LoggingConfig{Level: *logLevel, Format: *logFormat})
	if err != nil {
		log.Fatalf("failed to configure logger: %v", err)
	}

	loader := config.NewLoader(*envPrefix, *configFile)
	cfg, err := loader.Load(ctx)
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	metricsRecorder := metrics.NewRecorder(promRegistry)

	c := cache.New()
	eval := orchestrator.New(c, orchestrator.WithMetrics(metricsRecorder))

	current := &cfg
	if *watch {
		watcher, err := loader.Watch(ctx, func(reloaded config.Configuration) {
			logger.Info("configuration reloaded")
			current = &reloaded
		}, func(err error) {
			logger.Error("configuration watch error", slog.Any("error", err))
		})
		if err != nil {
			logger.Warn("configuration watch setup failed", slog.Any("error", err))
		} else {
			defer watcher.Stop()
		}
	}

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsRecorder.Handler())
		srv := &http.Server{Addr: *metricsAddr, Handler: mux}
		go func() {
			logger.Info("serving metrics", slog.String("addr", *metricsAddr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		go func() {
			<-ctx.Done()
			_ = srv.Close()
		}()
	}

	record, err := readRecord(*recordFile)
	if err != nil {
		logger.Error("failed to read input record", slog.Any("error", err))
		os.Exit(1)
	}

	result := eval.Evaluate(current, record)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Error("failed to marshal result", slog.Any("error", err))
		os.Exit(1)
	}
	fmt.Println(string(out))

	if !result.Success {
		os.Exit(1)
	}
}

func readRecord(path string) (map[string]any, error) {
	var data []byte
	var err error
	if path == "" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("apex: read record: %w", err)
	}

	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("apex: parse record: %w", err)
	}
	return record, nil
}
