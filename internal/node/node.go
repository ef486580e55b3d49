// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/suidex"
	"github.com/blinklabs-io/suidex/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// IndexerOptions translates the loaded configuration into indexer options
func IndexerOptions(
	cfg *config.Config,
	logger *slog.Logger,
) ([]suidex.ConfigOptionFunc, error) {
	pollInterval, err := cfg.ParsedPollInterval()
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := cfg.ParsedShutdownTimeout()
	if err != nil {
		return nil, err
	}
	opts := []suidex.ConfigOptionFunc{
		suidex.WithLogger(logger),
		suidex.WithDatabasePath(cfg.DatabasePath),
		suidex.WithBlobPlugin(cfg.BlobPlugin),
		suidex.WithMetadataPlugin(cfg.MetadataPlugin),
		suidex.WithBlobCacheSize(cfg.BlobCacheSize),
		suidex.WithRPCURL(cfg.RpcUrl),
		suidex.WithRunMode(suidex.RunMode(cfg.RunMode)),
		suidex.WithAPIListenAddress(cfg.ApiListenAddress),
		suidex.WithPollInterval(pollInterval),
		suidex.WithShutdownTimeout(shutdownTimeout),
		suidex.WithFetchBatchSize(cfg.FetchBatchSize),
		suidex.WithFetchConcurrency(cfg.FetchConcurrency),
		suidex.WithResetDatabase(cfg.ResetDatabase),
		suidex.WithTracing(cfg.Tracing),
		suidex.WithTracingStdout(cfg.TracingStdout),
		// Enable metrics with default prometheus registry
		suidex.WithPrometheusRegistry(prometheus.DefaultRegisterer),
	}
	if cfg.StartCheckpoint != nil {
		opts = append(opts, suidex.WithStartCheckpoint(*cfg.StartCheckpoint))
	}
	return opts, nil
}

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	opts, err := IndexerOptions(cfg, logger)
	if err != nil {
		return err
	}
	shutdownTimeout, _ := cfg.ParsedShutdownTimeout()
	idx, err := suidex.New(suidex.NewConfig(opts...))
	if err != nil {
		return err
	}
	// Metrics and debug listener
	http.Handle("/metrics", promhttp.Handler())
	metricsAddr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
	logger.Info(
		"serving prometheus metrics on "+metricsAddr,
		"component", "node",
	)
	metricsServer := &http.Server{
		Addr:              metricsAddr,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			metricsErr <- fmt.Errorf("failed to start metrics listener: %w", err)
		}
	}()
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()
	runCtx, runCancel := context.WithCancel(signalCtx)
	defer runCancel()
	go func() {
		select {
		case err := <-metricsErr:
			logger.Error(err.Error(), "component", "node")
			runCancel()
		case <-runCtx.Done():
		}
	}()

	// Run blocks until a signal or a fatal error and shuts the indexer down
	// before returning
	runErr := idx.Run(runCtx)
	if signalCtx.Err() != nil {
		logger.Info("signal received, graceful shutdown complete")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		shutdownTimeout,
	)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", "error", err)
	}
	if runErr != nil {
		logger.Error("indexer error", "error", runErr)
		return runErr
	}
	logger.Info("shutdown complete")
	return nil
}
