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

package suidex

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/blinklabs-io/suidex/api"
	"github.com/blinklabs-io/suidex/database"
	"github.com/blinklabs-io/suidex/event"
	"github.com/blinklabs-io/suidex/fetcher"
	"github.com/blinklabs-io/suidex/ingest"
	"github.com/blinklabs-io/suidex/layout"
	"github.com/blinklabs-io/suidex/query"
	"github.com/blinklabs-io/suidex/source"
	"go.opentelemetry.io/otel/trace"
)

// Indexer wires the checkpoint source, the ingestion pipeline, the store and
// the query API together
type Indexer struct {
	config         Config
	db             *database.Database
	eventBus       *event.EventBus
	resolver       *layout.Resolver
	pipeline       *ingest.Pipeline
	engine         *query.Engine
	apiServer      *api.Server
	tracerProvider trace.TracerProvider
	shutdownFuncs  []func(context.Context) error
	cancel         context.CancelFunc
	ready          chan struct{}
	done           chan struct{}
	mu             sync.Mutex
	shutdownOnce   sync.Once
}

func New(cfg Config) (*Indexer, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.runMode == "" {
		cfg.runMode = RunModeServe
	}
	return &Indexer{
		config:   cfg,
		eventBus: event.NewEventBus(cfg.promRegistry, cfg.logger),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Run starts the configured components and blocks until ctx is done, Stop is
// called or ingestion fails. An integrity failure is returned as an error
// wrapping ingest.ErrIntegrity.
func (i *Indexer) Run(ctx context.Context) error {
	i.mu.Lock()
	if i.cancel != nil {
		i.mu.Unlock()
		return errors.New("indexer already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	i.cancel = cancel
	i.mu.Unlock()
	defer cancel()

	err := i.run(ctx)
	if err != nil {
		i.config.logger.Error(
			"indexer stopped with error",
			"component", "indexer",
			"error", err,
		)
	}
	if stopErr := i.shutdown(); stopErr != nil {
		err = errors.Join(err, stopErr)
	}
	return err
}

func (i *Indexer) run(ctx context.Context) error {
	logger := i.config.logger
	// Configure tracing
	if i.config.tracing {
		if err := i.setupTracing(ctx); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(&database.Config{
		Logger:         logger,
		PromRegistry:   i.config.promRegistry,
		BlobPlugin:     i.config.blobPlugin,
		MetadataPlugin: i.config.metadataPlugin,
		DataDir:        i.config.dataDir,
		BlobCacheSize:  i.config.blobCacheSize,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	i.mu.Lock()
	i.db = db
	i.mu.Unlock()
	// Checkpoint source and layout resolver. In api mode without a source,
	// objects are served without on-demand decoding.
	src := i.config.source
	if src == nil && i.config.rpcURL != "" {
		src = source.NewRPCClient(
			i.config.rpcURL,
			source.WithLogger(logger),
		)
	}
	engineOpts := []query.EngineOption{query.WithLogger(logger)}
	if src != nil {
		i.resolver = layout.NewResolver(
			src,
			layout.WithLogger(logger),
			layout.WithPromRegistry(i.config.promRegistry),
		)
		engineOpts = append(engineOpts, query.WithResolver(i.resolver))
	}
	i.mu.Lock()
	i.engine = query.New(db, engineOpts...)
	i.mu.Unlock()
	// Query API
	if i.config.runMode.ServesAPI() {
		apiServer := api.New(
			api.Config{
				ListenAddress: i.config.apiListenAddress,
				PromRegistry:  i.config.promRegistry,
			},
			i.engine,
			logger,
		)
		if err := apiServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		i.mu.Lock()
		i.apiServer = apiServer
		i.mu.Unlock()
	}
	if !i.config.runMode.Ingests() {
		close(i.ready)
		<-ctx.Done()
		return nil
	}
	// Ingestion pipeline
	i.pipeline = ingest.New(
		db,
		fetcher.New(src, i.fetcherOptions()...),
		i.pipelineOptions()...,
	)
	close(i.ready)
	return i.pipeline.Run(ctx)
}

func (i *Indexer) fetcherOptions() []fetcher.FetcherOption {
	opts := []fetcher.FetcherOption{
		fetcher.WithLogger(i.config.logger),
		fetcher.WithPromRegistry(i.config.promRegistry),
	}
	if i.config.fetchBatchSize > 0 {
		opts = append(opts, fetcher.WithBatchSize(i.config.fetchBatchSize))
	}
	if i.config.fetchConcurrency > 0 {
		opts = append(opts, fetcher.WithConcurrency(i.config.fetchConcurrency))
	}
	return opts
}

func (i *Indexer) pipelineOptions() []ingest.PipelineOption {
	opts := []ingest.PipelineOption{
		ingest.WithLogger(i.config.logger),
		ingest.WithPromRegistry(i.config.promRegistry),
		ingest.WithResolver(i.resolver),
		ingest.WithEventBus(i.eventBus),
		ingest.WithReset(i.config.resetDatabase),
	}
	if i.config.pollInterval > 0 {
		opts = append(opts, ingest.WithPollInterval(i.config.pollInterval))
	}
	if i.config.startCheckpoint != nil {
		opts = append(opts, ingest.WithStartSequence(*i.config.startCheckpoint))
	}
	if i.tracerProvider != nil {
		opts = append(opts, ingest.WithTracerProvider(i.tracerProvider))
	}
	return opts
}

// Ready returns a channel that is closed once the store is open and the
// configured components are running
func (i *Indexer) Ready() <-chan struct{} {
	return i.ready
}

// Engine returns the query engine, or nil before the indexer is ready
func (i *Indexer) Engine() *query.Engine {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.engine
}

// EventBus returns the bus that committed checkpoints are announced on
func (i *Indexer) EventBus() *event.EventBus {
	return i.eventBus
}

// APIAddr returns the address the query API listens on, or nil when it
// isn't running
func (i *Indexer) APIAddr() net.Addr {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.apiServer == nil {
		return nil
	}
	return i.apiServer.Addr()
}

// Stop stops a running indexer and waits for its shutdown to finish
func (i *Indexer) Stop() error {
	i.mu.Lock()
	cancel := i.cancel
	i.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-i.done
	return nil
}

func (i *Indexer) shutdown() error {
	var err error
	i.shutdownOnce.Do(func() {
		err = i.doShutdown()
		close(i.done)
	})
	return err
}

func (i *Indexer) doShutdown() error {
	shutdownTimeout := DefaultShutdownTimeout
	if i.config.shutdownTimeout > 0 {
		shutdownTimeout = i.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger := i.config.logger.With("component", "indexer")

	var err error
	logger.Debug("starting graceful shutdown")

	// Stop accepting queries
	i.mu.Lock()
	apiServer := i.apiServer
	db := i.db
	i.mu.Unlock()
	if apiServer != nil {
		if stopErr := apiServer.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("API shutdown: %w", stopErr))
		}
	}

	// The pipeline has returned by now, so the store can be closed
	if db != nil {
		if closeErr := db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Call registered shutdown functions
	for _, fn := range i.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	i.shutdownFuncs = nil

	if i.eventBus != nil {
		i.eventBus.Stop()
	}

	logger.Debug("graceful shutdown complete", "timeout", shutdownTimeout.String())
	return err
}

// WaitReady blocks until the indexer is ready, has stopped or ctx is done
func (i *Indexer) WaitReady(ctx context.Context) error {
	select {
	case <-i.ready:
		return nil
	case <-i.done:
		select {
		case <-i.ready:
			return nil
		default:
		}
		return errors.New("indexer stopped before becoming ready")
	case <-ctx.Done():
		return ctx.Err()
	}
}
