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

// Package api serves the indexed data over HTTP as JSON
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const DefaultListenAddress = ":3030"

type Config struct {
	ListenAddress string
	PromRegistry  prometheus.Registerer
}

// Server is the query API server
type Server struct {
	config     Config
	logger     *slog.Logger
	engine     QueryEngine
	metrics    *apiMetrics
	httpServer *http.Server
	listenAddr net.Addr
	mu         sync.Mutex
}

func New(
	cfg Config,
	engine QueryEngine,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	return &Server{
		config:  cfg,
		logger:  logger,
		engine:  engine,
		metrics: newAPIMetrics(cfg.PromRegistry),
	}
}

// Handler returns the routes of the API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.route(mux, "GET /health", s.handleHealth)
	s.route(mux, "GET /api/v1/checkpoints/latest", s.handleLatestCheckpoint)
	s.route(mux, "GET /api/v1/checkpoints/{seq}", s.handleCheckpoint)
	s.route(mux, "GET /api/v1/transactions", s.handleQueryTransactions)
	s.route(mux, "GET /api/v1/transactions/{digest}", s.handleTransaction)
	s.route(mux, "GET /api/v1/transactions/{digest}/events", s.handleTransactionEvents)
	s.route(mux, "GET /api/v1/events", s.handleQueryEvents)
	s.route(mux, "GET /api/v1/objects/{id}", s.handleObject)
	s.route(mux, "GET /api/v1/addresses/count", s.handleAddressCount)
	s.route(mux, "GET /api/v1/addresses/{address}/objects", s.handleOwnedObjects)
	return mux
}

// Start starts the HTTP server in a background goroutine. The server is
// shut down when ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr:              s.config.ListenAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 60 * time.Second,
	}
	s.httpServer = server
	s.mu.Unlock()

	if err := s.startServer(server); err != nil {
		s.mu.Lock()
		s.httpServer = nil
		s.mu.Unlock()
		return err
	}
	s.logger.Info("API listener started on " + s.config.ListenAddress)

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		srv := s.httpServer
		s.httpServer = nil
		s.mu.Unlock()
		if srv == nil {
			return
		}
		s.logger.Debug("context cancelled, shutting down API server")
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			30*time.Second,
		)
		defer cancel()
		//nolint:contextcheck
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(
				"failed to shutdown API server on context cancellation",
				"error", err,
			)
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Debug("shutting down API server")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown API server: %w", err)
	}
	return nil
}

// Addr returns the address the server is listening on, or nil when it
// isn't running
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer == nil {
		return nil
	}
	return s.listenAddr
}

// startServer binds the listening socket first so port conflicts are
// reported by Start, then serves in a background goroutine
func (s *Server) startServer(server *http.Server) error {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen for API server: %w", err)
	}
	s.mu.Lock()
	s.listenAddr = ln.Addr()
	s.mu.Unlock()
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}
