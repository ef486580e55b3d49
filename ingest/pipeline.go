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

// Package ingest moves checkpoints from a source node into the store, one at
// a time and in order
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/suidex/database"
	"github.com/blinklabs-io/suidex/event"
	"github.com/blinklabs-io/suidex/fetcher"
	"github.com/blinklabs-io/suidex/layout"
	"github.com/blinklabs-io/suidex/source"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultPollInterval = 500 * time.Millisecond

const tracerName = "github.com/blinklabs-io/suidex/ingest"

// CheckpointFetcher retrieves complete checkpoints. It is satisfied by
// *fetcher.Fetcher.
type CheckpointFetcher interface {
	Fetch(ctx context.Context, seq uint64) (*fetcher.CheckpointData, error)
}

type Pipeline struct {
	db            *database.Database
	fetcher       CheckpointFetcher
	resolver      *layout.Resolver
	eventBus      *event.EventBus
	logger        *slog.Logger
	promRegistry  prometheus.Registerer
	tracer        trace.Tracer
	pollInterval  time.Duration
	startSequence *uint64
	reset         bool
	metrics       pipelineMetrics
	// next is the sequence number of the checkpoint being ingested
	next      atomic.Uint64
	watermark atomic.Pointer[uint64]
	// digest of checkpoint next-1, when known
	prevDigest string
	running    atomic.Bool
}

type PipelineOption func(*Pipeline)

func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

func WithPromRegistry(registry prometheus.Registerer) PipelineOption {
	return func(p *Pipeline) {
		p.promRegistry = registry
	}
}

// WithResolver decodes object contents as they are ingested
func WithResolver(resolver *layout.Resolver) PipelineOption {
	return func(p *Pipeline) {
		p.resolver = resolver
	}
}

// WithEventBus publishes a CheckpointCommittedEvent after each commit
func WithEventBus(eventBus *event.EventBus) PipelineOption {
	return func(p *Pipeline) {
		p.eventBus = eventBus
	}
}

// WithPollInterval sets how long to wait before asking again for a
// checkpoint the source doesn't have yet
func WithPollInterval(interval time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.pollInterval = interval
	}
}

// WithStartSequence starts ingestion at seq instead of after the stored
// watermark
func WithStartSequence(seq uint64) PipelineOption {
	return func(p *Pipeline) {
		p.startSequence = &seq
	}
}

// WithReset clears all indexed data before ingestion starts
func WithReset(reset bool) PipelineOption {
	return func(p *Pipeline) {
		p.reset = reset
	}
}

func WithTracerProvider(provider trace.TracerProvider) PipelineOption {
	return func(p *Pipeline) {
		p.tracer = provider.Tracer(tracerName)
	}
}

func New(
	db *database.Database,
	checkpointFetcher CheckpointFetcher,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		db:           db,
		fetcher:      checkpointFetcher,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	p.logger = p.logger.With("component", "ingest")
	if p.tracer == nil {
		p.tracer = otel.Tracer(tracerName)
	}
	if p.pollInterval <= 0 {
		p.pollInterval = DefaultPollInterval
	}
	p.metrics.init(p.promRegistry)
	return p
}

// Watermark returns the highest committed checkpoint, or false when the
// pipeline hasn't loaded or committed one yet. It never decreases.
func (p *Pipeline) Watermark() (uint64, bool) {
	tmp := p.watermark.Load()
	if tmp == nil {
		return 0, false
	}
	return *tmp, true
}

// Next returns the sequence number of the next checkpoint to ingest
func (p *Pipeline) Next() uint64 {
	return p.next.Load()
}

// Run ingests checkpoints until ctx is done or an unrecoverable error
// occurs. Cancellation is a clean stop and returns nil. A checkpoint being
// written when ctx is canceled is either committed whole or not at all.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return errors.New("pipeline is already running")
	}
	defer p.running.Store(false)
	if err := p.start(); err != nil {
		return err
	}
	p.logger.Info(
		fmt.Sprintf("starting ingestion at checkpoint %d", p.next.Load()),
	)
	for {
		if ctx.Err() != nil {
			p.logger.Info("ingestion stopped", "next", p.next.Load())
			return nil
		}
		next := p.next.Load()
		data, err := p.fetcher.Fetch(ctx, next)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			if errors.Is(err, fetcher.ErrNotYetAvailable) {
				p.wait(ctx)
				continue
			}
			if source.IsTransient(err) {
				p.logger.Warn(
					"source unavailable, will retry",
					"sequence", next,
					"error", err,
				)
				p.wait(ctx)
				continue
			}
			var invalid *fetcher.InvalidDataError
			if errors.As(err, &invalid) {
				err = integrityErrorf(next, "%s", invalid.Reason)
				p.logger.Error(
					"source returned invalid checkpoint data",
					"sequence", next,
					"error", err,
				)
				return err
			}
			p.logger.Error(
				"failed to fetch checkpoint",
				"sequence", next,
				"error", err,
			)
			return err
		}
		if err := p.processCheckpoint(ctx, data); err != nil {
			if ctx.Err() != nil && !errors.Is(err, ErrIntegrity) {
				continue
			}
			p.logger.Error(
				"failed to process checkpoint",
				"sequence", next,
				"error", err,
			)
			return err
		}
	}
}

// wait suspends until the poll interval elapses or ctx is done
func (p *Pipeline) wait(ctx context.Context) {
	timer := time.NewTimer(p.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// start determines where ingestion begins
func (p *Pipeline) start() error {
	if p.reset {
		p.logger.Warn("clearing indexed data before ingestion")
		if err := p.db.Reset(); err != nil {
			return fmt.Errorf("reset database: %w", err)
		}
	}
	wm, err := p.db.Watermark(nil)
	if err != nil {
		return fmt.Errorf("load watermark: %w", err)
	}
	var next uint64
	if wm != nil {
		seq := wm.SequenceNumber
		p.watermark.Store(&seq)
		p.metrics.watermark.Set(float64(seq))
		next = seq + 1
	}
	if p.startSequence != nil {
		next = *p.startSequence
	}
	p.next.Store(next)
	p.prevDigest = ""
	if next > 0 {
		prev, err := p.db.GetCheckpoint(next-1, nil)
		switch {
		case err == nil:
			p.prevDigest = prev.Checkpoint.Digest
		case errors.Is(err, database.ErrCheckpointNotFound):
		default:
			return fmt.Errorf("load checkpoint %d: %w", next-1, err)
		}
	}
	return nil
}

// verify checks that a fetched checkpoint is the one expected and fits on
// the stored chain
func (p *Pipeline) verify(next uint64, data *fetcher.CheckpointData) error {
	cp := data.Checkpoint
	if cp == nil {
		return integrityErrorf(next, "no checkpoint returned")
	}
	if uint64(cp.SequenceNumber) != next {
		return integrityErrorf(
			next,
			"source returned checkpoint %d",
			cp.SequenceNumber,
		)
	}
	if len(data.Transactions) != len(cp.Transactions) {
		return integrityErrorf(
			next,
			"declares %d transactions, got %d",
			len(cp.Transactions),
			len(data.Transactions),
		)
	}
	for i, tx := range data.Transactions {
		if tx.Digest != cp.Transactions[i] {
			return integrityErrorf(
				next,
				"transaction %d is %s, expected %s",
				i,
				tx.Digest,
				cp.Transactions[i],
			)
		}
		if err := tx.Validate(); err != nil {
			return integrityErrorf(next, "%s", err)
		}
	}
	if p.prevDigest != "" && cp.PrevDigest().String() != p.prevDigest {
		return integrityErrorf(
			next,
			"previous digest %s does not match stored checkpoint %d (%s)",
			cp.PrevDigest(),
			next-1,
			p.prevDigest,
		)
	}
	return nil
}

func (p *Pipeline) processCheckpoint(
	ctx context.Context,
	data *fetcher.CheckpointData,
) (err error) {
	next := p.next.Load()
	ctx, span := p.tracer.Start(
		ctx,
		"ingest.checkpoint",
		trace.WithAttributes(
			attribute.Int64("checkpoint.sequence", int64(next)), //nolint:gosec
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	if err := p.verify(next, data); err != nil {
		return err
	}
	unit, stats, err := p.decodeCheckpoint(ctx, data)
	if err != nil {
		return err
	}
	// Nothing has been written yet, so stopping here leaves no trace
	if err := ctx.Err(); err != nil {
		return err
	}
	span.SetAttributes(
		attribute.Int("checkpoint.transactions", len(unit.Transactions)),
		attribute.Int("checkpoint.events", stats.events),
		attribute.Int("checkpoint.objects", len(unit.Objects)),
	)
	start := time.Now()
	if err := p.db.InsertCheckpointUnit(unit); err != nil {
		return fmt.Errorf("commit checkpoint %d: %w", next, err)
	}
	p.metrics.commitLatency.Observe(time.Since(start).Seconds())
	p.advance(unit, stats)
	return nil
}

// advance records a committed checkpoint and moves on to the next one
func (p *Pipeline) advance(unit *database.CheckpointUnit, stats decodeStats) {
	seq := unit.Checkpoint.SequenceNumber
	p.prevDigest = unit.Checkpoint.Digest
	p.next.Store(seq + 1)
	// Re-ingesting below the stored watermark leaves it where it is
	if cur := p.watermark.Load(); cur == nil || seq > *cur {
		p.watermark.Store(&seq)
		p.metrics.watermark.Set(float64(seq))
	}
	p.metrics.checkpoints.Inc()
	p.metrics.transactions.Add(float64(len(unit.Transactions)))
	p.metrics.events.Add(float64(stats.events))
	p.metrics.objects.Add(float64(len(unit.Objects)))
	p.metrics.decodeFailures.Add(float64(stats.decodeFailures))
	if p.eventBus != nil {
		p.eventBus.Publish(
			event.CheckpointCommittedEventType,
			event.NewEvent(
				event.CheckpointCommittedEventType,
				event.CheckpointCommittedEvent{
					SequenceNumber:   seq,
					Digest:           unit.Checkpoint.Digest,
					TransactionCount: len(unit.Transactions),
					EventCount:       stats.events,
					ObjectCount:      len(unit.Objects),
				},
			),
		)
	}
	logFn := p.logger.Debug
	if len(unit.Transactions) > 0 {
		logFn = p.logger.Info
	}
	logFn(
		fmt.Sprintf("committed checkpoint %d", seq),
		"digest", unit.Checkpoint.Digest,
		"transactions", len(unit.Transactions),
		"events", stats.events,
		"objects", len(unit.Objects),
	)
}
