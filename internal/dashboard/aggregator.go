// Package dashboard keeps the server-computed aggregates shown on the
// dashboard fresh. It refreshes the per-stage counts and the monthly series
// every time the board changes.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/jobtracker/internal/applications"
	"github.com/stacklok/jobtracker/internal/otel"
	"github.com/stacklok/jobtracker/internal/remote"
	"github.com/stacklok/jobtracker/internal/telemetry"
)

// Notifier delivers "applications changed" signals.
type Notifier interface {
	Subscribe() (<-chan struct{}, func())
}

// State is the last known dashboard data.
type State struct {
	Stats   []remote.StatusCount
	Monthly []remote.MonthlyCount
	Loading bool
	// Err is the error of the last refresh; the data above is from the last
	// successful one
	Err       error
	UpdatedAt time.Time
}

// Summary is derived from the per-stage counts.
type Summary struct {
	Total    int
	PerStage map[applications.Stage]int
	// Other counts applications in statuses that are not pipeline stages
	Other int
}

// Aggregator refreshes dashboard data when notified.
type Aggregator struct {
	svc     remote.StatisticsService
	tracer  trace.Tracer
	metrics *telemetry.DashboardMetrics
	now     func() time.Time

	mu    sync.RWMutex
	state State

	// Lifecycle management
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// Option configures the aggregator
type Option func(*Aggregator)

// WithTracer sets the tracer used for refresh spans
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Aggregator) {
		a.tracer = tracer
	}
}

// WithMetrics sets the refresh metrics
func WithMetrics(metrics *telemetry.DashboardMetrics) Option {
	return func(a *Aggregator) {
		a.metrics = metrics
	}
}

// New creates an aggregator backed by svc
func New(svc remote.StatisticsService, opts ...Option) *Aggregator {
	a := &Aggregator{
		svc:  svc,
		now:  time.Now,
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// State returns the last known dashboard data
func (a *Aggregator) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s := a.state
	s.Stats = slices.Clone(s.Stats)
	s.Monthly = slices.Clone(s.Monthly)
	return s
}

// Summary derives totals from the last known per-stage counts
func (a *Aggregator) Summary() Summary {
	return Summarize(a.State().Stats)
}

// Summarize totals per-stage counts. Status names are matched to stages
// case-insensitively.
func Summarize(stats []remote.StatusCount) Summary {
	s := Summary{PerStage: make(map[applications.Stage]int, len(applications.Stages))}
	for _, stage := range applications.Stages {
		s.PerStage[stage] = 0
	}
	for _, c := range stats {
		s.Total += c.Total
		stage, err := applications.ParseStage(c.StatusName)
		if err != nil {
			s.Other += c.Total
			continue
		}
		s.PerStage[stage] += c.Total
	}
	return s
}

// Refresh requests both aggregates concurrently. On failure the previous data
// is kept and the error is recorded.
func (a *Aggregator) Refresh(ctx context.Context) error {
	ctx, span := otel.StartSpan(ctx, a.tracer, "dashboard.Refresh")
	defer span.End()

	a.mu.Lock()
	a.state.Loading = true
	a.mu.Unlock()

	started := a.now()
	var stats []remote.StatusCount
	var monthly []remote.MonthlyCount

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = a.svc.StatusCounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		monthly, err = a.svc.MonthlyApplications(gctx)
		return err
	})
	err := g.Wait()
	a.metrics.RecordRefresh(ctx, a.now().Sub(started), err == nil)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Loading = false
	if err != nil {
		otel.RecordError(span, err)
		a.state.Err = err
		return fmt.Errorf("failed to refresh dashboard: %w", err)
	}
	a.state = State{Stats: stats, Monthly: monthly, UpdatedAt: a.now()}
	span.SetAttributes(otel.AttrResultCount.Int(len(stats)))
	return nil
}

// Start refreshes once, then again on every signal from n. It blocks until ctx
// is cancelled, Stop is called or n closes the subscription.
func (a *Aggregator) Start(ctx context.Context, n Notifier) error {
	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancelFunc = cancel
	a.mu.Unlock()

	changes, unsubscribe := n.Subscribe()
	defer func() {
		unsubscribe()
		close(a.done)
		slog.Debug("Dashboard aggregator stopped")
	}()

	if err := a.Refresh(ctx); err != nil {
		slog.Warn("Initial dashboard refresh failed", "error", err)
	}

	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			if err := a.Refresh(ctx); err != nil {
				slog.Warn("Dashboard refresh failed", "error", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Stop stops a running Start and waits for it to return
func (a *Aggregator) Stop() {
	a.mu.RLock()
	cancel := a.cancelFunc
	a.mu.RUnlock()
	if cancel != nil {
		cancel()
		<-a.done
	}
}
