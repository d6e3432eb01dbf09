// Package lookup resolves the server identifiers of statuses and contract
// types at runtime. Status identifiers are never hardcoded: the resolver maps
// every status returned by the lookup service to one of the pipeline stages
// by name.
package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/stacklok/jobtracker/internal/applications"
	"github.com/stacklok/jobtracker/internal/remote"
)

const (
	// DefaultCacheTTL is how long loaded lookups are considered fresh
	DefaultCacheTTL = 10 * time.Minute

	// DefaultMaxTries bounds the attempts made to load each lookup list
	DefaultMaxTries = 3
)

// tables is an immutable set of loaded lookups.
type tables struct {
	stageByStatus map[string]applications.Stage
	statusByStage map[applications.Stage]string
	contractNames map[string]string
	statuses      []remote.LookupItem
	contractTypes []remote.LookupItem
}

// Resolver caches the lookup lists and answers identifier questions.
type Resolver struct {
	svc         remote.LookupService
	ttl         time.Duration
	maxTries    uint
	newBackOff  func() backoff.BackOff
	now         func() time.Time
	refreshOnce singleflight.Group

	mu       sync.RWMutex
	current  *tables
	loadedAt time.Time
}

// Option configures a Resolver
type Option func(*Resolver)

// WithCacheTTL sets how long loaded lookups stay fresh
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithMaxTries sets the number of attempts per lookup list
func WithMaxTries(n uint) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxTries = n
		}
	}
}

// WithBackOff sets the retry policy between attempts
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(r *Resolver) {
		r.newBackOff = fn
	}
}

// NewResolver creates a resolver backed by svc.
func NewResolver(svc remote.LookupService, opts ...Option) *Resolver {
	r := &Resolver{
		svc:      svc,
		ttl:      DefaultCacheTTL,
		maxTries: DefaultMaxTries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Loaded reports whether lookups have been loaded at least once.
func (r *Resolver) Loaded() bool {
	return r.snapshot() != nil
}

func (r *Resolver) snapshot() *tables {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// EnsureLoaded loads the lookups when they were never loaded or are stale.
// When a refresh of stale lookups fails the stale lookups are kept and no
// error is returned.
func (r *Resolver) EnsureLoaded(ctx context.Context) error {
	r.mu.RLock()
	fresh := r.current != nil && r.now().Sub(r.loadedAt) < r.ttl
	stale := r.current != nil
	r.mu.RUnlock()
	if fresh {
		return nil
	}

	err := r.Refresh(ctx)
	if err != nil && stale {
		slog.Warn("Failed to refresh lookups, using cached values", "error", err)
		return nil
	}
	return err
}

// Refresh reloads both lookup lists. Concurrent callers share one load.
func (r *Resolver) Refresh(ctx context.Context) error {
	_, err, _ := r.refreshOnce.Do("refresh", func() (any, error) {
		return nil, r.load(ctx)
	})
	return err
}

func (r *Resolver) load(ctx context.Context) error {
	var statuses, contractTypes []remote.LookupItem

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := r.fetch(gctx, r.svc.Statuses)
		statuses = items
		return err
	})
	g.Go(func() error {
		items, err := r.fetch(gctx, r.svc.ContractTypes)
		contractTypes = items
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load lookups: %w", err)
	}

	t := buildTables(statuses, contractTypes)
	r.mu.Lock()
	r.current = t
	r.loadedAt = r.now()
	r.mu.Unlock()

	slog.Debug("Lookups loaded", "statuses", len(t.statuses), "contract_types", len(t.contractTypes))
	return nil
}

// fetch retries transient failures. Authentication and explicit service
// failures are not retried.
func (r *Resolver) fetch(
	ctx context.Context,
	list func(context.Context) ([]remote.LookupItem, error),
) ([]remote.LookupItem, error) {
	op := func() ([]remote.LookupItem, error) {
		items, err := list(ctx)
		if err == nil {
			return items, nil
		}
		switch applications.KindOf(err) {
		case applications.KindNetwork, applications.KindUnknown:
			return nil, err
		default:
			return nil, backoff.Permanent(err)
		}
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(r.newBackOff()),
		backoff.WithMaxTries(r.maxTries),
	)
}

func buildTables(statuses, contractTypes []remote.LookupItem) *tables {
	t := &tables{
		stageByStatus: make(map[string]applications.Stage, len(statuses)),
		statusByStage: make(map[applications.Stage]string, len(applications.Stages)),
		contractNames: make(map[string]string, len(contractTypes)),
		statuses:      slices.Clone(statuses),
		contractTypes: slices.Clone(contractTypes),
	}
	for _, item := range statuses {
		stage, err := applications.ParseStage(item.Name)
		if err != nil {
			slog.Warn("Ignoring status that is not a pipeline stage", "status_id", item.ID, "name", item.Name)
			continue
		}
		t.stageByStatus[item.ID] = stage
		if _, dup := t.statusByStage[stage]; dup {
			slog.Warn("Several statuses map to the same stage, keeping the first", "stage", stage, "status_id", item.ID)
			continue
		}
		t.statusByStage[stage] = item.ID
	}
	for _, item := range contractTypes {
		t.contractNames[item.ID] = item.Name
	}
	return t
}

// StageForStatus returns the stage a status identifier denotes.
func (r *Resolver) StageForStatus(statusID string) (applications.Stage, bool) {
	t := r.snapshot()
	if t == nil {
		return "", false
	}
	stage, ok := t.stageByStatus[statusID]
	return stage, ok
}

// StatusForStage returns the status identifier of a stage.
func (r *Resolver) StatusForStage(stage applications.Stage) (string, bool) {
	t := r.snapshot()
	if t == nil {
		return "", false
	}
	id, ok := t.statusByStage[stage]
	return id, ok
}

// ContractTypeName returns the display name of a contract type.
func (r *Resolver) ContractTypeName(id string) (string, bool) {
	t := r.snapshot()
	if t == nil {
		return "", false
	}
	name, ok := t.contractNames[id]
	return name, ok
}

// ContractTypeByName returns the identifier of a contract type by its
// case-sensitive display name.
func (r *Resolver) ContractTypeByName(name string) (string, bool) {
	t := r.snapshot()
	if t == nil {
		return "", false
	}
	for _, item := range t.contractTypes {
		if item.Name == name {
			return item.ID, true
		}
	}
	return "", false
}

// Statuses returns the loaded statuses in service order.
func (r *Resolver) Statuses() []remote.LookupItem {
	t := r.snapshot()
	if t == nil {
		return nil
	}
	return slices.Clone(t.statuses)
}

// ContractTypes returns the loaded contract types in service order.
func (r *Resolver) ContractTypes() []remote.LookupItem {
	t := r.snapshot()
	if t == nil {
		return nil
	}
	return slices.Clone(t.contractTypes)
}
