package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	gosync "sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/stacklok/jobtracker/internal/applications"
	"github.com/stacklok/jobtracker/internal/events"
	"github.com/stacklok/jobtracker/internal/otel"
	"github.com/stacklok/jobtracker/internal/remote"
	"github.com/stacklok/jobtracker/internal/store"
	"github.com/stacklok/jobtracker/internal/telemetry"
)

// Engine synchronizes the local board with the remote application service.
type Engine interface {
	// FetchAll reloads every application. Concurrent callers share one request.
	// When some records were excluded the rest of the refresh is applied and a
	// *PartialRefreshError lists the excluded ones.
	FetchAll(ctx context.Context) error

	// Create validates payload and stores the application the service returns
	Create(ctx context.Context, payload *applications.NewApplication) (*applications.Record, error)

	// UpdateFull replaces a complete application with the service's canonical result
	UpdateFull(ctx context.Context, record *applications.Record) (*applications.Record, error)

	// ChangeStage moves an application to the stage denoted by statusID
	ChangeStage(ctx context.Context, id, statusID string) (*applications.Record, error)

	// Delete removes an application
	Delete(ctx context.Context, id string) error

	// Reorder sets the order of one board column locally
	Reorder(stage applications.Stage, ids []string) error

	// Snapshot returns the current board
	Snapshot() *store.Snapshot

	// State returns the current synchronization state
	State() State

	// View returns the board and the state as of the same instant
	View() View

	// IsPending reports whether a mutation is in flight for id
	IsPending(id string) bool

	// Subscribe registers for "applications changed" notifications
	Subscribe() (<-chan struct{}, func())

	// Wait blocks until every detached operation has finished
	Wait()
}

// View is a consistent pairing of the board and the synchronization state.
type View struct {
	Snapshot *store.Snapshot
	State    State
}

// StatusResolver answers the lookup questions the engine asks when validating.
type StatusResolver interface {
	EnsureLoaded(ctx context.Context) error
	StageForStatus(statusID string) (applications.Stage, bool)
	StatusForStage(stage applications.Stage) (string, bool)
	ContractTypeName(id string) (string, bool)
	ContractTypes() []remote.LookupItem
}

// defaultEngine is the default implementation of Engine
type defaultEngine struct {
	svc      remote.ApplicationService
	resolver StatusResolver
	store    *store.Store
	events   *events.Broadcaster
	tracer   trace.Tracer
	metrics  *telemetry.SyncMetrics
	now      func() time.Time

	fetches singleflight.Group
	running gosync.WaitGroup

	// mu guards state and makes a commit and its state update one step
	mu    gosync.Mutex
	state State
}

// Option configures the engine
type Option func(*defaultEngine)

// WithStore sets the store the engine commits to
func WithStore(s *store.Store) Option {
	return func(e *defaultEngine) {
		e.store = s
	}
}

// WithBroadcaster sets the broadcaster that receives change notifications
func WithBroadcaster(b *events.Broadcaster) Option {
	return func(e *defaultEngine) {
		e.events = b
	}
}

// WithTracer sets the tracer used for operation spans
func WithTracer(tracer trace.Tracer) Option {
	return func(e *defaultEngine) {
		e.tracer = tracer
	}
}

// WithMetrics sets the metrics recorded for each operation
func WithMetrics(metrics *telemetry.SyncMetrics) Option {
	return func(e *defaultEngine) {
		e.metrics = metrics
	}
}

// NewEngine creates an engine for svc. resolver is consulted to validate
// status and contract type identifiers.
func NewEngine(svc remote.ApplicationService, resolver StatusResolver, opts ...Option) Engine {
	e := &defaultEngine{
		svc:      svc,
		resolver: resolver,
		now:      time.Now,
		state:    State{Pending: map[string]OpKind{}},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = store.New()
	}
	if e.events == nil {
		e.events = events.NewBroadcaster()
	}
	return e
}

// Snapshot returns the current board
func (e *defaultEngine) Snapshot() *store.Snapshot {
	return e.store.Snapshot()
}

// State returns the current synchronization state
func (e *defaultEngine) State() State {
	return e.View().State
}

// View returns the board and the state as of the same instant
func (e *defaultEngine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return View{Snapshot: e.store.Snapshot(), State: e.state.clone()}
}

// IsPending reports whether a mutation is in flight for id
func (e *defaultEngine) IsPending(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.IsPending(id)
}

// Subscribe registers for "applications changed" notifications
func (e *defaultEngine) Subscribe() (<-chan struct{}, func()) {
	return e.events.Subscribe()
}

// Wait blocks until every detached operation has finished
func (e *defaultEngine) Wait() {
	e.running.Wait()
}

// FetchAll reloads every application and merges the result into the board.
// Records the response could not index are excluded, logged and recorded in
// the state; the rest of the refresh still applies and the exclusions are
// returned as a *PartialRefreshError.
func (e *defaultEngine) FetchAll(ctx context.Context) error {
	_, err := detach(ctx, &e.running, func(ctx context.Context) (any, error) {
		_, err, shared := e.fetches.Do(string(OpFetchAll), func() (any, error) {
			return nil, e.fetchAll(ctx)
		})
		if shared {
			slog.Debug("Joined in-flight fetch")
		}
		return nil, err
	})
	return err
}

func (e *defaultEngine) fetchAll(ctx context.Context) error {
	ctx, span := otel.StartSpan(ctx, e.tracer, "sync.FetchAll")
	defer span.End()

	started := e.now()
	since := e.begin(ctx, Transition{Kind: OpFetchAll, Phase: PhasePending})

	// Best effort: without lookups records are only checked against the stages.
	if err := e.resolver.EnsureLoaded(ctx); err != nil {
		slog.Debug("Lookups unavailable, status ids are not checked", "error", err)
	}

	records, err := e.svc.List(ctx)
	if err != nil {
		otel.RecordError(span, err)
		return e.settle(ctx, OpFetchAll, "", started, func() (bool, error) {
			return false, applications.WithOp(err, string(OpFetchAll))
		})
	}

	accepted := make([]*applications.Record, 0, len(records))
	var excluded []error
	for _, r := range records {
		if r == nil {
			continue
		}
		if r.Stage == "" {
			r = r.Clone()
		}
		if err := e.reconcile(r); err != nil {
			excluded = append(excluded, err)
			continue
		}
		accepted = append(accepted, r)
	}

	err = e.settle(ctx, OpFetchAll, "", started, func() (bool, error) {
		next, err := e.store.Apply(func(s *store.Snapshot) (*store.Snapshot, error) {
			return s.ReplaceAll(accepted, since)
		})
		partial := errors.Join(append(excluded, err)...)
		if partial != nil {
			slog.Warn("Excluded records from refresh", "error", partial)
			partial = &PartialRefreshError{Err: partial}
		}
		span.SetAttributes(
			otel.AttrResultCount.Int(len(records)),
			otel.AttrVersion.Int64(int64(next.Version())),
		)
		return true, partial
	})
	slog.Debug("Applications fetched", "count", len(records))
	return err
}

// Create validates payload, sends it and stores the service's result.
func (e *defaultEngine) Create(
	ctx context.Context,
	payload *applications.NewApplication,
) (*applications.Record, error) {
	ctx, span := otel.StartSpan(ctx, e.tracer, "sync.Create")
	defer span.End()

	if payload == nil {
		return nil, e.refuse(OpCreate, "", applications.NewValidationError("payload is required"))
	}
	if err := payload.Validate(); err != nil {
		otel.RecordError(span, err)
		return nil, e.refuse(OpCreate, "", err)
	}
	stage, err := e.resolveStage(ctx, payload.StatusID)
	if err != nil {
		otel.RecordError(span, err)
		return nil, e.refuse(OpCreate, "", err)
	}
	if err := e.checkContractType(payload.ContractTypeID); err != nil {
		otel.RecordError(span, err)
		return nil, e.refuse(OpCreate, "", err)
	}
	span.SetAttributes(otel.AttrStage.String(stage.String()), otel.AttrStatusID.String(payload.StatusID))

	sent := *payload
	if sent.CreatedAt.IsZero() {
		sent.CreatedAt = applications.NewTimestamp(e.now())
	}

	started := e.now()
	e.begin(ctx, Transition{Kind: OpCreate, Phase: PhasePending})

	return detach(ctx, &e.running, func(ctx context.Context) (*applications.Record, error) {
		created, err := e.svc.Create(ctx, &sent)
		if err == nil {
			if created.StatusID == "" {
				created.StatusID = sent.StatusID
			}
			if created.Stage == "" {
				// The service may omit the stage name; the status id was resolved above.
				created.Stage = stage
			}
			err = e.reconcile(created)
		}

		var out *applications.Record
		err = e.settle(ctx, OpCreate, "", started, func() (bool, error) {
			if err != nil {
				return false, applications.WithOp(err, string(OpCreate))
			}
			next, err := e.store.Apply(func(s *store.Snapshot) (*store.Snapshot, error) {
				return s.UpsertOne(created)
			})
			if err != nil {
				return false, applications.WithOp(err, string(OpCreate))
			}
			out, _ = next.Get(created.ID)
			return true, nil
		})
		if err != nil {
			otel.RecordError(span, err)
			return nil, err
		}
		span.SetAttributes(otel.AttrApplicationID.String(out.ID))
		slog.Info("Application created", "id", out.ID, "stage", out.Stage)
		return out, nil
	})
}

// UpdateFull sends a complete record and stores the canonical result. A
// result that arrives after the record was removed is discarded.
func (e *defaultEngine) UpdateFull(ctx context.Context, record *applications.Record) (*applications.Record, error) {
	ctx, span := otel.StartSpan(ctx, e.tracer, "sync.UpdateFull")
	defer span.End()

	if record == nil {
		return nil, e.refuse(OpUpdate, "", applications.NewValidationError("record is required"))
	}
	span.SetAttributes(otel.AttrApplicationID.String(record.ID))
	if err := record.ValidateForUpdate(); err != nil {
		otel.RecordError(span, err)
		return nil, e.refuse(OpUpdate, record.ID, err)
	}

	sent := record.Clone()
	started := e.now()
	guard, err := e.acquire(ctx, OpUpdate, sent.ID)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}

	return detach(ctx, &e.running, func(ctx context.Context) (*applications.Record, error) {
		updated, err := e.svc.Update(ctx, sent)
		if err == nil {
			err = e.completeRecord(updated, sent)
		}

		var out *applications.Record
		err = e.settle(ctx, OpUpdate, sent.ID, started, func() (bool, error) {
			if err != nil {
				return false, applications.WithOp(err, string(OpUpdate))
			}
			next, err := e.store.ApplyGuarded(guard, func(s *store.Snapshot) (*store.Snapshot, error) {
				return s.UpsertOne(updated)
			})
			if err != nil {
				return false, applications.WithOp(err, string(OpUpdate))
			}
			out, _ = next.Get(updated.ID)
			return true, nil
		})
		if err != nil {
			otel.RecordError(span, err)
			return nil, err
		}
		return out, nil
	})
}

// ChangeStage sends the target status id. The stage named in the service's
// response decides the destination column, even when the local lookup maps
// statusID elsewhere.
func (e *defaultEngine) ChangeStage(ctx context.Context, id, statusID string) (*applications.Record, error) {
	ctx, span := otel.StartSpan(ctx, e.tracer, "sync.ChangeStage")
	defer span.End()
	span.SetAttributes(otel.AttrApplicationID.String(id), otel.AttrStatusID.String(statusID))

	if strings.TrimSpace(statusID) == "" {
		return nil, e.refuse(OpChangeStage, id, applications.NewValidationError("statusId is required", "statusId"))
	}

	// Best effort: the local stage is only compared with the service's answer.
	var expected applications.Stage
	if err := e.resolver.EnsureLoaded(ctx); err != nil {
		slog.Debug("Lookups unavailable, relying on the service's stage", "error", err)
	} else {
		expected, _ = e.resolver.StageForStatus(statusID)
	}

	started := e.now()
	guard, err := e.acquire(ctx, OpChangeStage, id)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}

	return detach(ctx, &e.running, func(ctx context.Context) (*applications.Record, error) {
		resp, err := e.svc.ChangeStatus(ctx, id, statusID)
		var dest applications.Stage
		committed := statusID
		if err == nil {
			dest, err = e.destination(id, statusID, expected, resp)
		}
		if err == nil && resp != nil {
			committed = e.statusOf(dest, valueOr(resp.StatusID, statusID))
		}

		var out *applications.Record
		err = e.settle(ctx, OpChangeStage, id, started, func() (bool, error) {
			if err != nil {
				return false, applications.WithOp(err, string(OpChangeStage))
			}
			next, err := e.store.ApplyGuarded(guard, func(s *store.Snapshot) (*store.Snapshot, error) {
				if resp == nil || resp.Company == "" {
					return s.MoveToStage(id, dest, committed)
				}
				full := resp.Clone()
				full.ID = id
				full.Stage = dest
				full.StatusID = committed
				return s.UpsertOne(full)
			})
			if err != nil {
				return false, applications.WithOp(err, string(OpChangeStage))
			}
			out, _ = next.Get(id)
			return true, nil
		})
		if err != nil {
			otel.RecordError(span, err)
			return nil, err
		}
		span.SetAttributes(otel.AttrStage.String(dest.String()))
		return out, nil
	})
}

// destination picks the column a stage change lands in. A stage named by the
// service wins; the local lookup is used only when the response names none.
func (*defaultEngine) destination(
	id, statusID string,
	expected applications.Stage,
	resp *applications.Record,
) (applications.Stage, error) {
	if resp != nil && resp.Stage != "" {
		if !resp.Stage.Valid() {
			return "", applications.NewDataIntegrityError(id, fmt.Sprintf("service answered with unknown stage %q", resp.Stage))
		}
		if expected != "" && expected != resp.Stage {
			slog.Warn("Service resolved the status to a different stage than the local lookup",
				"id", id, "status_id", statusID, "local_stage", expected, "service_stage", resp.Stage)
		}
		return resp.Stage, nil
	}
	if expected != "" {
		return expected, nil
	}
	return "", applications.NewDataIntegrityError(id, fmt.Sprintf("status %q does not resolve to a stage", statusID))
}

// Delete removes a record. Deleting an id that is not on the board fails
// without calling the service.
func (e *defaultEngine) Delete(ctx context.Context, id string) error {
	ctx, span := otel.StartSpan(ctx, e.tracer, "sync.Delete")
	defer span.End()
	span.SetAttributes(otel.AttrApplicationID.String(id))

	started := e.now()
	if _, err := e.acquire(ctx, OpDelete, id); err != nil {
		otel.RecordError(span, err)
		return err
	}

	_, err := detach(ctx, &e.running, func(ctx context.Context) (struct{}, error) {
		_, err := e.svc.Delete(ctx, id)
		err = e.settle(ctx, OpDelete, id, started, func() (bool, error) {
			if err != nil {
				return false, applications.WithOp(err, string(OpDelete))
			}
			_, _ = e.store.Apply(func(s *store.Snapshot) (*store.Snapshot, error) {
				return s.Remove(id), nil
			})
			return true, nil
		})
		if err != nil {
			otel.RecordError(span, err)
		}
		return struct{}{}, err
	})
	return err
}

// Reorder sets the order of one column. It is local only.
func (e *defaultEngine) Reorder(stage applications.Stage, ids []string) error {
	_, err := e.store.Apply(func(s *store.Snapshot) (*store.Snapshot, error) {
		return s.Reorder(stage, ids)
	})
	return err
}

// resolveStage maps a status id to a stage through the lookups.
func (e *defaultEngine) resolveStage(ctx context.Context, statusID string) (applications.Stage, error) {
	if err := e.resolver.EnsureLoaded(ctx); err != nil {
		return "", err
	}
	stage, ok := e.resolver.StageForStatus(statusID)
	if !ok {
		return "", applications.NewValidationError(
			fmt.Sprintf("status %q does not denote a pipeline stage", statusID), "statusId")
	}
	return stage, nil
}

// checkContractType rejects contract type ids missing from a loaded lookup.
func (e *defaultEngine) checkContractType(id string) error {
	if id == "" || len(e.resolver.ContractTypes()) == 0 {
		return nil
	}
	if _, ok := e.resolver.ContractTypeName(id); !ok {
		return applications.NewValidationError(fmt.Sprintf("unknown contract type %q", id), "contractTypeId")
	}
	return nil
}

// completeRecord fills the fields a service response may leave out from the
// record that was sent, then checks the result like any other record.
func (e *defaultEngine) completeRecord(got, sent *applications.Record) error {
	if got.ID == "" {
		got.ID = sent.ID
	}
	if got.StatusID == "" {
		got.StatusID = sent.StatusID
	}
	if got.Stage == "" {
		if stage, ok := e.resolver.StageForStatus(got.StatusID); ok {
			got.Stage = stage
		} else {
			got.Stage = sent.Stage
		}
	}
	return e.reconcile(got)
}

// reconcile fills a missing stage from the status id and rejects records whose
// stage is not a pipeline stage or disagrees with what the status id denotes.
// Without loaded lookups only the stage itself is checked.
func (e *defaultEngine) reconcile(r *applications.Record) error {
	var known applications.Stage
	loaded := false
	if r.StatusID != "" {
		known, loaded = e.resolver.StageForStatus(r.StatusID)
	}
	switch {
	case r.Stage == "" && loaded:
		r.Stage = known
		return nil
	case r.Stage == "":
		return applications.NewDataIntegrityError(r.ID, fmt.Sprintf("status %q does not resolve to a stage", r.StatusID))
	case !r.Stage.Valid():
		return applications.NewDataIntegrityError(r.ID, fmt.Sprintf("unknown stage %q", r.Stage))
	case loaded && known != r.Stage:
		return applications.NewDataIntegrityError(r.ID,
			fmt.Sprintf("status %q denotes %s, not %s", r.StatusID, known, r.Stage))
	}
	return nil
}

// statusOf returns statusID when it denotes stage, or else the status the
// lookups map to stage. statusID is kept when the lookups cannot tell.
func (e *defaultEngine) statusOf(stage applications.Stage, statusID string) string {
	if known, ok := e.resolver.StageForStatus(statusID); !ok || known == stage {
		return statusID
	}
	if id, ok := e.resolver.StatusForStage(stage); ok {
		return id
	}
	return statusID
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// refuse records an operation rejected before it was issued.
func (e *defaultEngine) refuse(kind OpKind, id string, err error) error {
	err = applications.WithOp(err, string(kind))
	e.mu.Lock()
	e.state = reduce(e.state, Transition{Kind: kind, Phase: PhaseRefused, ID: id, Err: err})
	e.mu.Unlock()

	outcome := telemetry.OutcomeRejected
	if errors.Is(err, applications.ErrConflict) {
		outcome = telemetry.OutcomeConflict
	}
	e.metrics.RecordOperation(context.Background(), string(kind), outcome, 0)
	slog.Debug("Operation refused", "operation", kind, "id", id, "error", err)
	return err
}

// acquire marks id as pending for kind. It fails when id is not on the board
// or already has a mutation in flight. The returned guard pins the incarnation
// the result must be committed against.
func (e *defaultEngine) acquire(ctx context.Context, kind OpKind, id string) (store.Guard, error) {
	e.mu.Lock()
	guard, ok := e.store.Snapshot().Guard(id)
	var err error
	switch {
	case !ok:
		err = applications.NewNotFoundError(id)
	case e.state.IsPending(id):
		err = applications.NewConflictError(id)
	}
	if err != nil {
		e.mu.Unlock()
		return store.Guard{}, e.refuse(kind, id, err)
	}
	e.state = reduce(e.state, Transition{Kind: kind, Phase: PhasePending, ID: id})
	e.mu.Unlock()

	e.metrics.AddPending(ctx, string(kind), 1)
	return guard, nil
}

// begin records an operation without an id as pending and returns the store
// version it was issued at.
func (e *defaultEngine) begin(ctx context.Context, t Transition) uint64 {
	e.mu.Lock()
	version := e.store.Snapshot().Version()
	e.state = reduce(e.state, t)
	e.mu.Unlock()

	e.metrics.AddPending(ctx, string(t.Kind), 1)
	return version
}

// settle runs commit and records its outcome as one step. commit reports
// whether the result was applied, and the error to record.
func (e *defaultEngine) settle(
	ctx context.Context,
	kind OpKind,
	id string,
	started time.Time,
	commit func() (bool, error),
) error {
	e.mu.Lock()
	applied, err := commit()
	t := Transition{Kind: kind, Phase: PhaseRejected, ID: id, Err: err}
	if applied {
		t.Phase = PhaseApplied
	}
	e.state = reduce(e.state, t)
	snap := e.store.Snapshot()
	e.mu.Unlock()

	e.metrics.AddPending(ctx, string(kind), -1)
	outcome := telemetry.OutcomeRejected
	if applied {
		outcome = telemetry.OutcomeApplied
		e.metrics.RecordBoard(ctx, boardCounts(snap))
	}
	e.metrics.RecordOperation(ctx, string(kind), outcome, e.now().Sub(started))

	if !applied {
		slog.Warn("Operation rejected", "operation", kind, "id", id, "error", err)
		return err
	}
	if kind != OpFetchAll {
		e.events.Notify()
	}
	return err
}

func boardCounts(s *store.Snapshot) map[string]int {
	counts := make(map[string]int, len(applications.Stages))
	for _, stage := range applications.Stages {
		counts[stage.String()] = len(s.Column(stage))
	}
	return counts
}

// detach runs fn on a context that survives cancellation of ctx. The caller
// gets control back as soon as ctx is done; fn still runs to completion.
func detach[T any](ctx context.Context, wg *gosync.WaitGroup, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := fn(context.WithoutCancel(ctx))
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
