package sync

import (
	"maps"
)

// OpKind identifies one of the engine operations.
type OpKind string

const (
	// OpFetchAll reloads the whole board
	OpFetchAll OpKind = "fetch_all"

	// OpCreate creates an application
	OpCreate OpKind = "create"

	// OpUpdate replaces a complete application
	OpUpdate OpKind = "update"

	// OpChangeStage moves an application to another stage
	OpChangeStage OpKind = "change_stage"

	// OpDelete removes an application
	OpDelete OpKind = "delete"
)

// Phase is the lifecycle position of one operation.
type Phase string

const (
	// PhaseRefused means the operation was rejected before reaching the service
	PhaseRefused Phase = "Refused"

	// PhasePending means the operation is in flight
	PhasePending Phase = "Pending"

	// PhaseApplied means the service confirmed and the result was committed
	PhaseApplied Phase = "Applied"

	// PhaseRejected means the service or the commit failed; nothing changed
	PhaseRejected Phase = "Rejected"
)

// Transition is one phase change of one operation.
type Transition struct {
	Kind  OpKind
	Phase Phase
	// ID is the record the operation targets, empty for fetch and create
	ID string
	// Err is the failure for refused and rejected operations, or the partial
	// failure of an applied fetch
	Err error
}

// State is the observable synchronization status.
type State struct {
	// Loading is true while a fetch is in flight
	Loading bool
	// Creating counts creates in flight; they have no id until confirmed
	Creating int
	// Pending maps record ids to the mutation in flight for them
	Pending map[string]OpKind
	// Err is the error of the last settled operation, nil after a clean success
	Err error
}

// IsPending reports whether a mutation is in flight for id.
func (s State) IsPending(id string) bool {
	_, ok := s.Pending[id]
	return ok
}

// Busy reports whether any operation is in flight.
func (s State) Busy() bool {
	return s.Loading || s.Creating > 0 || len(s.Pending) > 0
}

func (s State) clone() State {
	s.Pending = maps.Clone(s.Pending)
	return s
}

// reduce returns the state after t. s is not modified.
func reduce(s State, t Transition) State {
	next := s
	next.Pending = maps.Clone(s.Pending)
	if next.Pending == nil {
		next.Pending = map[string]OpKind{}
	}

	switch t.Phase {
	case PhaseRefused:
		next.Err = t.Err
	case PhasePending:
		switch t.Kind {
		case OpFetchAll:
			next.Loading = true
		case OpCreate:
			next.Creating++
		case OpUpdate, OpChangeStage, OpDelete:
			next.Pending[t.ID] = t.Kind
		}
	case PhaseApplied, PhaseRejected:
		switch t.Kind {
		case OpFetchAll:
			next.Loading = false
		case OpCreate:
			if next.Creating > 0 {
				next.Creating--
			}
		case OpUpdate, OpChangeStage, OpDelete:
			delete(next.Pending, t.ID)
		}
		next.Err = t.Err
	}
	return next
}
