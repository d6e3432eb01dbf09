// Package sync keeps the local application board consistent with the remote
// job application service.
//
// # Engine
//
// The Engine exposes five operations, each blocking only its caller at the
// network boundary:
//
//   - FetchAll: reload every application and merge it into the board
//   - Create: validate a new application and store the service's result
//   - UpdateFull: replace a complete application
//   - ChangeStage: move an application to the stage denoted by a status id
//   - Delete: remove an application
//
// The board is strictly server authoritative: nothing is written to the store
// before the service confirms an operation, and every confirmed result is
// applied as one atomic store transition.
//
// # Record checks
//
// Every record the service returns must name one of the five stages, or leave
// the stage out and carry a status id the lookups resolve. Once the lookups are
// loaded the status id must also denote the record's stage. A record failing
// these checks is never committed: a refresh excludes it and reports a
// PartialRefreshError, a mutation fails with a data-integrity error. A stage
// change is the exception to the status id check: the stage named by the
// service wins and the status id is taken from the lookups for that stage.
//
// # Per-record serialization
//
// At most one mutation may be in flight for a record. A second mutation for the
// same id is refused with a conflict error without reaching the service.
// Mutations of distinct records run concurrently.
//
// # Cancellation
//
// Cancelling the caller's context returns control immediately, but an
// operation that already reached the service keeps running detached and still
// commits its result. Callers that must ignore late results compare snapshot
// versions.
//
// # State
//
// Every operation moves through a closed set of phases (see Phase). Each
// phase change is a Transition reduced into State, which callers read together
// with the matching snapshot through View.
package sync
