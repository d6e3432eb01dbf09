// Package store holds the normalized application table and the per-stage board
// index derived from it.
//
// A Snapshot is immutable: every transition returns a new Snapshot with a
// higher version and leaves the receiver untouched, so readers holding an old
// snapshot never observe a partially applied change. Between transitions the
// following always holds:
//
//   - every id in the table appears in exactly one column
//   - the column an id appears in equals the stage of its record
//   - within a column ids keep insertion order unless Reorder ran
//
// Column order is tracked apart from record content: a reorder never marks
// the records it moves as modified, and a refresh of a reordered column keeps
// the local order of the ids that stay in it.
//
// Store serializes transitions and publishes the latest Snapshot.
package store

import (
	"errors"
	"fmt"
	"slices"

	"github.com/stacklok/jobtracker/internal/applications"
)

// entry is a record plus the bookkeeping used to detect stale results.
type entry struct {
	record *applications.Record
	// incarnation is the version at which the id was inserted
	incarnation uint64
	// modified is the version of the last transition that touched the id
	modified uint64
}

// Snapshot is an immutable view of the table and its board index.
type Snapshot struct {
	version uint64
	entries map[string]entry
	columns [][]string
	// removed maps ids to the version of the transition that removed them
	removed map[string]uint64
	// ordered holds per column the version of its last explicit reorder
	ordered []uint64
}

// Guard identifies one incarnation of a record. A result computed against a
// guard may only be committed while the record still has that incarnation.
type Guard struct {
	ID          string
	Incarnation uint64
}

// Empty returns the initial snapshot: no records and five empty columns.
func Empty() *Snapshot {
	return &Snapshot{
		entries: map[string]entry{},
		columns: make([][]string, len(applications.Stages)),
		removed: map[string]uint64{},
		ordered: make([]uint64, len(applications.Stages)),
	}
}

// Version returns the number of transitions applied to reach this snapshot.
func (s *Snapshot) Version() uint64 {
	return s.version
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Get returns a copy of the record with the given id.
func (s *Snapshot) Get(id string) (*applications.Record, bool) {
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return e.record.Clone(), true
}

// StageOf returns the stage of the record with the given id.
func (s *Snapshot) StageOf(id string) (applications.Stage, bool) {
	e, ok := s.entries[id]
	if !ok {
		return "", false
	}
	return e.record.Stage, true
}

// Guard returns the guard of the record's current incarnation.
func (s *Snapshot) Guard(id string) (Guard, bool) {
	e, ok := s.entries[id]
	if !ok {
		return Guard{}, false
	}
	return Guard{ID: id, Incarnation: e.incarnation}, true
}

// Holds reports whether g still denotes the current incarnation of its record.
func (s *Snapshot) Holds(g Guard) bool {
	e, ok := s.entries[g.ID]
	return ok && e.incarnation == g.Incarnation
}

// Column returns the ordered ids of a stage. Unknown stages have no column.
func (s *Snapshot) Column(stage applications.Stage) []string {
	idx := stage.Index()
	if idx < 0 {
		return nil
	}
	return slices.Clone(s.columns[idx])
}

// Columns returns every column keyed by stage.
func (s *Snapshot) Columns() map[applications.Stage][]string {
	out := make(map[applications.Stage][]string, len(applications.Stages))
	for i, st := range applications.Stages {
		out[st] = slices.Clone(s.columns[i])
	}
	return out
}

// Records returns copies of all records in board order.
func (s *Snapshot) Records() []*applications.Record {
	out := make([]*applications.Record, 0, len(s.entries))
	for _, col := range s.columns {
		for _, id := range col {
			out = append(out, s.entries[id].record.Clone())
		}
	}
	return out
}

// Verify checks the table/index invariants and reports the first violation.
func (s *Snapshot) Verify() error {
	seen := make(map[string]applications.Stage, len(s.entries))
	for i, col := range s.columns {
		stage := applications.Stages[i]
		for _, id := range col {
			if prev, dup := seen[id]; dup {
				return fmt.Errorf("id %q indexed in both %s and %s", id, prev, stage)
			}
			seen[id] = stage
			e, ok := s.entries[id]
			if !ok {
				return fmt.Errorf("id %q indexed in %s but missing from table", id, stage)
			}
			if e.record.Stage != stage {
				return fmt.Errorf("id %q indexed in %s but record stage is %s", id, stage, e.record.Stage)
			}
		}
	}
	if len(seen) != len(s.entries) {
		for id := range s.entries {
			if _, ok := seen[id]; !ok {
				return fmt.Errorf("id %q missing from every column", id)
			}
		}
	}
	return nil
}

// next returns a shallow copy of s at the following version. Columns are
// shared until written through column().
func (s *Snapshot) next() *Snapshot {
	n := &Snapshot{
		version: s.version + 1,
		entries: make(map[string]entry, len(s.entries)+1),
		columns: slices.Clone(s.columns),
		removed: make(map[string]uint64, len(s.removed)),
		ordered: slices.Clone(s.ordered),
	}
	for id, e := range s.entries {
		n.entries[id] = e
	}
	for id, v := range s.removed {
		n.removed[id] = v
	}
	return n
}

// UpsertMany replaces the whole table with records and rebuilds every column
// in response order. Records with an empty id, a duplicate id or a stage
// outside the pipeline are excluded; the returned error joins one
// data-integrity error per excluded record while the snapshot still holds the
// rest.
func (s *Snapshot) UpsertMany(records []*applications.Record) (*Snapshot, error) {
	return s.ReplaceAll(records, s.version)
}

// ReplaceAll is UpsertMany for a response requested at version since. Records
// touched by transitions committed after since keep their current state and
// records removed after since stay removed. Tombstones at or before since are
// dropped. Columns that were explicitly reordered keep the local order of the
// ids that remain in them; ids new to such a column follow in response order.
func (s *Snapshot) ReplaceAll(records []*applications.Record, since uint64) (*Snapshot, error) {
	n := s.next()
	n.entries = make(map[string]entry, len(records))
	n.columns = make([][]string, len(applications.Stages))
	n.removed = make(map[string]uint64)
	for id, v := range s.removed {
		if v > since {
			n.removed[id] = v
		}
	}

	var errs []error
	placed := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		if r.ID == "" {
			errs = append(errs, applications.NewDataIntegrityError("", "record without id"))
			continue
		}
		if _, dup := placed[r.ID]; dup {
			errs = append(errs, applications.NewDataIntegrityError(r.ID, "duplicate id in response"))
			continue
		}
		if _, gone := n.removed[r.ID]; gone {
			continue
		}
		placed[r.ID] = struct{}{}

		if cur, ok := s.entries[r.ID]; ok && cur.modified > since {
			n.insert(cur)
			continue
		}
		if !r.Stage.Valid() {
			errs = append(errs, applications.NewDataIntegrityError(r.ID, fmt.Sprintf("unknown stage %q", r.Stage)))
			continue
		}
		e := entry{record: r.Clone(), incarnation: n.version, modified: n.version}
		if cur, ok := s.entries[r.ID]; ok {
			e.incarnation = cur.incarnation
		}
		n.insert(e)
	}

	// Records created or changed while the response was in flight.
	for i := range s.columns {
		for _, id := range s.columns[i] {
			cur := s.entries[id]
			if _, ok := placed[id]; ok || cur.modified <= since {
				continue
			}
			placed[id] = struct{}{}
			n.insert(cur)
		}
	}

	for i, v := range n.ordered {
		if v != 0 {
			n.columns[i] = keepOrder(s.columns[i], n.columns[i])
		}
	}

	return n, errors.Join(errs...)
}

// keepOrder returns next with the ids also present in prev first, in the order
// of prev.
func keepOrder(prev, next []string) []string {
	present := make(map[string]struct{}, len(next))
	for _, id := range next {
		present[id] = struct{}{}
	}
	out := make([]string, 0, len(next))
	for _, id := range prev {
		if _, ok := present[id]; ok {
			out = append(out, id)
			delete(present, id)
		}
	}
	for _, id := range next {
		if _, ok := present[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// insert adds e to the table and appends its id to the column of its stage.
// The caller guarantees the id is not yet indexed.
func (s *Snapshot) insert(e entry) {
	s.entries[e.record.ID] = e
	idx := e.record.Stage.Index()
	s.columns[idx] = append(s.columns[idx], e.record.ID)
}

// UpsertOne inserts or replaces a single record. When the stage changes the id
// leaves the column of the previously stored stage and is appended to the new
// one; otherwise it keeps its position.
func (s *Snapshot) UpsertOne(r *applications.Record) (*Snapshot, error) {
	if r == nil || r.ID == "" {
		return s, applications.NewDataIntegrityError("", "record without id")
	}
	if !r.Stage.Valid() {
		return s, applications.NewDataIntegrityError(r.ID, fmt.Sprintf("unknown stage %q", r.Stage))
	}

	n := s.next()
	delete(n.removed, r.ID)
	e := entry{record: r.Clone(), incarnation: n.version, modified: n.version}
	cur, exists := s.entries[r.ID]
	if exists {
		e.incarnation = cur.incarnation
	}
	n.entries[r.ID] = e

	newIdx := r.Stage.Index()
	if exists {
		oldIdx := cur.record.Stage.Index()
		if oldIdx == newIdx {
			return n, nil
		}
		n.columns[oldIdx] = without(n.columns[oldIdx], r.ID)
	}
	n.columns[newIdx] = appendCopy(n.columns[newIdx], r.ID)
	return n, nil
}

// Remove deletes a record and strips it from its column. Removing an absent id
// returns the receiver unchanged.
func (s *Snapshot) Remove(id string) *Snapshot {
	cur, ok := s.entries[id]
	if !ok {
		return s
	}
	n := s.next()
	delete(n.entries, id)
	idx := cur.record.Stage.Index()
	n.columns[idx] = without(n.columns[idx], id)
	n.removed[id] = n.version
	return n
}

// MoveToStage changes only the stage and status id of a record, moving it to
// the end of the destination column.
func (s *Snapshot) MoveToStage(id string, stage applications.Stage, statusID string) (*Snapshot, error) {
	cur, ok := s.entries[id]
	if !ok {
		return s, applications.NewNotFoundError(id)
	}
	moved := cur.record.Clone()
	moved.Stage = stage
	if statusID != "" {
		moved.StatusID = statusID
	}
	return s.UpsertOne(moved)
}

// Reorder sets the order of a column. ids must be a permutation of the
// column's current content.
func (s *Snapshot) Reorder(stage applications.Stage, ids []string) (*Snapshot, error) {
	idx := stage.Index()
	if idx < 0 {
		return s, applications.NewValidationError(fmt.Sprintf("unknown stage %q", stage))
	}
	current := s.columns[idx]
	if len(ids) != len(current) {
		return s, applications.NewValidationError("reorder must list every id of the column exactly once")
	}
	want := make(map[string]struct{}, len(current))
	for _, id := range current {
		want[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := want[id]; !ok {
			return s, applications.NewValidationError("reorder must list every id of the column exactly once")
		}
		delete(want, id)
	}

	n := s.next()
	n.columns[idx] = slices.Clone(ids)
	n.ordered[idx] = n.version
	return n, nil
}

func without(col []string, id string) []string {
	out := make([]string, 0, len(col))
	for _, v := range col {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func appendCopy(col []string, id string) []string {
	out := make([]string, len(col), len(col)+1)
	copy(out, col)
	return append(out, id)
}
