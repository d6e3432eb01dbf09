package boardstate

import (
	"slices"
	"time"

	"github.com/stacklok/jobtracker/internal/applications"
)

// SyncPhase is the outcome of the last synchronization with the service
type SyncPhase string

const (
	// SyncPhaseComplete means the last sync loaded every application
	SyncPhaseComplete SyncPhase = "Complete"

	// SyncPhaseFailed means the last sync failed
	SyncPhaseFailed SyncPhase = "Failed"
)

// State is what a client remembers about one service between invocations.
type State struct {
	// Phase is the outcome of the last sync
	Phase SyncPhase `json:"phase,omitempty"`

	// Message is the error of the last failed sync
	Message string `json:"message,omitempty"`

	// LastAttempt is the timestamp of the last sync attempt
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`

	// AttemptCount is the number of failed attempts since the last success
	AttemptCount int `json:"attemptCount,omitempty"`

	// LastSyncTime is the timestamp of the last successful sync
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`

	// ApplicationCount is the number of applications seen by the last successful sync
	ApplicationCount int `json:"applicationCount,omitempty"`

	// Order is the column order chosen by the user, per stage
	Order map[applications.Stage][]string `json:"order,omitempty"`
}

// RecordSync records the outcome of a sync attempted at now.
func (s *State) RecordSync(now time.Time, count int, err error) {
	s.LastAttempt = &now
	if err != nil {
		s.Phase = SyncPhaseFailed
		s.Message = err.Error()
		s.AttemptCount++
		return
	}
	s.Phase = SyncPhaseComplete
	s.Message = ""
	s.AttemptCount = 0
	s.LastSyncTime = &now
	s.ApplicationCount = count
}

// Arrange orders the ids of a column by the saved order. Saved ids that are
// still present come first; the others keep their relative order after them.
func (s *State) Arrange(stage applications.Stage, current []string) []string {
	saved := s.Order[stage]
	if len(saved) == 0 {
		return slices.Clone(current)
	}

	present := make(map[string]bool, len(current))
	for _, id := range current {
		present[id] = true
	}
	out := make([]string, 0, len(current))
	for _, id := range saved {
		if present[id] {
			out = append(out, id)
			delete(present, id)
		}
	}
	for _, id := range current {
		if present[id] {
			out = append(out, id)
		}
	}
	return out
}

// SetOrder remembers the order of one column.
func (s *State) SetOrder(stage applications.Stage, ids []string) {
	if s.Order == nil {
		s.Order = make(map[applications.Stage][]string)
	}
	s.Order[stage] = slices.Clone(ids)
}
