// Package applications defines the job application domain model shared by the
// synchronization layer: records, pipeline stages, create payloads and the
// typed error taxonomy returned by every operation.
package applications

import (
	"fmt"
	"strings"
)

// Stage is a step of the recruitment pipeline.
type Stage string

// Pipeline stages, in board order.
const (
	// StageWishlist holds applications not yet sent
	StageWishlist Stage = "Wishlist"
	// StageApplied holds sent applications
	StageApplied Stage = "Applied"
	// StageInterviewing holds applications with interviews scheduled or done
	StageInterviewing Stage = "Interviewing"
	// StageOffer holds applications that received an offer
	StageOffer Stage = "Offer"
	// StageRejected holds closed applications
	StageRejected Stage = "Rejected"
)

// Stages lists every stage in board order.
var Stages = []Stage{
	StageWishlist,
	StageApplied,
	StageInterviewing,
	StageOffer,
	StageRejected,
}

// Valid reports whether s is one of the five pipeline stages.
func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// Index returns the board position of s, or -1 when s is not a pipeline stage.
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Stage) String() string {
	return string(s)
}

// ParseStage resolves a stage name case-insensitively.
func ParseStage(name string) (Stage, error) {
	trimmed := strings.TrimSpace(name)
	for _, st := range Stages {
		if strings.EqualFold(string(st), trimmed) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", name)
}
