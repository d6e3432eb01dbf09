package sync

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stacklok/jobtracker/internal/applications"
)

func TestIsPartialRefresh(t *testing.T) {
	t.Parallel()

	excluded := applications.NewDataIntegrityError("2", "unknown stage \"Archived\"")
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "partial", err: &PartialRefreshError{Err: excluded}, want: true},
		{name: "wrapped partial", err: fmt.Errorf("sync board: %w", &PartialRefreshError{Err: excluded}), want: true},
		{name: "bare data integrity", err: excluded, want: false},
		{name: "network", err: errors.New("connection refused"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsPartialRefresh(tt.err))
		})
	}

	err := &PartialRefreshError{Err: errors.Join(excluded)}
	assert.ErrorIs(t, err, applications.ErrDataIntegrity)
	assert.Contains(t, err.Error(), "records excluded")
}
