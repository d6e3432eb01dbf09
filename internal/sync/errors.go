package sync

import (
	"errors"
	"fmt"
)

// PartialRefreshError is returned by a refresh that was applied without some
// of the records the service listed. Err joins one data-integrity error per
// excluded record.
type PartialRefreshError struct {
	Err error
}

func (e *PartialRefreshError) Error() string {
	return fmt.Sprintf("refresh applied, records excluded: %v", e.Err)
}

func (e *PartialRefreshError) Unwrap() error {
	return e.Err
}

// IsPartialRefresh reports whether err only describes records a refresh
// excluded while the rest of it was applied.
func IsPartialRefresh(err error) bool {
	var partial *PartialRefreshError
	return errors.As(err, &partial)
}
