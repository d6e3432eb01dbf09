package app

import (
	"github.com/stacklok/jobtracker/internal/auth"
	"github.com/stacklok/jobtracker/internal/service"
)

// AppComponents groups the sandbox components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Service holds the sandbox data
	Service service.Service

	// Issuer signs and validates access tokens
	Issuer *auth.Issuer
}
