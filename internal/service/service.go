// Package service provides the business logic of the sandbox job application
// service served by "jobtracker sandbox".
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/stacklok/jobtracker/internal/applications"
	"github.com/stacklok/jobtracker/internal/remote"
)

var (
	// ErrApplicationNotFound is returned when an application does not exist for the caller
	ErrApplicationNotFound = errors.New("application not found")
	// ErrStatusNotFound is returned when a status id is unknown
	ErrStatusNotFound = errors.New("status not found")
	// ErrContractTypeNotFound is returned when a contract type id is unknown
	ErrContractTypeNotFound = errors.New("contract type not found")
	// ErrUserExists is returned when registering an email twice
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned when an email and password do not match
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError lists the fields of a rejected payload.
type ValidationError struct {
	Message string
	Details []string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Details, ", ")
}

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go Service

// Service defines the operations of the sandbox. Application operations are
// scoped to an owner, the email of the authenticated user.
type Service interface {
	// CheckReadiness checks if the service is ready to serve requests
	CheckReadiness(ctx context.Context) error

	// ListApplications returns the applications of owner, oldest first
	ListApplications(ctx context.Context, owner string) ([]*applications.Record, error)
	// CreateApplication stores a new application and assigns its id
	CreateApplication(ctx context.Context, owner string, payload *applications.NewApplication) (*applications.Record, error)
	// UpdateApplication replaces an existing application
	UpdateApplication(ctx context.Context, owner string, record *applications.Record) (*applications.Record, error)
	// ChangeStatus moves an application to the status denoted by statusID
	ChangeStatus(ctx context.Context, owner, id, statusID string) (*applications.Record, error)
	// DeleteApplication removes an application and returns it
	DeleteApplication(ctx context.Context, owner, id string) (*applications.Record, error)

	// Statuses lists the pipeline statuses
	Statuses(ctx context.Context) ([]remote.LookupItem, error)
	// ContractTypes lists the contract types
	ContractTypes(ctx context.Context) ([]remote.LookupItem, error)

	// StatusCounts counts the applications of owner per status
	StatusCounts(ctx context.Context, owner string) ([]remote.StatusCount, error)
	// MonthlyApplications counts the applications of owner per creation month
	MonthlyApplications(ctx context.Context, owner string) ([]remote.MonthlyCount, error)

	// Register creates a user account
	Register(ctx context.Context, user remote.NewUser) error
	// Authenticate checks credentials and returns the matching profile
	Authenticate(ctx context.Context, creds remote.Credentials) (*remote.User, error)
	// ChangePassword replaces the password of a user after checking the old one
	ChangePassword(ctx context.Context, change remote.PasswordChange) error
}
