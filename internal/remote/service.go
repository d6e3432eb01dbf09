// Package remote is the typed client for the job application service: the
// application CRUD endpoints, the lookup lists, the dashboard statistics and
// the user endpoints. Every failure is returned as an *applications.Error.
package remote

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go ApplicationService,LookupService,StatisticsService,UserService

import (
	"context"

	"github.com/stacklok/jobtracker/internal/applications"
)

// ApplicationService is the remote collection of job applications.
type ApplicationService interface {
	// List returns every application of the current user
	List(ctx context.Context) ([]*applications.Record, error)
	// Create stores a new application and returns it with its assigned id
	Create(ctx context.Context, payload *applications.NewApplication) (*applications.Record, error)
	// Update replaces a complete application and returns the canonical result
	Update(ctx context.Context, record *applications.Record) (*applications.Record, error)
	// ChangeStatus moves an application to the stage denoted by statusID
	ChangeStatus(ctx context.Context, id, statusID string) (*applications.Record, error)
	// Delete removes an application and returns at least its id
	Delete(ctx context.Context, id string) (*applications.Record, error)
}

// LookupService lists the identifier/name pairs of statuses and contract types.
type LookupService interface {
	Statuses(ctx context.Context) ([]LookupItem, error)
	ContractTypes(ctx context.Context) ([]LookupItem, error)
}

// StatisticsService computes dashboard aggregates server side.
type StatisticsService interface {
	StatusCounts(ctx context.Context) ([]StatusCount, error)
	MonthlyApplications(ctx context.Context) ([]MonthlyCount, error)
}

// UserService manages accounts and issues access tokens.
type UserService interface {
	Login(ctx context.Context, creds Credentials) (*LoginResult, error)
	Register(ctx context.Context, user NewUser) error
	ChangePassword(ctx context.Context, change PasswordChange) error
}

// LookupItem pairs a server identifier with its display name.
type LookupItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StatusCount is the number of applications in one stage.
type StatusCount struct {
	StatusName string `json:"statusName"`
	Total      int    `json:"total"`
}

// MonthlyCount is the number of applications created in one month.
type MonthlyCount struct {
	Month string `json:"month"`
	Count int    `json:"applications"`
}

// Credentials identify a user at login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User is the profile returned at login.
type User struct {
	FirstName string `json:"firstName"`
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
}

// LoginResult is the token and profile returned by a successful login.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// NewUser is the registration payload.
type NewUser struct {
	FirstName string `json:"firstName"`
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// PasswordChange is the payload of a password change.
type PasswordChange struct {
	Email       string `json:"email"`
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}
