// Package inmemory provides an in-memory implementation of the sandbox Service
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/stacklok/jobtracker/internal/applications"
	"github.com/stacklok/jobtracker/internal/remote"
	"github.com/stacklok/jobtracker/internal/service"
)

const minPasswordLength = 8

// DefaultContractTypes are the contract types offered by a new sandbox.
var DefaultContractTypes = []string{"Full-time", "Part-time", "Contract", "Internship", "Freelance"}

type account struct {
	profile remote.User
	hash    []byte
}

// sandboxSvc implements the Service interface
type sandboxSvc struct {
	mu    sync.RWMutex // Protects users, apps, order
	users map[string]*account
	apps  map[string]map[string]*applications.Record
	order map[string][]string

	statuses      []remote.LookupItem
	contractTypes []remote.LookupItem

	cost int
	now  func() time.Time
}

var _ service.Service = (*sandboxSvc)(nil)

// Option is a functional option for configuring the sandbox
type Option func(*sandboxSvc)

// WithClock sets the clock used for creation dates
func WithClock(now func() time.Time) Option {
	return func(s *sandboxSvc) {
		s.now = now
	}
}

// WithPasswordCost sets the bcrypt cost of stored passwords
func WithPasswordCost(cost int) Option {
	return func(s *sandboxSvc) {
		s.cost = cost
	}
}

// New creates an empty sandbox with one status per pipeline stage and the
// default contract types.
func New(opts ...Option) service.Service {
	s := &sandboxSvc{
		users: map[string]*account{},
		apps:  map[string]map[string]*applications.Record{},
		order: map[string][]string{},
		cost:  bcrypt.DefaultCost,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, stage := range applications.Stages {
		s.statuses = append(s.statuses, remote.LookupItem{ID: uuid.NewString(), Name: stage.String()})
	}
	for _, name := range DefaultContractTypes {
		s.contractTypes = append(s.contractTypes, remote.LookupItem{ID: uuid.NewString(), Name: name})
	}

	slog.Debug("Sandbox initialized",
		"statuses", len(s.statuses),
		"contract_types", len(s.contractTypes))
	return s
}

// CheckReadiness implements Service
func (*sandboxSvc) CheckReadiness(_ context.Context) error {
	return nil
}

// ListApplications implements Service
func (s *sandboxSvc) ListApplications(_ context.Context, owner string) ([]*applications.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.order[owner]
	out := make([]*applications.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.apps[owner][id].Clone())
	}
	return out, nil
}

// CreateApplication implements Service
func (s *sandboxSvc) CreateApplication(
	_ context.Context, owner string, payload *applications.NewApplication,
) (*applications.Record, error) {
	if payload == nil {
		return nil, &service.ValidationError{Message: "application payload is required"}
	}
	if err := asValidation(payload.Validate()); err != nil {
		return nil, err
	}

	status, err := findItem(s.statuses, payload.StatusID, service.ErrStatusNotFound)
	if err != nil {
		return nil, err
	}
	rec := (&applications.Record{
		ID:                   uuid.NewString(),
		Company:              payload.Company,
		JobTitle:             payload.JobTitle,
		Stage:                applications.Stage(status.Name),
		StatusID:             status.ID,
		ApplicationDate:      payload.ApplicationDate,
		InterviewDate:        payload.InterviewDate,
		Notes:                payload.Notes,
		JobDescription:       payload.JobDescription,
		CreatedAt:            payload.CreatedAt,
		FinancialInformation: payload.FinancialInformation,
		Location:             payload.Location,
	}).Clone()
	if err := s.setContractType(rec, payload.ContractTypeID); err != nil {
		return nil, err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = applications.NewTimestamp(s.now().UTC())
	}
	if rec.FinancialInformation != nil && rec.FinancialInformation.ID == "" {
		rec.FinancialInformation.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.apps[owner] == nil {
		s.apps[owner] = map[string]*applications.Record{}
	}
	s.apps[owner][rec.ID] = rec
	s.order[owner] = append(s.order[owner], rec.ID)

	slog.Debug("Application created", "id", rec.ID, "stage", rec.Stage)
	return rec.Clone(), nil
}

// UpdateApplication implements Service
func (s *sandboxSvc) UpdateApplication(
	_ context.Context, owner string, record *applications.Record,
) (*applications.Record, error) {
	if record == nil {
		return nil, &service.ValidationError{Message: "application payload is required"}
	}
	if err := asValidation(record.ValidateForUpdate()); err != nil {
		return nil, err
	}
	status, err := findItem(s.statuses, record.StatusID, service.ErrStatusNotFound)
	if err != nil {
		return nil, err
	}

	updated := record.Clone()
	updated.Stage = applications.Stage(status.Name)
	if err := s.setContractType(updated, record.ContractTypeID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.apps[owner][updated.ID]
	if !ok {
		return nil, service.ErrApplicationNotFound
	}
	if updated.CreatedAt.IsZero() {
		updated.CreatedAt = current.CreatedAt
	}
	if updated.FinancialInformation.ID == "" && current.FinancialInformation != nil {
		updated.FinancialInformation.ID = current.FinancialInformation.ID
	}
	s.apps[owner][updated.ID] = updated
	return updated.Clone(), nil
}

// ChangeStatus implements Service
func (s *sandboxSvc) ChangeStatus(_ context.Context, owner, id, statusID string) (*applications.Record, error) {
	status, err := findItem(s.statuses, statusID, service.ErrStatusNotFound)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.apps[owner][id]
	if !ok {
		return nil, service.ErrApplicationNotFound
	}
	rec.StatusID = status.ID
	rec.Stage = applications.Stage(status.Name)
	return rec.Clone(), nil
}

// DeleteApplication implements Service
func (s *sandboxSvc) DeleteApplication(_ context.Context, owner, id string) (*applications.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.apps[owner][id]
	if !ok {
		return nil, service.ErrApplicationNotFound
	}
	delete(s.apps[owner], id)
	s.order[owner] = slices.DeleteFunc(s.order[owner], func(other string) bool { return other == id })
	return rec, nil
}

// Statuses implements Service
func (s *sandboxSvc) Statuses(_ context.Context) ([]remote.LookupItem, error) {
	return slices.Clone(s.statuses), nil
}

// ContractTypes implements Service
func (s *sandboxSvc) ContractTypes(_ context.Context) ([]remote.LookupItem, error) {
	return slices.Clone(s.contractTypes), nil
}

// StatusCounts implements Service. Every status is listed, including the
// empty ones.
func (s *sandboxSvc) StatusCounts(_ context.Context, owner string) ([]remote.StatusCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := map[string]int{}
	for _, rec := range s.apps[owner] {
		totals[rec.StatusID]++
	}
	out := make([]remote.StatusCount, 0, len(s.statuses))
	for _, st := range s.statuses {
		out = append(out, remote.StatusCount{StatusName: st.Name, Total: totals[st.ID]})
	}
	return out, nil
}

// MonthlyApplications implements Service. Months are formatted as YYYY-MM
// and returned in chronological order.
func (s *sandboxSvc) MonthlyApplications(_ context.Context, owner string) ([]remote.MonthlyCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := map[string]int{}
	for _, rec := range s.apps[owner] {
		totals[rec.CreatedAt.UTC().Format("2006-01")]++
	}
	months := make([]string, 0, len(totals))
	for m := range totals {
		months = append(months, m)
	}
	slices.Sort(months)

	out := make([]remote.MonthlyCount, 0, len(months))
	for _, m := range months {
		out = append(out, remote.MonthlyCount{Month: m, Count: totals[m]})
	}
	return out, nil
}

// Register implements Service
func (s *sandboxSvc) Register(_ context.Context, user remote.NewUser) error {
	email := normalizeEmail(user.Email)
	var details []string
	if !strings.Contains(email, "@") {
		details = append(details, "email")
	}
	if strings.TrimSpace(user.FirstName) == "" {
		details = append(details, "firstName")
	}
	if len(user.Password) < minPasswordLength {
		details = append(details, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if len(details) > 0 {
		return &service.ValidationError{Message: "invalid registration", Details: details}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	fullName := strings.TrimSpace(user.FullName)
	if fullName == "" {
		fullName = strings.TrimSpace(user.FirstName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[email]; exists {
		return service.ErrUserExists
	}
	s.users[email] = &account{
		profile: remote.User{FirstName: strings.TrimSpace(user.FirstName), FullName: fullName, Email: email},
		hash:    hash,
	}
	slog.Info("User registered", "email", email)
	return nil
}

// Authenticate implements Service
func (s *sandboxSvc) Authenticate(_ context.Context, creds remote.Credentials) (*remote.User, error) {
	acc, err := s.check(creds.Email, creds.Password)
	if err != nil {
		return nil, err
	}
	profile := acc.profile
	return &profile, nil
}

// ChangePassword implements Service
func (s *sandboxSvc) ChangePassword(_ context.Context, change remote.PasswordChange) error {
	if len(change.NewPassword) < minPasswordLength {
		return &service.ValidationError{
			Message: "invalid password change",
			Details: []string{fmt.Sprintf("newPassword must be at least %d characters", minPasswordLength)},
		}
	}
	if _, err := s.check(change.Email, change.OldPassword); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(change.NewPassword), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.users[normalizeEmail(change.Email)]
	if !ok {
		return service.ErrInvalidCredentials
	}
	acc.hash = hash
	return nil
}

func (s *sandboxSvc) check(email, password string) (*account, error) {
	s.mu.RLock()
	acc, ok := s.users[normalizeEmail(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, service.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return nil, service.ErrInvalidCredentials
	}
	return acc, nil
}

// setContractType resolves id into rec. An empty id leaves the record
// without a contract type.
func (s *sandboxSvc) setContractType(rec *applications.Record, id string) error {
	if id == "" {
		rec.ContractTypeID, rec.ContractType = "", ""
		return nil
	}
	ct, err := findItem(s.contractTypes, id, service.ErrContractTypeNotFound)
	if err != nil {
		return err
	}
	rec.ContractTypeID, rec.ContractType = ct.ID, ct.Name
	return nil
}

func findItem(items []remote.LookupItem, id string, notFound error) (remote.LookupItem, error) {
	for _, item := range items {
		if item.ID == id {
			return item, nil
		}
	}
	return remote.LookupItem{}, fmt.Errorf("%w: %s", notFound, id)
}

// asValidation converts a local validation failure of the domain model.
func asValidation(err error) error {
	if err == nil {
		return nil
	}
	var appErr *applications.Error
	if errors.As(err, &appErr) {
		return &service.ValidationError{Message: appErr.Message, Details: appErr.Details}
	}
	return &service.ValidationError{Message: err.Error()}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
