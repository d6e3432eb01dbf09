package applications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DefaultLocation is shown for records without a location.
const DefaultLocation = "Unknown"

// timestampLayouts are the layouts accepted when decoding timestamps, in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// Timestamp is a time decoded leniently from the service's date formats and
// encoded as RFC 3339. The zero value encodes as null.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// ParseTimestamp parses s using the accepted layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// MarshalJSON implements json.Marshaler
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// FinancialInformation describes the compensation of a position. All fields
// except ID are required; partial updates are not supported.
type FinancialInformation struct {
	ID               string      `json:"id,omitempty"`
	Salary           json.Number `json:"salary"`
	Currency         string      `json:"currency"`
	SalaryType       string      `json:"salaryType"`
	TypeOfEmployment string      `json:"typeOfEmployment"`
}

// Missing returns the names of required fields left empty.
func (f *FinancialInformation) Missing() []string {
	if f == nil {
		return []string{"financialInformation"}
	}
	var missing []string
	if strings.TrimSpace(f.Salary.String()) == "" {
		missing = append(missing, "financialInformation.salary")
	} else if _, err := f.Salary.Float64(); err != nil {
		missing = append(missing, "financialInformation.salary must be numeric")
	}
	if strings.TrimSpace(f.Currency) == "" {
		missing = append(missing, "financialInformation.currency")
	}
	if strings.TrimSpace(f.SalaryType) == "" {
		missing = append(missing, "financialInformation.salaryType")
	}
	if strings.TrimSpace(f.TypeOfEmployment) == "" {
		missing = append(missing, "financialInformation.typeOfEmployment")
	}
	return missing
}

// Record is a job application as acknowledged by the service.
type Record struct {
	ID                   string                `json:"id"`
	Company              string                `json:"company"`
	JobTitle             string                `json:"jobTitle"`
	Stage                Stage                 `json:"status"`
	StatusID             string                `json:"statusId"`
	ContractTypeID       string                `json:"contractTypeId"`
	ContractType         string                `json:"contractType,omitempty"`
	ApplicationDate      *Timestamp            `json:"applicationDate,omitempty"`
	InterviewDate        *Timestamp            `json:"interviewDate,omitempty"`
	Notes                string                `json:"notes"`
	JobDescription       string                `json:"jobDescription,omitempty"`
	CreatedAt            Timestamp             `json:"createdAt"`
	FinancialInformation *FinancialInformation `json:"financialInformation,omitempty"`
	Location             string                `json:"location,omitempty"`
}

// DisplayLocation returns the location, or DefaultLocation when unset.
func (r *Record) DisplayLocation() string {
	if strings.TrimSpace(r.Location) == "" {
		return DefaultLocation
	}
	return r.Location
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.ApplicationDate != nil {
		d := *r.ApplicationDate
		c.ApplicationDate = &d
	}
	if r.InterviewDate != nil {
		d := *r.InterviewDate
		c.InterviewDate = &d
	}
	if r.FinancialInformation != nil {
		f := *r.FinancialInformation
		c.FinancialInformation = &f
	}
	return &c
}

// ValidateForUpdate checks that r is a complete record suitable for a full update.
func (r *Record) ValidateForUpdate() error {
	var details []string
	if strings.TrimSpace(r.ID) == "" {
		details = append(details, "id")
	}
	if strings.TrimSpace(r.Company) == "" {
		details = append(details, "company")
	}
	if strings.TrimSpace(r.JobTitle) == "" {
		details = append(details, "jobTitle")
	}
	if strings.TrimSpace(r.StatusID) == "" {
		details = append(details, "statusId")
	}
	if strings.TrimSpace(r.ContractTypeID) == "" {
		details = append(details, "contractTypeId")
	}
	details = append(details, r.FinancialInformation.Missing()...)
	if len(details) > 0 {
		e := NewValidationError("required fields are missing or invalid", details...)
		e.ID = r.ID
		return e
	}
	return nil
}

// NewApplication is the payload of a create request. The service assigns the id.
type NewApplication struct {
	Company              string                `json:"company"`
	JobTitle             string                `json:"jobTitle"`
	StatusID             string                `json:"statusId"`
	ContractTypeID       string                `json:"contractTypeId"`
	ApplicationDate      *Timestamp            `json:"applicationDate,omitempty"`
	InterviewDate        *Timestamp            `json:"interviewDate,omitempty"`
	Notes                string                `json:"notes"`
	JobDescription       string                `json:"jobDescription,omitempty"`
	CreatedAt            Timestamp             `json:"createdAt"`
	FinancialInformation *FinancialInformation `json:"financialInformation"`
	Location             string                `json:"location,omitempty"`
}

// Validate checks the fields the service requires on creation. Stage
// resolution of StatusID is left to the caller, which owns the lookup.
func (n *NewApplication) Validate() error {
	var details []string
	if strings.TrimSpace(n.Company) == "" {
		details = append(details, "company")
	}
	if strings.TrimSpace(n.JobTitle) == "" {
		details = append(details, "jobTitle")
	}
	if strings.TrimSpace(n.StatusID) == "" {
		details = append(details, "statusId")
	}
	if n.FinancialInformation != nil {
		details = append(details, n.FinancialInformation.Missing()...)
	}
	if len(details) > 0 {
		return NewValidationError("required fields are missing or invalid", details...)
	}
	return nil
}
