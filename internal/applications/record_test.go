package applications

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Stage
		wantErr bool
	}{
		{name: "exact", input: "Offer", want: StageOffer},
		{name: "case insensitive", input: "interviewing", want: StageInterviewing},
		{name: "surrounding spaces", input: " Applied ", want: StageApplied},
		{name: "unknown", input: "Ghosted", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseStage(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStageIndex(t *testing.T) {
	t.Parallel()

	for i, st := range Stages {
		assert.Equal(t, i, st.Index())
		assert.True(t, st.Valid())
	}
	assert.Equal(t, -1, Stage("Archived").Index())
	assert.False(t, Stage("").Valid())
}

func TestTimestampUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    time.Time
		zero    bool
		wantErr bool
	}{
		{name: "rfc3339", input: `"2024-03-01T10:00:00Z"`, want: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{name: "fractional", input: `"2024-03-01T10:00:00.123Z"`, want: time.Date(2024, 3, 1, 10, 0, 0, 123000000, time.UTC)},
		{name: "zoneless", input: `"2024-03-01T10:00:00"`, want: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{name: "zoneless fractional", input: `"2024-03-01T10:00:00.5"`, want: time.Date(2024, 3, 1, 10, 0, 0, 500000000, time.UTC)},
		{name: "date only", input: `"2024-03-01"`, want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{name: "null", input: `null`, zero: true},
		{name: "empty string", input: `""`, zero: true},
		{name: "garbage", input: `"yesterday"`, wantErr: true},
		{name: "number", input: `12`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var ts Timestamp
			err := json.Unmarshal([]byte(tt.input), &ts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.zero {
				assert.True(t, ts.IsZero())
				return
			}
			assert.True(t, tt.want.Equal(ts.Time), "got %s", ts.Time)
		})
	}
}

func TestTimestampMarshal(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	data, err = json.Marshal(NewTimestamp(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-01T10:00:00Z"`, string(data))
}

func TestRecordDecodesServiceShape(t *testing.T) {
	t.Parallel()

	payload := `{
		"id": "1",
		"company": "Acme",
		"jobTitle": "Engineer",
		"status": "Wishlist",
		"statusId": "s-1",
		"contractTypeId": "c-1",
		"contractType": "Full-time",
		"applicationDate": null,
		"interviewDate": "2024-05-02T09:30:00",
		"notes": "",
		"createdAt": "2024-05-01T08:00:00.1234567",
		"financialInformation": {"id": null, "salary": 4200, "currency": "EUR", "salaryType": "Monthly", "typeOfEmployment": "Remote"}
	}`

	var r Record
	require.NoError(t, json.Unmarshal([]byte(payload), &r))
	assert.Equal(t, StageWishlist, r.Stage)
	assert.Nil(t, r.ApplicationDate)
	require.NotNil(t, r.InterviewDate)
	assert.Equal(t, 9, r.InterviewDate.Hour())
	require.NotNil(t, r.FinancialInformation)
	assert.Equal(t, json.Number("4200"), r.FinancialInformation.Salary)
	assert.Empty(t, r.FinancialInformation.Missing())
	assert.Equal(t, DefaultLocation, r.DisplayLocation())
}

func TestRecordClone(t *testing.T) {
	t.Parallel()

	ts := NewTimestamp(time.Now())
	orig := &Record{
		ID:                   "1",
		ApplicationDate:      &ts,
		FinancialInformation: &FinancialInformation{Salary: "1", Currency: "USD"},
	}
	c := orig.Clone()
	c.FinancialInformation.Currency = "EUR"
	c.ApplicationDate.Time = time.Time{}

	assert.Equal(t, "USD", orig.FinancialInformation.Currency)
	assert.False(t, orig.ApplicationDate.IsZero())
	assert.Nil(t, (*Record)(nil).Clone())
}

func TestRecordValidateForUpdate(t *testing.T) {
	t.Parallel()

	complete := func() *Record {
		return &Record{
			ID:             "1",
			Company:        "Acme",
			JobTitle:       "Engineer",
			StatusID:       "s-1",
			ContractTypeID: "c-1",
			FinancialInformation: &FinancialInformation{
				Salary: "100", Currency: "USD", SalaryType: "Monthly", TypeOfEmployment: "Remote",
			},
		}
	}

	tests := []struct {
		name        string
		mutate      func(r *Record)
		wantDetails []string
	}{
		{name: "complete", mutate: func(*Record) {}},
		{
			name:        "missing contract type",
			mutate:      func(r *Record) { r.ContractTypeID = "" },
			wantDetails: []string{"contractTypeId"},
		},
		{
			name:        "missing financial information",
			mutate:      func(r *Record) { r.FinancialInformation = nil },
			wantDetails: []string{"financialInformation"},
		},
		{
			name:        "partial financial information",
			mutate:      func(r *Record) { r.FinancialInformation.Currency = "" },
			wantDetails: []string{"financialInformation.currency"},
		},
		{
			name:        "non numeric salary",
			mutate:      func(r *Record) { r.FinancialInformation.Salary = "lots" },
			wantDetails: []string{"financialInformation.salary must be numeric"},
		},
		{
			name:        "missing id and company",
			mutate:      func(r *Record) { r.ID = ""; r.Company = " " },
			wantDetails: []string{"id", "company"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := complete()
			tt.mutate(r)
			err := r.ValidateForUpdate()
			if tt.wantDetails == nil {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrValidation)
			var typed *Error
			require.True(t, errors.As(err, &typed))
			assert.Equal(t, tt.wantDetails, typed.Details)
		})
	}
}

func TestNewApplicationValidate(t *testing.T) {
	t.Parallel()

	n := &NewApplication{Company: "Acme", JobTitle: "Engineer", StatusID: "s-1"}
	assert.NoError(t, n.Validate())

	n.FinancialInformation = &FinancialInformation{Salary: "10"}
	err := n.Validate()
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "financialInformation.currency")

	empty := &NewApplication{}
	err = empty.Validate()
	var typed *Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, []string{"company", "jobTitle", "statusId"}, typed.Details)
}

func TestErrorMatching(t *testing.T) {
	t.Parallel()

	base := &Error{Kind: KindService, Op: "create", Message: "rejected", Details: []string{"company taken"}, StatusCode: 400}
	wrapped := fmt.Errorf("creating application: %w", base)

	assert.ErrorIs(t, wrapped, ErrService)
	assert.NotErrorIs(t, wrapped, ErrNetwork)
	assert.Equal(t, KindService, KindOf(wrapped))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, "create: service error: rejected [company taken]", base.Error())

	cause := errors.New("dial tcp: refused")
	netErr := &Error{Kind: KindNetwork, Err: cause}
	assert.ErrorIs(t, netErr, cause)
	assert.Equal(t, "network error: dial tcp: refused", netErr.Error())

	assert.Equal(t, `conflict for "7": another operation is in flight`, NewConflictError("7").Error())
}

func TestWithOp(t *testing.T) {
	t.Parallel()

	err := WithOp(NewNotFoundError("9"), "delete")
	assert.Equal(t, `delete: not found for "9"`, err.Error())

	already := &Error{Kind: KindAuth, Op: "login"}
	assert.Same(t, already, WithOp(already, "delete"))

	plain := errors.New("boom")
	assert.Equal(t, plain, WithOp(plain, "delete"))
}
