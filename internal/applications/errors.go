package applications

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies the failure of a synchronization operation.
type Kind int

// Error kinds.
const (
	// KindUnknown is an unexpected response or an unclassified failure
	KindUnknown Kind = iota
	// KindValidation is a payload rejected locally before any network call
	KindValidation
	// KindConflict is a mutation issued while another one is in flight for the same id
	KindConflict
	// KindNetwork is a failure to obtain any response from the service
	KindNetwork
	// KindService is an explicit failure reported by the service envelope
	KindService
	// KindAuth is a credential rejected by the service
	KindAuth
	// KindNotFound is a missing resource, locally or remotely
	KindNotFound
	// KindDataIntegrity is a record that cannot be placed on the board
	KindDataIntegrity
)

// Sentinel errors matched through errors.Is against any *Error of the same kind.
var (
	ErrUnknown       = errors.New("unknown error")
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")
	ErrNetwork       = errors.New("network error")
	ErrService       = errors.New("service error")
	ErrAuth          = errors.New("authentication error")
	ErrNotFound      = errors.New("not found")
	ErrDataIntegrity = errors.New("data integrity error")
)

var kindSentinels = map[Kind]error{
	KindUnknown:       ErrUnknown,
	KindValidation:    ErrValidation,
	KindConflict:      ErrConflict,
	KindNetwork:       ErrNetwork,
	KindService:       ErrService,
	KindAuth:          ErrAuth,
	KindNotFound:      ErrNotFound,
	KindDataIntegrity: ErrDataIntegrity,
}

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNetwork:
		return "network"
	case KindService:
		return "service"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindDataIntegrity:
		return "data_integrity"
	default:
		return "unknown"
	}
}

// Error is the typed error returned by synchronization operations.
type Error struct {
	// Kind classifies the failure
	Kind Kind
	// Op is the operation that failed, e.g. "create" or "fetch_all"
	Op string
	// ID is the record the failure relates to, if any
	ID string
	// Message is the human readable summary
	Message string
	// Details carries the service's errorMessages or per-field validation messages
	Details []string
	// StatusCode is the HTTP status of the response, zero when there was none
	StatusCode int
	// Err is the underlying cause
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(kindSentinels[e.Kind].Error())
	if e.ID != "" {
		fmt.Fprintf(&b, " for %q", e.ID)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Details) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Details, "; "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindUnknown
}

// WithOp returns err annotated with op when it is an *Error without one.
func WithOp(err error, op string) error {
	var typed *Error
	if !errors.As(err, &typed) || typed.Op != "" {
		return err
	}
	annotated := *typed
	annotated.Op = op
	return &annotated
}

// NewValidationError builds a validation failure with per-field details.
func NewValidationError(message string, details ...string) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

// NewConflictError reports an operation already in flight for id.
func NewConflictError(id string) *Error {
	return &Error{Kind: KindConflict, ID: id, Message: "another operation is in flight"}
}

// NewNotFoundError reports that id is not known.
func NewNotFoundError(id string) *Error {
	return &Error{Kind: KindNotFound, ID: id}
}

// NewDataIntegrityError reports a record that cannot be indexed.
func NewDataIntegrityError(id, message string) *Error {
	return &Error{Kind: KindDataIntegrity, ID: id, Message: message}
}
