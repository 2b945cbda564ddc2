// Package apperr defines the error taxonomy shared by the isolation and quota core.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

// AuthenticationError means the identity assertion was invalid, expired or malformed.
// Reason is logged server side only.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	if e.Reason == "" {
		return "unauthenticated"
	}
	return "unauthenticated: " + e.Reason
}

// AuthorizationError means the caller is authenticated but may not perform the operation.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	if e.Reason == "" {
		return "forbidden"
	}
	return "forbidden: " + e.Reason
}

// Violation kinds, also used as telemetry label values.
const (
	KindMissingOrgID       = "missing_org_id"
	KindMissingFilterToken = "missing_filter_token"
)

// ScopeViolation is a programming defect: a tenant-scoped statement without a verifiable
// tenant filter. It is fatal for the request and must never be retried.
type ScopeViolation struct {
	Kind            string
	StatementPrefix string
}

func (e *ScopeViolation) Error() string {
	return fmt.Sprintf("scope violation (%s): %q", e.Kind, e.StatementPrefix)
}

// QuotaExceeded is an expected, recoverable rejection.
type QuotaExceeded struct {
	OrgID      int64
	LimitKey   string
	Limit      int64
	RetryAfter time.Duration
	// Cause is set when the ledger failed closed on a storage error.
	Cause error
}

func (e *QuotaExceeded) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("quota %s unavailable for org %d: %v", e.LimitKey, e.OrgID, e.Cause)
	}
	return fmt.Sprintf("quota %s exceeded for org %d (limit %d)", e.LimitKey, e.OrgID, e.Limit)
}

func (e *QuotaExceeded) Unwrap() error { return e.Cause }

// StructuralInvariantViolation is returned when a mutation would break a data invariant,
// such as removing the last owner of an organization.
type StructuralInvariantViolation struct {
	Invariant string
}

func (e *StructuralInvariantViolation) Error() string {
	return "invariant violated: " + e.Invariant
}

// NotFoundError represents an entity missing within the caller's scope.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found"
}

// Is enables errors.Is comparison by entity.
func (e *NotFoundError) Is(target error) bool {
	t, ok := target.(*NotFoundError)
	if !ok {
		return false
	}
	return e.Entity == t.Entity
}

// AlreadyExistsError represents a uniqueness conflict.
type AlreadyExistsError struct {
	Entity string
}

func (e *AlreadyExistsError) Error() string {
	return e.Entity + " already exists"
}

// ValidationError represents bad caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
	}
	return "validation error: " + e.Message
}

var (
	ErrLastOwner = &StructuralInvariantViolation{Invariant: "organization must keep at least one owner"}

	ErrNoMembership = &AuthorizationError{Reason: "no organization membership"}

	ErrUserNotFound        = &NotFoundError{Entity: "user"}
	ErrMembershipNotFound  = &NotFoundError{Entity: "membership"}
	ErrCatalogItemNotFound = &NotFoundError{Entity: "catalog item"}
	ErrCredentialsNotFound = &NotFoundError{Entity: "credential bundle"}
	ErrJobNotFound         = &NotFoundError{Entity: "job"}

	ErrMembershipExists  = &AlreadyExistsError{Entity: "membership"}
	ErrCatalogItemExists = &AlreadyExistsError{Entity: "catalog item"}
)

// IsAuthentication reports whether err is an AuthenticationError.
func IsAuthentication(err error) bool {
	var e *AuthenticationError
	return errors.As(err, &e)
}

// IsAuthorization reports whether err is an AuthorizationError.
func IsAuthorization(err error) bool {
	var e *AuthorizationError
	return errors.As(err, &e)
}

// IsScopeViolation reports whether err is a ScopeViolation.
func IsScopeViolation(err error) bool {
	var e *ScopeViolation
	return errors.As(err, &e)
}

// IsQuotaExceeded reports whether err is a QuotaExceeded rejection.
func IsQuotaExceeded(err error) bool {
	var e *QuotaExceeded
	return errors.As(err, &e)
}

// IsStructuralInvariant reports whether err is a StructuralInvariantViolation.
func IsStructuralInvariant(err error) bool {
	var e *StructuralInvariantViolation
	return errors.As(err, &e)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsAlreadyExists reports whether err is an AlreadyExistsError.
func IsAlreadyExists(err error) bool {
	var e *AlreadyExistsError
	return errors.As(err, &e)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}
