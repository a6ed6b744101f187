package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches errors by code so wrapped copies compare equal to sentinels.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeInvalidInput          = "INVALID_INPUT"
	ErrCodeClassificationFailure = "CLASSIFICATION_FAILURE"
	ErrCodePIIResidual           = "PII_RESIDUAL"
	ErrCodeNamespaceConflict     = "NAMESPACE_CONFLICT"
	ErrCodeUnknownOrganization   = "UNKNOWN_ORGANIZATION"
	ErrCodeEmbeddingUnavailable  = "EMBEDDING_UNAVAILABLE"
	ErrCodeSecureDisposal        = "SECURE_DISPOSAL_FAILED"
	ErrCodeInternalError         = "INTERNAL_ERROR"
)

// Pipeline errors. ErrPIIResidual and the two namespace errors are fatal for
// the request and must never be downgraded or silently redirected; the rest
// are recoverable at the item level (item dropped, caller informed).
var (
	ErrInvalidInput          = NewDomainError(ErrCodeInvalidInput, "item content is not valid text")
	ErrClassificationFailure = NewDomainError(ErrCodeClassificationFailure, "item could not be classified")
	ErrPIIResidual           = NewDomainError(ErrCodePIIResidual, "sanitized content still matches a PII pattern")
	ErrNamespaceConflict     = NewDomainError(ErrCodeNamespaceConflict, "chunk organization does not match target namespace")
	ErrUnknownOrganization   = NewDomainError(ErrCodeUnknownOrganization, "organization has no namespace")
	ErrEmbeddingUnavailable  = NewDomainError(ErrCodeEmbeddingUnavailable, "embedding service unavailable")
	ErrSecureDisposal        = NewDomainError(ErrCodeSecureDisposal, "secure disposal did not complete")
)

// Validation errors
var (
	ErrMissingOrgID      = NewDomainError(ErrCodeValidation, "organization id is required")
	ErrEmptyContent      = NewDomainError(ErrCodeValidation, "item content is required")
	ErrInvalidSourceType = NewDomainError(ErrCodeValidation, "invalid source type")
	ErrEmptyBatch        = NewDomainError(ErrCodeValidation, "chunk batch is empty")
)
