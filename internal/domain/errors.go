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
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidExpertiseArea      = NewDomainError(ErrCodeValidation, "invalid expertise area")
	ErrInvalidEmbeddingJobStatus = NewDomainError(ErrCodeValidation, "invalid embedding job status")
	ErrInvalidSearchMethod       = NewDomainError(ErrCodeValidation, "invalid search method")
	ErrMissingRequiredField      = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrKnowledgeNotFound      = NewDomainError(ErrCodeNotFound, "knowledge entry not found")
	ErrEmbeddingJobNotFound   = NewDomainError(ErrCodeNotFound, "embedding job not found")
	ErrPipelineNotFound       = NewDomainError(ErrCodeNotFound, "pipeline config not found")
	ErrPersonaNotFound        = NewDomainError(ErrCodeNotFound, "coach persona not found")
	ErrMemorySnapshotNotFound = NewDomainError(ErrCodeNotFound, "memory snapshot not found")
	ErrDailySummaryNotFound   = NewDomainError(ErrCodeNotFound, "daily summary not found")
)

// Operation errors
var (
	ErrPipelineDisabled = NewDomainError(ErrCodeInvalidOperation, "pipeline is disabled")
	ErrMissingEmbedding = NewDomainError(ErrCodeInvalidOperation, "query embedding required for semantic search")
)
