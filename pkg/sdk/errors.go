package docextract

import (
	"errors"
	"fmt"
)

// APIError is a non-2xx response decoded from the service's error body.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	TraceID    string
	// Raw carries the model output for LLMResponseInvalid.
	Raw string
}

func (e *APIError) Error() string {
	if e.TraceID != "" {
		return fmt.Sprintf("docextract: %s (%d): %s [trace %s]", e.Code, e.StatusCode, e.Message, e.TraceID)
	}
	return fmt.Sprintf("docextract: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Is matches sentinel errors by code, so errors.Is(err, ErrNoTextFound) works
// on any *APIError carrying that code.
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return t.StatusCode == 0 && t.Code == e.Code
}

// Sentinel errors for the codes the service returns.
// Use errors.Is() to check.
var (
	ErrUnsupportedFormat     = &APIError{Code: "UnsupportedFormat"}
	ErrNoTextFound           = &APIError{Code: "NoTextFound"}
	ErrRecognitionFailure    = &APIError{Code: "RecognitionFailure"}
	ErrClassificationFailure = &APIError{Code: "ClassificationFailure"}
	ErrUnknownDocumentType   = &APIError{Code: "UnknownDocumentType"}
	ErrLLMResponseInvalid    = &APIError{Code: "LLMResponseInvalid"}
	ErrLLMError              = &APIError{Code: "LLMError"}
	ErrBadRequest            = &APIError{Code: "BadRequest"}
	ErrBatchTooLarge         = &APIError{Code: "BatchTooLarge"}
	ErrPayloadTooLarge       = &APIError{Code: "PayloadTooLarge"}
	ErrUnauthorized          = &APIError{Code: "Unauthorized"}
	ErrInternal              = &APIError{Code: "InternalError"}
)

// ErrNoFiles is returned before any request is made when a call has no files.
var ErrNoFiles = errors.New("docextract: at least one file is required")
