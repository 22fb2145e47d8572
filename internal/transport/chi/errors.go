package chi

import (
	"errors"
	"net/http"

	"github.com/kailas-cloud/docextract/internal/domain"
	dompipe "github.com/kailas-cloud/docextract/internal/domain/pipeline"
)

// Request-level error codes that never reach the pipeline.
const (
	codeBadRequest      = "BadRequest"
	codeBatchTooLarge   = "BatchTooLarge"
	codePayloadTooLarge = "PayloadTooLarge"
	codeInternal        = "InternalError"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
	Raw     string `json:"raw,omitempty"`
}

type kindMapping struct {
	status  int
	message string
}

var kindMappings = map[dompipe.Kind]kindMapping{
	dompipe.KindUnsupportedFormat:     {http.StatusBadRequest, "Unsupported file format"},
	dompipe.KindNoTextFound:           {http.StatusUnsupportedMediaType, "No legible text found in document"},
	dompipe.KindRecognitionFailure:    {http.StatusInternalServerError, "Text recognition failed"},
	dompipe.KindClassificationFailure: {http.StatusInternalServerError, "Document classification failed"},
	dompipe.KindUnknownDocumentType:   {http.StatusInternalServerError, "No extraction schema for document type"},
	dompipe.KindLLMResponseInvalid:    {http.StatusBadGateway, "Model returned an invalid response"},
	dompipe.KindLLMError:              {http.StatusInternalServerError, "Entity extraction failed"},
}

// failureResponse maps a pipeline error to its HTTP status and body.
// Errors that are not *pipeline.Failure become 500 InternalError.
func failureResponse(err error, fallbackTrace string) (int, ErrorResponse) {
	var f *dompipe.Failure
	if errors.As(err, &f) {
		m, ok := kindMappings[f.Kind]
		if !ok {
			m = kindMapping{http.StatusInternalServerError, "internal error"}
		}
		resp := ErrorResponse{
			Error:   string(f.Kind),
			Message: m.message,
			TraceID: f.TraceID,
		}
		if f.Kind == dompipe.KindUnsupportedFormat && f.Filename != "" {
			resp.Message += ": " + f.Filename
		}
		if f.Kind == dompipe.KindLLMResponseInvalid {
			resp.Raw = f.Raw
		}
		return m.status, resp
	}
	if errors.Is(err, domain.ErrBatchTooLarge) {
		return http.StatusBadRequest, ErrorResponse{
			Error: codeBatchTooLarge, Message: err.Error(), TraceID: fallbackTrace,
		}
	}
	return http.StatusInternalServerError, ErrorResponse{
		Error: codeInternal, Message: "internal error", TraceID: fallbackTrace,
	}
}
