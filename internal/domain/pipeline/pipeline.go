// Package pipeline defines the records and failures produced by one document run.
package pipeline

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/docextract/internal/domain/extraction"
)

// Phase is a stage of the document pipeline.
type Phase string

// Pipeline phases in execution order.
const (
	PhaseValidate  Phase = "validate"
	PhaseRecognize Phase = "recognize"
	PhaseClassify  Phase = "classify"
	PhaseExtract   Phase = "extract"
	PhaseDone      Phase = "done"
)

// Kind classifies a terminal failure.
type Kind string

// Failure kinds surfaced to callers.
const (
	KindUnsupportedFormat     Kind = "UnsupportedFormat"
	KindNoTextFound           Kind = "NoTextFound"
	KindRecognitionFailure    Kind = "RecognitionFailure"
	KindClassificationFailure Kind = "ClassificationFailure"
	KindUnknownDocumentType   Kind = "UnknownDocumentType"
	KindLLMResponseInvalid    Kind = "LLMResponseInvalid"
	KindLLMError              Kind = "LLMError"
)

// Document is one input file handed to the pipeline.
type Document struct {
	Filename string // client-facing name
	Path     string // local file the recognizer reads
}

// Record is the result of a completed run.
type Record struct {
	TraceID        string
	Filename       string
	DocumentType   string
	Confidence     float64
	Entities       extraction.Result
	ProcessingTime time.Duration
}

// Failure is the terminal error of a run. Raw carries the unparsed model body
// for LLMResponseInvalid.
type Failure struct {
	TraceID  string
	Filename string
	Phase    Phase
	Kind     Kind
	Raw      string
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failed (%s) for %q [trace %s]: %v", f.Phase, f.Kind, f.Filename, f.TraceID, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }
