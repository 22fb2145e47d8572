package docextract

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// NotFound is the value the service reports for a field absent from the document.
const NotFound = "not found"

// File is one upload. Name must carry the extension the server uses to pick
// a recognizer (.pdf, .png, .jpg, .jpeg, .tif, .tiff, .txt).
type File struct {
	Name string
	Body io.Reader
}

// Value is an extracted field value: a single string or a list of strings.
type Value struct {
	Single string
	List   []string
	IsList bool
}

// String joins list values with ", ".
func (v Value) String() string {
	if v.IsList {
		return strings.Join(v.List, ", ")
	}
	return v.Single
}

// UnmarshalJSON accepts a string or an array of strings.
func (v *Value) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Value{Single: s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*v = Value{List: list, IsList: true}
		return nil
	}
	return fmt.Errorf("docextract: value must be a string or an array of strings: %s", data)
}

// Entity is one extracted field with the model's confidence.
type Entity struct {
	Value      Value   `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Found reports whether the field was located in the document.
func (e Entity) Found() bool {
	return e.Value.IsList || e.Value.Single != NotFound || e.Confidence != 0
}

// Result is the extraction outcome for one file.
type Result struct {
	Filename       string            `json:"filename"`
	DocumentType   string            `json:"document_type"`
	Confidence     float64           `json:"confidence"`
	Entities       map[string]Entity `json:"entities"`
	ProcessingTime float64           `json:"processing_time"`
}

// Item is one entry of a partial batch: either Result or Err is set.
type Item struct {
	Filename string
	Result   *Result
	Err      *APIError
}

// PartialResult is the outcome of ExtractPartial.
type PartialResult struct {
	Items     []Item
	Succeeded int
	Failed    int
}

// HealthStatus represents the aggregated service health.
type HealthStatus struct {
	Status    string            // "ok", "degraded", "error"
	Checks    map[string]string // component → "ok"/"error"
	Documents int               // labeled corpus size
}

// Healthy reports whether every component passed.
func (h HealthStatus) Healthy() bool { return h.Status == "ok" }

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	TraceID string `json:"trace_id"`
	Raw     string `json:"raw"`
}

func (b *errorBody) apiError(status int) *APIError {
	return &APIError{
		StatusCode: status,
		Code:       b.Error,
		Message:    b.Message,
		TraceID:    b.TraceID,
		Raw:        b.Raw,
	}
}

type extractBody struct {
	Results []Result `json:"results"`
}

type partialBody struct {
	Results []struct {
		Filename string     `json:"filename"`
		Status   string     `json:"status"`
		Result   *Result    `json:"result"`
		Failure  *errorBody `json:"failure"`
	} `json:"results"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

type healthBody struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Documents int               `json:"documents"`
}
