package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/docextract/internal/domain"
)

var jsonBlockRegex = regexp.MustCompile(`(?s)` + "```" + `(?:json)?\s*\n?(.*?)\n?` + "```")

// MalformedResponseError carries the unparsed model body for diagnostics.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%v: %v", domain.ErrMalformedModelResponse, e.Err)
}

// Unwrap exposes both the sentinel and the decoder error.
func (e *MalformedResponseError) Unwrap() []error {
	return []error{domain.ErrMalformedModelResponse, e.Err}
}

// parseObject decodes content as a JSON object. When direct decoding fails it
// retries with the first markdown code fence.
func parseObject(content string) (map[string]json.RawMessage, error) {
	trimmed := strings.TrimSpace(content)

	obj, err := decodeObject(trimmed)
	if err == nil {
		return obj, nil
	}

	if matches := jsonBlockRegex.FindStringSubmatch(trimmed); len(matches) >= 2 {
		if fenced, ferr := decodeObject(strings.TrimSpace(matches[1])); ferr == nil {
			return fenced, nil
		}
	}

	return nil, &MalformedResponseError{Raw: content, Err: err}
}

var errNotObject = errors.New("top-level JSON value is not an object")

func decodeObject(s string) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, errNotObject
		}
		return nil, err
	}
	if obj == nil {
		return nil, errNotObject
	}
	return obj, nil
}
