package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kailas-cloud/docextract/internal/domain/extraction"
)

// entrySchema describes the canonical per-field object the prompt asks for.
// Confidence range is not enforced here; out-of-range values are clamped.
const entrySchema = `{
  "type": "object",
  "required": ["value", "confidence"],
  "properties": {
    "value": {
      "oneOf": [
        {"type": "string"},
        {"type": "array", "items": {"type": "string"}, "minItems": 1}
      ]
    },
    "confidence": {"type": "number"}
  }
}`

func compileEntrySchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("entry.json", strings.NewReader(entrySchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	s, err := compiler.Compile("entry.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return s, nil
}

// reconcile projects the parsed model output onto the declared field list:
// declared fields are coerced, missing ones become the sentinel, the rest is dropped.
func reconcile(entry *jsonschema.Schema, fields []string, parsed map[string]json.RawMessage) (extraction.Result, []string) {
	res := extraction.NewResult(fields)
	for _, name := range fields {
		raw, ok := parsed[name]
		if !ok {
			continue
		}
		res.Set(name, coerce(entry, raw))
	}

	var dropped []string
	for name := range parsed {
		if _, ok := res.Get(name); !ok {
			dropped = append(dropped, name)
		}
	}
	return res, dropped
}

func coerce(entry *jsonschema.Schema, raw json.RawMessage) extraction.Field {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return extraction.Absent()
	}

	obj, isObject := v.(map[string]any)
	if !isObject {
		val, ok := usableValue(v)
		if !ok {
			return extraction.Absent()
		}
		return normalize(extraction.Field{Value: val})
	}

	val, ok := usableValue(obj["value"])
	if !ok {
		return extraction.Absent()
	}
	f := extraction.Field{Value: val}
	if entry.Validate(obj) == nil {
		f.Confidence = clamp(obj["confidence"].(float64))
	}
	return normalize(f)
}

// normalize maps any spelling of the not-found marker to the sentinel.
func normalize(f extraction.Field) extraction.Field {
	if !f.Value.IsList() && strings.EqualFold(strings.TrimSpace(f.Value.String()), extraction.NotFound) {
		return extraction.Absent()
	}
	return f
}

func usableValue(v any) (extraction.Value, bool) {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return extraction.Value{}, false
		}
		return extraction.Single(t), true
	case float64:
		return extraction.Single(strconv.FormatFloat(t, 'f', -1, 64)), true
	case bool:
		return extraction.Single(strconv.FormatBool(t)), true
	case []any:
		items := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := usableValue(item)
			if !ok || s.IsList() {
				continue
			}
			items = append(items, s.String())
		}
		if len(items) == 0 {
			return extraction.Value{}, false
		}
		return extraction.List(items), true
	default:
		return extraction.Value{}, false
	}
}

func clamp(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
