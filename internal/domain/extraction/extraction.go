// Package extraction models the per-field output of structured extraction.
package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NotFound is the value of a field the extractor could not populate.
const NotFound = "not found"

// Value is either a single string or an ordered list of strings.
type Value struct {
	single string
	multi  []string
	isList bool
}

// Single creates a single-string value.
func Single(s string) Value { return Value{single: s} }

// List creates a multi-instance value.
func List(items []string) Value {
	return Value{multi: append([]string(nil), items...), isList: true}
}

// IsList reports whether the value holds multiple instances.
func (v Value) IsList() bool { return v.isList }

// String returns the single value, or the list items joined with "; ".
func (v Value) String() string {
	if !v.isList {
		return v.single
	}
	var b bytes.Buffer
	for i, s := range v.multi {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(s)
	}
	return b.String()
}

// Items returns the list items, or a one-element slice for a single value.
func (v Value) Items() []string {
	if v.isList {
		return append([]string(nil), v.multi...)
	}
	return []string{v.single}
}

// MarshalJSON encodes a string or an array of strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.isList {
		if v.multi == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.multi)
	}
	return json.Marshal(v.single)
}

// UnmarshalJSON accepts a string or an array of strings.
func (v *Value) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Single(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*v = List(list)
		return nil
	}
	return fmt.Errorf("value must be a string or an array of strings: %s", data)
}

// Field is one extracted entity with the model's self-reported confidence.
type Field struct {
	Value      Value   `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Absent returns the sentinel for a field that was not found.
func Absent() Field {
	return Field{Value: Single(NotFound), Confidence: 0}
}

// IsAbsent reports whether f is the not-found sentinel.
func (f Field) IsAbsent() bool {
	return !f.Value.isList && f.Value.single == NotFound && f.Confidence == 0
}

// Result holds exactly one Field per schema field, in schema order.
type Result struct {
	names  []string
	fields map[string]Field
}

// NewResult creates a result where every declared field starts as the sentinel.
func NewResult(names []string) Result {
	r := Result{
		names:  append([]string(nil), names...),
		fields: make(map[string]Field, len(names)),
	}
	for _, n := range names {
		r.fields[n] = Absent()
	}
	return r
}

// Set replaces a declared field. Undeclared names are ignored and reported as false.
func (r Result) Set(name string, f Field) bool {
	if _, ok := r.fields[name]; !ok {
		return false
	}
	r.fields[name] = f
	return true
}

// Get returns the field by name.
func (r Result) Get(name string) (Field, bool) {
	f, ok := r.fields[name]
	return f, ok
}

// Names returns field names in schema order.
func (r Result) Names() []string { return append([]string(nil), r.names...) }

// Len returns the number of fields.
func (r Result) Len() int { return len(r.names) }

// MarshalJSON encodes the result as an object whose keys follow schema order.
func (r Result) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.fields[name])
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}
