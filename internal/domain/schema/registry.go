// Package schema maps document types to the fields extracted from them.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/docextract/internal/domain"
)

// Registry is an immutable mapping from document type to its ordered field list.
type Registry struct {
	fields map[string][]string
}

// NewRegistry validates the mapping and returns a registry that owns a copy of it.
// Every type needs at least one field; field names must be non-empty and unique per type.
func NewRegistry(types map[string][]string) (*Registry, error) {
	if len(types) == 0 {
		return nil, fmt.Errorf("%w: no document types defined", domain.ErrInvalidSchema)
	}

	fields := make(map[string][]string, len(types))
	for docType, list := range types {
		if strings.TrimSpace(docType) == "" {
			return nil, fmt.Errorf("%w: empty document type name", domain.ErrInvalidSchema)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("%w: document type %q has no fields", domain.ErrInvalidSchema, docType)
		}
		seen := make(map[string]struct{}, len(list))
		for _, f := range list {
			if strings.TrimSpace(f) == "" {
				return nil, fmt.Errorf("%w: document type %q has an empty field name", domain.ErrInvalidSchema, docType)
			}
			if _, dup := seen[f]; dup {
				return nil, fmt.Errorf("%w: document type %q declares field %q twice",
					domain.ErrInvalidSchema, docType, f)
			}
			seen[f] = struct{}{}
		}
		fields[docType] = append([]string(nil), list...)
	}

	return &Registry{fields: fields}, nil
}

// FieldsFor returns the ordered fields for a document type.
func (r *Registry) FieldsFor(docType string) ([]string, error) {
	list, ok := r.fields[docType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDocumentType, docType)
	}
	return append([]string(nil), list...), nil
}

// Types returns the registered document types in lexical order.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.fields))
	for t := range r.fields {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
