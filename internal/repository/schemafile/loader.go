// Package schemafile loads the extraction schema resource from disk.
package schemafile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/docextract/internal/domain"
	"github.com/kailas-cloud/docextract/internal/domain/schema"
)

// Load reads a JSON or YAML file mapping document type to its ordered field list.
// JSON is a subset of YAML, so one decoder serves both.
func Load(path string) (*schema.Registry, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes the schema document and builds a registry.
func Parse(data []byte) (*schema.Registry, error) {
	var types map[string][]string
	if err := yaml.Unmarshal(data, &types); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidSchema, err)
	}
	reg, err := schema.NewRegistry(types)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}
	return reg, nil
}
