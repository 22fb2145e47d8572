package schemafile

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kailas-cloud/docextract/internal/domain"
)

func TestParse_JSON(t *testing.T) {
	data := []byte(`{
  "invoice": ["invoice_number", "total_amount", "due_date"],
  "memo": ["date", "author", "subject"]
}`)
	reg, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fields, err := reg.FieldsFor("invoice")
	if err != nil {
		t.Fatalf("FieldsFor: %v", err)
	}
	want := []string{"invoice_number", "total_amount", "due_date"}
	if !reflect.DeepEqual(fields, want) {
		t.Errorf("fields = %v, want %v", fields, want)
	}
	if got := reg.Types(); !reflect.DeepEqual(got, []string{"invoice", "memo"}) {
		t.Errorf("Types() = %v", got)
	}
}

func TestParse_YAML(t *testing.T) {
	data := []byte(`
receipt:
  - merchant
  - total
`)
	reg, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fields, _ := reg.FieldsFor("receipt")
	if !reflect.DeepEqual(fields, []string{"merchant", "total"}) {
		t.Errorf("fields = %v", fields)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not a mapping", `["a", "b"]`},
		{"empty document", ``},
		{"type without fields", `{"memo": []}`},
		{"duplicate field", `{"memo": ["date", "date"]}`},
		{"field is not a string list", `{"memo": {"date": 1}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data))
			if !errors.Is(err, domain.ErrInvalidSchema) {
				t.Fatalf("expected ErrInvalidSchema, got %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	if err := os.WriteFile(path, []byte(`{"memo": ["date"]}`), 0o600); err != nil {
		t.Fatal(err)
	}
	reg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := reg.FieldsFor("memo"); err != nil {
		t.Errorf("FieldsFor: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}
