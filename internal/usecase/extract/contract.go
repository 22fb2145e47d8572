package extract

// Registry resolves the fields extracted for a document type.
type Registry interface {
	FieldsFor(docType string) ([]string, error)
}
