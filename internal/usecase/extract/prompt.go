package extract

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/docextract/internal/domain/extraction"
)

// BuildPrompt renders the extraction instruction for one document.
func BuildPrompt(docType string, fields []string, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Given the following text extracted from a document of type '%s', ", docType)
	fmt.Fprintf(&b, "extract exactly these fields: %s.\n", strings.Join(fields, ", "))
	b.WriteString("Return a single JSON object keyed by field name and nothing else. ")
	b.WriteString(`Each value must be an object {"value": <string or array of strings>, "confidence": <number between 0 and 1>}. `)
	b.WriteString("Use an array only when the field occurs more than once in the document. ")
	fmt.Fprintf(&b, "If a field is not present, use {\"value\": %q, \"confidence\": 0}. ", extraction.NotFound)
	b.WriteString("Do not add fields that were not requested.\n\n")
	b.WriteString("Document Text:\n")
	b.WriteString(text)
	return b.String()
}
