// Package docextract provides a Go client for the docextract HTTP API.
//
// The service classifies uploaded documents against a labeled corpus and
// extracts the fields declared for the detected document type.
//
//	client, _ := docextract.New("http://localhost:8080",
//	    docextract.WithAPIKey(os.Getenv("DOCEXTRACT_API_KEY")),
//	)
//	f, _ := os.Open("invoice.pdf")
//	res, err := client.Extract(ctx, docextract.File{Name: "invoice.pdf", Body: f})
//	if err != nil {
//	    var apiErr *docextract.APIError
//	    if errors.As(err, &apiErr) && apiErr.Code == "NoTextFound" { ... }
//	}
//	fmt.Println(res[0].DocumentType, res[0].Entities["invoice_number"].Value)
//
// ExtractPartial uploads a batch and reports every file independently, so one
// unreadable scan does not fail the whole request.
package docextract
