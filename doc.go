// Package ragdesk is a client console for a retrieval-augmented generation backend.
//
// A Console polls backend health and per-document ingestion status in the
// background, submits queries with a retrieval-only fallback, and uploads
// text or files under a deadline. Everything it learns is kept in a single
// in-memory state that callers read as snapshots or subscribe to.
//
//	console, _ := ragdesk.New(
//	    ragdesk.WithBaseURL("http://localhost:3000"),
//	    ragdesk.WithLogger(logger),
//	)
//	console.Start(ctx)
//	defer console.Stop()
//
//	res, err := console.Query(ctx, ragdesk.QueryRequest{Query: "what is X?", TopK: 5})
//	switch r := res.(type) {
//	case ragdesk.Success:
//	    fmt.Println(r.GeneratedAnswer)
//	case ragdesk.Gated:
//	    fmt.Println("withheld:", r.GatingReason)
//	case ragdesk.Failure:
//	    fmt.Println("error:", r.Error)
//	}
//
// Only one query and one upload may be in flight at a time; a second
// submission of the same kind fails with ErrBusy.
package ragdesk
