// Package engine turns a row-oriented table into batched or single-row remote
// calls, runs them on a bounded worker pool under a shared rate limit and a
// retry policy, and reassembles an output table aligned 1:1 with the input.
//
// The engine knows nothing about the endpoint it calls. Callers supply either
// a RowFunc (one row per call) or a BatchFunc (up to BatchSize rows per call)
// and get back an OutputTable carrying four result columns per row:
// response, error_message, error_type and error_raw, each namespaced with a
// prefix and de-duplicated against the input columns.
//
// # Basic Usage
//
//	eng, err := engine.New(engine.Config{
//		Name:            "sentiment",
//		ParallelWorkers: 4,
//		BatchSize:       10,
//		ErrorMode:       engine.ErrorModeLog,
//		Prefix:          "sentiment_api",
//		RateLimit:       ratelimit.Config{Calls: 300, Period: time.Minute},
//		Batch:           callSentiment,
//	})
//	if err != nil {
//		return err
//	}
//	out, err := eng.Run(ctx, table)
//
// # Error Handling
//
// Errors are classified by a Classifier into three classes:
//
//   - ClassTransient: retried by the retry policy (rate limit rejections,
//     network errors). Recorded on the row once attempts are exhausted.
//   - ClassDeclared: business failures returned by the API. Never retried,
//     recorded on the row.
//   - ClassFatal: anything else. Aborts the run in every mode.
//
// With ErrorModeFail any captured error aborts the run and no output is
// produced.
//
// # Run States
//
//	INIT -> BATCHING -> DISPATCHING -> RECONCILING -> DONE
//	                         |
//	                         +-> FAILED
package engine
