// Package textanalytics is a small client for the Azure Cognitive Services
// Text Analytics v3.0 REST API, built on the azcore HTTP pipeline.
//
// The client posts document batches to one of five operations and returns
// the raw JSON body. ParseBatch turns that body into an engine.BatchResponse
// keyed by in-batch index, so a client call plugs straight into an
// engine.BatchFunc:
//
//	client, err := textanalytics.New(textanalytics.Config{
//		Region: "westeurope",
//		APIKey: os.Getenv("AZURE_TEXT_ANALYTICS_KEY"),
//	})
//	if err != nil {
//		return err
//	}
//
//	batch := func(ctx context.Context, rows []engine.Row) (*engine.BatchResponse, error) {
//		docs := make([]textanalytics.Document, len(rows))
//		for i, r := range rows {
//			docs[i] = textanalytics.Document{ID: strconv.Itoa(i), Text: r.Text("review")}
//		}
//		body, err := client.AnalyzeSentiment(ctx, docs)
//		if err != nil {
//			return nil, err
//		}
//		return textanalytics.ParseBatch(body, len(rows))
//	}
//
// # Errors
//
// HTTP 429 and 5xx responses are returned as transient *APIError values and
// retried by the engine. Other non-200 responses, empty bodies and
// undecodable JSON are declared errors and recorded on the rows.
//
// # Caching
//
// With Config.Cache set, successful responses are stored in Redis keyed by
// operation and request body, and identical requests skip the network.
package textanalytics
