package record

import "encoding/json"

// SearchResponse is what the store returns for one search call.
// Hits keep the store's order (descending score). Aggregations is the raw
// "aggregations" object, nil when the body asked for none.
type SearchResponse struct {
	Hits         []Record
	Aggregations json.RawMessage
}
