package mode

// Mode is the answering strategy of the pipeline.
type Mode string

// Pipeline mode constants.
const (
	// Auto plans an aggregation first and falls back to retrieval when planning fails.
	Auto Mode = "auto"
	// Aggregate only trusts planned aggregations; no retrieval fallback.
	Aggregate Mode = "aggregate"
	// Retrieve skips planning and answers from reranked passages.
	Retrieve Mode = "retrieve"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Auto || m == Aggregate || m == Retrieve
}

// Plans reports whether the mode starts with the query planner.
func (m Mode) Plans() bool { return m == Auto || m == Aggregate }

// Retrieves reports whether the mode may run hybrid retrieval.
func (m Mode) Retrieves() bool { return m == Auto || m == Retrieve }
