package retrieval

import "encoding/json"

const (
	contentBoost = 1.0
	titleBoost   = 1.5

	// Elasticsearch rejects num_candidates above 10000 and k above num_candidates.
	maxNumCandidates = 10000
)

type matchClause struct {
	Query string  `json:"query"`
	Boost float64 `json:"boost"`
}

type boolQuery struct {
	Should             []map[string]map[string]matchClause `json:"should"`
	MinimumShouldMatch int                                 `json:"minimum_should_match"`
}

type knnClause struct {
	Field         string    `json:"field"`
	QueryVector   []float32 `json:"query_vector"`
	K             int       `json:"k"`
	NumCandidates int       `json:"num_candidates"`
}

type searchBody struct {
	Size           int                  `json:"size"`
	Query          map[string]boolQuery `json:"query"`
	Source         bool                 `json:"_source"`
	TrackTotalHits bool                 `json:"track_total_hits"`
	KNN            *knnClause           `json:"knn,omitempty"`
}

// buildBody renders the hybrid query. A nil vector yields a lexical-only body;
// otherwise the store fuses the knn and lexical scores itself.
func buildBody(question string, vector []float32, topK int) ([]byte, error) {
	body := searchBody{
		Size: topK,
		Query: map[string]boolQuery{"bool": {
			Should: []map[string]map[string]matchClause{
				{"match": {"content": {Query: question, Boost: contentBoost}}},
				{"match": {"title": {Query: question, Boost: titleBoost}}},
			},
			MinimumShouldMatch: 1,
		}},
		Source:         true,
		TrackTotalHits: false,
	}
	if len(vector) > 0 {
		candidates := min(max(topK*25, 100), maxNumCandidates)
		body.KNN = &knnClause{
			Field:         "embedding",
			QueryVector:   vector,
			K:             min(max(topK*4, 10), candidates),
			NumCandidates: candidates,
		}
	}
	return json.Marshal(body)
}
