// Package rerank selects a relevant yet diverse subset of retrieved records.
package rerank

import (
	"math"

	"github.com/kailas-cloud/ragbot/internal/domain/record"
	"github.com/kailas-cloud/ragbot/internal/domain/similarity"
)

// Defaults used by the answer pipeline.
const (
	DefaultLambda = 0.7
	DefaultTopK   = 8
)

// MMR runs greedy Maximal Marginal Relevance selection.
//
// The first pick is the record most similar to the query. Each later pick
// maximizes lambda*sim(i, query) - (1-lambda)*max_j sim(i, selected_j).
// Ties go to the lowest index. Records without an embedding score 0 against
// everything. lambda is clamped to [0, 1].
func MMR(query []float32, records []record.Record, lambda float64, topK int) []record.Record {
	if len(records) == 0 || topK <= 0 {
		return []record.Record{}
	}
	lambda = math.Max(0, math.Min(1, lambda))

	toQuery := make([]float64, len(records))
	for i, r := range records {
		toQuery[i] = similarity.Cosine(query, r.Embedding)
	}

	// maxToSelected[i] tracks max sim(i, j) over the selected set.
	maxToSelected := make([]float64, len(records))
	picked := make([]bool, len(records))
	order := make([]int, 0, min(topK, len(records)))

	for len(order) < topK && len(order) < len(records) {
		best := -1
		bestScore := math.Inf(-1)
		for i := range records {
			if picked[i] {
				continue
			}
			score := toQuery[i]
			if len(order) > 0 {
				score = lambda*toQuery[i] - (1-lambda)*maxToSelected[i]
			}
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			break
		}

		picked[best] = true
		order = append(order, best)
		for i := range records {
			if picked[i] {
				continue
			}
			sim := similarity.Cosine(records[i].Embedding, records[best].Embedding)
			if len(order) == 1 || sim > maxToSelected[i] {
				maxToSelected[i] = sim
			}
		}
	}

	out := make([]record.Record, len(order))
	for i, idx := range order {
		out[i] = records[idx]
	}
	return out
}
