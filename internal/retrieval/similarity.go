// Package retrieval ranks item embeddings against a query embedding.
package retrieval

import "sort"

// Match is one row of the item matrix and its similarity to the query.
type Match struct {
	Index      int
	Similarity float32
}

// Rank scores every row of matrix against query by dot product (cosine for
// normalized vectors) and returns all rows ordered by descending similarity.
// Ties keep row order. Rows whose dimension differs from the query score 0.
func Rank(query []float32, matrix [][]float32) []Match {
	if len(matrix) == 0 {
		return nil
	}

	out := make([]Match, len(matrix))
	for i, row := range matrix {
		out[i] = Match{Index: i, Similarity: dot(query, row)}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	return out
}

// TopK returns the first k entries of Rank.
func TopK(query []float32, matrix [][]float32, k int) []Match {
	ranked := Rank(query, matrix)
	if k >= 0 && k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}

func dot(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
