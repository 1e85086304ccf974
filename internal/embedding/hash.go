package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// DefaultHashDimension is the dimension of one SHA-256 digest.
const DefaultHashDimension = sha256.Size

// HashModel is the model id reported by the hash embedder.
const HashModel = "sha256-hash"

// HashEmbedder derives a deterministic pseudo-embedding from the SHA-256
// digest of the text. Identical text maps to the identical vector and
// unrelated texts land near zero similarity. It has no semantic quality and
// exists so ranking keeps working without a model.
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder returns a hash embedder. Dimensions beyond 32 are filled
// from further digests of the text with a block counter appended.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = DefaultHashDimension
	}
	return &HashEmbedder{dimension: dimension}
}

// Embed implements Embedder.
func (h *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.vector(t)
	}
	return out, nil
}

// EmbedSingle implements Embedder.
func (h *HashEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return h.vector(text), nil
}

// Model implements Embedder.
func (h *HashEmbedder) Model() string { return HashModel }

// Dimension implements Embedder.
func (h *HashEmbedder) Dimension() int { return h.dimension }

func (h *HashEmbedder) vector(text string) []float32 {
	vec := make([]float32, 0, h.dimension)
	for block := uint32(0); len(vec) < h.dimension; block++ {
		var digest [sha256.Size]byte
		if block == 0 {
			digest = sha256.Sum256([]byte(text))
		} else {
			digest = sha256.Sum256(binary.BigEndian.AppendUint32([]byte(text), block))
		}
		for _, b := range digest {
			if len(vec) == h.dimension {
				break
			}
			// centre bytes on zero so unrelated digests are near orthogonal
			vec = append(vec, float32(b)-127.5)
		}
	}
	return Normalize(vec)
}
