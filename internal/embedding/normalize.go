package embedding

import (
	"context"
	"math"
)

type normalized struct {
	inner Embedder
}

// Normalize wraps e so every vector it returns has unit length.
func Normalize(e Embedder) Embedder {
	if n, ok := e.(normalized); ok {
		return n
	}
	return normalized{inner: e}
}

func (n normalized) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := n.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	return NormalizeVector(v), nil
}

// NormalizeVector returns a unit-length copy of v. A zero vector is returned
// unchanged since it has no direction.
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	copy(out, v)
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i := range out {
		out[i] = float32(float64(out[i]) / norm)
	}
	return out
}
