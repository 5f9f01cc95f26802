package embeddings

import (
	"context"
	"fmt"
	"strings"
)

// Embedder turns text into fixed-size vectors. Implementations must be safe
// for concurrent use and must return exactly one vector per input text, each
// of Dimensions() length.
type Embedder interface {
	// EmbedBatch embeds texts in submission order. Blank texts embed to
	// zero vectors without touching the backend.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector length this embedder produces.
	Dimensions() int

	// Name identifies the backing model.
	Name() string
}

// BatchError reports the failing slice of a batched embedding request.
// Start and End index the texts submitted to the backend; vectors for
// earlier batches were produced successfully, and deterministic chunk IDs
// make a retry overwrite rather than duplicate them.
type BatchError struct {
	Start int
	End   int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("embedding batch [%d:%d] failed: %v", e.Start, e.End, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// embedOne runs a single text through EmbedBatch.
func embedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}

// zeroFill embeds the non-blank texts through embed and fills zero vectors
// of the given dimension for blank ones. Blank text carries no signal worth
// an API call.
func zeroFill(ctx context.Context, texts []string, dims int, embed func(ctx context.Context, texts []string) ([][]float32, error)) ([][]float32, error) {
	nonBlank := make([]string, 0, len(texts))
	positions := make([]int, 0, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) != "" {
			nonBlank = append(nonBlank, t)
			positions = append(positions, i)
		}
	}

	out := make([][]float32, len(texts))
	if len(nonBlank) > 0 {
		vecs, err := embed(ctx, nonBlank)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(nonBlank) {
			return nil, fmt.Errorf("got %d embeddings for %d texts", len(vecs), len(nonBlank))
		}
		for i, v := range vecs {
			out[positions[i]] = v
		}
	}
	for i := range out {
		if out[i] == nil {
			out[i] = make([]float32, dims)
		}
	}
	return out, nil
}
