package ai

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchEmbedder is implemented by clients that can embed several inputs in a
// single request.
type BatchEmbedder interface {
	GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error)
}

// FitDimensions truncates or zero-pads vec to dim entries. dim <= 0 keeps vec.
func FitDimensions(vec []float32, dim int) []float32 {
	if dim <= 0 || len(vec) == dim {
		return vec
	}
	if len(vec) > dim {
		return vec[:dim]
	}
	padded := make([]float32, dim)
	copy(padded, vec)
	return padded
}

// EmbedAll embeds inputs in order. Batch capable clients get batches of
// batchSize; others are called once per input with at most parallel requests
// in flight.
func EmbedAll(ctx context.Context, e Embedder, inputs [][]byte, batchSize, parallel int) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	if len(inputs) == 0 {
		return out, nil
	}
	if batchSize <= 0 {
		batchSize = 64
	}
	if parallel <= 0 {
		parallel = 4
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	if be, ok := e.(BatchEmbedder); ok {
		for start := 0; start < len(inputs); start += batchSize {
			end := min(start+batchSize, len(inputs))
			g.Go(func() error {
				res, err := be.GenerateEmbeddings(gctx, inputs[start:end])
				if err != nil {
					return err
				}
				copy(out[start:end], res)
				return nil
			})
		}
	} else {
		for i := range inputs {
			g.Go(func() error {
				vec, err := e.GenerateEmbedding(gctx, inputs[i])
				if err != nil {
					return err
				}
				out[i] = vec
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
