package ollama

import (
	"context"
	"fmt"
	"strings"

	"github.com/graphrag-chat/backend/pkg/ai"

	"github.com/ollama/ollama/api"
)

// GenerateEmbedding embeds one text with the configured embedding model.
func (c *GraphOllamaClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	res, err := c.GenerateEmbeddings(ctx, [][]byte{input})
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

// GenerateEmbeddings embeds a batch through /api/embed. Blank inputs get a
// zero vector.
func (c *GraphOllamaClient) GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	idx := make([]int, 0, len(inputs))
	texts := make([]string, 0, len(inputs))
	for i, in := range inputs {
		if strings.TrimSpace(string(in)) == "" {
			continue
		}
		idx = append(idx, i)
		texts = append(texts, string(in))
	}

	dim := c.dimensions
	if len(texts) > 0 {
		if err := c.reqLock.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		res, err := c.Client.Embed(ctx, &api.EmbedRequest{
			Model: c.embeddingModel,
			Input: texts,
		})
		c.reqLock.Release(1)
		if err != nil {
			return nil, err
		}
		if len(res.Embeddings) != len(texts) {
			return nil, fmt.Errorf("embedding response size mismatch: got %d want %d", len(res.Embeddings), len(texts))
		}
		c.modifyMetrics(api.Metrics{
			PromptEvalCount: res.PromptEvalCount,
			TotalDuration:   res.TotalDuration,
		})

		for j, vec := range res.Embeddings {
			out[idx[j]] = ai.FitDimensions(vec, c.dimensions)
			if dim == 0 {
				dim = len(vec)
			}
		}
	}

	for i := range out {
		if out[i] == nil {
			out[i] = make([]float32, dim)
		}
	}
	return out, nil
}
