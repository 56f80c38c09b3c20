package api

import (
	"context"
	"encoding/json"
	"fmt"
)

// CreateEmbeddings returns one embedding vector per input text, in order.
// Inputs are sent one request at a time since some gateways reject batched
// input arrays.
func (c *Client) CreateEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	embeddings := make([][]float64, 0, len(texts))

	for i, text := range texts {
		vec, err := c.CreateSingleEmbedding(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed input %d: %w", i, err)
		}
		embeddings = append(embeddings, vec)
	}

	return embeddings, nil
}

// CreateSingleEmbedding returns the embedding vector for one text
func (c *Client) CreateSingleEmbedding(ctx context.Context, text string) ([]float64, error) {
	req := EmbeddingRequest{
		Model: c.model.EmbeddingModel,
		Input: text,
	}

	respBody, err := c.post(ctx, "/embeddings", req)
	if err != nil {
		return nil, err
	}

	var resp EmbeddingResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse embeddings response: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}
