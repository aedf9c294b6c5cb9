// Package openaiembed embeds text through an OpenAI-compatible embeddings
// endpoint.
package openaiembed

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNoData is returned when the endpoint answers without an embedding.
var ErrNoData = errors.New("openai embed: no embedding in response")

// Client wraps go-openai for single-text embedding.
type Client struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// New creates a client. An empty baseURL keeps the public OpenAI endpoint.
func New(apiKey, baseURL, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.EmbeddingModel(model),
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return string(c.model) }

// Embed returns the embedding of text as returned by the endpoint.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ErrNoData
	}
	return resp.Data[0].Embedding, nil
}
