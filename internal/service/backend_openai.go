package service

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// openAIBackend generates embeddings via an OpenAI-compatible hosted API.
type openAIBackend struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// newOpenAIBackend creates the hosted embedding backend. baseURL may be
// empty for the default OpenAI endpoint, or point at any compatible API.
func newOpenAIBackend(apiKey, baseURL, model string) *openAIBackend {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &openAIBackend{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.EmbeddingModel(model),
	}
}

func (b *openAIBackend) Name() string { return "openai" }

// Embed calls the embeddings endpoint and returns the raw vector. The caller
// owns dimension reconciliation; the configured canonical dimensionality is
// deliberately not forwarded to the API so the reconciliation path stays the
// single enforcement point.
func (b *openAIBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := b.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          b.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("calling embeddings API: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embeddings API returned no data")
	}

	return resp.Data[0].Embedding, nil
}
