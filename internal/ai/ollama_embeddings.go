package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaEmbClient talks to a local Ollama daemon's embeddings endpoint.
// It backs the example store when no hosted embedding provider is
// configured.
type OllamaEmbClient struct {
	httpClient *http.Client
	host       string
}

func NewOllamaEmbClient(host string, timeout time.Duration) *OllamaEmbClient {
	if host == "" {
		host = "http://127.0.0.1:11434"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OllamaEmbClient{httpClient: &http.Client{Timeout: timeout}, host: host}
}

// Embed returns one vector per input. Ollama's /api/embeddings takes a
// single prompt per call, so inputs are sent sequentially; example stores
// are small enough that batching is not worth a second API shape.
func (c *OllamaEmbClient) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	out := make([][]float32, 0, len(inputs))
	for _, s := range inputs {
		vec, err := c.embedOne(ctx, model, s)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

func (c *OllamaEmbClient) embedOne(ctx context.Context, model, prompt string) ([]float32, error) {
	body, _ := json.Marshal(struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
	}{Model: model, Prompt: prompt})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UnreachableError{Host: c.host, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, fmt.Errorf("ollama embeddings status %s: %s", resp.Status, string(msg))
	}
	var rb struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rb); err != nil {
		return nil, fmt.Errorf("decode embeddings response: %w", err)
	}
	vec := make([]float32, len(rb.Embedding))
	for i, f := range rb.Embedding {
		vec[i] = float32(f)
	}
	return vec, nil
}
