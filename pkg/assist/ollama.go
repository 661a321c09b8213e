package assist

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

// defaultTimeout bounds a single model call when the caller's context has no
// deadline. Vision models on CPU can take minutes per image.
const defaultTimeout = 300 * time.Second

// OllamaClient talks to an Ollama server.
type OllamaClient struct {
	client *api.Client
}

// NewOllamaClient builds a client for the given server URL. Any path on the
// URL is dropped so callers may pass full endpoint URLs.
func NewOllamaClient(serverURL string) (*OllamaClient, error) {
	parsed, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama URL: %w", err)
	}
	base := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}
	return &OllamaClient{client: api.NewClient(base, http.DefaultClient)}, nil
}

// Query sends the prompt and image to the model and returns the text reply.
func (c *OllamaClient) Query(ctx context.Context, model, prompt, imageB64 string) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}

	imgBytes, err := base64.StdEncoding.DecodeString(imageB64)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 image: %w", err)
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: prompt,
				Images:  []api.ImageData{api.ImageData(imgBytes)},
			},
		},
		Stream: &streamFalse,
	}

	var reply string
	err = c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		reply = resp.Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat error: %w", err)
	}
	if reply == "" {
		return "", fmt.Errorf("empty response from ollama")
	}
	return reply, nil
}
