// Package assist proposes annotations using a local vision language model.
// It talks to either an Ollama server or a llama.cpp server with the
// OpenAI-compatible API, asks the model to enumerate objects, and converts
// the reply into candidate bounding boxes.
package assist

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Backend selects which model server a client talks to.
type Backend string

const (
	BackendOllama   Backend = "ollama"
	BackendLlamaCpp Backend = "llamacpp"
)

// VisionClient sends a prompt plus an image to a vision model and returns
// the raw text reply.
type VisionClient interface {
	Query(ctx context.Context, model, prompt, imageB64 string) (string, error)
}

// NewClient builds a client for the given backend and server URL.
func NewClient(backend Backend, serverURL string) (VisionClient, error) {
	switch backend {
	case BackendOllama:
		return NewOllamaClient(serverURL)
	case BackendLlamaCpp:
		return NewLlamaCppClient(serverURL)
	}
	return nil, fmt.Errorf("unknown assist backend: %s", backend)
}

// ParseBackend resolves a backend name from user input.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ollama":
		return BackendOllama, nil
	case "llamacpp", "llama.cpp", "llama-cpp":
		return BackendLlamaCpp, nil
	}
	return "", fmt.Errorf("unknown assist backend: %q", s)
}

// sanitizeModelJSON removes code fences, comments, and trailing commas from a
// model reply and keeps only the outermost JSON object.
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	reBlock := regexp.MustCompile(`(?s)/\*.*?\*/`)
	raw = reBlock.ReplaceAllString(raw, "")
	reLine := regexp.MustCompile(`(?m)^\s*//.*$`)
	raw = reLine.ReplaceAllString(raw, "")

	reTrailing := regexp.MustCompile(`,(\s*[}\]])`)
	raw = reTrailing.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
