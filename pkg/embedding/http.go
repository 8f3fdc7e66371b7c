package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// HTTPEmbedder calls a model server speaking a minimal embed API:
// POST {"model","texts":[...]} returning {"vectors":[[...],...]}.
type HTTPEmbedder struct {
	endpoint string
	model    string
	client   *http.Client
	cache    *Cache
	log      *slog.Logger
}

type embedRequest struct {
	Model string   `json:"model,omitempty"`
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Vectors [][]float32 `json:"vectors"`
}

// NewHTTPEmbedder builds an embedder against endpoint. cache may be nil to
// disable memoization.
func NewHTTPEmbedder(endpoint, model string, cache *Cache, log *slog.Logger) (*HTTPEmbedder, error) {
	if endpoint == "" {
		return nil, errors.New("embedding endpoint not configured")
	}
	if log == nil {
		log = slog.Default()
	}
	return &HTTPEmbedder{
		endpoint: endpoint,
		model:    model,
		client:   &http.Client{Timeout: 30 * time.Second},
		cache:    cache,
		log:      log,
	}, nil
}

func (e *HTTPEmbedder) ModelID() string { return e.model }

// Close releases pooled connections. The embedder stays usable afterwards.
func (e *HTTPEmbedder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

func (e *HTTPEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedTexts resolves cached texts locally and fetches the rest in one
// request, preserving input order.
func (e *HTTPEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	var misses []string
	var missIdx []int
	for i, text := range texts {
		if e.cache != nil {
			if vec, ok := e.cache.Get(e.model, text); ok {
				out[i] = vec
				continue
			}
		}
		misses = append(misses, text)
		missIdx = append(missIdx, i)
	}
	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := e.request(ctx, misses)
	if err != nil {
		return nil, err
	}
	for j, vec := range fetched {
		out[missIdx[j]] = vec
		if e.cache != nil {
			e.cache.Put(e.model, misses[j], vec)
		}
	}
	return out, nil
}

func (e *HTTPEmbedder) request(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("encoding embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding server request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding server returned status %d", resp.StatusCode)
	}

	var decoded embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}
	if len(decoded.Vectors) != len(texts) {
		return nil, fmt.Errorf("embedding server returned %d vectors for %d inputs",
			len(decoded.Vectors), len(texts))
	}
	return decoded.Vectors, nil
}
