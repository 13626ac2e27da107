package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteBackend embeds text through an OpenAI-shaped embeddings API. It is
// the first tier of the backend chain and requires a credential.
type RemoteBackend struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimension  int
}

// RemoteConfig holds remote backend configuration.
type RemoteConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// NewRemoteBackend creates a remote embedding backend.
func NewRemoteBackend(cfg RemoteConfig) (*RemoteBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: no API key configured", ErrBackendUnavailable)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 768
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &RemoteBackend{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimension:  cfg.Dimension,
	}, nil
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Embed generates embeddings for the given texts. Network failures and
// timeouts are reported as ErrBackendUnavailable so callers treat them as a
// degradation trigger, not a hard error.
func (b *RemoteBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embeddingRequest{Input: texts, Model: b.model})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrBackendUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp embeddingResponse
		if jsonErr := json.Unmarshal(raw, &errResp); jsonErr == nil && errResp.Error != nil {
			return nil, fmt.Errorf("%w: API error: %s", ErrBackendUnavailable, errResp.Error.Message)
		}
		return nil, fmt.Errorf("%w: API status %d", ErrBackendUnavailable, resp.StatusCode)
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(raw, &embResp); err != nil {
		return nil, fmt.Errorf("parse embed response: %w", err)
	}

	out := make([][]float32, len(texts))
	for _, d := range embResp.Data {
		if d.Index >= 0 && d.Index < len(out) {
			out[d.Index] = normalizeVector(d.Embedding)
			if len(d.Embedding) > 0 {
				b.dimension = len(d.Embedding)
			}
		}
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("%w: missing embedding for input %d", ErrBackendUnavailable, i)
		}
	}

	return out, nil
}

// ID returns the backend identifier.
func (b *RemoteBackend) ID() string {
	return BackendRemote
}

// Dimension returns the embedding dimension.
func (b *RemoteBackend) Dimension() int {
	return b.dimension
}

// Available reports whether a credential is configured. Actual reachability
// surfaces on the first Embed call as ErrBackendUnavailable.
func (b *RemoteBackend) Available(ctx context.Context) error {
	if b.apiKey == "" {
		return fmt.Errorf("%w: no API key configured", ErrBackendUnavailable)
	}
	return nil
}

var _ Backend = (*RemoteBackend)(nil)
