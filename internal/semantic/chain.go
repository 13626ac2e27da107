package semantic

import (
	"context"
	"fmt"

	"github.com/brendbot/brand-engine/internal/observability"
)

// ChainConfig configures the backend priority chain.
type ChainConfig struct {
	Remote RemoteConfig
	ONNX   ONNXConfig
	TFIDF  int // dimension
}

// NewBackendChain constructs the available backends in priority order:
// remote API, local ONNX encoder, TF-IDF. Tiers whose prerequisites are
// missing are skipped with a logged reason; the TF-IDF tail is always
// present, so the chain is never empty.
func NewBackendChain(cfg ChainConfig, logger *observability.Logger) []Backend {
	var chain []Backend

	if remote, err := NewRemoteBackend(cfg.Remote); err != nil {
		logger.Debug().Err(err).Str("backend", BackendRemote).Msg("Backend tier skipped")
	} else {
		chain = append(chain, remote)
	}

	if onnx, err := NewONNXBackend(cfg.ONNX); err != nil {
		logger.Debug().Err(err).Str("backend", BackendONNX).Msg("Backend tier skipped")
	} else {
		chain = append(chain, onnx)
	}

	chain = append(chain, NewTFIDFBackend(cfg.TFIDF))

	ids := make([]string, len(chain))
	for i, b := range chain {
		ids[i] = b.ID()
	}
	logger.Info().Strs("backends", ids).Msg("Embedding backend chain assembled")

	return chain
}

// Select returns the first available backend in the chain, or the backend
// with the given ID when override is non-empty.
func Select(ctx context.Context, chain []Backend, override string) (Backend, error) {
	if override != "" {
		for _, b := range chain {
			if b.ID() == override {
				if err := b.Available(ctx); err != nil {
					return nil, err
				}
				return b, nil
			}
		}
		return nil, fmt.Errorf("%w: backend %q not in chain", ErrBackendUnavailable, override)
	}

	for _, b := range chain {
		if err := b.Available(ctx); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: no backend in chain is available", ErrBackendUnavailable)
}

// ByID returns the chain member with the given ID, or nil.
func ByID(chain []Backend, id string) Backend {
	for _, b := range chain {
		if b.ID() == id {
			return b
		}
	}
	return nil
}
