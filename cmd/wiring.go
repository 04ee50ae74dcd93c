package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/brightpath-abroad/counsel-engine/internal/config"
	"github.com/brightpath-abroad/counsel-engine/internal/llm"
	"github.com/brightpath-abroad/counsel-engine/internal/store"
)

// openStore builds the configured store driver. Callers own Close.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "", "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Store.Driver)
	}
}

// buildRouter wires the two provider clients into a router, honouring
// the configured preference. A vendor with no credentials is left out;
// at least one vendor must be configured.
func buildRouter(pc config.ProvidersConfig) (*llm.Router, error) {
	var anthropic, perplexity llm.Provider

	if pool := llm.NewKeyPool(pc.Anthropic.Keys); !pool.Empty() {
		p, err := llm.NewAnthropic(llm.AnthropicConfig{
			Pool:              pool,
			Model:             pc.Anthropic.Model,
			FallbackModel:     pc.Anthropic.FallbackModel,
			Timeout:           time.Duration(pc.Anthropic.TimeoutSecs) * time.Second,
			MaxTokens:         pc.Anthropic.MaxTokens,
			RequestsPerSecond: pc.Anthropic.RequestsPerSecond,
		})
		if err != nil {
			return nil, err
		}
		anthropic = p
	}

	if pool := llm.NewKeyPool(pc.Perplexity.Keys); !pool.Empty() {
		p, err := llm.NewPerplexity(llm.PerplexityConfig{
			Pool:              pool,
			BaseURL:           pc.Perplexity.BaseURL,
			Model:             pc.Perplexity.Model,
			FallbackModel:     pc.Perplexity.FallbackModel,
			Timeout:           time.Duration(pc.Perplexity.TimeoutSecs) * time.Second,
			RequestsPerSecond: pc.Perplexity.RequestsPerSecond,
		})
		if err != nil {
			return nil, err
		}
		perplexity = p
	}

	switch {
	case anthropic == nil && perplexity == nil:
		return nil, eris.New("providers: no credentials configured for any vendor")
	case perplexity == nil:
		return llm.NewRouter(anthropic, nil), nil
	case anthropic == nil:
		return llm.NewRouter(perplexity, nil), nil
	case pc.Preferred == llm.ProviderPerplexity:
		return llm.NewRouter(perplexity, anthropic), nil
	default:
		return llm.NewRouter(anthropic, perplexity), nil
	}
}
