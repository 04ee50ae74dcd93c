package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/brightpath-abroad/counsel-engine/internal/resilience"
)

// ProviderPerplexity is the provenance tag for the Perplexity vendor.
const ProviderPerplexity = "perplexity"

const defaultPerplexityBaseURL = "https://api.perplexity.ai"

// PerplexityConfig configures the Perplexity provider client.
type PerplexityConfig struct {
	Pool              KeyPool
	BaseURL           string
	Model             string
	FallbackModel     string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// perplexityProvider performs chat completions against the Perplexity
// API. Same rotation contract as the Anthropic provider: candidate
// models in priority order, credentials shuffled per call.
type perplexityProvider struct {
	pool     KeyPool
	baseURL  string
	primary  string
	fallback string
	timeout  time.Duration
	http     *http.Client
	limiter  *rate.Limiter
}

// NewPerplexity builds the Perplexity provider. The key pool must hold
// at least one credential.
func NewPerplexity(cfg PerplexityConfig) (Provider, error) {
	if cfg.Pool.Empty() {
		return nil, eris.New("perplexity: no credentials configured")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultPerplexityBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	return &perplexityProvider{
		pool:     cfg.Pool,
		baseURL:  baseURL,
		primary:  cfg.Model,
		fallback: cfg.FallbackModel,
		timeout:  timeout,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

func (p *perplexityProvider) Name() string { return ProviderPerplexity }

func (p *perplexityProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	var lastErr error
	for _, model := range candidateModels(req.Model, p.primary, p.fallback) {
		for _, i := range p.pool.Shuffled() {
			if err := p.limiter.Wait(ctx); err != nil {
				if lastErr == nil {
					lastErr = err
				}
				return nil, &ProviderExhaustedError{Provider: p.Name(), Last: lastErr}
			}

			res, err := p.attempt(ctx, p.pool.Key(i), model, req)
			if err == nil {
				return res, nil
			}
			lastErr = err
			zap.L().Warn("perplexity: attempt failed",
				zap.String("model", model),
				zap.Int("key_index", i),
				zap.Error(err),
			)

			if ctx.Err() != nil {
				return nil, &ProviderExhaustedError{Provider: p.Name(), Last: lastErr}
			}
		}
	}
	return nil, &ProviderExhaustedError{Provider: p.Name(), Last: lastErr}
}

// chatRequest is the body for POST /chat/completions.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int         `json:"index"`
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *perplexityProvider) attempt(ctx context.Context, apiKey, model string, req GenerateRequest) (*GenerateResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msgs := make([]chatMessage, 0, len(req.Turns)+1)
	if req.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.System})
	}
	for _, t := range req.Turns {
		msgs = append(msgs, chatMessage{Role: t.Role, Content: t.Content})
	}

	body, err := json.Marshal(chatRequest{Model: model, Messages: msgs})
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("perplexity: unexpected status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "perplexity: unmarshal response")
	}
	if len(result.Choices) == 0 {
		return nil, eris.New("perplexity: empty choices")
	}

	answeredModel := result.Model
	if answeredModel == "" {
		answeredModel = model
	}
	return &GenerateResult{
		Text:     result.Choices[0].Message.Content,
		Provider: ProviderPerplexity,
		Model:    answeredModel,
	}, nil
}
