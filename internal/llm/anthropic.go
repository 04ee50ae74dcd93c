package llm

import (
	"context"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ProviderAnthropic is the provenance tag for the Anthropic vendor.
const ProviderAnthropic = "anthropic"

// AnthropicConfig configures the Anthropic provider client.
type AnthropicConfig struct {
	Pool              KeyPool
	Model             string
	FallbackModel     string
	Timeout           time.Duration
	MaxTokens         int64
	RequestsPerSecond float64
}

// anthropicProvider talks to the Anthropic Messages API through the
// official SDK. One SDK client is built per credential at startup; per
// call the credentials are tried in a fresh random order for each
// candidate model.
type anthropicProvider struct {
	pool      KeyPool
	clients   []sdk.Client
	primary   string
	fallback  string
	timeout   time.Duration
	maxTokens int64
	limiter   *rate.Limiter
}

// NewAnthropic builds the Anthropic provider. The key pool must hold at
// least one credential.
func NewAnthropic(cfg AnthropicConfig) (Provider, error) {
	if cfg.Pool.Empty() {
		return nil, eris.New("anthropic: no credentials configured")
	}

	clients := make([]sdk.Client, cfg.Pool.Len())
	for i := range clients {
		clients[i] = sdk.NewClient(option.WithAPIKey(cfg.Pool.Key(i)))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	return &anthropicProvider{
		pool:      cfg.Pool,
		clients:   clients,
		primary:   cfg.Model,
		fallback:  cfg.FallbackModel,
		timeout:   timeout,
		maxTokens: maxTokens,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

func (p *anthropicProvider) Name() string { return ProviderAnthropic }

// Generate tries candidate models in priority order and, for each model,
// the credential pool in randomized order. Any attempt failure falls
// through to the next credential; exhausting everything yields
// *ProviderExhaustedError carrying the last underlying error.
func (p *anthropicProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	var lastErr error
	for _, model := range candidateModels(req.Model, p.primary, p.fallback) {
		for _, i := range p.pool.Shuffled() {
			if err := p.limiter.Wait(ctx); err != nil {
				if lastErr == nil {
					lastErr = err
				}
				return nil, &ProviderExhaustedError{Provider: p.Name(), Last: lastErr}
			}

			res, err := p.attempt(ctx, p.clients[i], model, req)
			if err == nil {
				return res, nil
			}
			lastErr = err
			zap.L().Warn("anthropic: attempt failed",
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

func (p *anthropicProvider) attempt(ctx context.Context, client sdk.Client, model string, req GenerateRequest) (*GenerateResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: p.maxTokens,
		Messages:  toSDKMessages(req.Turns),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	msg, err := client.Messages.New(attemptCtx, params)
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: create message")
	}

	return &GenerateResult{
		Text:     messageText(msg),
		Provider: ProviderAnthropic,
		Model:    string(msg.Model),
	}, nil
}

// candidateModels returns the models to try in priority order. An
// explicit override replaces the primary; the vendor fallback model is
// always the final candidate.
func candidateModels(override, primary, fallback string) []string {
	first := primary
	if override != "" {
		first = override
	}
	if fallback == "" || fallback == first {
		return []string{first}
	}
	return []string{first, fallback}
}

func toSDKMessages(turns []Turn) []sdk.MessageParam {
	out := make([]sdk.MessageParam, len(turns))
	for i, t := range turns {
		block := sdk.NewTextBlock(t.Content)
		switch t.Role {
		case "assistant":
			out[i] = sdk.NewAssistantMessage(block)
		default:
			out[i] = sdk.NewUserMessage(block)
		}
	}
	return out
}

// messageText concatenates all text content blocks.
func messageText(msg *sdk.Message) string {
	var sb strings.Builder
	for _, b := range msg.Content {
		if b.Type == "" || b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}
