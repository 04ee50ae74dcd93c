package llm

import (
	"context"

	"go.uber.org/zap"
)

// degradedText is returned when every configured vendor is down. Callers
// always get a response object; "AI is unavailable" is content, not an
// error condition.
const degradedText = "The assistant is temporarily unavailable. Please try again in a few minutes."

// CallConfig selects the provider and model for one logical request.
// Zero value means the router's configured primary with its own default
// model.
type CallConfig struct {
	Provider string
	Model    string
}

// Response is the normalized result every feature consumes. Provider and
// Model record which vendor actually answered; downstream confidence
// scoring and telemetry depend on them.
type Response struct {
	Text     string `json:"text"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	Degraded bool   `json:"degraded,omitempty"`
	// ErrDetail describes the failure when Degraded is set.
	ErrDetail string `json:"err_detail,omitempty"`
}

// Router is the single entry point for model calls. It attempts the
// preferred provider, falls back to the other vendor exactly once, and
// degrades to a textual response when both are exhausted. Generate never
// returns an error.
type Router struct {
	primary  Provider
	fallback Provider
}

// NewRouter builds a router. fallback may be nil when only one vendor is
// configured.
func NewRouter(primary, fallback Provider) *Router {
	return &Router{primary: primary, fallback: fallback}
}

// Generate performs at most two provider attempts: the preferred vendor
// first, then the other vendor using its own default model selection.
// No further cascading.
func (r *Router) Generate(ctx context.Context, req GenerateRequest, cfg CallConfig) *Response {
	first, second := r.order(cfg.Provider)
	if first == nil {
		first, second = second, nil
	}
	if first == nil {
		return &Response{Text: degradedText, Degraded: true, ErrDetail: "no providers configured"}
	}

	if cfg.Model != "" {
		req.Model = cfg.Model
	}

	res, err := first.Generate(ctx, req)
	if err == nil {
		return &Response{Text: res.Text, Provider: res.Provider, Model: res.Model}
	}
	zap.L().Warn("router: provider exhausted",
		zap.String("provider", first.Name()),
		zap.Error(err),
	)

	if second != nil {
		// The fallback vendor picks its own default model; the caller's
		// model override only applies to the vendor it was meant for.
		fbReq := req
		fbReq.Model = ""
		res, fbErr := second.Generate(ctx, fbReq)
		if fbErr == nil {
			return &Response{Text: res.Text, Provider: res.Provider, Model: res.Model}
		}
		zap.L().Error("router: all providers unavailable",
			zap.String("primary", first.Name()),
			zap.String("fallback", second.Name()),
			zap.Error(fbErr),
		)
		return &Response{Text: degradedText, Degraded: true, ErrDetail: fbErr.Error()}
	}

	return &Response{Text: degradedText, Degraded: true, ErrDetail: err.Error()}
}

// order returns (preferred, other) given a requested provider name.
func (r *Router) order(preferred string) (Provider, Provider) {
	if preferred != "" && r.fallback != nil && r.fallback.Name() == preferred {
		return r.fallback, r.primary
	}
	return r.primary, r.fallback
}
