// Package llm contains the model-vendor clients, the cross-provider
// router, and the response parser.
//
// Everything above this package treats model calls as infallible: the
// router always produces a response object, degrading to an explicit
// "assistant unavailable" text when every vendor is down. Errors exist
// inside the package only, as fall-through signals between credentials,
// models and providers.
package llm

import (
	"context"
	"math/rand/v2"
)

// Turn is a single message in a conversation.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// GenerateRequest describes one generation call.
type GenerateRequest struct {
	// System is the system instruction for the call.
	System string
	// Turns is the ordered conversation history, ending with the user turn.
	Turns []Turn
	// Model overrides the provider's primary model when set.
	Model string
}

// GenerateResult is vendor-tagged raw output from one provider.
type GenerateResult struct {
	Text     string
	Provider string
	Model    string
}

// Provider performs generation calls against one vendor. Implementations
// own credential rotation and per-vendor request shaping; they return
// *ProviderExhaustedError once every credential and candidate model for
// the vendor has failed.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

// KeyPool holds the credentials for one vendor. It is built once at
// startup and never mutated; concurrent calls share it freely.
type KeyPool struct {
	keys []string
}

// NewKeyPool copies the non-empty credentials into an immutable pool.
func NewKeyPool(keys []string) KeyPool {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	return KeyPool{keys: out}
}

// Empty reports whether the pool has no credentials. An empty pool means
// the provider is never attempted.
func (p KeyPool) Empty() bool { return len(p.keys) == 0 }

// Len returns the number of credentials.
func (p KeyPool) Len() int { return len(p.keys) }

// Shuffled returns a fresh random permutation of the credential indices.
// Each call picks its own order so load spreads across keys.
func (p KeyPool) Shuffled() []int {
	return rand.Perm(len(p.keys))
}

// Key returns the credential at index i.
func (p KeyPool) Key(i int) string { return p.keys[i] }
