package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider backs a Provider with a function so router behavior can be
// scripted per test.
type fakeProvider struct {
	name     string
	generate func(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	return f.generate(ctx, req)
}

func working(name, text string) *fakeProvider {
	return &fakeProvider{
		name: name,
		generate: func(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
			return &GenerateResult{Text: text, Provider: name, Model: "m-" + name}, nil
		},
	}
}

func broken(name string) *fakeProvider {
	return &fakeProvider{
		name: name,
		generate: func(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
			return nil, &ProviderExhaustedError{Provider: name, Last: errors.New("all keys failed")}
		},
	}
}

func TestRouterPrimaryAnswers(t *testing.T) {
	r := NewRouter(working(ProviderAnthropic, "primary answer"), working(ProviderPerplexity, "fallback answer"))

	resp := r.Generate(context.Background(), GenerateRequest{}, CallConfig{})
	assert.Equal(t, "primary answer", resp.Text)
	assert.Equal(t, ProviderAnthropic, resp.Provider)
	assert.False(t, resp.Degraded)
}

func TestRouterFallsBackOnce(t *testing.T) {
	r := NewRouter(broken(ProviderAnthropic), working(ProviderPerplexity, "fallback answer"))

	resp := r.Generate(context.Background(), GenerateRequest{}, CallConfig{})
	assert.Equal(t, "fallback answer", resp.Text)
	assert.Equal(t, ProviderPerplexity, resp.Provider)
	assert.False(t, resp.Degraded)
}

func TestRouterDegradesWhenAllFail(t *testing.T) {
	r := NewRouter(broken(ProviderAnthropic), broken(ProviderPerplexity))

	resp := r.Generate(context.Background(), GenerateRequest{}, CallConfig{})
	require.NotNil(t, resp)
	assert.True(t, resp.Degraded)
	assert.NotEmpty(t, resp.Text)
	assert.NotEmpty(t, resp.ErrDetail)
}

func TestRouterHonorsProviderOverride(t *testing.T) {
	r := NewRouter(working(ProviderAnthropic, "from anthropic"), working(ProviderPerplexity, "from perplexity"))

	resp := r.Generate(context.Background(), GenerateRequest{}, CallConfig{Provider: ProviderPerplexity})
	assert.Equal(t, "from perplexity", resp.Text)
	assert.Equal(t, ProviderPerplexity, resp.Provider)
}

func TestRouterFallbackClearsModelOverride(t *testing.T) {
	var fallbackModel string
	fb := &fakeProvider{
		name: ProviderPerplexity,
		generate: func(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
			fallbackModel = req.Model
			return &GenerateResult{Text: "ok", Provider: ProviderPerplexity}, nil
		},
	}
	r := NewRouter(broken(ProviderAnthropic), fb)

	resp := r.Generate(context.Background(), GenerateRequest{Model: "claude-opus-override"}, CallConfig{})
	assert.False(t, resp.Degraded)
	assert.Empty(t, fallbackModel)
}

func TestRouterSingleVendor(t *testing.T) {
	r := NewRouter(broken(ProviderAnthropic), nil)

	resp := r.Generate(context.Background(), GenerateRequest{}, CallConfig{})
	assert.True(t, resp.Degraded)
	assert.NotEmpty(t, resp.Text)
}

func TestKeyPool(t *testing.T) {
	pool := NewKeyPool([]string{"k1", "", "k2", "k3", ""})
	assert.Equal(t, 3, pool.Len())
	assert.False(t, pool.Empty())

	perm := pool.Shuffled()
	require.Len(t, perm, 3)
	seen := map[int]bool{}
	for _, i := range perm {
		assert.GreaterOrEqual(t, i, 0)
		assert.Less(t, i, 3)
		seen[i] = true
	}
	assert.Len(t, seen, 3)

	empty := NewKeyPool(nil)
	assert.True(t, empty.Empty())
	assert.Empty(t, empty.Shuffled())
}
