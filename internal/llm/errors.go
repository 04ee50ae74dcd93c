package llm

import "fmt"

// ProviderExhaustedError signals that every credential for every candidate
// model of one vendor failed. The router recovers from it by falling back
// to the other vendor; it never reaches callers outside this package.
type ProviderExhaustedError struct {
	Provider string
	Last     error
}

func (e *ProviderExhaustedError) Error() string {
	return fmt.Sprintf("%s: all models and credentials exhausted: %v", e.Provider, e.Last)
}

func (e *ProviderExhaustedError) Unwrap() error { return e.Last }

// previewLimit bounds how much offending model output an UnparseableError
// carries, so logging a parse failure cannot blow up log size.
const previewLimit = 160

// UnparseableError signals that model output could not be turned into the
// expected JSON shape even after the bounded repair pass. It carries a
// truncated preview of the text, never the full response.
type UnparseableError struct {
	Preview string
}

func (e *UnparseableError) Error() string {
	return fmt.Sprintf("unparseable model response: %q", e.Preview)
}

func newUnparseableError(raw string) *UnparseableError {
	if len(raw) > previewLimit {
		raw = raw[:previewLimit] + "..."
	}
	return &UnparseableError{Preview: raw}
}
