package eval

import (
	"context"
	"fmt"
	"strings"
)

// Options selects and configures an evaluator.
type Options struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// New returns the configured evaluator, or nil when the provider is none.
func New(ctx context.Context, opts Options) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", ProviderNone:
		return nil, nil
	case ProviderOpenAI:
		o, err := NewOpenAI(opts.BaseURL, opts.APIKey, opts.Model)
		if err != nil {
			return nil, err
		}
		return o, nil
	case ProviderGemini:
		g, err := NewGemini(ctx, opts.APIKey, opts.Model)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unsupported evaluator provider: %s", opts.Provider)
	}
}
