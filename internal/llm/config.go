// Package llm provides the text-generation client used by the AI step adapters,
// plus prompt building and response cleanup helpers.
package llm

import "maps"

// ModelTier selects a model by how demanding the call is.
type ModelTier string

const (
	// TierLite structures job descriptions.
	TierLite ModelTier = "lite"
	// TierStandard parses resumes and writes markup.
	TierStandard ModelTier = "standard"
	// TierAdvanced produces enhancement suggestions.
	TierAdvanced ModelTier = "advanced"
)

// Provider names a model vendor.
type Provider string

const ProviderGemini Provider = "gemini"

// Config selects the provider, a model per tier and the sampling settings.
type Config struct {
	Provider        Provider
	Models          map[ModelTier]string
	Temperature     float32
	MaxOutputTokens int32 // zero leaves the provider default
}

// DefaultConfig returns the Gemini configuration used by the pipeline.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-flash",
		},
		Temperature:     0.1,
		MaxOutputTokens: 8192,
	}
}

// Model returns the model for tier. Tiers without a model fall back to
// standard and then lite; an empty string means nothing is configured.
func (c *Config) Model(tier ModelTier) string {
	for _, t := range []ModelTier{tier, TierStandard, TierLite} {
		if m := c.Models[t]; m != "" {
			return m
		}
	}
	return ""
}

// WithModels returns a copy of c with the given tiers replaced. Empty names
// are ignored so that unset configuration keeps the defaults.
func (c *Config) WithModels(overrides map[ModelTier]string) *Config {
	out := *c
	out.Models = maps.Clone(c.Models)
	if out.Models == nil {
		out.Models = make(map[ModelTier]string)
	}
	for tier, model := range overrides {
		if model != "" {
			out.Models[tier] = model
		}
	}
	return &out
}
