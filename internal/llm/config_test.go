package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.Model(TierLite))
	assert.Equal(t, "gemini-2.5-flash", cfg.Model(TierStandard))
	assert.Equal(t, "gemini-2.5-flash", cfg.Model(TierAdvanced))
	assert.InDelta(t, 0.1, cfg.Temperature, 1e-6)
}

func TestConfig_ModelFallback(t *testing.T) {
	tests := []struct {
		name   string
		models map[ModelTier]string
		tier   ModelTier
		want   string
	}{
		{"exact", map[ModelTier]string{TierAdvanced: "big"}, TierAdvanced, "big"},
		{"falls back to standard", map[ModelTier]string{TierStandard: "std", TierLite: "lite"}, TierAdvanced, "std"},
		{"falls back to lite", map[ModelTier]string{TierLite: "lite"}, "unknown", "lite"},
		{"empty name skipped", map[ModelTier]string{TierAdvanced: "", TierLite: "lite"}, TierAdvanced, "lite"},
		{"nothing configured", nil, TierAdvanced, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Models: tt.models}
			assert.Equal(t, tt.want, cfg.Model(tt.tier))
		})
	}
}

func TestConfig_WithModels(t *testing.T) {
	cfg := DefaultConfig()
	out := cfg.WithModels(map[ModelTier]string{TierAdvanced: "gemini-2.5-pro", TierLite: ""})

	assert.Equal(t, "gemini-2.5-flash", cfg.Model(TierAdvanced), "original is unchanged")
	assert.Equal(t, "gemini-2.5-pro", out.Model(TierAdvanced))
	assert.Equal(t, "gemini-2.5-flash-lite", out.Model(TierLite), "empty override keeps the default")
	assert.Equal(t, cfg.Temperature, out.Temperature)

	empty := (&Config{}).WithModels(map[ModelTier]string{TierLite: "x"})
	assert.Equal(t, "x", empty.Model(TierStandard))
}

func TestNewClient_UnsupportedProvider(t *testing.T) {
	_, err := NewClient(context.Background(), &Config{Provider: "openai"}, "key")
	assert.Error(t, err)
}

func TestNewGeminiClient_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), DefaultConfig(), "")
	assert.Error(t, err)
}

func TestResponseText(t *testing.T) {
	text := func(parts ...genai.Part) *genai.GenerateContentResponse {
		return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: parts},
			FinishReason: genai.FinishReasonStop,
		}}}
	}

	got, err := responseText(text(genai.Text(`{"a":`), genai.Text(`1}`)))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, got)

	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want error
	}{
		{"nil", nil, ErrEmptyResponse},
		{"no candidates", &genai.GenerateContentResponse{}, ErrEmptyResponse},
		{"prompt blocked", &genai.GenerateContentResponse{
			PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety},
		}, ErrBlocked},
		{"safety stop", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			FinishReason: genai.FinishReasonSafety,
		}}}, ErrBlocked},
		{"no content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			FinishReason: genai.FinishReasonMaxTokens,
		}}}, ErrEmptyResponse},
		{"no text parts", text(genai.Blob{MIMEType: "image/png"}), ErrEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := responseText(tt.resp)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
