package llm

import (
	"context"
	"log"
	"os"
	"strings"
	"time"
)

// NewFromEnv returns a Reasoner based on environment variables.
// Supported providers:
//   - LLM_PROVIDER=openai|gemini
//   - OpenAI: OPENAI_API_KEY, optional LLM_MODEL, optional OPENAI_API_BASE
//   - Gemini: GOOGLE_API_KEY, optional LLM_MODEL
//
// With nothing configured the deterministic offline reasoner is returned, so
// local runs and demos work without credentials.
func NewFromEnv(ctx context.Context, provider, model string, timeout time.Duration) Reasoner {
	if provider == "" {
		provider = os.Getenv("LLM_PROVIDER")
	}
	if model == "" {
		model = os.Getenv("LLM_MODEL")
	}
	prov := strings.ToLower(strings.TrimSpace(provider))

	switch prov {
	case "openai":
		if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
			return newOpenAI(key, model, timeout)
		}
	case "gemini":
		if key := strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")); key != "" {
			if g, err := NewGemini(ctx, key, model); err == nil {
				return g
			} else {
				log.Printf("llm: gemini init failed, using offline reasoner: %v", err)
			}
		}
	}

	// autodetect by key presence when no provider was named
	if prov == "" {
		if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
			return newOpenAI(key, model, timeout)
		}
		if key := strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")); key != "" {
			if g, err := NewGemini(ctx, key, model); err == nil {
				return g
			}
		}
	}

	return &Offline{}
}

func newOpenAI(key, model string, timeout time.Duration) *OpenAI {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAI{
		APIKey:  key,
		Model:   model,
		BaseURL: strings.TrimRight(os.Getenv("OPENAI_API_BASE"), "/"),
		Timeout: timeout,
	}
}
