package providers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/BB-fat/bloop/internal/config"
	"github.com/BB-fat/bloop/internal/engine"
)

// Client is a model provider able to both pick actions and render text.
type Client interface {
	engine.ModelClient
	Complete(ctx context.Context, model string, messages []engine.Message) (string, error)
}

// compatible lists providers reachable through the OpenAI-compatible API.
var compatible = map[string]struct {
	baseURL  string
	needsKey bool
	localKey string
}{
	"openai":   {needsKey: true},
	"kimi":     {baseURL: "https://ark.ap-southeast.bytepluses.com/api/v3", needsKey: true},
	"gemini":   {baseURL: "https://generativelanguage.googleapis.com/v1beta/openai", needsKey: true},
	"glm":      {baseURL: "https://open.bigmodel.cn/api/paas/v4", needsKey: true},
	"minimax":  {baseURL: "https://api.minimax.chat/v1", needsKey: true},
	"deepseek": {baseURL: "https://api.deepseek.com/v1", needsKey: true},
	"groq":     {baseURL: "https://api.groq.com/openai/v1", needsKey: true},
	"lmstudio": {baseURL: "http://localhost:1234/v1", localKey: "lm-studio"},
	"ollama":   {baseURL: "http://localhost:11434/v1", localKey: "ollama"},
}

// NewClient creates the provider client selected by cfg.
func NewClient(cfg *config.Config) (Client, error) {
	provider := strings.ToLower(cfg.LLMProvider)
	if provider == "" {
		provider = "openai"
	}

	if provider == "anthropic" {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("no API key configured for anthropic (set ANTHROPIC_API_KEY)")
		}
		return NewAnthropicClient(cfg.APIKey), nil
	}

	p, ok := compatible[provider]
	if !ok {
		return nil, fmt.Errorf("unknown LLM_PROVIDER: %s (supported: %s)", provider, strings.Join(Supported(), ", "))
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		if p.needsKey {
			return nil, fmt.Errorf("no API key configured for %s (set %s_API_KEY)", provider, strings.ToUpper(provider))
		}
		apiKey = p.localKey
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = p.baseURL
	}
	return NewOpenAIClient(apiKey, baseURL), nil
}

// Supported returns every provider name NewClient accepts, sorted.
func Supported() []string {
	names := []string{"anthropic"}
	for name := range compatible {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
