package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider names accepted by NewProvider.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// ProviderConfig selects and configures a completion backend.
type ProviderConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	APIKey      string  `yaml:"api_key,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
}

// LangchainCompleter adapts a langchaingo model to Completer.
type LangchainCompleter struct {
	name  string
	model llms.Model
	cfg   ProviderConfig
}

// NewLangchainCompleter wraps an existing langchaingo model.
func NewLangchainCompleter(name string, model llms.Model, cfg ProviderConfig) *LangchainCompleter {
	return &LangchainCompleter{name: name, model: model, cfg: cfg}
}

// NewProvider builds a Completer for cfg.Provider.
func NewProvider(cfg ProviderConfig) (*LangchainCompleter, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOllama, "":
		serverURL := cfg.BaseURL
		if serverURL == "" {
			serverURL = "http://localhost:11434"
		}
		opts := []ollama.Option{ollama.WithServerURL(serverURL)}
		if cfg.Model != "" {
			opts = append(opts, ollama.WithModel(cfg.Model))
		}
		model, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("ollama: %w", err)
		}
		return NewLangchainCompleter(ProviderOllama, model, cfg), nil

	case ProviderOpenAI:
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("openai: api key is required")
		}
		opts := []openai.Option{openai.WithToken(apiKey)}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("openai: %w", err)
		}
		return NewLangchainCompleter(ProviderOpenAI, model, cfg), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

// Name returns the provider name.
func (c *LangchainCompleter) Name() string {
	return c.name
}

// Complete sends the request to the underlying model.
func (c *LangchainCompleter) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	resp, err := c.model.GenerateContent(ctx, toLangchainMessages(req.Messages), c.callOptions(req)...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	return fromLangchainResponse(resp), nil
}

func (c *LangchainCompleter) callOptions(req *CompletionRequest) []llms.CallOption {
	var opts []llms.CallOption

	switch {
	case req.Temperature != nil:
		opts = append(opts, llms.WithTemperature(*req.Temperature))
	case c.cfg.Temperature > 0:
		opts = append(opts, llms.WithTemperature(c.cfg.Temperature))
	}

	switch {
	case req.MaxTokens != nil:
		opts = append(opts, llms.WithMaxTokens(*req.MaxTokens))
	case c.cfg.MaxTokens > 0:
		opts = append(opts, llms.WithMaxTokens(c.cfg.MaxTokens))
	}

	if len(req.Stop) > 0 {
		opts = append(opts, llms.WithStopWords(req.Stop))
	}
	if c.cfg.Model != "" {
		opts = append(opts, llms.WithModel(c.cfg.Model))
	}
	return opts
}

func toLangchainMessages(messages []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		role := llms.ChatMessageTypeHuman
		switch msg.Role {
		case RoleSystem:
			role = llms.ChatMessageTypeSystem
		case RoleAssistant:
			role = llms.ChatMessageTypeAI
		}
		out = append(out, llms.TextParts(role, msg.Content))
	}
	return out
}

func fromLangchainResponse(resp *llms.ContentResponse) *CompletionResponse {
	out := &CompletionResponse{FinishReason: "stop"}
	if resp == nil || len(resp.Choices) == 0 {
		return out
	}

	choice := resp.Choices[0]
	out.Content = choice.Content
	if choice.StopReason != "" {
		out.FinishReason = choice.StopReason
	}

	// Providers report usage under different key spellings.
	info := choice.GenerationInfo
	out.Usage.InputTokens = intInfo(info, "PromptTokens", "prompt_tokens", "input_tokens")
	out.Usage.OutputTokens = intInfo(info, "CompletionTokens", "completion_tokens", "output_tokens")
	out.Usage.TotalTokens = intInfo(info, "TotalTokens", "total_tokens")
	if out.Usage.TotalTokens == 0 {
		out.Usage.TotalTokens = out.Usage.InputTokens + out.Usage.OutputTokens
	}
	return out
}

func intInfo(info map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}
