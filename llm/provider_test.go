package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	messages []llms.MessageContent
	opts     llms.CallOptions
	resp     *llms.ContentResponse
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.opts)
	}
	return f.resp, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestLangchainCompleter_Complete(t *testing.T) {
	model := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content:    "[COMPLETE] done",
		StopReason: "stop",
		GenerationInfo: map[string]any{
			"PromptTokens":     12,
			"CompletionTokens": 3,
		},
	}}}}
	c := NewLangchainCompleter("ollama", model, ProviderConfig{Model: "llama3", Temperature: 0.7})

	req := NewCompletionRequest([]Message{
		NewSystemMessage("You are the STINGBOT MISSION SUPERVISOR."),
		NewUserMessage("Goal: scan"),
	}, WithMaxTokens(256), WithStopSequences("\nTASK:"))
	resp, err := c.Complete(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "[COMPLETE] done", resp.Content)
	assert.True(t, resp.IsComplete())
	assert.Equal(t, TokenUsage{InputTokens: 12, OutputTokens: 3, TotalTokens: 15}, resp.Usage)

	require.Len(t, model.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t, "llama3", model.opts.Model)
	assert.Equal(t, 0.7, model.opts.Temperature)
	assert.Equal(t, 256, model.opts.MaxTokens)
	assert.Equal(t, []string{"\nTASK:"}, model.opts.StopWords)
	assert.Equal(t, "ollama", c.Name())
}

func TestLangchainCompleter_EmptyChoices(t *testing.T) {
	c := NewLangchainCompleter("openai", &fakeModel{resp: &llms.ContentResponse{}}, ProviderConfig{})
	resp, err := c.Complete(context.Background(), NewCompletionRequest([]Message{NewUserMessage("hi")}))
	require.NoError(t, err)
	assert.Empty(t, resp.Content)
}

func TestNewProvider(t *testing.T) {
	c, err := NewProvider(ProviderConfig{Provider: "ollama", Model: "llama3"})
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, c.Name())

	t.Setenv("OPENAI_API_KEY", "")
	_, err = NewProvider(ProviderConfig{Provider: "openai"})
	assert.Error(t, err)

	c, err = NewProvider(ProviderConfig{Provider: "OpenAI", APIKey: "sk-test", BaseURL: "http://localhost:8080/v1"})
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, c.Name())

	_, err = NewProvider(ProviderConfig{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}
