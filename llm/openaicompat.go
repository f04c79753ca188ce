package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

// OpenAICompat implements the generator's model capability against any
// OpenAI-compatible API server, such as vLLM or llama.cpp.
type OpenAICompat struct {
	baseURL string
	model   string
	params  Parameters

	client    *goopenai.Client
	tokenizer Tokenizer
	logger    *slog.Logger
}

// NewOpenAICompat creates a new OpenAICompat instance with the specified host
// URL and model name. The host parameter should be a valid URL pointing to an
// OpenAI-compatible API server. Prompts are tokenized with the GPT-4o
// encoding; pair the client with a HuggingFace tokenizer via WithTokenizer
// when exact local counts matter.
func NewOpenAICompat(host, apiKey, model string, params Parameters, logger *slog.Logger) OpenAICompat {
	baseURL := strings.TrimSuffix(host, "/")

	config := goopenai.DefaultConfig(apiKey)
	config.BaseURL = baseURL
	client := goopenai.NewClientWithConfig(config)

	return OpenAICompat{
		baseURL:   baseURL,
		model:     model,
		params:    params,
		client:    client,
		tokenizer: Tiktoken{},
		logger:    logger.With(slog.String("module", "openaicompat")),
	}
}

// WithTokenizer returns a copy of the client that counts tokens with tok.
func (o OpenAICompat) WithTokenizer(tok Tokenizer) OpenAICompat {
	o.tokenizer = tok
	return o
}

// Tokenize converts text into token IDs for budget checks.
func (o OpenAICompat) Tokenize(text string) ([]int, error) {
	return o.tokenizer.Encode(text)
}

// Complete sends the prompt as a single user message and returns the model's
// text with any reasoning tags stripped.
func (o OpenAICompat) Complete(prompt string) (string, error) {
	req := o.chatRequest([]goopenai.ChatCompletionMessage{
		{
			Role:    goopenai.ChatMessageRoleUser,
			Content: prompt,
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Second)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no choices found")
	}

	return RemoveThinkTags(resp.Choices[0].Message.Content), nil
}

func (o OpenAICompat) chatRequest(messages []goopenai.ChatCompletionMessage) goopenai.ChatCompletionRequest {
	req := goopenai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
	}

	if o.params.Temperature != nil {
		req.Temperature = *o.params.Temperature
	}
	if o.params.TopP != nil {
		req.TopP = *o.params.TopP
	}
	if o.params.Stop != nil {
		req.Stop = o.params.Stop
	}
	if o.params.PresencePenalty != nil {
		req.PresencePenalty = *o.params.PresencePenalty
	}
	if o.params.Seed != nil {
		req.Seed = o.params.Seed
	}
	if o.params.FrequencyPenalty != nil {
		req.FrequencyPenalty = *o.params.FrequencyPenalty
	}
	if o.params.LogitBias != nil {
		req.LogitBias = o.params.LogitBias
	}
	if o.params.Logprobs != nil {
		req.LogProbs = *o.params.Logprobs
	}
	if o.params.TopLogprobs != nil {
		req.TopLogProbs = *o.params.TopLogprobs
	}
	if o.params.MaxTokens != nil {
		req.MaxTokens = *o.params.MaxTokens
	}

	return req
}
