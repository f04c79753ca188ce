package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

// OpenAI implements the generator's model capability on top of OpenAI's chat
// completion API.
type OpenAI struct {
	model  string
	params Parameters

	client    *goopenai.Client
	tokenizer Tokenizer
	logger    *slog.Logger
}

// NewOpenAI creates a new OpenAI instance. Prompts are tokenized with the
// GPT-4o encoding; use WithTokenizer to override.
func NewOpenAI(apiKey, model string, params Parameters, logger *slog.Logger) OpenAI {
	return OpenAI{
		model:     model,
		params:    params,
		client:    goopenai.NewClient(apiKey),
		tokenizer: Tiktoken{},
		logger:    logger.With(slog.String("module", "openai")),
	}
}

// WithTokenizer returns a copy of the client that counts tokens with tok.
func (o OpenAI) WithTokenizer(tok Tokenizer) OpenAI {
	o.tokenizer = tok
	return o
}

// Tokenize converts text into token IDs for budget checks.
func (o OpenAI) Tokenize(text string) ([]int, error) {
	return o.tokenizer.Encode(text)
}

// Complete sends the prompt as a single user message and returns the model's
// text.
func (o OpenAI) Complete(prompt string) (string, error) {
	req := o.chatRequest([]goopenai.ChatCompletionMessage{
		{
			Role:    goopenai.ChatMessageRoleUser,
			Content: prompt,
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no choices found")
	}

	return resp.Choices[0].Message.Content, nil
}

func (o OpenAI) chatRequest(messages []goopenai.ChatCompletionMessage) goopenai.ChatCompletionRequest {
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
