package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// OpenRouter implements the generator's model capability against OpenRouter's
// chat completion API.
type OpenRouter struct {
	apiKey string
	model  string

	params Parameters

	client    *http.Client
	tokenizer Tokenizer
	logger    *slog.Logger
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`
}

type openRouterChatRequest struct {
	Model    string              `json:"model"`
	Messages []openRouterMessage `json:"messages"`

	Temperature       *float32       `json:"temperature,omitempty"`
	TopP              *float32       `json:"top_p,omitempty"`
	TopK              *int           `json:"top_k,omitempty"`
	FrequencyPenalty  *float32       `json:"frequency_penalty,omitempty"`
	PresencePenalty   *float32       `json:"presence_penalty,omitempty"`
	RepetitionPenalty *float32       `json:"repetition_penalty,omitempty"`
	MinP              *float32       `json:"min_p,omitempty"`
	TopA              *float32       `json:"top_a,omitempty"`
	Seed              *int           `json:"seed,omitempty"`
	MaxTokens         *int           `json:"max_tokens,omitempty"`
	LogitBias         map[string]int `json:"logit_bias,omitempty"`
	Logprobs          *bool          `json:"logprobs,omitempty"`
	TopLogprobs       *int           `json:"top_logprobs,omitempty"`
	Stop              []string       `json:"stop,omitempty"`
	IncludeReasoning  *bool          `json:"include_reasoning,omitempty"`
}

type openRouterResponse struct {
	Choices []openRouterChoice `json:"choices"`
}

type openRouterChoice struct {
	Message openRouterMessage `json:"message"`
}

const (
	openRouterAPIEndpoint = "https://openrouter.ai/api/v1"
)

// NewOpenRouter creates a new OpenRouter instance. Prompts are tokenized with
// the GPT-4o encoding; use WithTokenizer to override.
func NewOpenRouter(apiKey, model string, params Parameters, logger *slog.Logger) OpenRouter {
	return OpenRouter{
		apiKey:    apiKey,
		model:     model,
		params:    params,
		client:    &http.Client{},
		tokenizer: Tiktoken{},
		logger:    logger.With(slog.String("module", "openrouter")),
	}
}

// WithTokenizer returns a copy of the client that counts tokens with tok.
func (o OpenRouter) WithTokenizer(tok Tokenizer) OpenRouter {
	o.tokenizer = tok
	return o
}

// Tokenize converts text into token IDs for budget checks.
func (o OpenRouter) Tokenize(text string) ([]int, error) {
	return o.tokenizer.Encode(text)
}

// Complete sends the prompt as a single user message and returns the model's
// text with any reasoning tags stripped.
func (o OpenRouter) Complete(prompt string) (string, error) {
	msgs := []openRouterMessage{
		{
			Role:    "user",
			Content: prompt,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	resp, err := o.doRequest(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	var chatResp openRouterResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("error decoding response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", errors.New("no choices found")
	}

	return RemoveThinkTags(chatResp.Choices[0].Message.Content), nil
}

func (o OpenRouter) doRequest(ctx context.Context, messages []openRouterMessage) (*http.Response, error) {
	reqBody := openRouterChatRequest{
		Model:    o.model,
		Messages: messages,

		Temperature:       o.params.Temperature,
		TopP:              o.params.TopP,
		TopK:              o.params.TopK,
		FrequencyPenalty:  o.params.FrequencyPenalty,
		PresencePenalty:   o.params.PresencePenalty,
		RepetitionPenalty: o.params.RepetitionPenalty,
		MinP:              o.params.MinP,
		TopA:              o.params.TopA,
		Seed:              o.params.Seed,
		MaxTokens:         o.params.MaxTokens,
		LogitBias:         o.params.LogitBias,
		Logprobs:          o.params.Logprobs,
		TopLogprobs:       o.params.TopLogprobs,
		Stop:              o.params.Stop,
		IncludeReasoning:  o.params.IncludeReasoning,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		openRouterAPIEndpoint+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	return resp, nil
}
