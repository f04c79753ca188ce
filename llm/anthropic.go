package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Anthropic implements the generator's model capability against the Anthropic
// messages API.
type Anthropic struct {
	apiKey    string
	model     string
	maxTokens int

	params Parameters

	client    *http.Client
	tokenizer Tokenizer
}

type anthropicMessage struct {
	Role    string                    `json:"role"`
	Content []anthropicMessageContent `json:"content"`
}

type anthropicMessageContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicChatRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`

	StopSequences []string `json:"stop_sequences,omitempty"`
	Temperature   *float32 `json:"temperature,omitempty"`
	TopK          *int     `json:"top_k,omitempty"`
	TopP          *float32 `json:"top_p,omitempty"`
}

const (
	anthropicAPIEndpoint = "https://api.anthropic.com/v1"
)

// NewAnthropic creates a new Anthropic instance with the specified API key,
// model name, and maximum response token limit. Prompts are tokenized with
// the GPT-4o encoding; use WithTokenizer to override.
func NewAnthropic(apiKey, model string, maxTokens int, params Parameters) Anthropic {
	return Anthropic{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		params:    params,
		client:    &http.Client{},
		tokenizer: Tiktoken{},
	}
}

// WithTokenizer returns a copy of the client that counts tokens with tok.
func (a Anthropic) WithTokenizer(tok Tokenizer) Anthropic {
	a.tokenizer = tok
	return a
}

// Tokenize converts text into token IDs for budget checks.
func (a Anthropic) Tokenize(text string) ([]int, error) {
	return a.tokenizer.Encode(text)
}

// Complete sends the prompt as a single user message and returns the model's
// text.
func (a Anthropic) Complete(prompt string) (string, error) {
	msgs := []anthropicMessage{
		{
			Role:    "user",
			Content: []anthropicMessageContent{{Type: "text", Text: prompt}},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	resp, err := a.doRequest(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	var msg anthropicMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return "", fmt.Errorf("error decoding response: %w", err)
	}

	if len(msg.Content) == 0 {
		return "", errors.New("empty response content")
	}

	return msg.Content[0].Text, nil
}

func (a Anthropic) doRequest(ctx context.Context, messages []anthropicMessage) (*http.Response, error) {
	reqBody := anthropicChatRequest{
		Model:     a.model,
		Messages:  messages,
		MaxTokens: a.maxTokens,

		StopSequences: a.params.Stop,
		Temperature:   a.params.Temperature,
		TopK:          a.params.TopK,
		TopP:          a.params.TopP,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		anthropicAPIEndpoint+"/messages", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.client.Do(req)
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
