package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// Ollama implements the generator's model capability against a local Ollama
// server, accumulating streamed chat completions into one response.
type Ollama struct {
	host  string
	model string

	params Parameters

	client    *api.Client
	tokenizer Tokenizer
	logger    *slog.Logger
}

// NewOllama creates a new Ollama instance with the specified host URL and
// model name. The host parameter should be a valid URL pointing to an Ollama
// server; an invalid URL panics. Prompts are tokenized with the GPT-4o
// encoding by default; pair the client with a HuggingFace tokenizer via
// WithTokenizer when exact local counts matter.
func NewOllama(host, model string, params Parameters, logger *slog.Logger) Ollama {
	u, err := url.Parse(host)
	if err != nil {
		panic(err)
	}

	return Ollama{
		host:      host,
		model:     model,
		params:    params,
		client:    api.NewClient(u, &http.Client{}),
		tokenizer: Tiktoken{},
		logger:    logger.With(slog.String("module", "ollama")),
	}
}

// WithTokenizer returns a copy of the client that counts tokens with tok.
func (o Ollama) WithTokenizer(tok Tokenizer) Ollama {
	o.tokenizer = tok
	return o
}

// Tokenize converts text into token IDs for budget checks.
func (o Ollama) Tokenize(text string) ([]int, error) {
	return o.tokenizer.Encode(text)
}

// Complete sends the prompt as a single user message and returns the model's
// text with any reasoning tags stripped.
func (o Ollama) Complete(prompt string) (string, error) {
	req := o.chatRequest([]api.Message{
		{
			Role:    "user",
			Content: prompt,
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var result strings.Builder

	if err := o.client.Chat(ctx, &req, func(res api.ChatResponse) error {
		result.WriteString(res.Message.Content)
		return nil
	}); err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}

	return RemoveThinkTags(result.String()), nil
}

func (o Ollama) chatRequest(messages []api.Message) api.ChatRequest {
	req := api.ChatRequest{
		Model:    o.model,
		Messages: messages,
	}

	opts := make(map[string]any)

	if o.params.Temperature != nil {
		opts["temperature"] = *o.params.Temperature
	}
	if o.params.Seed != nil {
		opts["seed"] = *o.params.Seed
	}
	if o.params.Stop != nil {
		opts["stop"] = o.params.Stop
	}
	if o.params.TopK != nil {
		opts["top_k"] = *o.params.TopK
	}
	if o.params.TopP != nil {
		opts["top_p"] = *o.params.TopP
	}
	if o.params.MinP != nil {
		opts["min_p"] = *o.params.MinP
	}
	if o.params.IncludeReasoning != nil {
		req.Think = o.params.IncludeReasoning
	}

	req.Options = opts

	return req
}
