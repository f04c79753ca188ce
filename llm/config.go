package llm

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v2"
)

// Model pairs prompt completion with tokenization. Every client in this
// package implements it.
type Model interface {
	Complete(prompt string) (string, error)
	Tokenize(text string) ([]int, error)
}

// Config selects and configures a model provider from a YAML file. The
// inference_model nesting mirrors the layout of the analyzer tooling's model
// config file, so one file can drive both.
type Config struct {
	// Provider is one of openai, openai-compat, ollama, openrouter, or
	// anthropic. An empty provider means no model: the generator runs in
	// metadata-only mode.
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	Host     string `yaml:"host"`
	// MaxTokens caps the response length for providers that require it.
	MaxTokens int `yaml:"max_tokens"`

	// TokenizerModel optionally names a HuggingFace tokenizer used for budget
	// checks instead of the GPT-4o encoding.
	TokenizerModel string `yaml:"tokenizer_model"`

	PromptTemplate string `yaml:"prompt_template"`

	InferenceModel InferenceModel `yaml:"inference_model"`

	Parameters Parameters `yaml:"parameters"`
}

// InferenceModel carries the runtime parameters of the serving model.
type InferenceModel struct {
	ModelParams ModelParams `yaml:"model_params"`
}

// ModelParams holds the model's context window size in tokenizer units.
type ModelParams struct {
	ContextLength int `yaml:"context_length"`
}

// LoadConfig reads a model configuration from a YAML file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// BuildModel constructs the configured provider client. An empty provider
// returns a nil model without error; callers treat that as metadata-only
// mode, not a failure.
func (c Config) BuildModel(logger *slog.Logger) (Model, error) {
	tok := Tokenizer(Tiktoken{})
	if c.TokenizerModel != "" {
		tok = HuggingFace{Model: c.TokenizerModel}
	}

	switch c.Provider {
	case "":
		return nil, nil
	case "openai":
		return NewOpenAI(c.APIKey, c.Model, c.Parameters, logger).WithTokenizer(tok), nil
	case "openai-compat":
		return NewOpenAICompat(c.Host, c.APIKey, c.Model, c.Parameters, logger).WithTokenizer(tok), nil
	case "ollama":
		return NewOllama(c.Host, c.Model, c.Parameters, logger).WithTokenizer(tok), nil
	case "openrouter":
		return NewOpenRouter(c.APIKey, c.Model, c.Parameters, logger).WithTokenizer(tok), nil
	case "anthropic":
		return NewAnthropic(c.APIKey, c.Model, c.MaxTokens, c.Parameters).WithTokenizer(tok), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", c.Provider)
	}
}
