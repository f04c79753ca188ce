package gocodeinstruct

import (
	"fmt"
	"math"
)

// ContextTooLargeError reports that no context candidate, even the most
// degraded one, produced a prompt within the configured token budget.
// RequiredTokens is the smallest context length that would have accepted the
// last candidate tried.
type ContextTooLargeError struct {
	RequiredTokens int
}

func (e *ContextTooLargeError) Error() string {
	return fmt.Sprintf("no context fits the token budget, a context length of at least %d tokens is required", e.RequiredTokens)
}

// selectPrompt renders the prompt for every context candidate in order, from
// richest to most degraded, and returns the first one whose token count stays
// within the fill ratio of the configured context length. Degrading to a
// shorter candidate keeps the prompt coherent; truncating mid-string could
// cut code in half.
func selectPrompt(query, transcript string, candidates []func() string, config ModelConfig) (string, error) {
	ratio := config.fillRatio()
	budget := ratio * float64(config.ContextLength)

	lastSize := 0
	for _, candidate := range candidates {
		full := candidate() + "\nCODE Q and A:\n" + transcript
		prompt, err := promptTemplate("model-prompt", config.PromptTemplate, promptData{Context: full, Query: query})
		if err != nil {
			return "", err
		}

		tokens, err := config.Model.Tokenize(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to tokenize prompt: %w", err)
		}

		lastSize = len(tokens)
		if float64(lastSize) <= budget {
			return prompt, nil
		}
	}

	return "", &ContextTooLargeError{RequiredTokens: int(math.Ceil(float64(lastSize) / ratio))}
}
