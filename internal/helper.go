package internal

import (
	"fmt"

	"github.com/daulet/tokenizers"
	"github.com/tiktoken-go/tokenizer"
)

const defaultTokenizersModel = "google-bert/bert-base-uncased"

// EncodeStringByTiktoken encodes a string into token IDs using the GPT-4o
// tokenizer. It returns a slice of token IDs and an error if tokenization
// fails.
func EncodeStringByTiktoken(content string) ([]uint, error) {
	enc, err := tokenizer.ForModel(tokenizer.GPT4o)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokenizer: %w", err)
	}

	ids, _, err := enc.Encode(content)
	if err != nil {
		return nil, fmt.Errorf("failed to encode string: %w", err)
	}

	return ids, nil
}

// EncodeStringByTokenizers encodes a string into token IDs using a
// HuggingFace tokenizer. An empty model falls back to a default.
func EncodeStringByTokenizers(content, model string) ([]uint, error) {
	if model == "" {
		model = defaultTokenizersModel
	}

	tk, err := tokenizers.FromPretrained(model)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer for model %s: %w", model, err)
	}
	defer tk.Close()

	// Encode without special tokens to match tiktoken behavior
	ids, _ := tk.Encode(content, false)

	result := make([]uint, len(ids))
	for i, id := range ids {
		result[i] = uint(id)
	}

	return result, nil
}

// CountTokens counts the number of tokens in a string using the GPT-4o
// tokenizer.
func CountTokens(content string) (int, error) {
	tokenIDs, err := EncodeStringByTiktoken(content)
	if err != nil {
		return 0, fmt.Errorf("failed to encode string: %w", err)
	}
	return len(tokenIDs), nil
}
