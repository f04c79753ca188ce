package llm

import (
	"github.com/MegaGrindStone/go-code-instruct/internal"
)

// Tokenizer converts text into model token IDs. The clients in this package
// use it to check rendered prompts against a context budget.
type Tokenizer interface {
	Encode(text string) ([]int, error)
}

// Tiktoken tokenizes with the GPT-4o byte pair encoding. It is the default
// tokenizer for the hosted-API clients; counts are close enough for budget
// checks even when the serving model differs.
type Tiktoken struct{}

// Encode converts text into GPT-4o token IDs.
func (Tiktoken) Encode(text string) ([]int, error) {
	ids, err := internal.EncodeStringByTiktoken(text)
	if err != nil {
		return nil, err
	}
	return toInts(ids), nil
}

// HuggingFace tokenizes with a HuggingFace tokenizer so token counts match a
// locally hosted model. Model names a HuggingFace repository; when empty a
// default is used.
type HuggingFace struct {
	Model string
}

// Encode converts text into token IDs of the configured HuggingFace model.
func (h HuggingFace) Encode(text string) ([]int, error) {
	ids, err := internal.EncodeStringByTokenizers(text, h.Model)
	if err != nil {
		return nil, err
	}
	return toInts(ids), nil
}

func toInts(ids []uint) []int {
	result := make([]int, len(ids))
	for i, id := range ids {
		result[i] = int(id)
	}
	return result
}
