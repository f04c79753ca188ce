package llm

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/dlclark/regexp2"
)

type mergePair struct {
	left  string
	right string
}

// BpeTokenizer is a pure-Go byte pair encoding tokenizer built from vocab and
// merges files. It gives exact token counts for models whose tokenizer is
// published on HuggingFace without needing the native tokenizers library.
type BpeTokenizer struct {
	vocab         map[string]int
	merges        map[mergePair]int
	specialTokens map[string]int
	preTokenizeRe *regexp2.Regexp
}

// NewBpeTokenizer creates a tokenizer from a vocab.json and a merges.txt
// file, as published in HuggingFace model repositories.
func NewBpeTokenizer(vocabPath, mergesPath string) (*BpeTokenizer, error) {
	vocabFile, err := os.ReadFile(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocab file: %w", err)
	}
	var vocab map[string]int
	if err := json.Unmarshal(vocabFile, &vocab); err != nil {
		return nil, fmt.Errorf("failed to parse vocab JSON: %w", err)
	}

	mergesFile, err := os.ReadFile(mergesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read merges file: %w", err)
	}
	merges := make(map[mergePair]int)
	// First line is a version header
	for i, line := range strings.Split(string(mergesFile), "\n")[1:] {
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			continue
		}
		merges[mergePair{left: parts[0], right: parts[1]}] = i
	}

	// Special tokens of the Qwen family; models with different special
	// tokens still tokenize regular text correctly.
	specialTokens := map[string]int{
		"<|endoftext|>": 151643,
		"<|im_start|>":  151644,
		"<|im_end|>":    151645,
	}

	// Pre-tokenization splits on letters, numbers, punctuation, and
	// whitespace, and captures special tokens whole.
	specialTokenPattern := `<\|endoftext\|>|<\|im_start\|>|<\|im_end\|>`
	pattern := fmt.Sprintf(`(?i)(%s)|'s|'t|'re|'ve|'m|'ll|'d|[\p{L}]+|[\p{N}]+|[^\s\p{L}\p{N}]+`, specialTokenPattern)
	re, err := regexp2.Compile(pattern, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to compile pre-tokenization regex: %w", err)
	}

	return &BpeTokenizer{
		vocab:         vocab,
		merges:        merges,
		specialTokens: specialTokens,
		preTokenizeRe: re,
	}, nil
}

// Encode converts a string into a slice of token IDs.
func (t *BpeTokenizer) Encode(text string) ([]int, error) {
	var tokenIDs []int

	for _, chunk := range t.preTokenize(text) {
		if id, isSpecial := t.specialTokens[chunk]; isSpecial {
			tokenIDs = append(tokenIDs, id)
			continue
		}

		// Byte-level start: one initial token per byte of the chunk
		var initial []string
		for _, b := range []byte(chunk) {
			initial = append(initial, string(rune(b)))
		}

		for _, token := range t.merge(initial) {
			id, ok := t.vocab[token]
			if !ok {
				return nil, fmt.Errorf("token not found in vocabulary: %s", token)
			}
			tokenIDs = append(tokenIDs, id)
		}
	}

	return tokenIDs, nil
}

// merge repeatedly applies the highest-priority merge rule until no adjacent
// pair is mergeable.
func (t *BpeTokenizer) merge(tokens []string) []string {
	if len(tokens) < 2 {
		return tokens
	}

	maxInt := int(^uint(0) >> 1)

	for {
		bestPair := mergePair{}
		minRank := maxInt
		for i := 0; i < len(tokens)-1; i++ {
			pair := mergePair{left: tokens[i], right: tokens[i+1]}
			if rank, ok := t.merges[pair]; ok && rank < minRank {
				minRank = rank
				bestPair = pair
			}
		}
		if minRank == maxInt {
			break
		}

		var merged []string
		i := 0
		for i < len(tokens) {
			if i < len(tokens)-1 && tokens[i] == bestPair.left && tokens[i+1] == bestPair.right {
				merged = append(merged, bestPair.left+bestPair.right)
				i += 2
			} else {
				merged = append(merged, tokens[i])
				i++
			}
		}
		tokens = merged
	}

	return tokens
}

// preTokenize splits the input text into initial chunks.
func (t *BpeTokenizer) preTokenize(text string) []string {
	var parts []string
	match, err := t.preTokenizeRe.FindStringMatch(text)
	for match != nil && err == nil {
		parts = append(parts, match.String())
		match, err = t.preTokenizeRe.FindNextMatch(match)
	}
	return parts
}

// DownloadTokenizer downloads the vocab and merges files of the named
// HuggingFace model and returns a tokenizer built from them.
func DownloadTokenizer(modelName string) (Tokenizer, error) {
	vocabURL := fmt.Sprintf("https://huggingface.co/%s/resolve/main/vocab.json", modelName)
	mergesURL := fmt.Sprintf("https://huggingface.co/%s/resolve/main/merges.txt", modelName)

	vocabPath, err := downloadFile(vocabURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download vocab.json: %w", err)
	}

	mergesPath, err := downloadFile(mergesURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download merges.txt: %w", err)
	}

	return NewBpeTokenizer(vocabPath, mergesPath)
}

func downloadFile(url string) (string, error) {
	resp, err := http.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download file: %s", resp.Status)
	}

	tempFile, err := os.CreateTemp("", "tokenizer-*")
	if err != nil {
		return "", err
	}
	defer tempFile.Close()

	if _, err := io.Copy(tempFile, resp.Body); err != nil {
		return "", err
	}

	return tempFile.Name(), nil
}
