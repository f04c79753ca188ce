package gocodeinstruct

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"text/template"
)

// Model defines the capabilities required from a language model: tokenizing
// text for budget checks and completing a rendered prompt. The llm package
// provides implementations, but any value with these two methods works.
type Model interface {
	Tokenize(text string) ([]int, error)
	Complete(prompt string) (string, error)
}

// DefaultFillRatio is the fraction of the context window a rendered prompt
// may occupy before a shorter context candidate is tried.
const DefaultFillRatio = 0.70

const defaultLanguage = "python"

// ModelConfig configures model-backed answer generation. A nil Model runs the
// generator in metadata-only mode: purpose questions fall back to their
// metadata fields and the model is never invoked.
type ModelConfig struct {
	Model Model
	// PromptTemplate is a text/template body with {{.Context}} and {{.Query}}
	// placeholders.
	PromptTemplate string
	// ContextLength is the model's context window in tokenizer units.
	ContextLength int
	// FillRatio defaults to DefaultFillRatio when zero.
	FillRatio float64
	// Language captions the code fences around context code. Defaults to
	// "python".
	Language string
}

type promptData struct {
	Context string
	Query   string
}

// Instructions with these prefixes are kept out of the few-shot transcript;
// their answers are structured artifacts, not prose.
var transcriptExcludedPrefixes = []string{"Call code graph", "Docstring"}

var blankLineRuns = regexp.MustCompile(`\n\s*\n`)

func (c ModelConfig) fillRatio() float64 {
	if c.FillRatio <= 0 {
		return DefaultFillRatio
	}
	return c.FillRatio
}

func (c ModelConfig) language() string {
	if c.Language == "" {
		return defaultLanguage
	}
	return c.Language
}

func promptTemplate(name, templ string, data any) (string, error) {
	tmpl, err := template.New(name).Parse(templ)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	buf := strings.Builder{}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return buf.String(), nil
}

func renderQuery(text string, data map[string]string) (string, error) {
	return promptTemplate("query", text, data)
}

func threeBacktick(caption string) string {
	return "```" + caption
}

func fencedCode(caption, code string) string {
	return threeBacktick(caption) + "\n" + code + "\n```"
}

// respondFromModel asks the configured model to answer query. The prompt
// carries the richest context that fits the token budget, starting with the
// supplied code, then the simplified file code, then the file summary, then
// no context at all, plus a transcript of earlier question/answer pairs as
// few-shot material. Any failure is logged and reported as an empty answer; a
// single bad answer must not stop the rest of the run.
func (g *Generator) respondFromModel(query, context string) string {
	logger := g.logger.With(slog.String("function", "respondFromModel"))

	transcript := g.transcript()
	language := g.config.language()

	candidates := []func() string{
		func() string { return fencedCode(language, context) },
		func() string { return fencedCode(language, g.file.FileInfo.Get("file_code_simplified")) },
		func() string { return g.file.FileInfo.ListString("file_summary") },
		func() string { return "" },
	}

	prompt, err := selectPrompt(query, transcript, candidates, g.config)
	if err != nil {
		var tooLarge *ContextTooLargeError
		if errors.As(err, &tooLarge) {
			logger.Error("No context candidate fits the token budget, raise the configured context length",
				"requiredTokens", tooLarge.RequiredTokens)
		} else {
			logger.Error("Failed to build prompt", "error", err)
		}
		return ""
	}

	response, err := g.config.Model.Complete(prompt)
	if err != nil {
		logger.Error("Failed to generate model response", "error", err)
		return ""
	}

	response = blankLineRuns.ReplaceAllString(response, "\n\n")
	logger.Debug("Model response", "response", response)

	return response
}

// transcript formats prior records as a Q/A exchange, newest last, skipping
// instructions whose answers are structured artifacts.
func (g *Generator) transcript() string {
	lines := make([]string, 0, len(g.records))
	for _, record := range g.records {
		if transcriptExcluded(record.Instruction) {
			continue
		}
		lines = append(lines, fmt.Sprintf("Q: %s \nA: %s", record.Instruction, record.Output))
	}
	return strings.Join(lines, "\n")
}

func transcriptExcluded(instruction string) bool {
	for _, prefix := range transcriptExcludedPrefixes {
		if strings.HasPrefix(instruction, prefix) {
			return true
		}
	}
	return false
}
