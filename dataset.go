package gocodeinstruct

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Generator walks an ordered question catalog over the metadata of one source
// file and accumulates instruction/input/output records. One Generator owns
// one run; it is not safe for concurrent use, and questions are processed
// strictly in catalog order because model-backed answers read earlier records
// as few-shot material.
type Generator struct {
	filePath  string
	baseName  string
	file      FileMetadata
	questions []Question
	config    ModelConfig

	records []Record
	logger  *slog.Logger
}

// NewGenerator builds a Generator over one file's metadata. It validates the
// question catalog up front; a malformed question is a caller contract
// violation, unlike metadata shape issues which degrade silently during the
// run.
func NewGenerator(filePath, baseName string, file FileMetadata, questions []Question,
	config ModelConfig, logger *slog.Logger) (*Generator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	for i, question := range questions {
		if err := question.validate(); err != nil {
			return nil, fmt.Errorf("invalid question at index %d: %w", i, err)
		}
	}

	return &Generator{
		filePath:  filePath,
		baseName:  baseName,
		file:      file,
		questions: questions,
		config:    config,
		logger: logger.With(
			slog.String("package", "gocodeinstruct"),
			slog.String("file", filePath),
			slog.String("run", uuid.NewString()),
		),
	}, nil
}

// Generate runs every question against every applicable scope instance and
// returns the accumulated records.
func (g *Generator) Generate() ([]Record, error) {
	for _, question := range g.questions {
		if err := g.processQuestion(question); err != nil {
			return nil, err
		}
	}

	g.logger.Debug("Generated records", "count", len(g.records))

	return g.records, nil
}

// Generate is the package-level entry point: it builds a Generator over one
// file's metadata, runs it to completion, and returns the record list.
func Generate(filePath, baseName string, file FileMetadata, questions []Question,
	config ModelConfig, logger *slog.Logger) ([]Record, error) {
	generator, err := NewGenerator(filePath, baseName, file, questions, config, logger)
	if err != nil {
		return nil, err
	}
	return generator.Generate()
}

func (g *Generator) processQuestion(question Question) error {
	switch question.Type {
	case ScopeFile:
		return g.processFileQuestion(question)
	case ScopeFunction:
		for _, name := range sortedKeys(g.file.Functions) {
			if err := g.processNamedEntry(question, ScopeFunction, name, g.file.Functions[name]); err != nil {
				return err
			}
		}
	case ScopeClass:
		for _, name := range sortedKeys(g.file.Classes) {
			if err := g.processNamedEntry(question, ScopeClass, name, g.file.Classes[name].Fields); err != nil {
				return err
			}
		}
	case ScopeMethod:
		return g.processMethodQuestion(question)
	}
	return nil
}

func (g *Generator) processFileQuestion(question Question) error {
	query, err := renderQuery(question.Text, map[string]string{"filename": g.baseName})
	if err != nil {
		return fmt.Errorf("failed to render query for question %s: %w", question.ID, err)
	}

	context := g.file.FileInfo.Get(fieldKeys[ScopeFile].code)
	g.resolve(ScopeFile, question.ID, query, context, g.file.FileInfo)
	return nil
}

// processNamedEntry handles one function or class entry. When the question is
// a purpose question and a model is configured, the query additionally gets
// the cleaned union of the entry's variables and inputs, and classes get
// their method list, so the model sees what the code works with.
func (g *Generator) processNamedEntry(question Question, scope Scope, name string, info FieldMap) error {
	keys := fieldKeys[scope]

	data := map[string]string{
		"filename": g.baseName,
		keys.name:  name,
	}
	if question.ID == keys.purpose && g.config.Model != nil {
		combined := joinNonEmpty(info.ListString(keys.variables), info.ListString(keys.inputs))
		data[keys.variables] = CleanUniqueElements(combined)
		if scope == ScopeClass {
			data[keys.methods] = info.ListString(keys.methods)
		}
	}

	query, err := renderQuery(question.Text, data)
	if err != nil {
		return fmt.Errorf("failed to render query for question %s: %w", question.ID, err)
	}

	g.resolve(scope, question.ID, query, info.Get(keys.code), info)
	return nil
}

func (g *Generator) processMethodQuestion(question Question) error {
	for _, className := range sortedKeys(g.file.Classes) {
		class := g.file.Classes[className]
		for _, methodName := range sortedKeys(class.Methods) {
			info := class.Methods[methodName]

			data := map[string]string{
				"filename":                  g.baseName,
				fieldKeys[ScopeClass].name:  className,
				fieldKeys[ScopeMethod].name: methodName,
			}
			query, err := renderQuery(question.Text, data)
			if err != nil {
				return fmt.Errorf("failed to render query for question %s: %w", question.ID, err)
			}

			g.resolve(ScopeMethod, question.ID, query, info.Get(fieldKeys[ScopeMethod].code), info)
		}
	}
	return nil
}

// resolve determines the answer source for one question against one scope
// instance and appends a record when the answer survives validation. Code
// graph and docstring answers pass through untouched, purpose answers go to
// the model when one is configured, and everything else is the cleaned
// metadata field.
func (g *Generator) resolve(scope Scope, questionID, query, context string, info FieldMap) {
	var answer string
	switch {
	case isPassthrough(questionID):
		answer = info.Get(questionID)
	case g.config.Model != nil && isPurpose(questionID):
		answer = g.respondFromModel(query, context)
	default:
		answer = CleanUniqueElements(info.Get(questionID))
	}

	// File-scope records always carry the full file code as training input,
	// even when the model saw a degraded context.
	if scope == ScopeFile {
		context = g.file.FileInfo.Get(fieldKeys[ScopeFile].code)
	}

	before := len(g.records)
	g.records = appendRecord(g.records, query, context, answer)
	if len(g.records) == before {
		g.logger.Debug("Skipping empty answer", "question", questionID, "scope", scope)
	}
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, ", ")
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
