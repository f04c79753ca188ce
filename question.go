package gocodeinstruct

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// Scope classifies the target of a question.
type Scope string

// The four question scopes. A file question runs once per file, while
// function, class, and method questions run once per named metadata entry.
const (
	ScopeFile     Scope = "file"
	ScopeFunction Scope = "function"
	ScopeClass    Scope = "class"
	ScopeMethod   Scope = "method"
)

// Question is one entry of the ordered question catalog. Text is a
// text/template body; the placeholders available depend on the scope:
// {{.filename}} everywhere, {{.function_name}} and {{.function_variables}}
// for functions, {{.class_name}}, {{.class_variables}}, and
// {{.class_methods}} for classes, and {{.class_name}} with {{.method_name}}
// for methods. Catalog order is significant: model-backed answers read
// earlier answers as few-shot material.
type Question struct {
	Type Scope  `yaml:"type" json:"type"`
	ID   string `yaml:"id" json:"id"`
	Text string `yaml:"text" json:"text"`
}

// scopeKeys maps a scope to the metadata field names and template
// placeholders it reads. Keeping the table explicit avoids building field
// names from strings inside the engine loop.
type scopeKeys struct {
	code      string
	name      string
	variables string
	inputs    string
	methods   string
	purpose   string
}

var fieldKeys = map[Scope]scopeKeys{
	ScopeFile: {
		code:    "file_code",
		purpose: "file_purpose",
	},
	ScopeFunction: {
		code:      "function_code",
		name:      "function_name",
		variables: "function_variables",
		inputs:    "function_inputs",
		purpose:   "function_purpose",
	},
	ScopeClass: {
		code:      "class_code",
		name:      "class_name",
		variables: "class_variables",
		inputs:    "class_inputs",
		methods:   "class_methods",
		purpose:   "class_purpose",
	},
	ScopeMethod: {
		code:    "method_code",
		name:    "method_name",
		purpose: "method_purpose",
	},
}

func (s Scope) valid() bool {
	_, ok := fieldKeys[s]
	return ok
}

// isPassthrough reports whether the question's answer is copied verbatim from
// the metadata field, bypassing both the model and element cleaning.
func isPassthrough(questionID string) bool {
	return strings.HasSuffix(questionID, "code_graph") || strings.HasSuffix(questionID, "docstring")
}

// isPurpose reports whether the question asks for a purpose answer, the only
// kind routed to the model.
func isPurpose(questionID string) bool {
	return strings.HasSuffix(questionID, "purpose")
}

func (q Question) validate() error {
	if q.ID == "" {
		return fmt.Errorf("question has no id")
	}
	if q.Text == "" {
		return fmt.Errorf("question %s has no text", q.ID)
	}
	if !q.Type.valid() {
		return fmt.Errorf("question %s has unknown scope %q", q.ID, q.Type)
	}
	return nil
}

// LoadQuestions reads an ordered question catalog from a YAML file. Every
// entry must carry a scope, an id, and a template body; a malformed entry is
// a caller contract violation and fails the load.
func LoadQuestions(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read questions file: %w", err)
	}

	var questions []Question
	if err := yaml.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("failed to parse questions file: %w", err)
	}

	for i, question := range questions {
		if err := question.validate(); err != nil {
			return nil, fmt.Errorf("invalid question at index %d: %w", i, err)
		}
	}

	return questions, nil
}
