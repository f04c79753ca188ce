package gocodeinstruct_test

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	gocodeinstruct "github.com/MegaGrindStone/go-code-instruct"
)

// mockModel counts one token per "x" rune, so tests control prompt sizes by
// how many x runes the metadata carries.
type mockModel struct {
	response    string
	responses   []string
	completeErr error

	prompts []string
}

func (m *mockModel) Tokenize(text string) ([]int, error) {
	return make([]int, strings.Count(text, "x")), nil
}

func (m *mockModel) Complete(prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.completeErr != nil {
		return "", m.completeErr
	}
	if len(m.responses) > 0 {
		response := m.responses[0]
		m.responses = m.responses[1:]
		return response, nil
	}
	return m.response, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testModelConfig(model gocodeinstruct.Model) gocodeinstruct.ModelConfig {
	return gocodeinstruct.ModelConfig{
		Model:          model,
		PromptTemplate: "{{.Context}}\n{{.Query}}",
		ContextLength:  1000,
	}
}

func TestGenerateDocstringPassthrough(t *testing.T) {
	metadata := gocodeinstruct.FileMetadata{
		Functions: map[string]gocodeinstruct.FieldMap{
			"parse": {
				"function_code":      "def parse(raw): ...",
				"function_docstring": "Computes X (fast).",
			},
		},
	}
	questions := []gocodeinstruct.Question{
		{Type: gocodeinstruct.ScopeFunction, ID: "function_docstring", Text: "Docstring of {{.function_name}} in {{.filename}}?"},
	}

	records, err := gocodeinstruct.Generate("pkg/parse.py", "parse", metadata, questions,
		gocodeinstruct.ModelConfig{}, discardLogger())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	// Pass-through answers must not go through element cleaning, which would
	// have stripped the parentheses.
	if records[0].Output != "Computes X (fast)." {
		t.Errorf("Expected unprocessed docstring, got %q", records[0].Output)
	}
	if records[0].Instruction != "Docstring of parse in parse?" {
		t.Errorf("Unexpected instruction %q", records[0].Instruction)
	}
	if records[0].Input != "def parse(raw): ..." {
		t.Errorf("Expected function code as input, got %q", records[0].Input)
	}
}

func TestGenerateCleanedField(t *testing.T) {
	metadata := gocodeinstruct.FileMetadata{
		Classes: map[string]gocodeinstruct.ClassMetadata{
			"Runner": {
				Fields: gocodeinstruct.FieldMap{
					"class_code":      "class Runner: ...",
					"class_variables": "a, a, b ,  b",
				},
			},
		},
	}
	questions := []gocodeinstruct.Question{
		{Type: gocodeinstruct.ScopeClass, ID: "class_variables", Text: "Variables of {{.class_name}}?"},
	}

	records, err := gocodeinstruct.Generate("runner.py", "runner", metadata, questions,
		gocodeinstruct.ModelConfig{}, discardLogger())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	sameElements(t, records[0].Output, "a", "b")
}

func TestGenerateModelDisabled(t *testing.T) {
	metadata := gocodeinstruct.FileMetadata{
		Functions: map[string]gocodeinstruct.FieldMap{
			"parse": {"function_code": "def parse(raw): ..."},
		},
	}
	questions := []gocodeinstruct.Question{
		{Type: gocodeinstruct.ScopeFunction, ID: "function_purpose", Text: "Purpose of {{.function_name}}?"},
	}

	// No model configured and no function_purpose field: the question
	// resolves to an empty answer and no record is emitted.
	records, err := gocodeinstruct.Generate("parse.py", "parse", metadata, questions,
		gocodeinstruct.ModelConfig{}, discardLogger())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected no records, got %d", len(records))
	}
}

func TestGenerateModelNotCalledForNonPurpose(t *testing.T) {
	model := &mockModel{response: "should never be used"}
	metadata := gocodeinstruct.FileMetadata{
		Functions: map[string]gocodeinstruct.FieldMap{
			"parse": {
				"function_code":   "def parse(raw): ...",
				"function_inputs": "raw",
			},
		},
	}
	questions := []gocodeinstruct.Question{
		{Type: gocodeinstruct.ScopeFunction, ID: "function_inputs", Text: "Inputs of {{.function_name}}?"},
	}

	records, err := gocodeinstruct.Generate("parse.py", "parse", metadata, questions,
		testModelConfig(model), discardLogger())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(model.prompts) != 0 {
		t.Errorf("Expected no model calls, got %d", len(model.prompts))
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].Output != "raw" {
		t.Errorf("Expected metadata answer, got %q", records[0].Output)
	}
}

func TestGenerateContextDegradation(t *testing.T) {
	model := &mockModel{response: "Crunches numbers.\n\n\n\nIn bulk."}
	metadata := gocodeinstruct.FileMetadata{
		FileInfo: gocodeinstruct.FieldMap{
			"file_code_simplified": strings.Repeat("x", 500),
			"file_summary":         "number crunching helpers",
		},
		Functions: map[string]gocodeinstruct.FieldMap{
			"crunch": {"function_code": strings.Repeat("x", 1000)},
		},
	}
	questions := []gocodeinstruct.Question{
		{Type: gocodeinstruct.ScopeFunction, ID: "function_purpose", Text: "Purpose of {{.function_name}}?"},
	}

	// Budget is 0.70 * 1000 = 700 tokens: the 1000-token function code is
	// rejected and the 500-token simplified file code is chosen.
	records, err := gocodeinstruct.Generate("crunch.py", "crunch", metadata, questions,
		testModelConfig(model), discardLogger())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(model.prompts) != 1 {
		t.Fatalf("Expected 1 model call, got %d", len(model.prompts))
	}
	if !strings.Contains(model.prompts[0], strings.Repeat("x", 500)) {
		t.Error("Expected prompt to carry the simplified file code")
	}
	if strings.Contains(model.prompts[0], strings.Repeat("x", 501)) {
		t.Error("Expected prompt not to carry the full function code")
	}

	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	// The record input keeps the supplied function code, not the degraded
	// prompt context, and blank line runs in the response are collapsed.
	if records[0].Input != strings.Repeat("x", 1000) {
		t.Errorf("Expected function code as input, got %d bytes", len(records[0].Input))
	}
	if records[0].Output != "Crunches numbers.\n\nIn bulk." {
		t.Errorf("Expected collapsed response, got %q", records[0].Output)
	}
}

func TestGenerateFileScopeInputOverride(t *testing.T) {
	fileCode := strings.Repeat("x", 800)
	model := &mockModel{response: "Loads configuration."}
	metadata := gocodeinstruct.FileMetadata{
		FileInfo: gocodeinstruct.FieldMap{
			"file_code":            fileCode,
			"file_code_simplified": strings.Repeat("x", 10),
		},
	}
	questions := []gocodeinstruct.Question{
		{Type: gocodeinstruct.ScopeFile, ID: "file_purpose", Text: "Purpose of {{.filename}}?"},
	}

	config := testModelConfig(model)
	config.ContextLength = 100

	records, err := gocodeinstruct.Generate("conf.py", "conf", metadata, questions, config, discardLogger())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(model.prompts) != 1 {
		t.Fatalf("Expected 1 model call, got %d", len(model.prompts))
	}
	if strings.Contains(model.prompts[0], strings.Repeat("x", 11)) {
		t.Error("Expected the model to see a degraded context")
	}

	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	// Even though the model saw the simplified code, the training input is
	// the full file code.
	if records[0].Input != fileCode {
		t.Errorf("Expected full file code as input, got %d bytes", len(records[0].Input))
	}
}

func TestGenerateContextExhaustion(t *testing.T) {
	model := &mockModel{response: "never reached"}
	metadata := gocodeinstruct.FileMetadata{
		Functions: map[string]gocodeinstruct.FieldMap{
			"big": {"function_code": strings.Repeat("x", 400)},
		},
	}
	// The query itself is 200 tokens, so every candidate, including the
	// empty one, exceeds the 70-token budget.
	questions := []gocodeinstruct.Question{
		{Type: gocodeinstruct.ScopeFunction, ID: "function_purpose", Text: strings.Repeat("x", 200)},
	}

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	config := testModelConfig(model)
	config.ContextLength = 100

	records, err := gocodeinstruct.Generate("big.py", "big", metadata, questions, config, logger)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(records) != 0 {
		t.Errorf("Expected no records, got %d", len(records))
	}
	if len(model.prompts) != 0 {
		t.Errorf("Expected no model calls, got %d", len(model.prompts))
	}
	// ceil(200 / 0.70) = 286
	if !strings.Contains(logBuf.String(), "requiredTokens=286") {
		t.Errorf("Expected exhaustion log with required tokens, got %q", logBuf.String())
	}
}

func TestGenerateModelFailure(t *testing.T) {
	model := &mockModel{completeErr: io.ErrUnexpectedEOF}
	metadata := gocodeinstruct.FileMetadata{
		Functions: map[string]gocodeinstruct.FieldMap{
			"parse": {"function_code": "def parse(raw): ..."},
		},
	}
	questions := []gocodeinstruct.Question{
		{Type: gocodeinstruct.ScopeFunction, ID: "function_purpose", Text: "Purpose of {{.function_name}}?"},
		{Type: gocodeinstruct.ScopeFunction, ID: "function_inputs", Text: "Inputs of {{.function_name}}?"},
	}
	metadata.Functions["parse"]["function_inputs"] = "raw"

	// A failing model call yields no record for that question but must not
	// stop the remaining questions.
	records, err := gocodeinstruct.Generate("parse.py", "parse", metadata, questions,
		testModelConfig(model), discardLogger())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].Output != "raw" {
		t.Errorf("Expected the metadata answer to survive, got %q", records[0].Output)
	}
}

func TestGenerateFewShotTranscript(t *testing.T) {
	model := &mockModel{responses: []string{"First answer.", "Second answer."}}
	metadata := gocodeinstruct.FileMetadata{
		Functions: map[string]gocodeinstruct.FieldMap{
			"alpha": {
				"function_code":      "def alpha(): ...",
				"function_docstring": "Returns data.",
			},
		},
	}
	questions := []gocodeinstruct.Question{
		{Type: gocodeinstruct.ScopeFunction, ID: "function_docstring", Text: "Docstring of {{.function_name}}"},
		{Type: gocodeinstruct.ScopeFunction, ID: "function_purpose", Text: "What is the purpose of function {{.function_name}}?"},
		{Type: gocodeinstruct.ScopeFunction, ID: "function_role_purpose", Text: "Describe the role of {{.function_name}}."},
	}

	records, err := gocodeinstruct.Generate("alpha.py", "alpha", metadata, questions,
		testModelConfig(model), discardLogger())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	if len(model.prompts) != 2 {
		t.Fatalf("Expected 2 model calls, got %d", len(model.prompts))
	}

	// The second model call sees the first purpose answer as few-shot
	// material, but never the docstring answer.
	secondPrompt := model.prompts[1]
	if !strings.Contains(secondPrompt, "Q: What is the purpose of function alpha? \nA: First answer.") {
		t.Errorf("Expected prior purpose answer in prompt, got %q", secondPrompt)
	}
	if strings.Contains(secondPrompt, "Docstring of alpha") {
		t.Errorf("Expected docstring answer excluded from prompt, got %q", secondPrompt)
	}
}

func TestGenerateQueryPlaceholders(t *testing.T) {
	model := &mockModel{response: "Coordinates workers."}
	metadata := gocodeinstruct.FileMetadata{
		Classes: map[string]gocodeinstruct.ClassMetadata{
			"Pool": {
				Fields: gocodeinstruct.FieldMap{
					"class_code":      "class Pool: ...",
					"class_variables": "size, size",
					"class_inputs":    "limit",
					"class_methods":   "submit, drain",
				},
			},
		},
	}
	questions := []gocodeinstruct.Question{
		{
			Type: gocodeinstruct.ScopeClass,
			ID:   "class_purpose",
			Text: "Purpose of {{.class_name}} using {{.class_variables}} and methods {{.class_methods}}?",
		},
	}

	records, err := gocodeinstruct.Generate("pool.py", "pool", metadata, questions,
		testModelConfig(model), discardLogger())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}

	// Variables and inputs are combined and deduplicated; methods come from
	// the class field.
	instruction := records[0].Instruction
	if !strings.Contains(instruction, "Purpose of Pool") {
		t.Errorf("Expected class name in instruction, got %q", instruction)
	}
	for _, element := range []string{"size", "limit"} {
		if !strings.Contains(instruction, element) {
			t.Errorf("Expected %q in instruction, got %q", element, instruction)
		}
	}
	if strings.Count(instruction, "size") != 1 {
		t.Errorf("Expected deduplicated variables in instruction, got %q", instruction)
	}
	if !strings.Contains(instruction, "submit, drain") {
		t.Errorf("Expected method list in instruction, got %q", instruction)
	}
}

func TestGenerateMethodIteration(t *testing.T) {
	metadata := gocodeinstruct.FileMetadata{
		Classes: map[string]gocodeinstruct.ClassMetadata{
			"Runner": {
				Fields: gocodeinstruct.FieldMap{"class_code": "class Runner: ..."},
				Methods: map[string]gocodeinstruct.FieldMap{
					"start": {
						"method_code":   "def start(self): ...",
						"method_inputs": "self, delay",
					},
					"stop": {
						"method_code": "def stop(self): ...",
					},
				},
			},
		},
	}
	questions := []gocodeinstruct.Question{
		{Type: gocodeinstruct.ScopeMethod, ID: "method_inputs", Text: "Inputs of {{.method_name}} in {{.class_name}}?"},
	}

	records, err := gocodeinstruct.Generate("runner.py", "runner", metadata, questions,
		gocodeinstruct.ModelConfig{}, discardLogger())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// Two methods, one without the field: exactly one record.
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].Instruction != "Inputs of start in Runner?" {
		t.Errorf("Unexpected instruction %q", records[0].Instruction)
	}
	if records[0].Input != "def start(self): ..." {
		t.Errorf("Expected method code as input, got %q", records[0].Input)
	}
}

func TestGenerateSentinelAnswerSkipped(t *testing.T) {
	metadata := gocodeinstruct.FileMetadata{
		Functions: map[string]gocodeinstruct.FieldMap{
			"parse": {
				"function_code":      "def parse(raw): ...",
				"function_docstring": "None",
			},
		},
	}
	questions := []gocodeinstruct.Question{
		{Type: gocodeinstruct.ScopeFunction, ID: "function_docstring", Text: "Docstring of {{.function_name}}?"},
	}

	records, err := gocodeinstruct.Generate("parse.py", "parse", metadata, questions,
		gocodeinstruct.ModelConfig{}, discardLogger())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected sentinel answer skipped, got %d records", len(records))
	}
}

func TestGenerateInvalidQuestion(t *testing.T) {
	metadata := gocodeinstruct.FileMetadata{}

	t.Run("Missing id", func(t *testing.T) {
		questions := []gocodeinstruct.Question{
			{Type: gocodeinstruct.ScopeFile, Text: "What does {{.filename}} do?"},
		}
		if _, err := gocodeinstruct.Generate("f.py", "f", metadata, questions,
			gocodeinstruct.ModelConfig{}, discardLogger()); err == nil {
			t.Error("Expected error for question without id")
		}
	})

	t.Run("Unknown scope", func(t *testing.T) {
		questions := []gocodeinstruct.Question{
			{Type: "module", ID: "module_purpose", Text: "What does the module do?"},
		}
		if _, err := gocodeinstruct.Generate("f.py", "f", metadata, questions,
			gocodeinstruct.ModelConfig{}, discardLogger()); err == nil {
			t.Error("Expected error for unknown scope")
		}
	})

	t.Run("Broken template", func(t *testing.T) {
		questions := []gocodeinstruct.Question{
			{Type: gocodeinstruct.ScopeFile, ID: "file_purpose", Text: "What does {{.filename do?"},
		}
		if _, err := gocodeinstruct.Generate("f.py", "f", metadata, questions,
			gocodeinstruct.ModelConfig{}, discardLogger()); err == nil {
			t.Error("Expected error for broken template")
		}
	})
}
