package gocodeinstruct_test

import (
	"os"
	"path/filepath"
	"testing"

	gocodeinstruct "github.com/MegaGrindStone/go-code-instruct"
)

func writeQuestionsFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "questions.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write questions file: %v", err)
	}
	return path
}

func TestLoadQuestions(t *testing.T) {
	t.Run("Valid catalog keeps order", func(t *testing.T) {
		path := writeQuestionsFile(t, `
- type: file
  id: file_dependencies
  text: What are the dependencies of {{.filename}}?
- type: function
  id: function_inputs
  text: What are the inputs of {{.function_name}} in {{.filename}}?
- type: method
  id: method_purpose
  text: What is the purpose of {{.method_name}} in {{.class_name}}?
`)

		questions, err := gocodeinstruct.LoadQuestions(path)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(questions) != 3 {
			t.Fatalf("Expected 3 questions, got %d", len(questions))
		}
		if questions[0].ID != "file_dependencies" {
			t.Errorf("Expected first question file_dependencies, got %s", questions[0].ID)
		}
		if questions[2].Type != gocodeinstruct.ScopeMethod {
			t.Errorf("Expected method scope, got %s", questions[2].Type)
		}
	})

	t.Run("Missing id fails", func(t *testing.T) {
		path := writeQuestionsFile(t, `
- type: file
  text: What does {{.filename}} do?
`)

		if _, err := gocodeinstruct.LoadQuestions(path); err == nil {
			t.Error("Expected error for question without id")
		}
	})

	t.Run("Unknown scope fails", func(t *testing.T) {
		path := writeQuestionsFile(t, `
- type: module
  id: module_purpose
  text: What does the module do?
`)

		if _, err := gocodeinstruct.LoadQuestions(path); err == nil {
			t.Error("Expected error for unknown scope")
		}
	})

	t.Run("Missing file fails", func(t *testing.T) {
		if _, err := gocodeinstruct.LoadQuestions(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("Expected error for missing file")
		}
	})
}
