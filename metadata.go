package gocodeinstruct

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FieldMap maps metadata field names to their values for one scope instance
// (a file, function, class, or method). Missing fields read as the empty
// string, never as an error.
type FieldMap map[string]string

// FileMetadata is the structured analyzer output for one source file. The
// file-level fields live in FileInfo (including file_code,
// file_code_simplified, and file_summary), while Functions and Classes hold
// one field mapping per named entity.
type FileMetadata struct {
	FileInfo  FieldMap                 `json:"file_info"`
	Functions map[string]FieldMap      `json:"functions"`
	Classes   map[string]ClassMetadata `json:"classes"`
}

// ClassMetadata holds the fields of one class plus the field mappings of its
// methods. Analyzer output nests methods inside the class mapping under keys
// prefixed with MethodKeyPrefix; decoding strips the prefix.
type ClassMetadata struct {
	Fields  FieldMap
	Methods map[string]FieldMap
}

// MethodKeyPrefix marks nested method entries inside a class mapping.
const MethodKeyPrefix = "class_method_"

// Get returns the named field, or the empty string when the field is absent.
func (f FieldMap) Get(key string) string {
	return f[key]
}

// ListString returns the comma-joined, trimmed elements of the named field.
func (f FieldMap) ListString(key string) string {
	value := f[key]
	if value == "" {
		return ""
	}
	parts := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts = append(parts, item)
	}
	return strings.Join(parts, ", ")
}

// UnmarshalJSON accepts analyzer output whose field values may be strings,
// numbers, booleans, or nested structures. Scalars are stored as their string
// form; nested arrays and objects are stored as their raw JSON text so that
// pass-through answers like code graphs survive intact.
func (f *FieldMap) UnmarshalJSON(data []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode field mapping: %w", err)
	}

	fields := make(FieldMap, len(raw))
	for key, value := range raw {
		fields[key] = rawFieldString(value)
	}
	*f = fields
	return nil
}

// UnmarshalJSON routes nested class_method_<name> entries into Methods and
// every other key into Fields.
func (c *ClassMetadata) UnmarshalJSON(data []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode class mapping: %w", err)
	}

	fields := make(FieldMap)
	methods := make(map[string]FieldMap)
	for key, value := range raw {
		if strings.HasPrefix(key, MethodKeyPrefix) {
			var method FieldMap
			if err := json.Unmarshal(value, &method); err != nil {
				return fmt.Errorf("failed to decode method %q: %w", key, err)
			}
			methods[strings.TrimPrefix(key, MethodKeyPrefix)] = method
			continue
		}
		fields[key] = rawFieldString(value)
	}

	c.Fields = fields
	c.Methods = methods
	return nil
}

func rawFieldString(raw json.RawMessage) string {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	trimmed := string(bytes.TrimSpace(raw))
	if trimmed == "null" {
		return ""
	}
	return trimmed
}
