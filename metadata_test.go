package gocodeinstruct_test

import (
	"encoding/json"
	"testing"

	gocodeinstruct "github.com/MegaGrindStone/go-code-instruct"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileMetadataUnmarshal(t *testing.T) {
	raw := `{
		"file_info": {
			"file_code": "def main():\n    pass\n",
			"file_code_simplified": "def main(): ...",
			"file_summary": "entry point, argument parsing",
			"file_dependencies": ["os", "sys"],
			"file_size": 1042,
			"file_docstring": null
		},
		"functions": {
			"main": {
				"function_code": "def main():\n    pass\n",
				"function_inputs": "argv",
				"function_variables": "parser, args"
			}
		},
		"classes": {
			"Runner": {
				"class_code": "class Runner: ...",
				"class_variables": "state, queue",
				"class_methods": "start, stop",
				"class_method_start": {
					"method_code": "def start(self): ...",
					"method_inputs": "self"
				},
				"class_method_stop": {
					"method_code": "def stop(self): ...",
					"method_inputs": "self, force"
				}
			}
		}
	}`

	var metadata gocodeinstruct.FileMetadata
	require.NoError(t, json.Unmarshal([]byte(raw), &metadata))

	assert.Equal(t, "def main():\n    pass\n", metadata.FileInfo.Get("file_code"))

	// Non-string scalars and arrays are kept as their text form
	assert.Equal(t, "1042", metadata.FileInfo.Get("file_size"))
	assert.Equal(t, `["os", "sys"]`, metadata.FileInfo.Get("file_dependencies"))

	// Null fields and absent fields both read as empty
	assert.Equal(t, "", metadata.FileInfo.Get("file_docstring"))
	assert.Equal(t, "", metadata.FileInfo.Get("no_such_field"))

	require.Contains(t, metadata.Functions, "main")
	assert.Equal(t, "argv", metadata.Functions["main"].Get("function_inputs"))

	runner, ok := metadata.Classes["Runner"]
	require.True(t, ok)
	assert.Equal(t, "state, queue", runner.Fields.Get("class_variables"))

	// Method entries are routed out of the class fields with the prefix stripped
	require.Len(t, runner.Methods, 2)
	assert.Equal(t, "def start(self): ...", runner.Methods["start"].Get("method_code"))
	assert.Equal(t, "self, force", runner.Methods["stop"].Get("method_inputs"))
	assert.Equal(t, "", runner.Fields.Get("class_method_start"))
}

func TestFieldMapListString(t *testing.T) {
	info := gocodeinstruct.FieldMap{
		"class_methods": " start , stop,, run ",
	}

	assert.Equal(t, "start, stop, run", info.ListString("class_methods"))
	assert.Equal(t, "", info.ListString("missing"))
}
