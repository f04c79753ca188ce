package gocodeinstruct

import "strings"

// Record is one instruction/input/output training example. Input carries the
// code context the answer refers to, so downstream training sees the code
// alongside the question.
type Record struct {
	Instruction string `json:"instruction"`
	Input       string `json:"input"`
	Output      string `json:"output"`
}

// noAnswer is the literal sentinel some analyzers emit for "no answer";
// records carrying it are dropped alongside empty answers.
const noAnswer = "None"

// appendRecord validates a candidate record and appends it to list. Empty and
// sentinel answers produce no record.
func appendRecord(list []Record, instruction, input, output string) []Record {
	output = strings.TrimSpace(output)
	if output == "" || output == noAnswer {
		return list
	}
	return append(list, Record{Instruction: instruction, Input: input, Output: output})
}
