package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gocodeinstruct "github.com/MegaGrindStone/go-code-instruct"
	"github.com/MegaGrindStone/go-code-instruct/llm"
	"github.com/cespare/xxhash"
)

const (
	metadataPath  = "file_details.json"
	questionsPath = "questions.yaml"
	configPath    = "model_config.yaml"
	outputPath    = "instruct.json"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := llm.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		return
	}

	model, err := cfg.BuildModel(logger)
	if err != nil {
		fmt.Printf("Error building model: %v\n", err)
		return
	}

	questions, err := gocodeinstruct.LoadQuestions(questionsPath)
	if err != nil {
		fmt.Printf("Error loading questions: %v\n", err)
		return
	}

	data, err := os.ReadFile(metadataPath)
	if err != nil {
		fmt.Printf("Error reading metadata: %v\n", err)
		return
	}
	var metadata gocodeinstruct.FileMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		fmt.Printf("Error decoding metadata: %v\n", err)
		return
	}

	modelConfig := gocodeinstruct.ModelConfig{
		PromptTemplate: cfg.PromptTemplate,
		ContextLength:  cfg.InferenceModel.ModelParams.ContextLength,
	}
	if model != nil {
		modelConfig.Model = model
	}

	baseName := strings.TrimSuffix(filepath.Base(metadataPath), filepath.Ext(metadataPath))
	records, err := gocodeinstruct.Generate(metadataPath, baseName, metadata, questions, modelConfig, logger)
	if err != nil {
		fmt.Printf("Error generating records: %v\n", err)
		return
	}

	merged := mergeRecords(loadExisting(outputPath), records)

	out, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		fmt.Printf("Error encoding records: %v\n", err)
		return
	}
	if err := os.WriteFile(outputPath, out, 0o600); err != nil {
		fmt.Printf("Error writing records: %v\n", err)
		return
	}

	logger.Info("Wrote dataset", "records", len(merged), "path", outputPath)
}

func loadExisting(path string) []gocodeinstruct.Record {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var records []gocodeinstruct.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil
	}
	return records
}

// mergeRecords appends the new records to the existing dataset, skipping
// records already present. Identity is a hash over instruction and output.
func mergeRecords(existing, records []gocodeinstruct.Record) []gocodeinstruct.Record {
	seen := make(map[uint64]struct{}, len(existing))
	for _, record := range existing {
		seen[recordHash(record)] = struct{}{}
	}

	merged := existing
	for _, record := range records {
		hash := recordHash(record)
		if _, ok := seen[hash]; ok {
			continue
		}
		seen[hash] = struct{}{}
		merged = append(merged, record)
	}
	return merged
}

func recordHash(record gocodeinstruct.Record) uint64 {
	return xxhash.Sum64String(record.Instruction + "\x00" + record.Output)
}
