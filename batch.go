package gocodeinstruct

import (
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// FileInput pairs one source file's identity with its analyzer metadata.
type FileInput struct {
	Path     string
	BaseName string
	Metadata FileMetadata
}

// GenerateFiles runs an independent Generator per file, at most concurrency
// at a time. Files share nothing: each run keeps its own record list and its
// own few-shot transcript, so cross-file scheduling order does not matter.
// Within one file, questions stay strictly sequential. Results are indexed
// like files.
func GenerateFiles(files []FileInput, questions []Question, config ModelConfig,
	concurrency int, logger *slog.Logger) ([][]Record, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	logger.Info("Generating records", "files", len(files), "concurrency", concurrency)

	results := make([][]Record, len(files))

	eg := new(errgroup.Group)
	// Semaphore to limit concurrent generator runs
	sem := make(chan struct{}, concurrency)

	for i, file := range files {
		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			records, err := Generate(file.Path, file.BaseName, file.Metadata, questions, config, logger)
			if err != nil {
				return fmt.Errorf("failed to generate records for %s: %w", file.Path, err)
			}
			results[i] = records
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
