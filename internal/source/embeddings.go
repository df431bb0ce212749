package source

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/timmy/citelens/internal/domain"
)

// EmbeddingsFileName returns the dated name of an embeddings bundle.
func EmbeddingsFileName(now time.Time) string {
	return fmt.Sprintf("embeddings_%s.json", now.Format("20060102"))
}

// ReadEmbeddings loads an embeddings bundle written by WriteEmbeddings.
// Content items are normalized after loading.
func ReadEmbeddings(path string) (*domain.EmbeddingsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read embeddings file: %w", err)
	}
	var file domain.EmbeddingsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse embeddings file %s: %w", path, err)
	}
	for i := range file.ContentEmbeddings {
		file.ContentEmbeddings[i].Normalize()
	}
	return &file, nil
}

// WriteEmbeddings writes file as indented JSON into dir and returns the path written.
func WriteEmbeddings(dir string, file *domain.EmbeddingsFile, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	file.GeneratedAt = now.Format(time.RFC3339)
	file.ContentCount = len(file.ContentEmbeddings)
	file.KeywordCount = len(file.KeywordEmbeddings)

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode embeddings: %w", err)
	}
	path := filepath.Join(dir, EmbeddingsFileName(now))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write embeddings file: %w", err)
	}
	return path, nil
}
