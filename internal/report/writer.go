package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/timmy/citelens/internal/domain"
)

// File keys of a written report.
const (
	FileMainReport          = "main_report"
	FileKeywordClusters     = "keyword_clusters"
	FileContentCompleteness = "content_completeness"
	FileAnswerDensity       = "answer_density"
	FileEntityCoverage      = "entity_coverage"
	FileCitations           = "citations"
	FileRAGOptimization     = "rag_optimization"
)

// WrittenFile is one file produced by Writer.Write.
type WrittenFile struct {
	Key  string
	Path string
}

// Writer writes a run's report files into a directory.
type Writer struct {
	dir string
	now func() time.Time
}

// NewWriter creates a Writer for dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// Write saves the main report and one file per analysis that produced results.
// File names carry the date, e.g. ai_optimization_report_20261018.json.
// Returns the files in the order written.
func (w *Writer) Write(result *domain.AnalysisResult) ([]WrittenFile, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	stamp := w.now().Format("20060102")

	type part struct {
		key     string
		prefix  string
		present bool
		data    interface{}
	}
	parts := []part{
		{FileMainReport, "ai_optimization_report", true, result},
		{FileKeywordClusters, "keyword_clusters", len(result.KeywordClusters) > 0, result.KeywordClusters},
		{FileContentCompleteness, "content_completeness", len(result.CompletenessResults) > 0, result.CompletenessResults},
		{FileAnswerDensity, "answer_density_scores", len(result.AnswerDensityResults) > 0, result.AnswerDensityResults},
		{FileEntityCoverage, "entity_coverage", len(result.EntityCoverageResults) > 0, result.EntityCoverageResults},
		{FileCitations, "citation_opportunities", len(result.CitationResults) > 0, result.CitationResults},
		{FileRAGOptimization, "rag_optimization", len(result.RAGResults) > 0, result.RAGResults},
	}

	var files []WrittenFile
	for _, p := range parts {
		if !p.present {
			continue
		}
		path := filepath.Join(w.dir, fmt.Sprintf("%s_%s.json", p.prefix, stamp))
		if err := writeJSON(path, p.data); err != nil {
			return files, err
		}
		files = append(files, WrittenFile{Key: p.key, Path: path})
	}
	return files, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
