package csvsource

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/timmy/citelens/internal/domain"
)

// Adapter reads a content-operations CSV and an optional keywords CSV.
// Without a keywords file, keywords are extracted from the primary and
// secondary keyword columns of the content CSV.
type Adapter struct {
	contentPath  string
	keywordsPath string
}

// NewAdapter creates a new CSV adapter.
// Parameters:
//   - contentPath: path to the content CSV.
//   - keywordsPath: path to a keywords CSV, or empty to extract keywords from content.
// Returns:
//   - *Adapter: initialized adapter.
func NewAdapter(contentPath, keywordsPath string) *Adapter {
	return &Adapter{contentPath: contentPath, keywordsPath: keywordsPath}
}

// GetSourceID returns the unique identifier for this source.
func (a *Adapter) GetSourceID() string {
	return "csv:" + a.contentPath
}

// row gives access to a CSV record by header name.
type row map[string]string

// first returns the first non-empty value among the given column aliases.
func (r row) first(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(r[name]); v != "" {
			return v
		}
	}
	return ""
}

func readRows(ctx context.Context, path string) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return parseRows(ctx, f)
}

func parseRows(ctx context.Context, r io.Reader) ([]row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows []row
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		r := make(row, len(header))
		for i, name := range header {
			if i < len(record) {
				r[strings.TrimSpace(name)] = record[i]
			}
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// LoadContent reads the content CSV.
func (a *Adapter) LoadContent(ctx context.Context) ([]domain.ContentItem, error) {
	rows, err := readRows(ctx, a.contentPath)
	if err != nil {
		return nil, err
	}
	items := make([]domain.ContentItem, 0, len(rows))
	for _, r := range rows {
		item := contentFromRow(r)
		item.Normalize()
		items = append(items, item)
	}
	return items, nil
}

func contentFromRow(r row) domain.ContentItem {
	url := r.first("URL", "url", "live_url")
	if url == "" {
		if slug := r.first("slug"); slug != "" {
			url = "/" + slug
		}
	}

	content := r.first("Content", "content", "Body")
	if content == "" {
		content = pseudoContent(r)
	}

	return domain.ContentItem{
		URL:             url,
		Title:           r.first("Title", "title", "title_tag", "page_name"),
		Content:         content,
		MetaDescription: r.first("Meta Description", "meta_description"),
		H1:              r.first("H1", "h1", "h1_tag"),
		TargetKeyword:   r.first("Target Keyword", "target_keyword", "primary_keyword"),
		ContentType:     r.first("Content Type", "content_type", "page_type"),
	}
}

// pseudoContent stands in for page text in planning sheets that only carry metadata.
func pseudoContent(r row) string {
	var parts []string
	add := func(prefix, column string) {
		if v := r.first(column); v != "" {
			parts = append(parts, prefix+v)
		}
	}
	add("", "title_tag")
	add("", "h1_tag")
	add("", "meta_description")
	add("Primary topic: ", "primary_keyword")
	add("Related topics: ", "secondary_keywords")
	add("Main topic: ", "main_topic")
	add("Search intent: ", "search_intent")
	return strings.Join(parts, "\n\n")
}

// LoadKeywords reads the keywords CSV, or extracts keywords from the content CSV.
func (a *Adapter) LoadKeywords(ctx context.Context) ([]domain.KeywordItem, error) {
	if a.keywordsPath == "" {
		rows, err := readRows(ctx, a.contentPath)
		if err != nil {
			return nil, err
		}
		return extractKeywords(rows), nil
	}

	rows, err := readRows(ctx, a.keywordsPath)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(rows))
	keywords := make([]domain.KeywordItem, 0, len(rows))
	for _, r := range rows {
		kw := r.first("Keyword", "keyword")
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, domain.KeywordItem{
			Keyword:           kw,
			SearchVolume:      parseInt(r.first("Search Volume", "search_volume")),
			KeywordDifficulty: parseFloat(r.first("Keyword Difficulty", "kd")),
			Intent:            r.first("Intent", "intent"),
		})
	}
	return keywords, nil
}

func extractKeywords(rows []row) []domain.KeywordItem {
	seen := make(map[string]struct{})
	var keywords []domain.KeywordItem
	for _, r := range rows {
		intent := r.first("search_intent")
		if primary := r.first("primary_keyword"); primary != "" {
			if _, ok := seen[primary]; !ok {
				seen[primary] = struct{}{}
				keywords = append(keywords, domain.KeywordItem{
					Keyword:           primary,
					SearchVolume:      parseInt(r.first("search_volume")),
					KeywordDifficulty: parseFloat(r.first("keyword_difficulty")),
					Intent:            intent,
					ParentTopic:       r.first("main_topic"),
				})
			}
		}
		for _, kw := range strings.Split(r.first("secondary_keywords"), ",") {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			if _, ok := seen[kw]; ok {
				continue
			}
			seen[kw] = struct{}{}
			keywords = append(keywords, domain.KeywordItem{
				Keyword:     kw,
				Intent:      intent,
				ParentTopic: r.first("main_topic"),
			})
		}
	}
	return keywords
}

func parseInt(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return nil
	}
	return &v
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
