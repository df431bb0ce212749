package domain

import "strings"

// ContentItem is a page of site content with its embedding.
type ContentItem struct {
	URL             string `json:"url"`
	Title           string `json:"title"`
	Content         string `json:"content"`
	Embedding       Vector `json:"embedding"`
	WordCount       int    `json:"word_count"`
	ContentType     string `json:"content_type"`
	MetaDescription string `json:"meta_description,omitempty"`
	H1              string `json:"h1,omitempty"`
	TargetKeyword   string `json:"target_keyword,omitempty"`
	ContentHash     string `json:"content_hash,omitempty"`
}

// Normalize derives the word count, content type and hash when they were not supplied.
func (c *ContentItem) Normalize() {
	if c.WordCount == 0 {
		c.WordCount = len(strings.Fields(c.Content))
	}
	if c.ContentType == "" {
		c.ContentType = "page"
	}
	if c.ContentHash == "" {
		c.ContentHash = ContentHash(c.Content)
	}
}

// KeywordItem is a search keyword with its embedding.
// ClusterID is assigned by a clustering run and is nil until then.
type KeywordItem struct {
	Keyword           string   `json:"keyword"`
	Embedding         Vector   `json:"embedding"`
	SearchVolume      *int     `json:"search_volume,omitempty"`
	KeywordDifficulty *float64 `json:"keyword_difficulty,omitempty"`
	Intent            string   `json:"intent,omitempty"`
	ClusterID         *int     `json:"cluster_id,omitempty"`
	ParentTopic       string   `json:"parent_topic,omitempty"`
}

// EmbeddingsFile is the on-disk bundle produced by the generate step.
type EmbeddingsFile struct {
	GeneratedAt       string        `json:"generated_at"`
	ContentCount      int           `json:"content_count"`
	KeywordCount      int           `json:"keyword_count"`
	Model             string        `json:"model"`
	Dimensions        int           `json:"dimensions"`
	ContentEmbeddings []ContentItem `json:"content_embeddings"`
	KeywordEmbeddings []KeywordItem `json:"keyword_embeddings"`
}
