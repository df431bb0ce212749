package domain

import "time"

// ClusterAssignment is one semantic keyword cluster.
type ClusterAssignment struct {
	ClusterID       int      `json:"cluster_id"`
	Keywords        []string `json:"keywords"`
	CentroidKeyword string   `json:"centroid_keyword"`
	AvgSimilarity   Score    `json:"avg_similarity"`
	TopicLabel      string   `json:"topic_label,omitempty"`
}

// CoverageResult compares one subject vector against a named reference set.
// Every reference name appears in exactly one of Covered and Missing.
type CoverageResult struct {
	URL             string           `json:"url"`
	OverallScore    Score            `json:"overall_score"`
	Covered         []string         `json:"covered"`
	Missing         []string         `json:"missing"`
	PerItemScore    map[string]Score `json:"per_item_score"`
	Recommendations []string         `json:"recommendations"`
}

// EntityCoverageResult extends CoverageResult with per-category means.
type EntityCoverageResult struct {
	CoverageResult
	CategoryCoverage map[string]Score `json:"category_coverage"`
}

// AnswerableSection is a paragraph formatted for direct quotation.
type AnswerableSection struct {
	SectionIndex int    `json:"section_index"`
	SectionType  string `json:"section_type"`
	QuoteScore   Score  `json:"quote_score"`
	WordCount    int    `json:"word_count"`
	Preview      string `json:"preview"`
}

// AnswerDensityResult extends CoverageResult with the quotable sections found in the text.
type AnswerDensityResult struct {
	CoverageResult
	AnswerableSections []AnswerableSection `json:"answerable_sections"`
}

// CitationOpportunity is a section likely to be cited by an AI answer engine.
type CitationOpportunity struct {
	SectionText     string `json:"section_text"`
	CitationScore   Score  `json:"citation_score"`
	PatternType     string `json:"pattern_type"`
	Reason          string `json:"reason"`
	SuggestedFormat string `json:"suggested_format,omitempty"`
}

// CitationResult is the citation readiness of one page.
type CitationResult struct {
	URL                    string                `json:"url"`
	TotalCitationPotential Score                 `json:"total_citation_potential"`
	Opportunities          []CitationOpportunity `json:"opportunities"`
}

// Chunk is a bounded slice of page text.
type Chunk struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	WordCount int    `json:"word_count"`
}

// ChunkRetrievalScore records how well one chunk matches the query set.
type ChunkRetrievalScore struct {
	ChunkIndex        int              `json:"chunk_index"`
	ChunkPreview      string           `json:"chunk_preview"`
	BestMatchingQuery string           `json:"best_matching_query"`
	BestScore         Score            `json:"best_score"`
	AllQueryScores    map[string]Score `json:"all_query_scores"`
	WordCount         int              `json:"word_count"`
}

// RAGChunkResult is the retrieval simulation for one page.
type RAGChunkResult struct {
	URL                 string                `json:"url"`
	AvgRetrievalScore   Score                 `json:"avg_retrieval_score"`
	ChunkScores         []ChunkRetrievalScore `json:"chunk_scores"`
	BoundarySuggestions []string              `json:"boundary_suggestions"`
}

// RedundantPair is two pages whose vectors are nearly identical.
type RedundantPair struct {
	URLA  string `json:"url_a"`
	URLB  string `json:"url_b"`
	Score Score  `json:"score"`
}

// NamedScore pairs a name (topic, url, query) with a similarity.
type NamedScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// FAQSuggestion is a question the site should answer better.
type FAQSuggestion struct {
	Question             string      `json:"question"`
	Priority             string      `json:"priority"`
	BestExistingCoverage *NamedScore `json:"best_existing_coverage"`
	Recommendation       string      `json:"recommendation"`
}

// CitationComparison is one row of a cross-page citation comparison.
type CitationComparison struct {
	URL                    string               `json:"url"`
	Title                  string               `json:"title"`
	TotalCitationPotential Score                `json:"total_citation_potential"`
	OpportunityCount       int                  `json:"citation_opportunities_count"`
	TopOpportunity         *CitationOpportunity `json:"top_opportunity"`
}

// QueryCoverage is the retrieval outcome for one query.
type QueryCoverage struct {
	RetrievedCount int          `json:"retrieved_count"`
	TopResults     []NamedScore `json:"top_results"`
	CoverageGap    bool         `json:"coverage_gap"`
}

// RetrievalSummary aggregates a coverage run.
type RetrievalSummary struct {
	TotalQueries        int   `json:"total_queries"`
	QueriesWithCoverage int   `json:"queries_with_coverage"`
	CoverageRate        Score `json:"coverage_rate"`
}

// RetrievalCoverageReport is the site-wide retrieval coverage for a query set.
type RetrievalCoverageReport struct {
	QueryCoverage map[string]QueryCoverage `json:"query_coverage"`
	Summary       RetrievalSummary         `json:"summary"`
}

// GapSuggestion is a content brief for a query no page retrieves well for.
type GapSuggestion struct {
	Query          string   `json:"query"`
	SuggestionType string   `json:"suggestion_type"`
	Recommendation string   `json:"recommendation"`
	TargetElements []string `json:"target_elements"`
}

// AnalysisResult aggregates every analysis of a run.
type AnalysisResult struct {
	GeneratedAt           time.Time                `json:"generated_at"`
	ContentCount          int                      `json:"content_count"`
	KeywordCount          int                      `json:"keyword_count"`
	KeywordClusters       []ClusterAssignment      `json:"keyword_clusters"`
	OutlierKeywords       []string                 `json:"outlier_keywords"`
	CompletenessResults   []CoverageResult         `json:"completeness_results"`
	TopicDistribution     map[string]int           `json:"topic_distribution,omitempty"`
	RedundantContent      []RedundantPair          `json:"redundant_content"`
	AnswerDensityResults  []AnswerDensityResult    `json:"answer_density_results"`
	FAQSuggestions        []FAQSuggestion          `json:"faq_suggestions,omitempty"`
	EntityCoverageResults []EntityCoverageResult   `json:"entity_coverage_results"`
	EntityGaps            map[string][]string      `json:"entity_gaps"`
	EntityAuthority       map[string]Score         `json:"entity_authority,omitempty"`
	CitationResults       []CitationResult         `json:"citation_results"`
	CitationRanking       []CitationComparison     `json:"citation_ranking,omitempty"`
	RAGResults            []RAGChunkResult         `json:"rag_results"`
	RetrievalCoverage     *RetrievalCoverageReport `json:"retrieval_coverage,omitempty"`
	RetrievalGaps         []string                 `json:"retrieval_gaps"`
	GapSuggestions        []GapSuggestion          `json:"gap_suggestions,omitempty"`
	Summary               Summary                  `json:"summary"`
}

// Summary holds aggregate statistics; sections are nil when their analysis was skipped.
type Summary struct {
	Overview      SummaryOverview    `json:"overview"`
	Clustering    *ClusteringSummary `json:"clustering,omitempty"`
	Completeness  *ScoreSummary      `json:"completeness,omitempty"`
	AnswerDensity *ScoreSummary      `json:"answer_density,omitempty"`
	Entities      *ScoreSummary      `json:"entity_coverage,omitempty"`
	Citations     *CitationSummary   `json:"citations,omitempty"`
	RAG           *ScoreSummary      `json:"rag,omitempty"`
}

type SummaryOverview struct {
	ContentAnalyzed  int       `json:"content_analyzed"`
	KeywordsAnalyzed int       `json:"keywords_analyzed"`
	GeneratedAt      time.Time `json:"generated_at"`
}

type ClusteringSummary struct {
	TotalClusters      int   `json:"total_clusters"`
	LargestClusterSize int   `json:"largest_cluster_size"`
	AvgClusterSize     Score `json:"avg_cluster_size"`
}

type ScoreSummary struct {
	Avg            Score `json:"avg_score"`
	Min            Score `json:"min_score"`
	Max            Score `json:"max_score"`
	BelowThreshold *int  `json:"below_threshold,omitempty"`
}

type CitationSummary struct {
	AvgPotential           Score `json:"avg_potential"`
	TotalOpportunities     int   `json:"total_opportunities"`
	PagesWithOpportunities int   `json:"pages_with_opportunities"`
}
