package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/citelens/internal/config"
	"github.com/timmy/citelens/internal/domain"
)

const pageBody = `Intensive outpatient treatment is a structured program that meets several times a week while patients live at home.

Studies show that 40% of patients complete the program within twelve weeks, according to the National Institute on Drug Abuse.

1. Call the admissions team
2. Complete an assessment
3. Start treatment within days`

func testBundle() *domain.EmbeddingsFile {
	pages := []domain.ContentItem{
		{URL: "/iop", Title: "Intensive Outpatient", Content: pageBody},
		{URL: "/iop-copy", Title: "Intensive Outpatient", Content: pageBody},
		{URL: "/detox", Title: "Detox", Content: "Medical detox is the first step of recovery for many people.\n\nOur clinicians monitor withdrawal around the clock."},
	}
	for i := range pages {
		pages[i].Embedding = fakeVector(pages[i].Title)
		pages[i].Normalize()
	}
	var keywords []domain.KeywordItem
	for _, k := range []string{"iop program", "outpatient rehab", "detox near me", "medical detox"} {
		keywords = append(keywords, domain.KeywordItem{Keyword: k, Embedding: fakeVector(k)})
	}
	return &domain.EmbeddingsFile{ContentEmbeddings: pages, KeywordEmbeddings: keywords}
}

func testAnalysisConfig() config.AnalysisConfig {
	return config.AnalysisConfig{
		Workers:               3,
		ClusterMethod:         "hierarchical",
		DistanceThreshold:     0.3,
		OutlierThreshold:      0.3,
		CompletenessThreshold: 0.4,
		RedundancyThreshold:   0.85,
		AnswerThreshold:       0.5,
		EntityThreshold:       0.45,
		EntityGapThreshold:    0.5,
		RetrievalThreshold:    0.5,
		RetrievalGapThreshold: 0.4,
	}
}

func newTestAnalysisService(t *testing.T, embedder Embedder, cfg config.AnalysisConfig) *AnalysisService {
	t.Helper()
	refs, err := config.DefaultReferences()
	require.NoError(t, err)
	svc, err := NewAnalysisService(embedder, &AnalysisServiceConfig{
		References: refs,
		Analysis:   cfg,
		Chunking:   config.ChunkingConfig{TargetSize: 64, Overlap: 8, RespectBoundaries: true},
	})
	require.NoError(t, err)
	return svc
}

func TestAnalysisService_RunAll(t *testing.T) {
	embedder := &fakeEmbedder{}
	svc := newTestAnalysisService(t, embedder, testAnalysisConfig())
	bundle := testBundle()

	result, err := svc.Run(context.Background(), bundle)
	require.NoError(t, err)

	n := len(bundle.ContentEmbeddings)
	assert.Equal(t, n, result.ContentCount)
	assert.NotEmpty(t, result.KeywordClusters)
	assert.Len(t, result.CompletenessResults, n)
	assert.Len(t, result.AnswerDensityResults, n)
	assert.Len(t, result.EntityCoverageResults, n)
	assert.Len(t, result.CitationResults, n)
	assert.Len(t, result.RAGResults, n)

	for i, r := range result.CompletenessResults {
		assert.Equal(t, bundle.ContentEmbeddings[i].URL, r.URL, "completeness result %d out of order", i)
	}
	for i, r := range result.CitationResults {
		assert.Equal(t, bundle.ContentEmbeddings[i].URL, r.URL, "citation result %d out of order", i)
	}

	require.Len(t, result.RedundantContent, 1)
	assert.Equal(t, "/iop", result.RedundantContent[0].URLA)
	assert.Equal(t, "/iop-copy", result.RedundantContent[0].URLB)

	for _, k := range bundle.KeywordEmbeddings {
		assert.NotNil(t, k.ClusterID, "keyword %q has no cluster", k.Keyword)
	}

	assert.NotNil(t, result.TopicDistribution)
	assert.Len(t, result.EntityAuthority, n)
	require.Len(t, result.CitationRanking, n)
	for i := 1; i < n; i++ {
		assert.GreaterOrEqual(t, result.CitationRanking[i-1].TotalCitationPotential, result.CitationRanking[i].TotalCitationPotential)
	}
	require.NotNil(t, result.RetrievalCoverage)
	assert.Len(t, result.GapSuggestions, len(result.RetrievalGaps))

	assert.NotNil(t, result.Summary.Clustering)
	assert.NotNil(t, result.Summary.Completeness)
	assert.NotNil(t, result.Summary.RAG)
	assert.Positive(t, embedder.texts)
}

func TestAnalysisService_WithoutEmbedder(t *testing.T) {
	svc := newTestAnalysisService(t, nil, testAnalysisConfig())

	result, err := svc.Run(context.Background(), testBundle())
	require.NoError(t, err)

	assert.NotEmpty(t, result.KeywordClusters)
	assert.NotEmpty(t, result.CitationResults)
	assert.Nil(t, result.CompletenessResults)
	assert.Nil(t, result.AnswerDensityResults)
	assert.Nil(t, result.EntityCoverageResults)
	assert.Nil(t, result.RAGResults)
	assert.Nil(t, result.Summary.Completeness)
}

func TestAnalysisService_Skip(t *testing.T) {
	cfg := testAnalysisConfig()
	cfg.Skip = []string{"clustering", " RAG ", "entities"}
	svc := newTestAnalysisService(t, &fakeEmbedder{}, cfg)

	result, err := svc.Run(context.Background(), testBundle())
	require.NoError(t, err)

	assert.Nil(t, result.KeywordClusters)
	assert.Nil(t, result.RAGResults)
	assert.Nil(t, result.EntityCoverageResults)
	assert.NotNil(t, result.CompletenessResults)
	assert.NotNil(t, result.CitationResults)
}

func TestAnalysisService_EmbedChunks(t *testing.T) {
	refs, err := config.DefaultReferences()
	require.NoError(t, err)
	cfg := testAnalysisConfig()
	cfg.Skip = []string{"clustering", "completeness", "answers", "entities", "citations"}

	run := func(embedChunks bool) (*domain.AnalysisResult, int) {
		embedder := &fakeEmbedder{}
		svc, err := NewAnalysisService(embedder, &AnalysisServiceConfig{
			References: refs,
			Analysis:   cfg,
			Chunking:   config.ChunkingConfig{TargetSize: 20, RespectBoundaries: true, EmbedChunks: embedChunks},
		})
		require.NoError(t, err)
		result, err := svc.Run(context.Background(), testBundle())
		require.NoError(t, err)
		return result, embedder.texts
	}

	proxied, refTexts := run(false)
	embedded, allTexts := run(true)

	require.Len(t, embedded.RAGResults, 3)
	assert.Greater(t, allTexts, refTexts)
	assert.NotEmpty(t, embedded.RAGResults[0].ChunkScores)
	assert.Equal(t, len(proxied.RAGResults[0].ChunkScores), len(embedded.RAGResults[0].ChunkScores))
}

func TestAnalysisService_EmbedderError(t *testing.T) {
	svc := newTestAnalysisService(t, &fakeEmbedder{err: errFake}, testAnalysisConfig())

	_, err := svc.Run(context.Background(), testBundle())
	assert.ErrorIs(t, err, errFake)
}

func TestNewAnalysisService_InvalidInputs(t *testing.T) {
	refs, err := config.DefaultReferences()
	require.NoError(t, err)

	cfg := testAnalysisConfig()
	cfg.ClusterMethod = "dbscan"
	_, err = NewAnalysisService(nil, &AnalysisServiceConfig{References: refs, Analysis: cfg})
	assert.Error(t, err)

	bad := *refs
	bad.CitationRules = []config.RuleDefinition{{Type: "definition", Patterns: []string{"("}, Weight: 0.9}}
	_, err = NewAnalysisService(nil, &AnalysisServiceConfig{References: &bad, Analysis: testAnalysisConfig()})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "citation rules"))
}

func TestAnalysisService_CustomCitationRules(t *testing.T) {
	refs, err := config.DefaultReferences()
	require.NoError(t, err)
	custom := *refs
	custom.CitationRules = []config.RuleDefinition{
		{Type: "percent", Patterns: []string{`\d+%`}, Weight: 0.6, Reason: "Contains a percentage"},
	}
	cfg := testAnalysisConfig()
	cfg.Skip = []string{"clustering"}
	svc, err := NewAnalysisService(nil, &AnalysisServiceConfig{References: &custom, Analysis: cfg})
	require.NoError(t, err)

	result, err := svc.Run(context.Background(), testBundle())
	require.NoError(t, err)
	require.NotEmpty(t, result.CitationResults[0].Opportunities)
	assert.Equal(t, "percent", result.CitationResults[0].Opportunities[0].PatternType)
}
