package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/timmy/citelens/internal/analysis"
	"github.com/timmy/citelens/internal/config"
	"github.com/timmy/citelens/internal/domain"
	"github.com/timmy/citelens/internal/logger"
	"github.com/timmy/citelens/internal/report"
)

// Analysis names accepted by analysis.skip.
const (
	AnalysisClustering   = "clustering"
	AnalysisCompleteness = "completeness"
	AnalysisAnswers      = "answers"
	AnalysisEntities     = "entities"
	AnalysisCitations    = "citations"
	AnalysisRAG          = "rag"
)

// Embedder turns texts into embedding records, order preserved.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string, skipCache bool) ([]*domain.EmbeddingRecord, error)
}

// AnalysisService runs every analysis over an embeddings bundle.
type AnalysisService struct {
	embedder  Embedder
	refs      *config.References
	cfg       config.AnalysisConfig
	chunking  config.ChunkingConfig
	citations *analysis.Citations
	answers   *analysis.RuleTable
	retriever analysis.Retriever
	now       func() time.Time
}

// AnalysisServiceConfig holds what NewAnalysisService needs.
type AnalysisServiceConfig struct {
	References *config.References
	Analysis   config.AnalysisConfig
	Chunking   config.ChunkingConfig
	// Retriever ranks pages for sitewide retrieval gaps. Nil ranks the
	// bundle's own pages in memory.
	Retriever analysis.Retriever
}

// NewAnalysisService compiles the configured rule tables.
// embedder may be nil: analyses that need reference vectors are then skipped.
func NewAnalysisService(embedder Embedder, cfg *AnalysisServiceConfig) (*AnalysisService, error) {
	refs := cfg.References
	if refs == nil {
		var err error
		if refs, err = config.DefaultReferences(); err != nil {
			return nil, err
		}
	}

	var citationRules *analysis.RuleTable
	if len(refs.CitationRules) > 0 {
		table, err := analysis.NewRuleTable(ruleSpecs(refs.CitationRules))
		if err != nil {
			return nil, fmt.Errorf("invalid citation rules: %w", err)
		}
		citationRules = table
	}
	var answerRules *analysis.RuleTable
	if len(refs.AnswerRules) > 0 {
		table, err := analysis.NewRuleTable(ruleSpecs(refs.AnswerRules))
		if err != nil {
			return nil, fmt.Errorf("invalid answer rules: %w", err)
		}
		answerRules = table
	}

	if _, err := analysis.ParseMethod(cfg.Analysis.ClusterMethod); err != nil {
		return nil, err
	}

	return &AnalysisService{
		embedder:  embedder,
		refs:      refs,
		cfg:       cfg.Analysis,
		chunking:  cfg.Chunking,
		citations: analysis.NewCitations(citationRules),
		answers:   answerRules,
		retriever: cfg.Retriever,
		now:       time.Now,
	}, nil
}

func ruleSpecs(defs []config.RuleDefinition) []analysis.RuleSpec {
	specs := make([]analysis.RuleSpec, len(defs))
	for i, d := range defs {
		specs[i] = analysis.RuleSpec{
			Type:     d.Type,
			Patterns: d.Patterns,
			Flags:    d.Flags,
			Weight:   d.Weight,
			Reason:   d.Reason,
			Format:   d.Format,
		}
	}
	return specs
}

// referenceSets holds the embedded reference sets of one run.
type referenceSets struct {
	topics    analysis.ReferenceSet
	questions analysis.ReferenceSet
	queries   analysis.ReferenceSet
	entities  analysis.ReferenceSet
}

// Run executes every analysis not listed in analysis.skip and returns the
// aggregated result with its summary. KeywordItem.ClusterID is written back
// onto bundle by the clustering step.
func (s *AnalysisService) Run(ctx context.Context, bundle *domain.EmbeddingsFile) (*domain.AnalysisResult, error) {
	items := bundle.ContentEmbeddings
	keywords := bundle.KeywordEmbeddings

	result := &domain.AnalysisResult{
		GeneratedAt:  s.now().UTC(),
		ContentCount: len(items),
		KeywordCount: len(keywords),
	}

	var refs *referenceSets
	if s.embedder != nil {
		var err error
		if refs, err = s.embedReferences(ctx); err != nil {
			return nil, err
		}
	} else {
		logger.CtxWarn(ctx, "No embedding client available, skipping completeness, answer density, entity and RAG analyses")
	}

	if !s.cfg.Skips(AnalysisClustering) {
		if err := s.runClustering(ctx, keywords, result); err != nil {
			return nil, err
		}
	}

	if !s.cfg.Skips(AnalysisCompleteness) && refs != nil {
		result.CompletenessResults = make([]domain.CoverageResult, len(items))
		s.forEach(ctx, len(items), func(i int) {
			result.CompletenessResults[i] = analysis.AssessCompleteness(&items[i], refs.topics, s.cfg.CompletenessThreshold)
		})
		result.TopicDistribution = analysis.TopicDistribution(items, refs.topics, analysis.DefaultDistributionThreshold)
		result.RedundantContent = analysis.ContentRedundancy(items, s.cfg.RedundancyThreshold)
		s.logStep(ctx, AnalysisCompleteness, len(items))
	}

	if !s.cfg.Skips(AnalysisAnswers) && refs != nil {
		density := analysis.NewAnswerDensity(refs.questions, s.cfg.AnswerThreshold)
		if s.answers != nil {
			density.Sections = s.answers
		}
		result.AnswerDensityResults = make([]domain.AnswerDensityResult, len(items))
		s.forEach(ctx, len(items), func(i int) {
			result.AnswerDensityResults[i] = density.Analyze(&items[i])
		})
		result.FAQSuggestions = analysis.SuggestFAQ(items, refs.questions,
			analysis.DefaultQuestionCoverageThreshold, analysis.DefaultFAQGapThreshold)
		s.logStep(ctx, AnalysisAnswers, len(items))
	}

	if !s.cfg.Skips(AnalysisEntities) && refs != nil {
		result.EntityCoverageResults = make([]domain.EntityCoverageResult, len(items))
		s.forEach(ctx, len(items), func(i int) {
			result.EntityCoverageResults[i] = analysis.AnalyzeEntityCoverage(&items[i], refs.entities, s.cfg.EntityThreshold)
		})
		result.EntityGaps = analysis.EntityGapsSitewide(items, refs.entities, s.cfg.EntityGapThreshold)
		result.EntityAuthority = analysis.EntityAuthority(items, refs.entities, s.refs.AuthorityWeights)
		s.logStep(ctx, AnalysisEntities, len(items))
	}

	if !s.cfg.Skips(AnalysisCitations) {
		result.CitationResults = make([]domain.CitationResult, len(items))
		s.forEach(ctx, len(items), func(i int) {
			result.CitationResults[i] = s.citations.Analyze(items[i].URL, items[i].Content)
		})
		result.CitationRanking = analysis.RankCitations(items, result.CitationResults)
		s.logStep(ctx, AnalysisCitations, len(items))
	}

	if !s.cfg.Skips(AnalysisRAG) && refs != nil {
		if err := s.runRAG(ctx, items, refs.queries, result); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result.Summary = report.Summarize(result)
	return result, nil
}

func (s *AnalysisService) runClustering(ctx context.Context, keywords []domain.KeywordItem, result *domain.AnalysisResult) error {
	if len(keywords) == 0 {
		logger.CtxWarn(ctx, "No keyword embeddings, skipping clustering")
		return nil
	}
	clusters, err := analysis.Cluster(keywords, analysis.ClusterOptions{
		Method:            analysis.Method(s.cfg.ClusterMethod),
		NumClusters:       s.cfg.NumClusters,
		DistanceThreshold: s.cfg.DistanceThreshold,
	})
	if err != nil {
		return fmt.Errorf("failed to cluster keywords: %w", err)
	}
	result.KeywordClusters = clusters
	result.OutlierKeywords = analysis.FindOutliers(keywords, s.cfg.OutlierThreshold)
	s.logStep(ctx, AnalysisClustering, len(keywords))
	return nil
}

func (s *AnalysisService) runRAG(ctx context.Context, items []domain.ContentItem, queries analysis.ReferenceSet, result *domain.AnalysisResult) error {
	opts := analysis.ChunkOptions{
		TargetSize:        s.chunking.TargetSize,
		Overlap:           s.chunking.Overlap,
		RespectBoundaries: s.chunking.RespectBoundaries,
	}

	// Chunk vectors go through the embedder one page at a time; the client
	// paces provider calls, so this stays outside the worker pool.
	chunkVectors := make([][][]float32, len(items))
	if s.chunking.EmbedChunks {
		for i := range items {
			vectors, err := s.embedChunks(ctx, items[i].Content, opts)
			if err != nil {
				return fmt.Errorf("failed to embed chunks of %s: %w", items[i].URL, err)
			}
			chunkVectors[i] = vectors
		}
	}

	result.RAGResults = make([]domain.RAGChunkResult, len(items))
	s.forEach(ctx, len(items), func(i int) {
		result.RAGResults[i] = analysis.AnalyzeChunks(&items[i], queries, opts, chunkVectors[i])
	})

	retrieve := s.retriever
	if retrieve == nil {
		retrieve = analysis.InMemoryRetriever(items)
	}
	coverage, err := analysis.RetrievalCoverage(ctx, retrieve, queries, s.cfg.RetrievalThreshold)
	if err != nil {
		return fmt.Errorf("failed to measure retrieval coverage: %w", err)
	}
	result.RetrievalCoverage = &coverage

	gaps, err := analysis.RetrievalGaps(ctx, retrieve, queries, s.cfg.RetrievalGapThreshold)
	if err != nil {
		return fmt.Errorf("failed to find retrieval gaps: %w", err)
	}
	result.RetrievalGaps = gaps
	result.GapSuggestions = analysis.SuggestForRetrievalGaps(gaps)
	s.logStep(ctx, AnalysisRAG, len(items))
	return nil
}

func (s *AnalysisService) embedChunks(ctx context.Context, text string, opts analysis.ChunkOptions) ([][]float32, error) {
	chunks := analysis.ChunkText(text, opts)
	if len(chunks) == 0 {
		return nil, nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	records, err := s.embedder.EmbedBatch(ctx, texts, false)
	if err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(records))
	for i, r := range records {
		vectors[i] = r.Embedding
	}
	return vectors, nil
}

// embedReferences embeds every reference set in one batch, so cached
// terms cost nothing and new ones share provider calls.
func (s *AnalysisService) embedReferences(ctx context.Context) (*referenceSets, error) {
	type span struct {
		names      []string
		categories []string
	}
	flatten := func(groups config.CategorizedTerms) span {
		var sp span
		for _, g := range groups {
			for _, t := range g.Terms {
				sp.names = append(sp.names, t)
				sp.categories = append(sp.categories, g.Category)
			}
		}
		return sp
	}
	plain := func(terms []string) span {
		return span{names: terms, categories: make([]string, len(terms))}
	}

	spans := []span{
		flatten(s.refs.Topics),
		plain(s.refs.Questions),
		plain(s.refs.RetrievalQueries()),
		flatten(s.refs.Entities),
	}
	var texts []string
	for _, sp := range spans {
		texts = append(texts, sp.names...)
	}
	if len(texts) == 0 {
		return &referenceSets{}, nil
	}

	records, err := s.embedder.EmbedBatch(ctx, texts, false)
	if err != nil {
		return nil, fmt.Errorf("failed to embed reference sets: %w", err)
	}

	sets := make([]analysis.ReferenceSet, len(spans))
	offset := 0
	for i, sp := range spans {
		set := make(analysis.ReferenceSet, len(sp.names))
		for j, name := range sp.names {
			set[j] = analysis.Reference{
				Name:     name,
				Category: sp.categories[j],
				Vector:   records[offset+j].Embedding,
			}
		}
		sets[i] = set.Unique()
		offset += len(sp.names)
	}

	logger.With(logger.Fields{logger.FieldCount: len(texts)}).Info(ctx, "Reference sets embedded")
	return &referenceSets{topics: sets[0], questions: sets[1], queries: sets[2], entities: sets[3]}, nil
}

// forEach calls fn for every index in [0, n) on a bounded pool of workers.
// fn writes its own slot of a preallocated slice, so results keep input order.
func (s *AnalysisService) forEach(ctx context.Context, n int, fn func(i int)) {
	workers := s.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	indexes := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				fn(i)
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case indexes <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indexes)
	wg.Wait()
}

func (s *AnalysisService) logStep(ctx context.Context, name string, count int) {
	logger.With(logger.Fields{
		logger.FieldComponent: name,
		logger.FieldCount:     count,
	}).Info(ctx, "Analysis step completed")
}

// Citations returns the citation detector with the configured rule table.
func (s *AnalysisService) Citations() *analysis.Citations {
	return s.citations
}
