// Package report assembles analysis results into the summary block and the
// dated JSON files of a run, and publishes them to object storage.
package report

import (
	"github.com/timmy/citelens/internal/domain"
	"github.com/timmy/citelens/internal/vecmath"
)

// CompletenessFloor marks a page as under-covered in the summary.
const CompletenessFloor = 0.5

// Summarize computes the summary block of result. Sections whose analysis
// produced nothing are left nil.
func Summarize(result *domain.AnalysisResult) domain.Summary {
	summary := domain.Summary{
		Overview: domain.SummaryOverview{
			ContentAnalyzed:  result.ContentCount,
			KeywordsAnalyzed: result.KeywordCount,
			GeneratedAt:      result.GeneratedAt,
		},
	}

	if n := len(result.KeywordClusters); n > 0 {
		largest, total := 0, 0
		for _, c := range result.KeywordClusters {
			largest = max(largest, len(c.Keywords))
			total += len(c.Keywords)
		}
		summary.Clustering = &domain.ClusteringSummary{
			TotalClusters:      n,
			LargestClusterSize: largest,
			AvgClusterSize:     domain.Score(float64(total) / float64(n)),
		}
	}

	if len(result.CompletenessResults) > 0 {
		scores := make([]float64, len(result.CompletenessResults))
		below := 0
		for i, r := range result.CompletenessResults {
			scores[i] = float64(r.OverallScore)
			if scores[i] < CompletenessFloor {
				below++
			}
		}
		s := scoreSummary(scores)
		s.BelowThreshold = &below
		summary.Completeness = s
	}

	if len(result.AnswerDensityResults) > 0 {
		scores := make([]float64, len(result.AnswerDensityResults))
		for i, r := range result.AnswerDensityResults {
			scores[i] = float64(r.OverallScore)
		}
		summary.AnswerDensity = scoreSummary(scores)
	}

	if len(result.EntityCoverageResults) > 0 {
		scores := make([]float64, len(result.EntityCoverageResults))
		for i, r := range result.EntityCoverageResults {
			scores[i] = float64(r.OverallScore)
		}
		summary.Entities = scoreSummary(scores)
	}

	if len(result.CitationResults) > 0 {
		scores := make([]float64, len(result.CitationResults))
		cs := &domain.CitationSummary{}
		for i, r := range result.CitationResults {
			scores[i] = float64(r.TotalCitationPotential)
			cs.TotalOpportunities += len(r.Opportunities)
			if len(r.Opportunities) > 0 {
				cs.PagesWithOpportunities++
			}
		}
		cs.AvgPotential = domain.Score(vecmath.Mean(scores))
		summary.Citations = cs
	}

	if len(result.RAGResults) > 0 {
		scores := make([]float64, len(result.RAGResults))
		for i, r := range result.RAGResults {
			scores[i] = float64(r.AvgRetrievalScore)
		}
		summary.RAG = scoreSummary(scores)
	}

	return summary
}

func scoreSummary(scores []float64) *domain.ScoreSummary {
	lo, hi := vecmath.MinMax(scores)
	return &domain.ScoreSummary{
		Avg: domain.Score(vecmath.Mean(scores)),
		Min: domain.Score(lo),
		Max: domain.Score(hi),
	}
}
