package domain

import "time"

// RunStatus represents the status of an analysis run.
// Values include RunStatusRunning, RunStatusCompleted, and RunStatusFailed.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// AnalysisRun records one invocation of the analysis pipeline and where its report went.
type AnalysisRun struct {
	ID             string     `gorm:"type:text;primaryKey" json:"id"`
	EmbeddingsPath string     `gorm:"type:text" json:"embeddings_path"`
	Status         RunStatus  `gorm:"type:text;index:idx_runs_status;default:running" json:"status"`
	ContentCount   int        `gorm:"default:0" json:"content_count"`
	KeywordCount   int        `gorm:"default:0" json:"keyword_count"`
	ReportPath     string     `gorm:"type:text" json:"report_path,omitempty"`
	ReportURL      string     `gorm:"type:text" json:"report_url,omitempty"`
	APICalls       int64      `gorm:"default:0" json:"api_calls"`
	CacheHits      int64      `gorm:"default:0" json:"cache_hits"`
	TokensUsed     int64      `gorm:"default:0" json:"tokens_used"`
	ErrorLog       string     `json:"error_log,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName returns the database table name for AnalysisRun.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (AnalysisRun) TableName() string {
	return "analysis_runs"
}
