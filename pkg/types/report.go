// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ReportType selects the report structure. Per prd006-report R1.1.
type ReportType string

const (
	// ReportExecutive is a brief, decision-focused report.
	ReportExecutive ReportType = "executive"

	// ReportDetailed is the full section set.
	ReportDetailed ReportType = "detailed"
)

// Valid reports whether t is a recognized report type.
func (t ReportType) Valid() bool {
	return t == ReportExecutive || t == ReportDetailed
}

// ReportMetadata is computed locally at render time, never cached, since it
// reflects the current generation. Per prd006-report R3.1-R3.3.
type ReportMetadata struct {
	// GeneratedAt is the render timestamp.
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`

	// WordCount counts whitespace-separated words in the report body.
	WordCount int `json:"word_count" yaml:"word_count"`

	// ReadingMinutes estimates reading time at 200 words per minute,
	// with a minimum of 1.
	ReadingMinutes int `json:"reading_minutes" yaml:"reading_minutes"`

	// CitationCount is the number of cited research tasks.
	CitationCount int `json:"citation_count" yaml:"citation_count"`
}

// Report is the rendered document for one run. Its in-memory lifetime ends
// once Path is written.
type Report struct {
	// Type is the report structure used.
	Type ReportType `json:"type" yaml:"type"`

	// Path is the file the report was persisted to.
	Path string `json:"path" yaml:"path"`

	// Content is the full rendered Markdown.
	Content string `json:"content" yaml:"content"`

	// CacheHit reports whether the report body came from the cache.
	CacheHit bool `json:"cache_hit" yaml:"cache_hit"`

	// Degraded reports whether the body is fallback content rather than
	// model output.
	Degraded bool `json:"degraded" yaml:"degraded"`

	// Metadata is always freshly computed.
	Metadata ReportMetadata `json:"metadata" yaml:"metadata"`
}

// StageTiming records wall-clock duration for one pipeline stage.
type StageTiming struct {
	Stage    string        `json:"stage" yaml:"stage"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// RunSummary aggregates the outcome of one end-to-end research run.
// Per prd007-pipeline R5.
type RunSummary struct {
	// RunID uniquely identifies this run.
	RunID string `json:"run_id" yaml:"run_id"`

	// Question is the research question as given.
	Question string `json:"question" yaml:"question"`

	// ReportPath is where the final report was written.
	ReportPath string `json:"report_path" yaml:"report_path"`

	// TasksPlanned is the size of the plan.
	TasksPlanned int `json:"tasks_planned" yaml:"tasks_planned"`

	// TasksCompleted is the number of findings produced. For all valid
	// runs it equals TasksPlanned.
	TasksCompleted int `json:"tasks_completed" yaml:"tasks_completed"`

	// CacheHits counts pipeline artifacts served from the cache: findings,
	// the synthesis narrative, and the report body.
	CacheHits int `json:"cache_hits" yaml:"cache_hits"`

	// Degraded counts findings produced by fallback instead of the model.
	Degraded int `json:"degraded" yaml:"degraded"`

	// FallbackPlan reports whether the deterministic fallback
	// decomposition was used.
	FallbackPlan bool `json:"fallback_plan" yaml:"fallback_plan"`

	// Timings lists per-stage wall-clock durations in stage order.
	Timings []StageTiming `json:"timings" yaml:"timings"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at" yaml:"started_at"`

	// Duration is the end-to-end wall-clock time.
	Duration time.Duration `json:"duration" yaml:"duration"`
}
