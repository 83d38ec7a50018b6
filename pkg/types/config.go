// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ModelConfig holds settings for the Generative AI API shared by all stages.
type ModelConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Temperature controls generation randomness (default 0.5).
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// MaxOutputTokens caps the length of a single generation (default 2000).
	MaxOutputTokens int `json:"max_output_tokens" yaml:"max_output_tokens"`

	// Timeout bounds a single API call. A call that exceeds it is treated
	// the same as an empty response: the stage falls back (default 90s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxRetries is the number of retry attempts on rate-limited calls
	// (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// CacheConfig holds settings for the file cache. TTLs are per namespace;
// they are freshness windows, not hard semantics. Per prd001-cache R4.1.
type CacheConfig struct {
	// RootDir is the base directory; each namespace gets a subdirectory.
	RootDir string `json:"root_dir" yaml:"root_dir"`

	// PlanningTTL is the freshness window for task decompositions (default 24h).
	PlanningTTL time.Duration `json:"planning_ttl" yaml:"planning_ttl"`

	// ResearchTTL is the freshness window for research findings (default 24h).
	ResearchTTL time.Duration `json:"research_ttl" yaml:"research_ttl"`

	// SynthesisTTL is the freshness window for syntheses (default 48h).
	SynthesisTTL time.Duration `json:"synthesis_ttl" yaml:"synthesis_ttl"`

	// ReportTTL is the freshness window for generated reports (default 72h).
	ReportTTL time.Duration `json:"report_ttl" yaml:"report_ttl"`
}

// PlanningConfig holds settings for the planning stage.
// Per prd003-planning R2.3, R4.2.
type PlanningConfig struct {
	// MinTasks is the parse-count threshold below which the deterministic
	// fallback decomposition is used (default 2).
	MinTasks int `json:"min_tasks" yaml:"min_tasks"`

	// MaxTasks caps the decomposition to bound downstream cost (default 5).
	MaxTasks int `json:"max_tasks" yaml:"max_tasks"`
}

// ResearchConfig holds settings for the research stage.
type ResearchConfig struct {
	// ModelAssessment enables quality rating via the model. The checker
	// degrades to the local heuristic on any model error either way.
	// Per prd004-research R4.3.
	ModelAssessment bool `json:"model_assessment" yaml:"model_assessment"`
}

// ReportConfig holds settings for the report stage.
type ReportConfig struct {
	// ReportsDir is the directory for rendered reports (default
	// "research_reports").
	ReportsDir string `json:"reports_dir" yaml:"reports_dir"`
}

// PipelineConfig groups all stage configurations for one research run.
// It is built once by the caller and passed into the orchestrator; stages
// do not read the environment themselves.
type PipelineConfig struct {
	Model    ModelConfig    `json:"model" yaml:"model"`
	Cache    CacheConfig    `json:"cache" yaml:"cache"`
	Planning PlanningConfig `json:"planning" yaml:"planning"`
	Research ResearchConfig `json:"research" yaml:"research"`
	Report   ReportConfig   `json:"report" yaml:"report"`
}

// Defaults returns a PipelineConfig with the documented default tuning.
func Defaults() PipelineConfig {
	return PipelineConfig{
		Model: ModelConfig{
			Temperature:     0.5,
			MaxOutputTokens: 2000,
			Timeout:         90 * time.Second,
			MaxRetries:      3,
		},
		Cache: CacheConfig{
			RootDir:      "research_cache",
			PlanningTTL:  24 * time.Hour,
			ResearchTTL:  24 * time.Hour,
			SynthesisTTL: 48 * time.Hour,
			ReportTTL:    72 * time.Hour,
		},
		Planning: PlanningConfig{
			MinTasks: 2,
			MaxTasks: 5,
		},
		Report: ReportConfig{
			ReportsDir: "research_reports",
		},
	}
}
