// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Task is one sub-question produced by the planning stage. Order within a
// plan is meaningful: research and reporting follow it. Per prd003-planning R1.1.
type Task string

// Quality labels a finding's assessed quality. Per prd004-research R4.1.
type Quality string

const (
	QualityHigh    Quality = "high"
	QualityMedium  Quality = "medium"
	QualityLow     Quality = "low"
	QualityUnknown Quality = "unknown"
)

// Finding is the research output for exactly one Task. It is created by the
// research stage and not mutated afterward. Per prd004-research R1.1-R1.4.
type Finding struct {
	// Task is the sub-question this finding answers.
	Task Task `json:"task" yaml:"task"`

	// Text is the raw findings content.
	Text string `json:"text" yaml:"text"`

	// Quality is the assessed quality label.
	Quality Quality `json:"quality" yaml:"quality"`

	// CacheHit reports whether Text came from the cache rather than a
	// model call.
	CacheHit bool `json:"cache_hit" yaml:"cache_hit"`

	// Degraded reports whether Text is fallback content rather than model
	// output. Callers use it to distinguish "used the model" from "used
	// the fallback". Per prd004-research R3.3.
	Degraded bool `json:"degraded" yaml:"degraded"`

	// DegradedReason records why the fallback was used. Empty unless
	// Degraded is true.
	DegradedReason string `json:"degraded_reason,omitempty" yaml:"degraded_reason,omitempty"`
}

// Patterns holds signals extracted from findings by local text analysis.
// Extraction is deterministic and never calls the model. Per prd005-synthesis R3.
type Patterns struct {
	// Topics are keyword terms that recur across findings.
	Topics []string `json:"topics" yaml:"topics"`

	// Numbers are numeric-looking tokens (percentages, counts) in
	// first-seen order.
	Numbers []string `json:"numbers" yaml:"numbers"`

	// Years are four-digit years mentioned in the findings, sorted.
	Years []string `json:"years" yaml:"years"`
}

// SynthesisResult combines all findings into one narrative plus extracted
// pattern data. Created once per run. Per prd005-synthesis R1.1.
type SynthesisResult struct {
	// Narrative is the combined analysis text.
	Narrative string `json:"narrative" yaml:"narrative"`

	// Patterns are re-derived on every call, cached or not.
	Patterns Patterns `json:"patterns" yaml:"patterns"`

	// CacheHit reports whether Narrative came from the cache.
	CacheHit bool `json:"cache_hit" yaml:"cache_hit"`

	// Degraded reports whether Narrative is the naive concatenation
	// fallback rather than model output.
	Degraded bool `json:"degraded" yaml:"degraded"`
}
