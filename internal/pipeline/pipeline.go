// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences the four research stages end to end: plan,
// research, synthesize, report. Stages run strictly in order; synthesis
// never starts before every task has a finding.
// Implements: prd007-pipeline (R1-R5);
//
//	docs/ARCHITECTURE § Orchestrator.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/deep-research/internal/cache"
	"github.com/pdiddy/deep-research/internal/model"
	"github.com/pdiddy/deep-research/internal/plan"
	"github.com/pdiddy/deep-research/internal/report"
	"github.com/pdiddy/deep-research/internal/research"
	"github.com/pdiddy/deep-research/internal/synth"
	"github.com/pdiddy/deep-research/pkg/types"
)

// Orchestrator runs complete research pipelines. All dependencies are
// explicit; stages share nothing beyond what Run passes between them.
type Orchestrator struct {
	Client model.Client
	Cache  *cache.Store
	Config types.PipelineConfig

	// Out receives progress lines. Defaults to io.Discard.
	Out io.Writer
}

// Run executes the full pipeline for one question and returns the run
// summary (R1.1). A model outage during planning or synthesis, or a failure
// to persist the final report, aborts the run; a failure inside a single
// research task degrades that finding only (R3.1, R3.2).
func (o *Orchestrator) Run(ctx context.Context, question string, rtype types.ReportType) (*types.RunSummary, error) {
	w := o.out()
	started := time.Now()

	summary := &types.RunSummary{
		RunID:     uuid.NewString(),
		Question:  question,
		StartedAt: started,
	}

	stageStart := time.Now()
	tasks, fallbackPlan, err := plan.Plan(ctx, o.Client, o.Cache, question, o.Config.Planning, o.Config.Model, w)
	if err != nil {
		return nil, fmt.Errorf("planning stage: %w", err)
	}
	summary.TasksPlanned = len(tasks)
	summary.FallbackPlan = fallbackPlan
	summary.Timings = append(summary.Timings, types.StageTiming{Stage: "planning", Duration: time.Since(stageStart)})

	stageStart = time.Now()
	finder := &research.Finder{
		Client: o.Client,
		Cache:  o.Cache,
		Model:  o.Config.Model,
		Assess: o.Config.Research,
	}
	findings := make([]types.Finding, 0, len(tasks))
	for i, task := range tasks {
		fmt.Fprintf(w, "[%d/%d] ", i+1, len(tasks))
		f := finder.Find(ctx, task, w)
		findings = append(findings, f)
		if f.CacheHit {
			summary.CacheHits++
		}
		if f.Degraded {
			summary.Degraded++
		}
	}
	summary.TasksCompleted = len(findings)
	summary.Timings = append(summary.Timings, types.StageTiming{Stage: "research", Duration: time.Since(stageStart)})

	stageStart = time.Now()
	syn, err := synth.Synthesize(ctx, o.Client, o.Cache, findings, o.Config.Model, w)
	if err != nil {
		return nil, fmt.Errorf("synthesis stage: %w", err)
	}
	if syn.CacheHit {
		summary.CacheHits++
	}
	summary.Timings = append(summary.Timings, types.StageTiming{Stage: "synthesis", Duration: time.Since(stageStart)})

	stageStart = time.Now()
	writer := &report.Writer{
		Client: o.Client,
		Cache:  o.Cache,
		Model:  o.Config.Model,
		Config: o.Config.Report,
	}
	rep, err := writer.Write(ctx, syn, question, tasks, rtype, w)
	if err != nil {
		return nil, fmt.Errorf("report stage: %w", err)
	}
	if rep.CacheHit {
		summary.CacheHits++
	}
	summary.ReportPath = rep.Path
	summary.Timings = append(summary.Timings, types.StageTiming{Stage: "report", Duration: time.Since(stageStart)})

	summary.Duration = time.Since(started)
	fmt.Fprintf(w, "run %s complete: %d tasks, %d cache hits, %d degraded, report %s\n",
		summary.RunID, summary.TasksCompleted, summary.CacheHits, summary.Degraded, summary.ReportPath)
	return summary, nil
}

func (o *Orchestrator) out() io.Writer {
	if o.Out == nil {
		return io.Discard
	}
	return o.Out
}
