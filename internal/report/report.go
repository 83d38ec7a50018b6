// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders the final research document and persists it. The
// report body is cached; metadata and the document frame are recomputed on
// every render because they reflect the current generation.
// Implements: prd006-report (R1-R5);
//
//	docs/ARCHITECTURE § Report Stage.
package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/pdiddy/deep-research/internal/cache"
	"github.com/pdiddy/deep-research/internal/model"
	"github.com/pdiddy/deep-research/pkg/types"
)

// now is the clock used for timestamps. Package-level var for test substitution.
var now = time.Now

// PersistError reports that the final document could not be written. It is
// distinct from model errors because the research work already succeeded
// (R5.3).
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persisting report to %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// detailedPromptTmpl asks for the full section set.
var detailedPromptTmpl = template.Must(template.New("detailed").Parse(`You are a senior research analyst creating a comprehensive report for stakeholders.

RESEARCH QUESTION:
{{.Question}}

KEY INSIGHTS IDENTIFIED:
{{.Insights}}

SYNTHESIZED FINDINGS:
{{.Content}}

Create a DETAILED PROFESSIONAL REPORT with this exact structure:

## Executive Summary
A compelling 2-3 paragraph overview of the research and its significance.

## Introduction
Two paragraphs of context: why this research matters and what questions it addresses.

## Key Findings
4-5 major discoveries, each with a clear statement, supporting evidence, and significance.

## Detailed Analysis
In-depth analysis of interconnections, trends, implications, and complexities.

## Implications and Impact
Immediate and long-term considerations, opportunities, and risks.

## Recommendations
Actionable next steps with priorities.

## Conclusions
Main takeaways and the answer to the original research question.

## Limitations and Considerations
One paragraph acknowledging limitations or areas needing further investigation.

WRITING STYLE:
- Professional and authoritative
- Data-driven where possible
- Use concrete examples

YOUR DETAILED REPORT:`))

// executivePromptTmpl asks for the brief, decision-focused section set.
var executivePromptTmpl = template.Must(template.New("executive").Parse(`Create a CONCISE EXECUTIVE REPORT for C-level executives.

RESEARCH QUESTION: {{.Question}}

KEY INSIGHTS: {{.Insights}}

FINDINGS SUMMARY:
{{.Content}}

Generate an EXECUTIVE BRIEF with:

## Executive Overview
One impactful paragraph with the most critical findings and their implications.

## Key Findings
Three paragraphs, each highlighting a major discovery with its impact.

## Strategic Implications
Two paragraphs on strategic considerations and opportunities.

## Recommended Actions
Two paragraphs of high-priority recommendations.

## Conclusion
One paragraph with the bottom line and critical next steps.

Keep it concise, impactful, and focused on decision-making.

YOUR EXECUTIVE REPORT:`))

var (
	// percentSentencePattern pulls sentences containing a percentage.
	percentSentencePattern = regexp.MustCompile(`[^.]*\d+(?:\.\d+)?%[^.]*\.`)

	// fragmentPattern strips filename-hostile characters from the question.
	fragmentPattern = regexp.MustCompile(`[^\w\s-]`)
)

// keyTerms flags sentences worth surfacing as insights.
var keyTerms = []string{"significant", "important", "key", "critical", "major"}

// Writer renders and persists reports.
type Writer struct {
	Client model.Client
	Cache  *cache.Store
	Model  types.ModelConfig
	Config types.ReportConfig
}

// Write renders the report for a synthesis and persists it (R1.1). The body
// cache is keyed by the narrative, question, and report type (R2.1);
// metadata is always computed fresh (R3.1). A model failure degrades to the
// deterministic fallback body; only persistence failure is an error, returned
// as *PersistError (R5.3).
func (wr *Writer) Write(ctx context.Context, syn types.SynthesisResult, question string, tasks []types.Task, rtype types.ReportType, w io.Writer) (types.Report, error) {
	if !rtype.Valid() {
		return types.Report{}, fmt.Errorf("unknown report type %q", rtype)
	}

	key := cache.Key(clip(syn.Narrative, 1000) + question + string(rtype))

	var body string
	var cacheHit, degraded bool
	if cached, ok := wr.Cache.Get(cache.NamespaceReport, key); ok {
		fmt.Fprintf(w, "report: cache hit\n")
		body, cacheHit = cached, true
	} else {
		fmt.Fprintf(w, "report: generating %s report\n", rtype)
		body, degraded = wr.generateBody(ctx, syn.Narrative, question, rtype, w)
		if !degraded {
			if err := wr.Cache.Put(cache.NamespaceReport, key, body); err != nil {
				fmt.Fprintf(w, "warning: %v\n", err)
			}
		}
	}

	ts := now()
	content := frame(body, question, tasks, rtype, ts)
	meta := computeMetadata(body, len(tasks), ts)

	path := filepath.Join(wr.Config.ReportsDir, Filename(rtype, question, ts))
	if err := persist(path, content); err != nil {
		return types.Report{}, err
	}
	fmt.Fprintf(w, "report: saved %s\n", path)

	return types.Report{
		Type:     rtype,
		Path:     path,
		Content:  content,
		CacheHit: cacheHit,
		Degraded: degraded,
		Metadata: meta,
	}, nil
}

// generateBody runs the model path for the selected report type, degrading
// to the deterministic fallback on any generation failure (R4.1, R4.2).
func (wr *Writer) generateBody(ctx context.Context, narrative, question string, rtype types.ReportType, w io.Writer) (string, bool) {
	insights := extractInsights(narrative)

	tmpl := detailedPromptTmpl
	content := narrative
	if rtype == types.ReportExecutive {
		tmpl = executivePromptTmpl
		content = clip(narrative, 3000)
	}

	var buf strings.Builder
	err := tmpl.Execute(&buf, struct {
		Question string
		Insights string
		Content  string
	}{question, insights, content})
	if err != nil {
		return FallbackBody(question), true
	}

	body, err := wr.Client.Generate(ctx, buf.String(), model.GenParams{
		MaxTokens:   wr.Model.MaxOutputTokens,
		Temperature: wr.Model.Temperature,
	})
	if err != nil {
		fmt.Fprintf(w, "report: model failed, using fallback body: %v\n", err)
		return FallbackBody(question), true
	}
	return body, false
}

// extractInsights pulls standout sentences from the narrative: those with
// percentages, then those using emphasis vocabulary.
func extractInsights(narrative string) string {
	var insights []string
	seen := map[string]bool{}

	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] || len(insights) >= 5 {
			return
		}
		seen[s] = true
		insights = append(insights, s)
	}

	for _, m := range percentSentencePattern.FindAllString(narrative, 3) {
		add(m)
	}
	lower := strings.ToLower(narrative)
	for _, term := range keyTerms {
		idx := strings.Index(lower, term)
		if idx < 0 {
			continue
		}
		start := strings.LastIndex(narrative[:idx], ".") + 1
		end := strings.Index(narrative[idx:], ".")
		if end < 0 {
			end = len(narrative) - idx
		}
		add(narrative[start : idx+end])
	}

	if len(insights) == 0 {
		return "Research reveals important developments in this area"
	}
	return strings.Join(insights, "\n")
}

// FallbackBody is the deterministic report body used when the model cannot
// produce one. Same question always yields the same body (R4.3).
func FallbackBody(question string) string {
	return fmt.Sprintf(`## Executive Summary

This research analysis on %s reveals significant developments and important considerations for stakeholders. The synthesis of multiple research streams provides insights into current trends, challenges, and opportunities.

## Key Findings

The research identifies several critical developments that shape the current landscape. Evidence suggests substantial progress in addressing core challenges while new opportunities continue to emerge.

Analysis of the available evidence reveals consistent patterns across different aspects of the research topic. Stakeholders should note the convergence of evidence supporting key trends.

## Detailed Analysis

The analysis reveals a complex interplay of factors influencing current developments. Technical advancements have enabled new capabilities while introducing considerations around implementation and adoption.

## Recommendations

Stakeholders should prioritize understanding and adapting to identified trends. Continuous monitoring of developments will be essential as the pace of change remains significant.

## Conclusions

The research provides clear evidence of significant developments with important implications for stakeholders. While challenges remain, the overall trajectory suggests continued evolution and opportunity in this area.`, question)
}

// frame wraps the body with the document header, citations, and metadata
// footer.
func frame(body, question string, tasks []types.Task, rtype types.ReportType, ts time.Time) string {
	meta := computeMetadata(body, len(tasks), ts)

	var b strings.Builder
	fmt.Fprintf(&b, "# Research Report - %s\n", titleCase(string(rtype)))
	fmt.Fprintf(&b, "**Generated:** %s  \n", ts.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**Research Question:** %s  \n\n", question)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "## Report Information\n")
	fmt.Fprintf(&b, "- **Word Count:** %d words\n", meta.WordCount)
	fmt.Fprintf(&b, "- **Estimated Reading Time:** %d minutes\n", meta.ReadingMinutes)
	fmt.Fprintf(&b, "- **Research Tasks Completed:** %d\n\n", meta.CitationCount)
	b.WriteString("---\n\n")
	b.WriteString(body)
	b.WriteString("\n\n---\n\n## References\n\n")
	if len(tasks) == 0 {
		b.WriteString("*No research tasks cited*\n")
	}
	for i, task := range tasks {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, clip(string(task), 100))
	}
	return b.String()
}

// computeMetadata derives metadata from the body text. Reading time assumes
// 200 words per minute with a minimum of one minute (R3.2).
func computeMetadata(body string, citations int, ts time.Time) types.ReportMetadata {
	words := len(strings.Fields(body))
	minutes := words / 200
	if minutes < 1 {
		minutes = 1
	}
	return types.ReportMetadata{
		GeneratedAt:    ts,
		WordCount:      words,
		ReadingMinutes: minutes,
		CitationCount:  citations,
	}
}

// Filename builds the collision-resistant report filename: type, timestamp,
// and a sanitized fragment of the question (R5.1, R5.2).
func Filename(rtype types.ReportType, question string, ts time.Time) string {
	fragment := fragmentPattern.ReplaceAllString(question, "")
	fragment = strings.Join(strings.Fields(fragment), "_")
	if len(fragment) > 50 {
		fragment = fragment[:50]
	}
	return fmt.Sprintf("report_%s_%s_%s.md", rtype, ts.Format("20060102_150405"), fragment)
}

func persist(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &PersistError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return &PersistError{Path: path, Err: err}
	}
	return nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
