// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synth combines all findings for a run into one narrative and
// extracts pattern signals by local text analysis.
// Implements: prd005-synthesis (R1-R4);
//
//	docs/ARCHITECTURE § Synthesis Stage.
package synth

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/pdiddy/deep-research/internal/cache"
	"github.com/pdiddy/deep-research/internal/model"
	"github.com/pdiddy/deep-research/pkg/types"
)

// synthesisPromptTmpl embeds every finding plus the extracted pattern context.
var synthesisPromptTmpl = template.Must(template.New("synthesis").Parse(`You are a senior research analyst creating an executive synthesis of multiple research findings.

CONTEXT:
{{.PatternContext}}Number of Findings: {{.Count}}

RESEARCH FINDINGS TO SYNTHESIZE:
{{.Findings}}

SYNTHESIS REQUIREMENTS:
Create a cohesive, flowing narrative that:

1. INTEGRATION: identify and connect common themes across all findings
2. KEY INSIGHTS: highlight the most significant discoveries
3. ANALYSIS: resolve contradictions and identify gaps needing further research
4. CONCLUSION: summarize the overall picture and point to future directions

FORMATTING GUIDELINES:
- Write 5-7 flowing paragraphs
- Use smooth transitions between ideas
- Avoid bullet points or lists
- Maintain professional, authoritative tone

YOUR SYNTHESIZED ANALYSIS:`))

var (
	// yearPattern matches four-digit years in the 2000s.
	yearPattern = regexp.MustCompile(`\b20\d{2}\b`)

	// numberPattern matches percentages and comma-grouped figures.
	numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?%|\d+(?:,\d{3})+|\d+(?:\.\d+)?`)
)

// topicKeywords is the vocabulary scanned for recurring topics.
var topicKeywords = []string{
	"technology", "development", "research", "implementation",
	"healthcare", "ai", "artificial intelligence", "machine learning",
	"data", "system", "improvement", "challenge", "benefit",
	"innovation", "digital", "transformation",
}

// maxNumbers bounds the numeric tokens carried into pattern context.
const maxNumbers = 10

// Synthesize combines findings into one narrative (R1.1). The synthesis
// cache is keyed by the hash of the concatenated finding texts (R2.1);
// patterns are cheap and re-derived on every call, cached or not (R3.3).
// On unusable model output the narrative degrades to a structured
// concatenation of the findings (R4.1). Only an unreachable model is an
// error (R4.2).
func Synthesize(ctx context.Context, client model.Client, store *cache.Store, findings []types.Finding, mcfg types.ModelConfig, w io.Writer) (types.SynthesisResult, error) {
	texts := make([]string, len(findings))
	for i, f := range findings {
		texts[i] = f.Text
	}

	patterns := ExtractPatterns(texts)

	key := cache.Key(strings.Join(texts, ""))
	if narrative, ok := store.Get(cache.NamespaceSynthesis, key); ok {
		fmt.Fprintf(w, "synthesis: cache hit\n")
		return types.SynthesisResult{Narrative: narrative, Patterns: patterns, CacheHit: true}, nil
	}

	fmt.Fprintf(w, "synthesis: combining %d findings\n", len(findings))
	prompt, err := renderPrompt(texts, patterns)
	if err != nil {
		return types.SynthesisResult{}, fmt.Errorf("rendering synthesis prompt: %w", err)
	}

	narrative, err := client.Generate(ctx, prompt, model.GenParams{
		MaxTokens:   mcfg.MaxOutputTokens,
		Temperature: mcfg.Temperature,
	})
	if err != nil {
		if !model.IsRecoverable(err) {
			return types.SynthesisResult{}, fmt.Errorf("synthesis: %w", err)
		}
		fmt.Fprintf(w, "synthesis: model output unusable, using concatenation fallback\n")
		return types.SynthesisResult{
			Narrative: FallbackNarrative(texts, patterns),
			Patterns:  patterns,
			Degraded:  true,
		}, nil
	}

	if err := store.Put(cache.NamespaceSynthesis, key, narrative); err != nil {
		fmt.Fprintf(w, "warning: %v\n", err)
	}

	return types.SynthesisResult{Narrative: narrative, Patterns: patterns}, nil
}

// ExtractPatterns derives topic, numeric, and year signals from finding
// texts. Pure local text analysis, reproducible without a model call
// (R3.1, R3.2).
func ExtractPatterns(texts []string) types.Patterns {
	combined := strings.ToLower(strings.Join(texts, " "))

	var p types.Patterns

	seenYears := map[string]bool{}
	for _, y := range yearPattern.FindAllString(combined, -1) {
		if !seenYears[y] {
			seenYears[y] = true
			p.Years = append(p.Years, y)
		}
	}
	sort.Strings(p.Years)

	seenNumbers := map[string]bool{}
	for _, n := range numberPattern.FindAllString(combined, -1) {
		if seenYears[n] || seenNumbers[n] {
			continue
		}
		seenNumbers[n] = true
		p.Numbers = append(p.Numbers, n)
		if len(p.Numbers) == maxNumbers {
			break
		}
	}

	for _, kw := range topicKeywords {
		if strings.Count(combined, kw) > 2 {
			p.Topics = append(p.Topics, kw)
		}
	}

	return p
}

// FallbackNarrative builds the degraded synthesis: the findings stitched
// together with pattern context, deterministic for a given input (R4.1).
func FallbackNarrative(texts []string, patterns types.Patterns) string {
	topics := "this area"
	if len(patterns.Topics) > 0 {
		n := len(patterns.Topics)
		if n > 3 {
			n = 3
		}
		topics = strings.Join(patterns.Topics[:n], ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The combined research findings reveal significant developments in %s. ", topics)
	b.WriteString("The synthesis below aggregates each research stream in order.\n")
	for i, text := range texts {
		fmt.Fprintf(&b, "\nFrom research stream %d: %s\n", i+1, text)
	}
	b.WriteString("\nTaken together, the findings indicate substantial progress alongside open challenges that require continued attention.")
	return b.String()
}

func renderPrompt(texts []string, patterns types.Patterns) (string, error) {
	var ctxLines strings.Builder
	if len(patterns.Topics) > 0 {
		n := len(patterns.Topics)
		if n > 5 {
			n = 5
		}
		fmt.Fprintf(&ctxLines, "Key Topics Identified: %s\n", strings.Join(patterns.Topics[:n], ", "))
	}
	if len(patterns.Years) > 0 {
		fmt.Fprintf(&ctxLines, "Time Period Focus: %s\n", strings.Join(patterns.Years, ", "))
	}

	blocks := make([]string, len(texts))
	for i, text := range texts {
		blocks[i] = fmt.Sprintf("=== FINDING %d ===\n%s", i+1, text)
	}

	var buf strings.Builder
	err := synthesisPromptTmpl.Execute(&buf, struct {
		PatternContext string
		Count          int
		Findings       string
	}{ctxLines.String(), len(texts), strings.Join(blocks, "\n\n")})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
