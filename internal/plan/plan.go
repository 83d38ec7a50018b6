// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package plan decomposes a research question into an ordered list of
// sub-tasks. A deterministic fallback decomposition guarantees the stage
// never fails the run on unusable model output.
// Implements: prd003-planning (R1-R4);
//
//	docs/ARCHITECTURE § Planning Stage.
package plan

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/pdiddy/deep-research/internal/cache"
	"github.com/pdiddy/deep-research/internal/model"
	"github.com/pdiddy/deep-research/pkg/types"
)

// planPromptTmpl is the prompt template for question decomposition. It asks
// for one task per line without prefixes so parsing stays line-oriented.
var planPromptTmpl = template.Must(template.New("plan").Parse(`You are an expert research planner. Your task is to break down complex research questions into specific, actionable research tasks.

RESEARCH QUESTION:
{{.Question}}

YOUR TASK:
Break this down into exactly {{.MaxTasks}} specific research tasks that comprehensively cover all aspects of the question.

REQUIREMENTS:
1. Each task must be specific and actionable
2. Tasks should cover different aspects of the main question
3. Write one task per line
4. Do NOT use numbers, bullets, or any prefixes
5. Each task should be a complete sentence describing what to research
6. Cover: current state, benefits, challenges, real examples, and future implications

NOW PROVIDE {{.MaxTasks}} RESEARCH TASKS FOR THE GIVEN QUESTION:`))

// taskPrefixCutset covers numbering, bullets, and decoration the model may
// prepend despite the prompt.
const taskPrefixCutset = "0123456789.-•*†‡§¶#) "

// minTaskLength filters out fragments and stray header lines.
const minTaskLength = 20

// skipPhrases marks lines that are meta text rather than tasks.
var skipPhrases = []string{"task:", "research:", "example:", "note:", "requirement:"}

// Plan decomposes question into between cfg.MinTasks and cfg.MaxTasks ordered
// sub-tasks. A fresh decomposition for the same question is served from the
// planning cache, keyed by the question text (R1.2). Otherwise the model
// path is tried first; on unusable output the deterministic fallback is
// substituted (R2.1). Plan fails only when the model is unreachable (R2.2).
func Plan(ctx context.Context, client model.Client, store *cache.Store, question string, cfg types.PlanningConfig, mcfg types.ModelConfig, w io.Writer) ([]types.Task, bool, error) {
	key := cache.Key(question)
	if text, ok := store.Get(cache.NamespacePlanning, key); ok {
		tasks := decodeTasks(text)
		if len(tasks) >= cfg.MinTasks {
			fmt.Fprintf(w, "planning: cache hit, %d tasks\n", len(tasks))
			return tasks, false, nil
		}
	}

	fmt.Fprintf(w, "planning: decomposing question\n")

	prompt, err := renderPrompt(question, cfg.MaxTasks)
	if err != nil {
		return nil, false, fmt.Errorf("rendering planning prompt: %w", err)
	}

	text, err := client.Generate(ctx, prompt, model.GenParams{
		MaxTokens:   mcfg.MaxOutputTokens,
		Temperature: mcfg.Temperature,
	})
	if err != nil {
		if !model.IsRecoverable(err) {
			return nil, false, fmt.Errorf("planning: %w", err)
		}
		fmt.Fprintf(w, "planning: model output unusable, using fallback decomposition\n")
		return FallbackTasks(question, cfg.MaxTasks), true, nil
	}

	tasks := ParseTasks(text)
	if len(tasks) < cfg.MinTasks {
		fmt.Fprintf(w, "planning: parsed %d tasks, below minimum %d, using fallback decomposition\n", len(tasks), cfg.MinTasks)
		return FallbackTasks(question, cfg.MaxTasks), true, nil
	}

	if len(tasks) > cfg.MaxTasks {
		tasks = tasks[:cfg.MaxTasks]
	}
	if err := store.Put(cache.NamespacePlanning, key, encodeTasks(tasks)); err != nil {
		fmt.Fprintf(w, "warning: %v\n", err)
	}
	fmt.Fprintf(w, "planning: %d tasks\n", len(tasks))
	return tasks, false, nil
}

// encodeTasks serializes a decomposition for the planning cache, one task
// per line. Task text never contains newlines after parsing.
func encodeTasks(tasks []types.Task) string {
	lines := make([]string, len(tasks))
	for i, t := range tasks {
		lines[i] = string(t)
	}
	return strings.Join(lines, "\n")
}

func decodeTasks(text string) []types.Task {
	var tasks []types.Task
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			tasks = append(tasks, types.Task(line))
		}
	}
	return tasks
}

func renderPrompt(question string, maxTasks int) (string, error) {
	var buf strings.Builder
	err := planPromptTmpl.Execute(&buf, struct {
		Question string
		MaxTasks int
	}{question, maxTasks})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ParseTasks turns raw model output into clean task strings, one per line.
// Numbering, bullets, and surrounding quotes are stripped; short fragments,
// meta lines, and bare headers (trailing colon) are discarded (R3.1-R3.4).
func ParseTasks(text string) []types.Task {
	var tasks []types.Task
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		task := strings.TrimSpace(line)
		task = strings.TrimSpace(strings.TrimLeft(task, taskPrefixCutset))
		task = strings.Trim(task, `"'`)

		if len(task) < minTaskLength {
			continue
		}

		head := strings.ToLower(task)
		if len(head) > 15 {
			head = head[:15]
		}
		meta := false
		for _, phrase := range skipPhrases {
			if strings.Contains(head, phrase) {
				meta = true
				break
			}
		}
		if meta || strings.HasSuffix(task, ":") {
			continue
		}

		tasks = append(tasks, types.Task(task))
	}
	return tasks
}

// fallbackDomains maps question keywords to a focus area used in the fallback
// templates. Checked in order; first match wins.
var fallbackDomains = []struct {
	keywords []string
	domain   string
}{
	{[]string{"ai", "artificial intelligence"}, "AI technology"},
	{[]string{"health", "medical"}, "healthcare"},
	{[]string{"education"}, "education"},
	{[]string{"business", "economic"}, "business"},
	{[]string{"environment", "climate"}, "environmental"},
}

// FallbackTasks builds the deterministic fallback decomposition for a
// question. Same question always yields the same tasks (R4.1). The list is
// capped at maxTasks (R4.2).
func FallbackTasks(question string, maxTasks int) []types.Task {
	domain := "this topic"
	lower := strings.ToLower(question)
	for _, d := range fallbackDomains {
		for _, kw := range d.keywords {
			if strings.Contains(lower, kw) {
				domain = d.domain
				break
			}
		}
		if domain != "this topic" {
			break
		}
	}

	tasks := []types.Task{
		types.Task(fmt.Sprintf("Investigate the current state and latest developments in %s related to %s", domain, truncate(question, 40))),
		types.Task(fmt.Sprintf("Analyze the key benefits and positive outcomes of %s", truncate(question, 50))),
		types.Task(fmt.Sprintf("Examine the main challenges, risks, and concerns regarding %s", truncate(question, 40))),
		types.Task(fmt.Sprintf("Research real-world implementations and case studies of %s", truncate(question, 40))),
		types.Task(fmt.Sprintf("Evaluate future trends and potential implications of %s", truncate(question, 40))),
	}
	if maxTasks > 0 && len(tasks) > maxTasks {
		tasks = tasks[:maxTasks]
	}
	return tasks
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
