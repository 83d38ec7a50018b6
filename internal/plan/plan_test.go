// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package plan

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/deep-research/internal/cache"
	"github.com/pdiddy/deep-research/internal/model"
	"github.com/pdiddy/deep-research/pkg/types"
)

type stubClient struct {
	text string
	err  error
}

func (s *stubClient) Generate(ctx context.Context, prompt string, params model.GenParams) (string, error) {
	return s.text, s.err
}

func testConfigs() (types.PlanningConfig, types.ModelConfig) {
	return types.PlanningConfig{MinTasks: 2, MaxTasks: 5}, types.ModelConfig{MaxOutputTokens: 500, Temperature: 0.7}
}

func testStore(t *testing.T) *cache.Store {
	t.Helper()
	return cache.NewStore(types.CacheConfig{
		RootDir:     t.TempDir(),
		PlanningTTL: 24 * time.Hour,
	})
}

func TestParseTasks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []types.Task
	}{
		{
			name: "plain lines",
			text: "Investigate current AI diagnostic tools in hospitals\nAnalyze measurable benefits of AI diagnosis accuracy",
			want: []types.Task{
				"Investigate current AI diagnostic tools in hospitals",
				"Analyze measurable benefits of AI diagnosis accuracy",
			},
		},
		{
			name: "numbered and bulleted prefixes stripped",
			text: "1. Investigate current AI diagnostic tools in hospitals\n- Analyze measurable benefits of AI diagnosis accuracy\n• Examine documented concerns from healthcare professionals",
			want: []types.Task{
				"Investigate current AI diagnostic tools in hospitals",
				"Analyze measurable benefits of AI diagnosis accuracy",
				"Examine documented concerns from healthcare professionals",
			},
		},
		{
			name: "surrounding quotes stripped",
			text: `"Investigate current AI diagnostic tools in hospitals"`,
			want: []types.Task{"Investigate current AI diagnostic tools in hospitals"},
		},
		{
			name: "short fragments dropped",
			text: "too short\nResearch specific case studies of AI in radiology",
			want: []types.Task{"Research specific case studies of AI in radiology"},
		},
		{
			name: "meta lines dropped",
			text: "Task: here are the research tasks you asked for\nNote: these tasks cover all aspects of the question\nEvaluate upcoming AI healthcare technologies and impact",
			want: []types.Task{"Evaluate upcoming AI healthcare technologies and impact"},
		},
		{
			name: "header lines with trailing colon dropped",
			text: "The five research tasks are the following ones:\nEvaluate upcoming AI healthcare technologies and impact",
			want: []types.Task{"Evaluate upcoming AI healthcare technologies and impact"},
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTasks(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d tasks %v, want %d", len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("task %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFallbackTasksDeterministic(t *testing.T) {
	question := "How has artificial intelligence changed healthcare?"
	a := FallbackTasks(question, 5)
	b := FallbackTasks(question, 5)
	if len(a) != 5 {
		t.Fatalf("got %d tasks, want 5", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("task %d differs between calls: %q vs %q", i, a[i], b[i])
		}
	}
}

func TestFallbackTasksDomain(t *testing.T) {
	tests := []struct {
		question string
		domain   string
	}{
		{"How has AI changed software?", "AI technology"},
		{"Trends in medical imaging", "healthcare"},
		{"Remote education outcomes", "education"},
		{"Economic impact of remote work", "business"},
		{"Climate adaptation strategies", "environmental"},
		{"History of the printing press", "this topic"},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			tasks := FallbackTasks(tt.question, 5)
			if !strings.Contains(string(tasks[0]), tt.domain) {
				t.Errorf("first task %q does not mention domain %q", tasks[0], tt.domain)
			}
		})
	}
}

func TestFallbackTasksCap(t *testing.T) {
	tasks := FallbackTasks("any question at all", 3)
	if len(tasks) != 3 {
		t.Errorf("got %d tasks, want 3", len(tasks))
	}
}

func TestPlanUsesModelOutput(t *testing.T) {
	client := &stubClient{text: strings.Join([]string{
		"Investigate current AI diagnostic tools in hospitals",
		"Analyze measurable benefits of AI diagnosis accuracy",
		"Examine documented concerns from healthcare professionals",
	}, "\n")}
	pcfg, mcfg := testConfigs()

	tasks, fallback, err := Plan(context.Background(), client, testStore(t), "Impact of AI on healthcare", pcfg, mcfg, io.Discard)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if fallback {
		t.Error("fallback = true, want false")
	}
	if len(tasks) != 3 {
		t.Errorf("got %d tasks, want 3", len(tasks))
	}
}

func TestPlanFallsBackOnEmptyResponse(t *testing.T) {
	client := &stubClient{err: model.ErrEmptyResponse}
	pcfg, mcfg := testConfigs()

	tasks, fallback, err := Plan(context.Background(), client, testStore(t), "Impact of AI on healthcare", pcfg, mcfg, io.Discard)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !fallback {
		t.Error("fallback = false, want true")
	}
	if len(tasks) < pcfg.MinTasks || len(tasks) > pcfg.MaxTasks {
		t.Errorf("fallback produced %d tasks, want within [%d, %d]", len(tasks), pcfg.MinTasks, pcfg.MaxTasks)
	}
}

func TestPlanFallsBackOnTooFewTasks(t *testing.T) {
	client := &stubClient{text: "Investigate current AI diagnostic tools in hospitals"}
	pcfg, mcfg := testConfigs()

	tasks, fallback, err := Plan(context.Background(), client, testStore(t), "Impact of AI on healthcare", pcfg, mcfg, io.Discard)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !fallback {
		t.Error("fallback = false, want true")
	}
	if len(tasks) < pcfg.MinTasks {
		t.Errorf("got %d tasks, want at least %d", len(tasks), pcfg.MinTasks)
	}
}

func TestPlanCapsAtMaxTasks(t *testing.T) {
	var lines []string
	for i := 0; i < 8; i++ {
		lines = append(lines, "Investigate one more distinct angle of the question number "+strings.Repeat("x", i+1))
	}
	client := &stubClient{text: strings.Join(lines, "\n")}
	pcfg, mcfg := testConfigs()

	tasks, _, err := Plan(context.Background(), client, testStore(t), "Impact of AI on healthcare", pcfg, mcfg, io.Discard)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(tasks) != pcfg.MaxTasks {
		t.Errorf("got %d tasks, want %d", len(tasks), pcfg.MaxTasks)
	}
}

func TestPlanServesFromCache(t *testing.T) {
	client := &stubClient{text: strings.Join([]string{
		"Investigate current AI diagnostic tools in hospitals",
		"Analyze measurable benefits of AI diagnosis accuracy",
	}, "\n")}
	store := testStore(t)
	pcfg, mcfg := testConfigs()
	question := "Impact of AI on healthcare"

	first, _, err := Plan(context.Background(), client, store, question, pcfg, mcfg, io.Discard)
	if err != nil {
		t.Fatal(err)
	}

	// A model outage on the second call must not matter: the decomposition
	// comes from the cache.
	client.err = model.ErrUnavailable
	client.text = ""
	second, fallback, err := Plan(context.Background(), client, store, question, pcfg, mcfg, io.Discard)
	if err != nil {
		t.Fatalf("Plan with warm cache: %v", err)
	}
	if fallback {
		t.Error("cached plan should not be marked as fallback")
	}
	if len(second) != len(first) {
		t.Fatalf("got %d cached tasks, want %d", len(second), len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("task %d = %q, want %q", i, second[i], first[i])
		}
	}
}

func TestPlanFallbackIsNotCached(t *testing.T) {
	client := &stubClient{err: model.ErrEmptyResponse}
	store := testStore(t)
	pcfg, mcfg := testConfigs()

	if _, _, err := Plan(context.Background(), client, store, "Impact of AI on healthcare", pcfg, mcfg, io.Discard); err != nil {
		t.Fatal(err)
	}
	if counts := store.Stats(); counts[cache.NamespacePlanning] != 0 {
		t.Error("fallback decomposition must not be cached")
	}
}

func TestPlanFatalOnUnavailable(t *testing.T) {
	client := &stubClient{err: model.ErrUnavailable}
	pcfg, mcfg := testConfigs()

	_, _, err := Plan(context.Background(), client, testStore(t), "Impact of AI on healthcare", pcfg, mcfg, io.Discard)
	if !errors.Is(err, model.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}
