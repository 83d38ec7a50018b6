// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deep-research/pkg/types"
)

// SessionEntry is one completed run in a session's history.
type SessionEntry struct {
	Timestamp  time.Time     `yaml:"timestamp"`
	Question   string        `yaml:"question"`
	ReportPath string        `yaml:"report_path"`
	Duration   time.Duration `yaml:"duration"`
}

// Session accumulates run history for one interactive session and persists
// it on request. Per prd007-pipeline R5.2.
type Session struct {
	ID      string         `yaml:"id"`
	Started time.Time      `yaml:"started"`
	Entries []SessionEntry `yaml:"entries"`
}

// NewSession starts an empty session with a timestamp-derived ID.
func NewSession() *Session {
	started := time.Now()
	return &Session{
		ID:      started.Format("20060102_150405"),
		Started: started,
	}
}

// Record appends a completed run to the session history.
func (s *Session) Record(summary *types.RunSummary) {
	s.Entries = append(s.Entries, SessionEntry{
		Timestamp:  summary.StartedAt,
		Question:   summary.Question,
		ReportPath: summary.ReportPath,
		Duration:   summary.Duration,
	})
}

// Save writes the session history to session_<id>.yaml under dir. A session
// with no entries is not written.
func (s *Session) Save(dir string) (string, error) {
	if len(s.Entries) == 0 {
		return "", nil
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encoding session %s: %w", s.ID, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating session directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("session_%s.yaml", s.ID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing session %s: %w", s.ID, err)
	}
	return path, nil
}
