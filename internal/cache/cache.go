// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache is a content-addressed, TTL-scoped key/value store backed by
// one file per entry. Each pipeline stage uses its own namespace with its own
// freshness window.
// Implements: prd001-cache (R1-R5);
//
//	docs/ARCHITECTURE § Cache Store.
package cache

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/deep-research/pkg/types"
)

// Namespace is a logical partition of the store with its own TTL policy.
type Namespace string

const (
	NamespacePlanning  Namespace = "planning"
	NamespaceResearch  Namespace = "research"
	NamespaceSynthesis Namespace = "synthesis"
	NamespaceReport    Namespace = "report"
)

// Namespaces lists all partitions in pipeline order.
var Namespaces = []Namespace{NamespacePlanning, NamespaceResearch, NamespaceSynthesis, NamespaceReport}

// Store reads and writes cache entries under a root directory. Entries are
// raw text blobs; expiry is based on file modification time (R4.2).
type Store struct {
	root string
	ttls map[Namespace]time.Duration
}

// NewStore builds a Store from cache configuration. Directories are created
// lazily on first Put.
func NewStore(cfg types.CacheConfig) *Store {
	return &Store{
		root: cfg.RootDir,
		ttls: map[Namespace]time.Duration{
			NamespacePlanning:  cfg.PlanningTTL,
			NamespaceResearch:  cfg.ResearchTTL,
			NamespaceSynthesis: cfg.SynthesisTTL,
			NamespaceReport:    cfg.ReportTTL,
		},
	}
}

// Key derives the cache key for input text: SHA-256 of the whitespace-
// collapsed, lowercased input, so semantically identical requests collide
// (R2.1, R2.2).
func Key(text string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	return fmt.Sprintf("%x", sha256.Sum256([]byte(normalized)))
}

// Get returns the entry for key in ns, or miss. An entry older than the
// namespace TTL is a miss regardless of file presence; the stale file is
// removed best-effort (R3.1, R3.2). Unreadable entries are a miss and are
// purged (R3.3).
func (s *Store) Get(ns Namespace, key string) (string, bool) {
	path := s.entryPath(ns, key)

	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}

	if ttl := s.ttls[ns]; ttl > 0 && time.Since(info.ModTime()) > ttl {
		_ = os.Remove(path)
		return "", false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		_ = os.Remove(path)
		return "", false
	}

	return string(data), true
}

// Put stores text under key in ns. The write is atomic with respect to a
// crash: content lands in a temp file first and is renamed into place, so a
// partial entry is never visible at the canonical path (R5.1). Failures are
// returned for the caller to log; they never abort the pipeline (R5.2).
func (s *Store) Put(ns Namespace, key, text string) error {
	dir := filepath.Join(s.root, string(ns))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache namespace %s: %w", ns, err)
	}
	if err := writeFileAtomic(s.entryPath(ns, key), []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing cache entry %s/%s: %w", ns, key[:12], err)
	}
	return nil
}

// Stats counts live (non-expired) entries per namespace.
func (s *Store) Stats() map[Namespace]int {
	counts := make(map[Namespace]int, len(Namespaces))
	for _, ns := range Namespaces {
		entries, err := os.ReadDir(filepath.Join(s.root, string(ns)))
		if err != nil {
			continue
		}
		ttl := s.ttls[ns]
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if ttl > 0 {
				info, err := e.Info()
				if err != nil || time.Since(info.ModTime()) > ttl {
					continue
				}
			}
			counts[ns]++
		}
	}
	return counts
}

// Purge removes all entries in ns and returns the number removed.
func (s *Store) Purge(ns Namespace) (int, error) {
	dir := filepath.Join(s.root, string(ns))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading cache namespace %s: %w", ns, err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return removed, fmt.Errorf("purging %s/%s: %w", ns, e.Name(), err)
		}
		removed++
	}
	return removed, nil
}

// entryPath returns the file path for a cache entry.
func (s *Store) entryPath(ns Namespace, key string) string {
	return filepath.Join(s.root, string(ns), key+".txt")
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
