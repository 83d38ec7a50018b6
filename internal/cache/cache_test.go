package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/deep-research/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(types.CacheConfig{
		RootDir:      t.TempDir(),
		PlanningTTL:  24 * time.Hour,
		ResearchTTL:  24 * time.Hour,
		SynthesisTTL: 48 * time.Hour,
		ReportTTL:    72 * time.Hour,
	})
}

func TestKeyNormalization(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{"identical", "impact of X", "impact of X", true},
		{"case folded", "Impact of X", "impact of x", true},
		{"whitespace collapsed", "impact   of\n X ", "impact of X", true},
		{"different text", "impact of X", "impact of Y", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka, kb := Key(tt.a), Key(tt.b)
			if (ka == kb) != tt.same {
				t.Errorf("Key(%q) == Key(%q) is %v, want %v", tt.a, tt.b, ka == kb, tt.same)
			}
		})
	}
}

func TestKeyLength(t *testing.T) {
	if got := len(Key("anything")); got != 64 {
		t.Errorf("key length = %d, want 64 hex chars", got)
	}
}

func TestRoundTrip(t *testing.T) {
	s := testStore(t)
	key := Key("research task one")

	if _, ok := s.Get(NamespaceResearch, key); ok {
		t.Fatal("expected miss before put")
	}

	if err := s.Put(NamespaceResearch, key, "some findings"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := s.Get(NamespaceResearch, key)
	if !ok {
		t.Fatal("expected hit after put")
	}
	if got != "some findings" {
		t.Errorf("got %q, want %q", got, "some findings")
	}
}

func TestNamespacesAreIndependent(t *testing.T) {
	s := testStore(t)
	key := Key("same input")

	if err := s.Put(NamespaceResearch, key, "research text"); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.Get(NamespaceSynthesis, key); ok {
		t.Error("entry in research namespace should not hit in synthesis")
	}

	if err := s.Put(NamespaceSynthesis, key, "synthesis text"); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get(NamespaceResearch, key)
	if got != "research text" {
		t.Errorf("research entry = %q, want %q", got, "research text")
	}
}

func TestTTLBoundary(t *testing.T) {
	s := testStore(t)
	key := Key("boundary task")
	if err := s.Put(NamespaceResearch, key, "findings"); err != nil {
		t.Fatal(err)
	}
	path := s.entryPath(NamespaceResearch, key)

	// Just inside the window: hit.
	almost := time.Now().Add(-24*time.Hour + time.Minute)
	if err := os.Chtimes(path, almost, almost); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Get(NamespaceResearch, key); !ok {
		t.Error("entry just inside TTL should be a hit")
	}

	// Just past the window: miss.
	past := time.Now().Add(-24*time.Hour - time.Minute)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Get(NamespaceResearch, key); ok {
		t.Error("entry past TTL should be a miss")
	}
}

func TestExpiredEntryIsRemoved(t *testing.T) {
	s := testStore(t)
	key := Key("stale task")
	if err := s.Put(NamespaceResearch, key, "stale"); err != nil {
		t.Fatal(err)
	}
	path := s.entryPath(NamespaceResearch, key)
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatal(err)
	}

	s.Get(NamespaceResearch, key)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("stale entry should be lazily deleted on Get")
	}
}

func TestUnreadableEntryIsAMiss(t *testing.T) {
	s := testStore(t)
	key := Key("corrupt task")

	// An entry whose path is a directory cannot be read as a file.
	path := s.entryPath(NamespaceResearch, key)
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.Get(NamespaceResearch, key); ok {
		t.Error("unreadable entry should be a miss")
	}
}

func TestPutOverwrites(t *testing.T) {
	s := testStore(t)
	key := Key("task")
	if err := s.Put(NamespaceReport, key, "first"); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(NamespaceReport, key, "second"); err != nil {
		t.Fatal(err)
	}
	got, ok := s.Get(NamespaceReport, key)
	if !ok || got != "second" {
		t.Errorf("got (%q, %v), want (%q, true)", got, ok, "second")
	}
}

func TestPutLeavesNoTempFiles(t *testing.T) {
	s := testStore(t)
	key := Key("task")
	if err := s.Put(NamespaceResearch, key, "text"); err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(s.root, string(NamespaceResearch))
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp.") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("got %d entries, want 1", len(entries))
	}
}

func TestStatsAndPurge(t *testing.T) {
	s := testStore(t)
	for i, text := range []string{"a", "b", "c"} {
		if err := s.Put(NamespaceResearch, Key(text), text); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}
	if err := s.Put(NamespaceSynthesis, Key("s"), "s"); err != nil {
		t.Fatal(err)
	}

	// Expire one research entry; Stats should not count it.
	stalePath := s.entryPath(NamespaceResearch, Key("a"))
	past := time.Now().Add(-25 * time.Hour)
	if err := os.Chtimes(stalePath, past, past); err != nil {
		t.Fatal(err)
	}

	counts := s.Stats()
	if counts[NamespaceResearch] != 2 {
		t.Errorf("research count = %d, want 2", counts[NamespaceResearch])
	}
	if counts[NamespaceSynthesis] != 1 {
		t.Errorf("synthesis count = %d, want 1", counts[NamespaceSynthesis])
	}

	removed, err := s.Purge(NamespaceResearch)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if removed != 3 {
		t.Errorf("purged %d, want 3 (stale entry included)", removed)
	}
	if _, ok := s.Get(NamespaceResearch, Key("b")); ok {
		t.Error("expected miss after purge")
	}
}

func TestPurgeMissingNamespace(t *testing.T) {
	s := testStore(t)
	removed, err := s.Purge(NamespaceReport)
	if err != nil {
		t.Fatalf("Purge on missing dir: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
}
