package seed

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rs/zerolog"

	"github.com/yigit/transcriptgpa/internal/domain/transcript"
)

type memoryStore struct {
	reqs  []transcript.PrerequisiteRequirement
	calls int
}

func (m *memoryStore) ReplaceAll(_ context.Context, reqs []transcript.PrerequisiteRequirement) error {
	m.reqs = reqs
	m.calls++
	return nil
}

func repoFile(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime.Caller failed")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", rel)
}

func TestShippedCatalog(t *testing.T) {
	reqs, err := LoadCatalogFile(repoFile(t, "configs/prerequisites.yaml"))
	if err != nil {
		t.Fatalf("LoadCatalogFile: %v", err)
	}
	if len(reqs) != 7 {
		t.Fatalf("catalog size: want=7 got=%d", len(reqs))
	}
	if reqs[0].Name != "Anatomy & Physiology I" || reqs[6].Name != "Human Growth & Development" {
		t.Fatalf("catalog order: got first=%q last=%q", reqs[0].Name, reqs[6].Name)
	}
}

func TestParseCatalogErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "prerequisites: []\n"},
		{"duplicate", "prerequisites:\n  - {id: a, name: A}\n  - {id: a, name: B}\n"},
		{"missing id", "prerequisites:\n  - {name: A}\n"},
		{"negative credits", "prerequisites:\n  - {id: a, name: A, credits: -3}\n"},
		{"not yaml", "prerequisites: [\n"},
	}
	for _, tc := range tests {
		if _, err := ParseCatalog([]byte(tc.yaml)); err == nil {
			t.Fatalf("%s: want error", tc.name)
		}
	}
}

func TestParseCatalogCanonicalizesCodes(t *testing.T) {
	reqs, err := ParseCatalog([]byte("prerequisites:\n  - {id: stats, name: Statistics, code: ' math  163 '}\n"))
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	if reqs[0].Code != "MATH 163" {
		t.Fatalf("code: want=%q got=%q", "MATH 163", reqs[0].Code)
	}
}

func TestSyncCatalogMissingFileKeepsStore(t *testing.T) {
	store := &memoryStore{}
	err := SyncCatalog(context.Background(), store, filepath.Join(t.TempDir(), "missing.yaml"), zerolog.Nop())
	if err != nil {
		t.Fatalf("SyncCatalog: %v", err)
	}
	if store.calls != 0 {
		t.Fatalf("store calls: want=0 got=%d", store.calls)
	}
}

func TestSyncCatalogWritesStore(t *testing.T) {
	store := &memoryStore{}
	if err := SyncCatalog(context.Background(), store, repoFile(t, "configs/prerequisites.yaml"), zerolog.Nop()); err != nil {
		t.Fatalf("SyncCatalog: %v", err)
	}
	if store.calls != 1 || len(store.reqs) != 7 {
		t.Fatalf("store: want=1 call/7 reqs got=%d/%d", store.calls, len(store.reqs))
	}
}
