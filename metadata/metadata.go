// Package metadata persists per-model constraints discovered at runtime —
// currently just a "single tool-call only" limit some providers report via
// an error string instead of any structured capability field — so later
// sessions apply the constraint proactively instead of rediscovering it
// from a failed request.
package metadata

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const metadataFileName = "model_metadata.json"

// singleToolCallMarker is the substring providers emit when a model
// rejects a multi-tool-call batch.
const singleToolCallMarker = "only supports single tool-calls"

// ModelConstraint is one model's recorded capability limit.
type ModelConstraint struct {
	MaxParallelTools int       `json:"max_parallel_tools"`
	DetectedAt       time.Time `json:"detected_at"`
}

// Store is a small JSON-file-backed keyed cache of ModelConstraint, keyed by
// model id.
type Store struct {
	mu      sync.Mutex
	path    string
	entries map[string]ModelConstraint
}

// Open loads (or initializes) the store at dataDir/model_metadata.json. A
// missing or unparsable file is treated as an empty store rather than an
// error, matching the original's own tolerant load behavior.
func Open(dataDir string) *Store {
	s := &Store{path: filepath.Join(dataDir, metadataFileName), entries: map[string]ModelConstraint{}}
	s.load()
	return s
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read model metadata file", "path", s.path, "error", err)
		}
		return
	}
	var entries map[string]ModelConstraint
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Warn("failed to parse model metadata file", "path", s.path, "error", err)
		return
	}
	s.entries = entries
	slog.Info("loaded model metadata", "path", s.path, "models", len(entries))
}

func (s *Store) save() {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		slog.Error("failed to create model metadata directory", "path", s.path, "error", err)
		return
	}
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		slog.Error("failed to marshal model metadata", "error", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		slog.Error("failed to write model metadata file", "path", s.path, "error", err)
		return
	}
	slog.Info("saved model metadata", "path", s.path)
}

// MaxParallelTools returns the recorded limit for model, and whether one
// was recorded at all.
func (s *Store) MaxParallelTools(model string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.entries[model]
	if !ok {
		return 0, false
	}
	return c.MaxParallelTools, true
}

// SetMaxParallelTools records limit for model and persists immediately.
func (s *Store) SetMaxParallelTools(model string, limit int) {
	s.mu.Lock()
	s.entries[model] = ModelConstraint{MaxParallelTools: limit, DetectedAt: time.Now()}
	s.mu.Unlock()
	s.save()
	slog.Info("recorded model constraint", "model", model, "max_parallel_tools", limit)
}

// DetectAndSave scans errMessage for a known constraint marker and, if
// found, records max_parallel_tools=1 for model. Reports whether a
// constraint was detected.
func (s *Store) DetectAndSave(model, errMessage string) bool {
	if !strings.Contains(strings.ToLower(errMessage), singleToolCallMarker) {
		return false
	}
	slog.Warn("detected single tool-call constraint", "model", model)
	s.SetMaxParallelTools(model, 1)
	return true
}
