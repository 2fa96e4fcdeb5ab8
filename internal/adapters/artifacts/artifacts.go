// Package artifacts persists per-job retrieval responses to disk so that
// retrieval quality can be inspected after the fact.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
)

// Writer saves raw retrieval payloads under a single directory.
type Writer struct {
	dir string
}

// NewWriter creates the artifact directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		dir = "debug_logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// WriteRetrievalArtifact stores the raw retrieval response for one job.
// Repeated writes for the same job overwrite the previous artifact.
func (w *Writer) WriteRetrievalArtifact(jobID string, raw []byte) error {
	name := filepath.Join(w.dir, fmt.Sprintf("rag_result_%s.json", jobID))
	if err := os.WriteFile(name, raw, 0o644); err != nil {
		return fmt.Errorf("write retrieval artifact: %w", err)
	}
	return nil
}
