package artifacts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRetrievalArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "debug")
	w, err := NewWriter(dir)
	require.NoError(t, err)

	require.NoError(t, w.WriteRetrievalArtifact("4021337", []byte(`{"answer": "a"}`)))

	got, err := os.ReadFile(filepath.Join(dir, "rag_result_4021337.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer": "a"}`, string(got))

	// second write replaces the first
	require.NoError(t, w.WriteRetrievalArtifact("4021337", []byte(`{"answer": "b"}`)))
	got, err = os.ReadFile(filepath.Join(dir, "rag_result_4021337.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer": "b"}`, string(got))
}
