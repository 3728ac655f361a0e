package perception

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisibleTextSkipsNonVisible(t *testing.T) {
	text, err := VisibleText(`<html><head><title>t</title><style>.x{}</style></head>
		<body><h1>Search products</h1><script>var x = 1;</script>
		<button>Go to cart</button></body></html>`)
	require.NoError(t, err)

	assert.Contains(t, text, "Search products")
	assert.Contains(t, text, "Go to cart")
	assert.NotContains(t, text, "var x")
	assert.NotContains(t, text, ".x{}")
}

func TestExtractTextPrefersTxtSidecar(t *testing.T) {
	dir := t.TempDir()
	shot := filepath.Join(dir, "step_001.jpg")
	require.NoError(t, os.WriteFile(shot+".txt", []byte("Add to cart"), 0o644))
	require.NoError(t, os.WriteFile(shot+".html", []byte("<body>Back to results</body>"), 0o644))

	got := NewSidecarOCR(nil).ExtractText(shot)
	assert.Equal(t, "sidecar", got.Provider)
	assert.Equal(t, "Add to cart", got.Text)
}

func TestExtractTextFallsBackToHTML(t *testing.T) {
	dir := t.TempDir()
	shot := filepath.Join(dir, "step_002.jpg")
	require.NoError(t, os.WriteFile(shot+".html", []byte("<body><p>No results</p></body>"), 0o644))

	got := NewSidecarOCR(nil).ExtractText(shot)
	assert.Equal(t, "dom", got.Provider)
	assert.Equal(t, "No results", got.Text)
}

func TestExtractTextNoSidecar(t *testing.T) {
	got := NewSidecarOCR(nil).ExtractText(filepath.Join(t.TempDir(), "step_003.jpg"))
	assert.Equal(t, "none", got.Provider)
	assert.Empty(t, got.Text)
}
