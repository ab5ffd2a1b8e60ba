package docutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/pawcare/internal/pkg/pawcare/docutil"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFindFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.txt"), "b")
	writeFile(t, filepath.Join(dir, "a.PDF"), "a")
	writeFile(t, filepath.Join(dir, "nested", "c.md"), "c")
	writeFile(t, filepath.Join(dir, "skip.go"), "package x")

	files, err := docutil.FindFiles(dir, []string{".pdf", ".txt", ".md"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.PDF"),
		filepath.Join(dir, "b.txt"),
		filepath.Join(dir, "nested", "c.md"),
	}, files)
}

func TestFindFiles_MissingDir(t *testing.T) {
	_, err := docutil.FindFiles(filepath.Join(t.TempDir(), "missing"), []string{".pdf"})
	assert.Error(t, err)
}

func TestDirExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	writeFile(t, file, "x")

	assert.True(t, docutil.DirExists(dir))
	assert.False(t, docutil.DirExists(file))
	assert.False(t, docutil.DirExists(filepath.Join(dir, "none")))
}

func TestSupported(t *testing.T) {
	assert.True(t, docutil.Supported("guide.pdf"))
	assert.True(t, docutil.Supported("NOTES.MD"))
	assert.True(t, docutil.Supported("a.txt"))
	assert.False(t, docutil.Supported("image.png"))
}

func TestExtractText_Plain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fleas.txt")
	writeFile(t, path, "Treat fleas monthly.")

	text, err := docutil.ExtractText(path)
	require.NoError(t, err)
	assert.Equal(t, "Treat fleas monthly.", text)
}

func TestExtractText_Unsupported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	writeFile(t, path, "png")

	_, err := docutil.ExtractText(path)
	assert.Error(t, err)
}

func TestExtractText_CorruptPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pdf")
	writeFile(t, path, "this is not a pdf")

	_, err := docutil.ExtractText(path)
	assert.Error(t, err)
}
