package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const rawPackage = `{"qtiitems":{
  "pkg/a.xml":{"item":{"reference":"A"},"questions":[{"reference":"q1","type":"mcq"}],"features":[],"manifest":[],"assumptions":[]},
  "pkg/bad.xml":{"exception":"bad.xml-boom"},
  "pkg/A_rubric":{"item":{"reference":"A_rubric"},"questions":[],"features":[{"reference":"f1","type":"sharedpassage","data":{"content":"<p>x & y</p>"}}],"manifest":[],"assumptions":[]}
}}`

func TestExecute(t *testing.T) {
	out := t.TempDir()
	rawDir := filepath.Join(out, "raw")
	finalDir := filepath.Join(out, "final")
	require.NoError(t, os.MkdirAll(rawDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(rawDir, "pkg.json"), []byte(rawPackage), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(rawDir, "notes.txt"), []byte("ignored"), 0o644))

	files, err := Execute(rawDir, finalDir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, File{Path: filepath.Join(finalDir, "pkg.json"), Items: 2, Questions: 1, Features: 1}, files[0])

	data, err := os.ReadFile(files[0].Path)
	require.NoError(t, err)
	assert.Equal(t, `["A","A_rubric"]`, gjson.GetBytes(data, "items.#.reference").Raw)
	assert.Equal(t, "mcq", gjson.GetBytes(data, "questions.0.type").String())
	assert.Contains(t, string(data), "<p>x & y</p>", "HTML is not escaped")
}

func TestExecute_EmptyRawDir(t *testing.T) {
	out := t.TempDir()
	files, err := Execute(filepath.Join(out, "raw"), filepath.Join(out, "final"))
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.DirExists(t, filepath.Join(out, "final"))
}

func TestExecute_InvalidJSON(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "broken.json"), []byte("{"), 0o644))

	_, err := Execute(out, filepath.Join(out, "final"))
	assert.Error(t, err)
}
