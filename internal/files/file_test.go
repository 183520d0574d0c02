package files

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/VictoriaMetrics/metrics"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterPublishesOnClose(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "a", "b", "out.bin")

	w := NewWriter(dst)
	_, err := w.Write([]byte("hello"))
	require.NoError(t, err)
	assert.NoFileExists(t, dst)

	require.NoError(t, w.Close())
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	entries, err := os.ReadDir(filepath.Dir(dst))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = w.Write([]byte("x"))
	assert.ErrorContains(t, err, "already closed")
}

func TestWriterCleanupKeepsOldContent(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.bin")
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o644))

	w := NewWriter(dst)
	_, err := w.Write([]byte("new"))
	require.NoError(t, err)
	w.Cleanup()
	w.Cleanup()

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))
	entries, err := os.ReadDir(filepath.Dir(dst))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFileFillError(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.bin")
	boom := errors.New("boom")
	err := WriteFile(dst, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoFileExists(t, dst)
}

func TestOutputPath(t *testing.T) {
	o := Output{Dir: "out"}
	assert.Equal(t, filepath.Join("out", "com", "example", "User.pgc"), o.Path("com.example.User"))
	assert.Equal(t, filepath.Join("out", "com", "example", "User$$Creator.pgc"), o.Path("com.example.User$$Creator"))
	assert.Equal(t, filepath.Join("out", "Top.pgc"), o.Path("Top"))
}

func TestOutputWriteClasses(t *testing.T) {
	o := Output{Dir: t.TempDir()}
	paths, err := o.WriteClasses([]Class{
		{Name: "com.example.User", Content: []byte{1, 2, 3}},
		{Name: "com.example.User$$Creator", Content: []byte{4}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{o.Path("com.example.User"), o.Path("com.example.User$$Creator")}, paths)

	got, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)
	got, err = os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, []byte{4}, got)
}

func TestOutputWriteClassesAllOrNothing(t *testing.T) {
	o := Output{Dir: t.TempDir()}

	// A non-empty directory where the factory belongs makes its rename fail
	// after the patched class was already published.
	blocked := o.Path("com.example.User$$Creator")
	require.NoError(t, os.MkdirAll(blocked, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(blocked, "keep"), nil, 0o644))

	paths, err := o.WriteClasses([]Class{
		{Name: "com.example.User", Content: []byte{1}},
		{Name: "com.example.User$$Creator", Content: []byte{2}},
	})
	assert.Error(t, err)
	assert.Nil(t, paths)
	assert.NoFileExists(t, o.Path("com.example.User"))

	entries, err := os.ReadDir(filepath.Dir(blocked))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files left behind")
}

func TestWriteJSONAndMetrics(t *testing.T) {
	dir := t.TempDir()

	type entry struct {
		Class  string `json:"class"`
		Status string `json:"status"`
	}
	report := filepath.Join(dir, "report.json")
	require.NoError(t, WriteJSON(report, []entry{{"com.example.User", "generated"}}))

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	var back []entry
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []entry{{"com.example.User", "generated"}}, back)

	set := metrics.NewSet()
	set.GetOrCreateCounter(`parcelgen_classes_total{status="generated"}`).Add(3)
	prom := filepath.Join(dir, "metrics.prom")
	require.NoError(t, WriteMetrics(prom, set))

	data, err = os.ReadFile(prom)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `parcelgen_classes_total{status="generated"} 3`), string(data))
}
