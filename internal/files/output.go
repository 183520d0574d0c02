package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/VictoriaMetrics/metrics"
	"github.com/goccy/go-json"
)

// ArtifactExt is the extension of an encoded class.
const ArtifactExt = ".pgc"

// Output is a directory of generated classes.
type Output struct {
	Dir string
}

// Path maps a qualified class name to its file: com.example.User$$Creator
// is stored at <dir>/com/example/User$$Creator.pgc.
func (o Output) Path(class string) string {
	return filepath.Join(o.Dir, filepath.FromSlash(strings.ReplaceAll(class, ".", "/"))+ArtifactExt)
}

// Class is one encoded class.
type Class struct {
	Name    string
	Content []byte
}

// WriteClasses stores the classes generated for one target and returns their
// paths. Either every file is published or none is: a failure removes the
// files of this call that were already renamed into place.
func (o Output) WriteClasses(classes []Class) ([]string, error) {
	paths := make([]string, len(classes))
	writers := make([]*Writer, 0, len(classes))
	cleanup := func() {
		for _, w := range writers {
			w.Cleanup()
		}
	}
	for i, c := range classes {
		paths[i] = o.Path(c.Name)
		w := NewWriter(paths[i])
		writers = append(writers, w)
		if _, err := w.Write(c.Content); err != nil {
			cleanup()
			return nil, fmt.Errorf("write %s: %w", paths[i], err)
		}
	}
	for i, w := range writers {
		if err := w.Close(); err != nil {
			cleanup()
			for _, done := range paths[:i] {
				_ = os.Remove(done)
			}
			return nil, fmt.Errorf("write %s: %w", paths[i], err)
		}
	}
	return paths, nil
}

// WriteJSON stores v as indented JSON.
func WriteJSON(file string, v any) error {
	return WriteFile(file, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

// WriteMetrics stores set in the Prometheus text format.
func WriteMetrics(file string, set *metrics.Set) error {
	return WriteFile(file, func(w io.Writer) error {
		set.WritePrometheus(w)
		return nil
	})
}
