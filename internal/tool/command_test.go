package tool

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanengo/parcelgen/internal/bytecode"
	"github.com/kanengo/parcelgen/internal/codegen"
	"github.com/kanengo/parcelgen/pkg/xerrors"
)

const manifest = `
[[class]]
name = "com.example.User"
data = true
interfaces = ["Parcelable"]

  [[class.property]]
  name = "label"
  type = "String"

  [[class.property]]
  name = "count"
  type = "Int?"

[[class]]
name = "com.example.Node"
data = true
interfaces = ["Parcelable"]

  [[class.property]]
  name = "value"
  type = "Long"

  [[class.property]]
  name = "next"
  type = "com.example.Node?"

[[class]]
name = "com.example.Broken"
data = true
interfaces = ["Parcelable"]

  [[class.property]]
  name = "thread"
  type = "java.lang.Thread"
`

func writeManifest(t *testing.T) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "model.toml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))
	return dir, path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestGenerate(t *testing.T) {
	dir, path := writeManifest(t)
	out := filepath.Join(dir, "out")
	report := filepath.Join(dir, "report.json")
	prom := filepath.Join(dir, "metrics.prom")

	stdout, err := execute(t, "generate", path,
		"--out", out, "--report", report, "--metrics", prom, "--jobs", "2", "--log-level", "error")
	require.Error(t, err)
	assert.ErrorIs(t, err, xerrors.ErrInvalidTarget)
	assert.Contains(t, stdout, "2 generated, 1 failed, 0 skipped")

	for _, name := range []string{"User", "User$$Creator", "Node", "Node$$Creator"} {
		file := filepath.Join(out, "com", "example", name+".pgc")
		data, err := os.ReadFile(file)
		require.NoError(t, err, name)
		c, err := bytecode.Decode(data)
		require.NoError(t, err, name)
		assert.Equal(t, "com.example."+name, c.Name)
	}
	assert.NoFileExists(t, filepath.Join(out, "com", "example", "Broken.pgc"))
	assert.NoFileExists(t, filepath.Join(out, "com", "example", "Broken$$Creator.pgc"))

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	var r Report
	require.NoError(t, json.Unmarshal(data, &r))
	assert.NotEmpty(t, r.Run)
	require.Len(t, r.Classes, 3)

	// 按类名排序
	assert.Equal(t, "com.example.Broken", r.Classes[0].Class)
	assert.Equal(t, codegen.StatusInvalidTarget, r.Classes[0].Status)
	assert.Contains(t, r.Classes[0].Error, "java.lang.Thread")
	assert.Empty(t, r.Classes[0].Artifacts)

	assert.Equal(t, "com.example.Node", r.Classes[1].Class)
	assert.Equal(t, codegen.StatusGenerated, r.Classes[1].Status)
	assert.Equal(t, "data", r.Classes[1].Kind)
	assert.Len(t, r.Classes[1].Artifacts, 2)
	assert.Equal(t, []codegen.PropertyReport{
		{Name: "value", Type: "long", Adapter: "long"},
		{Name: "next", Type: "com.example.Node?", Adapter: "parcelable(com.example.Node)"},
	}, r.Classes[1].Properties)

	metrics, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `parcelgen_classes_total{status="generated"} 2`)
	assert.Contains(t, string(metrics), `parcelgen_classes_total{status="invalid_target"} 1`)
}

func TestGenerateFromConfig(t *testing.T) {
	dir, _ := writeManifest(t)
	config := filepath.Join(dir, "parcelgen.toml")
	require.NoError(t, os.WriteFile(config, []byte(`
[parcelgen]
manifests = ["model*.toml"]
classes = ["com.example.User"]
out = "gen"
`), 0o644))

	stdout, err := execute(t, "generate", "--config", config)
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 generated, 0 failed, 0 skipped")
	assert.FileExists(t, filepath.Join(dir, "gen", "com", "example", "User.pgc"))
	assert.NoFileExists(t, filepath.Join(dir, "gen", "com", "example", "Node.pgc"))
}

func TestGenerateFromEnv(t *testing.T) {
	dir, path := writeManifest(t)
	out := filepath.Join(dir, "from-env")
	t.Setenv("PARCELGEN_OUT", out)
	t.Setenv("PARCELGEN_FAIL_FAST", "true")

	stdout, err := execute(t, "generate", path)
	require.Error(t, err)
	// Broken is first in name order; fail fast skips the rest.
	assert.Contains(t, stdout, "0 generated, 1 failed, 2 skipped")
	assert.NoDirExists(t, filepath.Join(out, "com"))
}

func TestGenerateUnknownClass(t *testing.T) {
	_, path := writeManifest(t)
	_, err := execute(t, "generate", path, "--class", "com.example.Missing")
	assert.ErrorContains(t, err, `unknown class "com.example.Missing"`)
}

func TestGenerateWithoutManifests(t *testing.T) {
	_, err := execute(t, "generate")
	assert.ErrorContains(t, err, "no manifests")
}

func TestExplain(t *testing.T) {
	_, path := writeManifest(t)

	stdout, err := execute(t, "explain", "-m", path, "com.example.User", "--dump", "--bytecode")
	require.NoError(t, err)
	assert.Contains(t, stdout, "com.example.User (data)")
	assert.Contains(t, stdout, "optional(boxed(java.lang.Integer))")
	assert.Contains(t, stdout, "(*adapter.Optional)")
	assert.Contains(t, stdout, "class com.example.User$$Creator")
	assert.Contains(t, stdout, "writeToParcel")

	stdout, err = execute(t, "explain", "-m", path)
	assert.ErrorIs(t, err, xerrors.ErrInvalidTarget)
	lines := strings.Split(stdout, "\n")
	assert.True(t, strings.HasPrefix(lines[0], "com.example.Broken: "), lines[0])
	assert.Contains(t, stdout, "com.example.Node (data)")
}

func TestVersion(t *testing.T) {
	stdout, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "parcelgen v0.1.0"), stdout)
}
