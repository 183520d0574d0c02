package runtime

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	const input = `
[parcelgen]
manifests = ["model/*.toml", "/abs/extra.toml"]
classes = ["com.example.User"]
out = "build/parcel"
jobs = 4
fail_fast = true
log_level = "Debug"
report = "build/report.json"
`
	got, err := ParseConfig("/work/parcelgen.toml", input)
	require.NoError(t, err)

	want := &Config{
		Manifests: []string{"/work/model/*.toml", "/abs/extra.toml"},
		Classes:   []string{"com.example.User"},
		Out:       "/work/build/parcel",
		Jobs:      4,
		FailFast:  true,
		LogLevel:  "Debug",
		Report:    "/work/build/report.json",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ParseConfig (-want +got):\n%s", diff)
	}
	assert.Equal(t, slog.LevelDebug, got.Level())
}

func TestParseConfigDefaults(t *testing.T) {
	got, err := ParseConfig("parcelgen.toml", "[\"github.com/kanengo/parcelgen\"]\nmanifests = [\"a.toml\"]\n")
	require.NoError(t, err)
	assert.Equal(t, "parcelgen-out", got.Out)
	assert.Equal(t, 1, got.Jobs)
	assert.Equal(t, slog.LevelInfo, got.Level())
}

func TestParseConfigErrors(t *testing.T) {
	for name, tc := range map[string]struct {
		input string
		want  string
	}{
		"unknown key": {
			input: "[parcelgen]\nmanifests = [\"a.toml\"]\nworkers = 3\n",
			want:  `section "parcelgen" has unknown keys [workers]`,
		},
		"unknown section": {
			input: "[serve]\nport = 1\n",
			want:  `unknown section "serve"`,
		},
		"conflict": {
			input: "[parcelgen]\nmanifests = [\"a\"]\n[\"github.com/kanengo/parcelgen\"]\nmanifests = [\"b\"]\n",
			want:  "conflicting sections",
		},
		"no manifests": {
			input: "[parcelgen]\nout = \"x\"\n",
			want:  "no manifests",
		},
		"log level": {
			input: "[parcelgen]\nmanifests = [\"a\"]\nlog_level = \"loud\"\n",
			want:  `invalid log level: "loud"`,
		},
		"jobs": {
			input: "[parcelgen]\nmanifests = [\"a\"]\njobs = -1\n",
			want:  "negative jobs -1",
		},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig("parcelgen.toml", tc.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestExpandManifests(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.toml", "a.toml", "skip.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	c := &Config{Manifests: []string{
		filepath.Join(dir, "*.toml"),
		filepath.Join(dir, "a.toml"),
	}}
	got, err := c.ExpandManifests()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.toml"), filepath.Join(dir, "b.toml")}, got)

	c.Manifests = append(c.Manifests, filepath.Join(dir, "*.json"))
	_, err = c.ExpandManifests()
	assert.ErrorContains(t, err, "matches no file")
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "parcelgen.toml")
	require.NoError(t, os.WriteFile(file, []byte("[parcelgen]\nmanifests = [\"m.toml\"]\n"), 0o644))

	got, err := LoadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "m.toml")}, got.Manifests)
	assert.Equal(t, filepath.Join(dir, "parcelgen-out"), got.Out)

	_, err = LoadConfig(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
