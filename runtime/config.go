package runtime

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	configKey      = "github.com/kanengo/parcelgen"
	shortConfigKey = "parcelgen"
)

// Config is the [parcelgen] section of a parcelgen.toml file.
//
//	[parcelgen]
//	manifests = ["model/*.toml"]
//	out = "build/parcel"
//	jobs = 4
//	fail_fast = true
//	log_level = "debug"
//	report = "build/report.json"
//	metrics = "build/metrics.prom"
type Config struct {
	// Manifests are class manifest files or glob patterns.
	Manifests []string `toml:"manifests"`
	// Classes restricts generation to these qualified names. Empty means
	// every eligible class of the manifests.
	Classes  []string `toml:"classes"`
	Out      string   `toml:"out"`
	Jobs     int      `toml:"jobs"`
	FailFast bool     `toml:"fail_fast"`
	LogLevel string   `toml:"log_level"`
	Report   string   `toml:"report"`
	Metrics  string   `toml:"metrics"`
}

// DefaultConfig is used when no configuration file is given.
func DefaultConfig() *Config {
	return &Config{Out: "parcelgen-out", Jobs: 1}
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.Manifests) == 0 {
		errs = append(errs, errors.New("no manifests"))
	}
	if c.Out == "" {
		errs = append(errs, errors.New("empty out directory"))
	}
	if c.Jobs < 0 {
		errs = append(errs, fmt.Errorf("negative jobs %d", c.Jobs))
	}
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level returns the configured log level. Validate must have succeeded.
func (c *Config) Level() slog.Level {
	l, _ := parseLogLevel(c.LogLevel)
	return l
}

// LoadConfig reads and parses file.
func LoadConfig(file string) (*Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return ParseConfig(file, string(data))
}

// ParseConfig 解析配置: 先拆出每个 section 的原始数据, 再用 ParseConfigSection 解析 parcelgen section.
// 相对路径以配置文件所在目录为基准.
func ParseConfig(file string, input string) (*Config, error) {
	var sections map[string]toml.Primitive
	_, err := toml.Decode(input, &sections)
	if err != nil {
		return nil, err
	}
	raw := make(map[string]string, len(sections))
	for k, v := range sections {
		if k != configKey && k != shortConfigKey {
			return nil, fmt.Errorf("unknown section %q", k)
		}
		var buf strings.Builder
		err := toml.NewEncoder(&buf).Encode(v)
		if err != nil {
			return nil, fmt.Errorf("encoding section %q: %v", k, err)
		}
		raw[k] = buf.String()
	}

	config := DefaultConfig()
	if err := ParseConfigSection(configKey, shortConfigKey, raw, config); err != nil {
		return nil, err
	}

	base := filepath.Dir(file)
	config.Out = resolvePath(base, config.Out)
	config.Report = resolvePath(base, config.Report)
	config.Metrics = resolvePath(base, config.Metrics)
	for i, m := range config.Manifests {
		config.Manifests[i] = resolvePath(base, m)
	}
	return config, nil
}

// ParseConfigSection 解析某个section 配置
func ParseConfigSection(key, shortKey string, sections map[string]string, dst any) error {
	section, ok := sections[key]
	if shortKey != "" {
		if shortKeySection, ok2 := sections[shortKey]; ok2 {
			if ok {
				return fmt.Errorf("conflicting sections %q and %q", key, shortKey)
			}
			key, section, ok = shortKey, shortKeySection, ok2
		}
	}
	if !ok {
		return nil
	}

	md, err := toml.Decode(section, dst)
	if err != nil {
		return err
	}

	if unknown := md.Undecoded(); len(unknown) > 0 {
		return fmt.Errorf("section %q has unknown keys %v", key, unknown)
	}

	if x, ok := dst.(interface{ Validate() error }); ok {
		if err := x.Validate(); err != nil {
			return fmt.Errorf("section %q is invalid: %w", key, err)
		}
	}

	return nil
}

// ExpandManifests expands the glob patterns of c.Manifests. A pattern that
// matches nothing is an error; the result is sorted and duplicate free.
func (c *Config) ExpandManifests() ([]string, error) {
	var out []string
	for _, pattern := range c.Manifests {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("manifest pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("manifest pattern %q matches no file", pattern)
		}
		out = append(out, matches...)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func resolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func parseLogLevel(logLevel string) (slog.Level, error) {
	cl := logLevel
	l := slog.LevelInfo
	logLevel = strings.ToLower(logLevel)
	switch logLevel {
	case "debug":
		l = slog.LevelDebug
	case "info", "":
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return 0, fmt.Errorf("invalid log level: %q", cl)
	}

	return l, nil
}
