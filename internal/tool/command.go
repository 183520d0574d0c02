// Package tool implements the parcelgen command line.
package tool

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kanengo/parcelgen/internal/classmodel"
	"github.com/kanengo/parcelgen/runtime"
	"github.com/kanengo/parcelgen/runtime/logging"
	"github.com/kanengo/parcelgen/runtime/version"
)

// EnvPrefix prefixes the environment variables read by every command:
// PARCELGEN_OUT, PARCELGEN_LOG_LEVEL, ...
const EnvPrefix = "parcelgen"

// NewRootCommand returns the parcelgen command tree. Every command reads its
// flags through its own viper instance so that commands built in the same
// process do not share state.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "parcelgen",
		Short: "generate parcel marshalling code",
		Long: fmt.Sprintf(`parcelgen (%s)

Synthesizes writeToParcel, describeContents and a CREATOR factory for every
parcelable class of the given class manifests.`, version.Version),
		SilenceUsage: true,
	}

	key := "config"
	root.PersistentFlags().String(key, "", "parcelgen.toml to read settings from")

	key = "log-level"
	root.PersistentFlags().String(key, "", "log level (debug, info, warn, error)")

	root.AddCommand(newGenerateCommand(), newExplainCommand(), newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of parcelgen",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Describe())
		},
	}
}

// newViper loads .env files and binds the flags of cmd. Flags win over
// environment variables, which win over the config file.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	return v, nil
}

// loadConfig merges the config file named by --config with the flags and
// environment of v. manifests are positional manifest arguments.
func loadConfig(v *viper.Viper, manifests []string) (*runtime.Config, error) {
	config := runtime.DefaultConfig()
	if file := v.GetString("config"); file != "" {
		var err error
		if config, err = runtime.LoadConfig(file); err != nil {
			return nil, err
		}
	}

	if len(manifests) > 0 {
		config.Manifests = manifests
	}
	if v.IsSet("class") {
		config.Classes = v.GetStringSlice("class")
	}
	if v.IsSet("out") {
		config.Out = v.GetString("out")
	}
	if v.IsSet("jobs") {
		config.Jobs = v.GetInt("jobs")
	}
	if v.IsSet("fail-fast") {
		config.FailFast = v.GetBool("fail-fast")
	}
	if v.IsSet("log-level") {
		config.LogLevel = v.GetString("log-level")
	}
	if v.IsSet("report") {
		config.Report = v.GetString("report")
	}
	if v.IsSet("metrics") {
		config.Metrics = v.GetString("metrics")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func newLogger(w io.Writer, component string, config *runtime.Config) (*slog.Logger, string) {
	h := logging.NewLogHandler(w, logging.Options{App: "parcelgen", Component: component}, config.Level())
	return slog.New(h), h.Run()
}

// loadUniverse reads every manifest of config into one universe.
func loadUniverse(config *runtime.Config) (*classmodel.Universe, error) {
	paths, err := config.ExpandManifests()
	if err != nil {
		return nil, err
	}
	var classes []*classmodel.ClassInfo
	for _, path := range paths {
		cs, err := classmodel.LoadManifestFile(path)
		if err != nil {
			return nil, err
		}
		classes = append(classes, cs...)
	}
	return classmodel.NewUniverse(classes...)
}

// selectClasses returns the named classes, or every eligible class when
// names is empty.
func selectClasses(u *classmodel.Universe, names []string, all func() []*classmodel.ClassInfo) ([]*classmodel.ClassInfo, error) {
	if len(names) == 0 {
		return all(), nil
	}
	out := make([]*classmodel.ClassInfo, 0, len(names))
	for _, name := range names {
		c, ok := u.Lookup(name)
		if !ok || c.Platform {
			return nil, fmt.Errorf("unknown class %q", name)
		}
		out = append(out, c)
	}
	return out, nil
}
