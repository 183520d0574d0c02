package tool

import (
	"errors"
	"fmt"

	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"

	"github.com/kanengo/parcelgen/internal/codegen"
	"github.com/kanengo/parcelgen/internal/files"
	"github.com/kanengo/parcelgen/runtime"
)

func newGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [manifest...]",
		Short: "Generate parcel code for the classes of the manifests",
		Long: `Generate parcel code for every eligible class of the given manifests.
Settings can come from --config, from flags or from PARCELGEN_<FLAG>
environment variables (e.g. PARCELGEN_FAIL_FAST=true); .env and .env.local
are read first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(cmd)
			if err != nil {
				return err
			}
			config, err := loadConfig(v, args)
			if err != nil {
				return err
			}
			return generate(cmd, config)
		},
	}

	key := "out"
	cmd.Flags().StringP(key, "o", "", "directory receiving the generated classes")

	key = "class"
	cmd.Flags().StringSlice(key, nil, "only generate these qualified class names")

	key = "jobs"
	cmd.Flags().IntP(key, "j", 1, "classes processed concurrently")

	key = "fail-fast"
	cmd.Flags().Bool(key, false, "stop at the first class that cannot be generated")

	key = "report"
	cmd.Flags().String(key, "", "write a JSON report of the run to this file")

	key = "metrics"
	cmd.Flags().String(key, "", "write run metrics in Prometheus format to this file")

	return cmd
}

func generate(cmd *cobra.Command, config *runtime.Config) error {
	logger, run := newLogger(cmd.ErrOrStderr(), "generate", config)

	u, err := loadUniverse(config)
	if err != nil {
		return err
	}
	set := metrics.NewSet()
	g, err := codegen.New(u, codegen.Options{
		Logger:   logger,
		Metrics:  set,
		Jobs:     config.Jobs,
		FailFast: config.FailFast,
	})
	if err != nil {
		return err
	}
	classes, err := selectClasses(u, config.Classes, g.Targets)
	if err != nil {
		return err
	}

	results, runErr := g.Run(cmd.Context(), classes)

	out := files.Output{Dir: config.Out}
	report := newReport(run, results)
	var errs []error
	for i, r := range results {
		if len(r.Artifacts) == 0 {
			continue
		}
		classes := make([]files.Class, len(r.Artifacts))
		for j, a := range r.Artifacts {
			classes[j] = files.Class{Name: a.Name, Content: a.Content}
		}
		paths, err := out.WriteClasses(classes)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		report.Classes[i].Artifacts = paths
		logger.Debug("artifacts written", "class", r.Class, "paths", paths)
	}
	if config.Report != "" {
		if err := files.WriteJSON(config.Report, report); err != nil {
			errs = append(errs, err)
		}
	}
	if config.Metrics != "" {
		if err := files.WriteMetrics(config.Metrics, set); err != nil {
			errs = append(errs, err)
		}
	}

	counts := report.Counts()
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d generated, %d failed, %d skipped\n",
		counts[codegen.StatusGenerated], report.Failed(), counts[codegen.StatusSkipped])
	return errors.Join(append([]error{runErr}, errs...)...)
}
