package codegen

import (
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

type generatorMetrics struct {
	set       *metrics.Set
	duration  *metrics.Histogram
	artifacts *metrics.Counter
}

func newGeneratorMetrics(set *metrics.Set) *generatorMetrics {
	return &generatorMetrics{
		set:       set,
		duration:  set.GetOrCreateHistogram("parcelgen_class_duration_seconds"),
		artifacts: set.GetOrCreateCounter("parcelgen_artifacts_total"),
	}
}

func (m *generatorMetrics) observe(status Status, d time.Duration, artifacts int) {
	m.set.GetOrCreateCounter(fmt.Sprintf(`parcelgen_classes_total{status=%q}`, status)).Inc()
	if status == StatusSkipped {
		return
	}
	m.duration.Update(d.Seconds())
	m.artifacts.Add(artifacts)
}
