package tool

import (
	"github.com/kanengo/parcelgen/internal/codegen"
)

// Report is the JSON summary written by generate --report.
type Report struct {
	Run     string        `json:"run"`
	Classes []ClassReport `json:"classes"`
}

type ClassReport struct {
	Class      string                   `json:"class"`
	Kind       string                   `json:"kind,omitempty"`
	Status     codegen.Status           `json:"status"`
	Error      string                   `json:"error,omitempty"`
	Properties []codegen.PropertyReport `json:"properties,omitempty"`
	Artifacts  []string                 `json:"artifacts,omitempty"`
	Millis     float64                  `json:"millis"`
}

func newReport(run string, results []codegen.Result) *Report {
	r := &Report{Run: run, Classes: make([]ClassReport, len(results))}
	for i, res := range results {
		c := ClassReport{
			Class:      res.Class,
			Status:     res.Status,
			Properties: res.Properties,
			Millis:     float64(res.Duration.Microseconds()) / 1000,
		}
		if res.Status == codegen.StatusGenerated {
			c.Kind = res.Kind.String()
		}
		if res.Err != nil {
			c.Error = res.Err.Error()
		}
		r.Classes[i] = c
	}
	return r
}

func (r *Report) Counts() map[codegen.Status]int {
	counts := map[codegen.Status]int{}
	for _, c := range r.Classes {
		counts[c.Status]++
	}
	return counts
}

// Failed counts the classes that were processed and rejected.
func (r *Report) Failed() int {
	n := 0
	for _, c := range r.Classes {
		if c.Status != codegen.StatusGenerated && c.Status != codegen.StatusSkipped {
			n++
		}
	}
	return n
}
