package evaluate

import (
	"fmt"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
)

// Summary aggregates rotation errors over a set of predictions.
type Summary struct {
	Count int
	// AccPi6 and AccPi18 are the fractions of errors below π/6 and π/18.
	AccPi6      float64
	AccPi18     float64
	MedianError float64
	MeanError   float64
}

// Summarize computes accuracy and error statistics. Failed predictions should be passed as
// MaxError. An empty input yields the zero Summary.
func Summarize(errs []float64) Summary {
	if len(errs) == 0 {
		return Summary{}
	}
	s := Summary{Count: len(errs)}
	var pi6, pi18 int
	for _, e := range errs {
		if e < math.Pi/6 {
			pi6++
		}
		if e < math.Pi/18 {
			pi18++
		}
	}
	s.AccPi6 = float64(pi6) / float64(len(errs))
	s.AccPi18 = float64(pi18) / float64(len(errs))
	// Median and Mean only fail on empty input.
	s.MedianError, _ = stats.Median(errs)
	s.MeanError, _ = stats.Mean(errs)
	return s
}

// Table renders the summary for terminals.
func (s Summary) Table() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Samples", "Acc π/6", "Acc π/18", "Median error", "Mean error"})
	t.AppendRow(table.Row{
		s.Count,
		fmt.Sprintf("%.2f%%", 100*s.AccPi6),
		fmt.Sprintf("%.2f%%", 100*s.AccPi18),
		fmt.Sprintf("%.2f°", s.MedianError*180/math.Pi),
		fmt.Sprintf("%.2f°", s.MeanError*180/math.Pi),
	})
	return t.Render()
}
