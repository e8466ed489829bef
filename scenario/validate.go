package scenario

import (
	"fmt"
	"math"

	"github.com/mklimuk/i2csim/fault"
)

// Response-time thresholds in microseconds. Anything past slowWarnMicros
// suggests the host is overloaded; past slowFailMicros the run is useless as
// a timing reference.
const (
	slowWarnMicros = 1000.0
	slowFailMicros = 10000.0
)

// validate checks the run's metrics against the scenario's expectations and
// records failures and warnings on the result.
func validate(r *Result) {
	m := r.Metrics
	ops := m.TotalOps()

	if ops == 0 {
		r.Failures = append(r.Failures, "no bus operations performed")
		return
	}

	// observed error rate within ±max(0.5×expected, 5%) of the configured
	// fault probability
	expected := r.Scenario.ErrorProbability
	actual := m.ErrorRate()
	tolerance := math.Max(expected*0.5, 0.05)
	if math.Abs(actual-expected) > tolerance {
		r.Failures = append(r.Failures, fmt.Sprintf(
			"error rate %.2f%% outside expected %.2f%% ± %.2f%%",
			actual*100, expected*100, tolerance*100))
	}

	switch {
	case m.AvgResponseMicros > slowFailMicros:
		r.Failures = append(r.Failures, fmt.Sprintf(
			"average response time %.2fµs too high", m.AvgResponseMicros))
	case m.AvgResponseMicros > slowWarnMicros:
		r.Warnings = append(r.Warnings, fmt.Sprintf(
			"average response time %.2fµs is high", m.AvgResponseMicros))
	}

	switch r.Scenario.ErrorMode {
	case fault.ModeNone:
		if float64(m.ErrorsInjected) > float64(ops)*0.01 {
			r.Failures = append(r.Failures, fmt.Sprintf(
				"%d errors recorded with fault injection disabled", m.ErrorsInjected))
		}
	case fault.ModeDeviceNotFound:
		if float64(m.ErrorsInjected) < float64(ops)*0.05 {
			r.Failures = append(r.Failures, fmt.Sprintf(
				"only %d errors recorded for a device-not-found scenario", m.ErrorsInjected))
		}
	}
}
