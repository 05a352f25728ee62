// ABOUTME: Statistical validation of extracted metric values against historical data.
// ABOUTME: Catches AI extraction errors like wrong decimal places and unit confusion.
package validate

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/viziai/labtrack/internal/extract"
)

// DefaultMaxDeviationPct is the default allowed deviation from the
// historical median. Deviation is measured relative to the median's
// magnitude, so for a positive median only values far *above* it can
// exceed the threshold: a value below the median tops out near 100%
// deviation. That one-sidedness is intentional; existing data and
// thresholds were tuned against it.
const DefaultMaxDeviationPct = 500.0

// zeroMedianAbsLimit bounds accepted magnitude when the historical
// median is zero and the percentage formula would divide by zero.
const zeroMedianAbsLimit = 1000.0

// Result of a value validation check. Rejection is a normal return
// value, never an error.
type Result struct {
	Valid  bool
	Reason string
}

// Median returns the median of values, or 0 for an empty slice.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// MetricValue validates that a new metric value is plausible given the
// metric's historical values. The first value for a metric is always
// accepted; afterwards values deviating more than maxDeviationPct from
// the historical median are rejected. Pass maxDeviationPct <= 0 to use
// the default.
func MetricValue(name string, value extract.NullFloat, existing []float64, maxDeviationPct float64) Result {
	if maxDeviationPct <= 0 {
		maxDeviationPct = DefaultMaxDeviationPct
	}

	if value.Missing() {
		return Result{Valid: false, Reason: "Value is missing"}
	}
	if !value.Valid {
		return Result{Valid: false, Reason: fmt.Sprintf("Value %q is not numeric", value.Raw)}
	}
	v := value.Float64

	if len(existing) == 0 {
		return Result{Valid: true, Reason: "First value for this metric, accepted"}
	}

	med := Median(existing)

	if med == 0 {
		if abs(v) > zeroMedianAbsLimit {
			return Result{
				Valid:  false,
				Reason: fmt.Sprintf("Value %s is very far from median 0", fmtNum(v)),
			}
		}
		return Result{Valid: true, Reason: "Value acceptable (median is 0)"}
	}

	deviationPct := abs(v-med) / abs(med) * 100

	if deviationPct > maxDeviationPct {
		reason := fmt.Sprintf(
			"Suspicious value for %s: %s is %.1f%% different from median %.2f (threshold: %g%%)",
			name, fmtNum(v), deviationPct, med, maxDeviationPct,
		)
		log.Warn("suspicious value rejected",
			"metric", name, "value", v, "median", med, "deviation_pct", deviationPct)
		return Result{Valid: false, Reason: reason}
	}

	return Result{Valid: true, Reason: "Value within normal range of historical values"}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
