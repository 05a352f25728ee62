// ABOUTME: Reconciliation of reference-range changes between labs.
// ABOUTME: Allows minor inter-lab variation, rejects suspicious jumps.
package validate

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/viziai/labtrack/internal/extract"
)

// Reference change bands, in percent difference from the stored value.
const (
	refSilentPct = 15.0
	refRejectPct = 50.0
)

// ReferenceResult of a reference range change check. An empty Warning
// means the decision was silent.
type ReferenceResult struct {
	ShouldUpdate bool
	Warning      string
}

// ReferenceChange decides whether a newly reported reference bound
// should overwrite the stored one. label names the bound ("ref_low" or
// "ref_high") in warnings.
//
// Decision table, in order: no stored value accepts anything; a missing
// new value never erases a stored one; a non-numeric new value is
// rejected with a warning; a stored zero only matches a new zero; else
// the difference percentage picks the band: <=15% silent accept,
// <=50% accept with warning, >50% reject.
func ReferenceChange(existing *float64, newRef extract.NullFloat, label string) ReferenceResult {
	if existing == nil {
		return ReferenceResult{ShouldUpdate: true}
	}

	if newRef.Missing() {
		return ReferenceResult{ShouldUpdate: false}
	}

	if !newRef.Valid {
		warning := fmt.Sprintf("Invalid %s value: existing=%s, new=%q", label, fmtNum(*existing), newRef.Raw)
		return ReferenceResult{ShouldUpdate: false, Warning: warning}
	}

	old, next := *existing, newRef.Float64

	if old == 0 {
		if next == 0 {
			return ReferenceResult{ShouldUpdate: false}
		}
		warning := fmt.Sprintf("Suspicious %s change: 0 -> %s", label, fmtNum(next))
		log.Warn("reference change rejected", "label", label, "existing", old, "new", next)
		return ReferenceResult{ShouldUpdate: false, Warning: warning}
	}

	diffPct := abs(next-old) / abs(old) * 100

	if diffPct <= refSilentPct {
		return ReferenceResult{ShouldUpdate: true}
	}

	if diffPct <= refRejectPct {
		warning := fmt.Sprintf("Reference %s changed %s -> %s (%.1f%%)",
			label, fmtNum(old), fmtNum(next), diffPct)
		log.Warn("reference change accepted with warning",
			"label", label, "existing", old, "new", next, "diff_pct", diffPct)
		return ReferenceResult{ShouldUpdate: true, Warning: warning}
	}

	warning := fmt.Sprintf("Suspicious %s change rejected: %s -> %s (%.1f%% difference, threshold: %g%%)",
		label, fmtNum(old), fmtNum(next), diffPct, refRejectPct)
	log.Error("reference change rejected",
		"label", label, "existing", old, "new", next, "diff_pct", diffPct)
	return ReferenceResult{ShouldUpdate: false, Warning: warning}
}

// fmtNum renders a float the shortest way that round-trips.
func fmtNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
