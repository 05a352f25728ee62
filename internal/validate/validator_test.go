// ABOUTME: Tests for statistical metric value validation.
// ABOUTME: Covers median, first-value acceptance, deviation thresholds, and zero-median handling.
package validate

import (
	"strings"
	"testing"

	"github.com/viziai/labtrack/internal/extract"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []float64{5}, 5},
		{"odd", []float64{1, 2, 3}, 2},
		{"even", []float64{1, 2, 3, 4}, 2.5},
		{"unsorted", []float64{3, 1, 2}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Median(tt.values); got != tt.want {
				t.Errorf("Median(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestMedianDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Median(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input mutated: %v", values)
	}
}

func TestMetricValueMissing(t *testing.T) {
	res := MetricValue("Hemoglobin", extract.NullFloat{}, []float64{14.0}, 0)
	if res.Valid {
		t.Error("missing value should be invalid")
	}
	if !strings.Contains(res.Reason, "missing") {
		t.Errorf("Reason = %q, want mention of missing", res.Reason)
	}
}

func TestMetricValueNonNumeric(t *testing.T) {
	res := MetricValue("Hemoglobin", extract.NullFloat{Raw: "abc"}, []float64{14.0}, 0)
	if res.Valid {
		t.Error("non-numeric value should be invalid")
	}
	if !strings.Contains(res.Reason, "abc") || !strings.Contains(res.Reason, "not numeric") {
		t.Errorf("Reason = %q, want raw text and 'not numeric'", res.Reason)
	}
}

func TestMetricValueFirstValueAccepted(t *testing.T) {
	// No history means nothing to contradict, regardless of magnitude.
	for _, v := range []float64{0.001, 14.2, 999999} {
		res := MetricValue("Hemoglobin", extract.Num(v), nil, 0)
		if !res.Valid {
			t.Errorf("first value %v should be valid, got %q", v, res.Reason)
		}
		if !strings.Contains(res.Reason, "First value") {
			t.Errorf("Reason = %q, want 'First value'", res.Reason)
		}
	}
}

func TestMetricValueWithinNormalRange(t *testing.T) {
	res := MetricValue("Hemoglobin", extract.Num(14.2), []float64{13.5, 14.0, 13.8}, 0)
	if !res.Valid {
		t.Errorf("expected valid, got %q", res.Reason)
	}
}

func TestMetricValueExactlyAtThreshold(t *testing.T) {
	// Median 10, value 60 is exactly 500% deviation; <= passes.
	res := MetricValue("Test", extract.Num(60), []float64{10}, 0)
	if !res.Valid {
		t.Errorf("value at threshold should be valid, got %q", res.Reason)
	}
}

func TestMetricValueSuspiciousHighRejected(t *testing.T) {
	// Wrong decimal place: 14.2 read as 142. Median 13.8, deviation ~929%.
	res := MetricValue("Hemoglobin", extract.Num(142), []float64{13.5, 14.0, 13.8}, 0)
	if res.Valid {
		t.Error("expected rejection")
	}
	if !strings.Contains(res.Reason, "Suspicious") {
		t.Errorf("Reason = %q, want 'Suspicious'", res.Reason)
	}
	if !strings.Contains(res.Reason, "929.0%") {
		t.Errorf("Reason = %q, want deviation percentage 929.0%%", res.Reason)
	}
	if !strings.Contains(res.Reason, "142") {
		t.Errorf("Reason = %q, want offending value", res.Reason)
	}
}

func TestMetricValueUnitConfusionRejected(t *testing.T) {
	// g/dL misread as mg/dL is a 1000x jump.
	res := MetricValue("Hemoglobin", extract.Num(14200), []float64{13.5, 14.0, 13.8}, 0)
	if res.Valid {
		t.Error("expected rejection for unit confusion magnitude")
	}
}

func TestMetricValueLowValuesStayWithinThreshold(t *testing.T) {
	// Deviation is relative to the median's magnitude, so a value below a
	// positive median cannot exceed 500%: it tops out near 100%.
	res := MetricValue("Test", extract.Num(0.1), []float64{100, 100, 100}, 0)
	if !res.Valid {
		t.Errorf("99.9%% deviation is within 500%%, got %q", res.Reason)
	}

	res = MetricValue("Hemoglobin", extract.Num(1.42), []float64{13.5, 14.0, 13.8, 14.5}, 0)
	if !res.Valid {
		t.Errorf("wrong-decimal-low stays under threshold, got %q", res.Reason)
	}
}

func TestMetricValueZeroMedian(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		valid bool
	}{
		{"reasonable", 0.5, true},
		{"at limit", 1000, true},
		{"extreme", 5000, false},
		{"extreme negative", -5000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := MetricValue("Test", extract.Num(tt.value), []float64{0, 0, 0}, 0)
			if res.Valid != tt.valid {
				t.Errorf("value %v: valid = %v, want %v (%s)", tt.value, res.Valid, tt.valid, res.Reason)
			}
		})
	}
}

func TestMetricValueCustomThreshold(t *testing.T) {
	res := MetricValue("Test", extract.Num(21), []float64{10}, 100)
	if res.Valid {
		t.Error("110% deviation should fail a 100% threshold")
	}

	res = MetricValue("Test", extract.Num(19), []float64{10}, 100)
	if !res.Valid {
		t.Errorf("90%% deviation should pass a 100%% threshold, got %q", res.Reason)
	}
}

func TestMetricValueNegativeHistory(t *testing.T) {
	res := MetricValue("Test", extract.Num(-5), []float64{-10, -8, -9}, 0)
	if !res.Valid {
		t.Errorf("-5 vs median -9 is ~44%% deviation, got %q", res.Reason)
	}

	res = MetricValue("Test", extract.Num(50), []float64{-10, -8, -9}, 0)
	if res.Valid {
		t.Error("50 vs median -9 is ~655% deviation, expected rejection")
	}
}
