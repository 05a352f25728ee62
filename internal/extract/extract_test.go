// ABOUTME: Tests for extraction-result decoding.
// ABOUTME: Covers numeric coercion, date normalization, and document-order preservation.
package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNullFloatUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		valid   bool
		want    float64
		wantRaw string
	}{
		{"number", `14.2`, true, 14.2, ""},
		{"integer", `7500`, true, 7500, ""},
		{"null", `null`, false, 0, ""},
		{"numeric string", `"10.7"`, true, 10.7, ""},
		{"comma decimal", `"10,7"`, true, 10.7, ""},
		{"padded string", `" 42 "`, true, 42, ""},
		{"garbage string", `"abc"`, false, 0, "abc"},
		{"empty string", `""`, false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n NullFloat
			if err := n.UnmarshalJSON([]byte(tt.json)); err != nil {
				t.Fatalf("UnmarshalJSON(%s) error: %v", tt.json, err)
			}
			if n.Valid != tt.valid {
				t.Errorf("Valid = %v, want %v", n.Valid, tt.valid)
			}
			if n.Valid && n.Float64 != tt.want {
				t.Errorf("Float64 = %f, want %f", n.Float64, tt.want)
			}
			if !n.Valid && n.Raw != tt.wantRaw {
				t.Errorf("Raw = %q, want %q", n.Raw, tt.wantRaw)
			}
		})
	}
}

func TestNullFloatMissing(t *testing.T) {
	var n NullFloat
	_ = n.UnmarshalJSON([]byte(`null`))
	if !n.Missing() {
		t.Error("null should be Missing")
	}

	_ = n.UnmarshalJSON([]byte(`"abc"`))
	if n.Missing() {
		t.Error("non-numeric string should not be Missing")
	}
}

func TestDecodePreservesTestOrder(t *testing.T) {
	input := `{
		"sample_date": "2024-01-15",
		"tests": {
			"Hemoglobin": {"value": 14.2, "unit": "g/dL", "flag": "N", "ref_low": 12.0, "ref_high": 16.0},
			"WBC": {"value": 7500, "unit": "/µL", "ref_low": 4000, "ref_high": 11000},
			"Ferritin": {"value": 85, "unit": "ng/mL"},
			"CRP": {"value": "3,1", "unit": "mg/L"}
		}
	}`

	res, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	wantOrder := []string{"Hemoglobin", "WBC", "Ferritin", "CRP"}
	got := res.Tests.Names()
	if len(got) != len(wantOrder) {
		t.Fatalf("got %d tests, want %d", len(got), len(wantOrder))
	}
	for i, name := range wantOrder {
		if got[i] != name {
			t.Errorf("Names()[%d] = %s, want %s", i, got[i], name)
		}
	}

	crp, ok := res.Tests.Get("CRP")
	if !ok {
		t.Fatal("CRP not found")
	}
	if !crp.Value.Valid || crp.Value.Float64 != 3.1 {
		t.Errorf("CRP value = %v, want 3.1 (comma decimal coerced)", crp.Value)
	}

	hgb, _ := res.Tests.Get("Hemoglobin")
	if hgb.RefLow.Ptr() == nil || *hgb.RefLow.Ptr() != 12.0 {
		t.Errorf("Hemoglobin ref_low = %v, want 12.0", hgb.RefLow)
	}
	if hgb.Flag == nil || *hgb.Flag != "N" {
		t.Errorf("Hemoglobin flag = %v, want N", hgb.Flag)
	}
}

func TestDecodeNormalizesSampleDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-01-15", "2024-01-15"},
		{"01/15/2024", "2024-01-15"},
		{"2024/01/15", "2024-01-15"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			input := `{"sample_date": "` + tt.in + `", "tests": {"Hemoglobin": {"value": 14.0}}}`
			res, err := Decode(strings.NewReader(input))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if res.SampleDate == nil || *res.SampleDate != tt.want {
				t.Errorf("SampleDate = %v, want %s", res.SampleDate, tt.want)
			}
		})
	}
}

func TestDecodeNullSampleDate(t *testing.T) {
	res, err := Decode(strings.NewReader(`{"sample_date": null, "tests": {}}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if res.SampleDate != nil {
		t.Errorf("SampleDate = %v, want nil", res.SampleDate)
	}
	if res.Tests.Len() != 0 {
		t.Errorf("Tests.Len() = %d, want 0", res.Tests.Len())
	}
}

func TestDecodeBadDateRejected(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"sample_date": "January 15", "tests": {}}`))
	if err == nil {
		t.Error("expected error for unparseable sample date")
	}
}

func TestTestListAddReplacesInPlace(t *testing.T) {
	var l TestList
	l.Add("Hemoglobin", Test{Value: Num(14.0)})
	l.Add("WBC", Test{Value: Num(7500)})
	l.Add("Hemoglobin", Test{Value: Num(14.5)})

	if l.Len() != 2 {
		t.Fatalf("Len = %d, want 2", l.Len())
	}
	name, first := l.At(0)
	if name != "Hemoglobin" || first.Value.Float64 != 14.5 {
		t.Errorf("At(0) = %s/%v, want Hemoglobin/14.5", name, first.Value)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.labs.json")
	content := `{"sample_date": "2024-03-02", "tests": {"Glukoz": {"value": 92, "unit": "mg/dL"}}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	res, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if res.Tests.Len() != 1 {
		t.Fatalf("Tests.Len() = %d, want 1", res.Tests.Len())
	}
	g, _ := res.Tests.Get("Glukoz")
	if g.Value.Float64 != 92 {
		t.Errorf("Glukoz = %v, want 92", g.Value)
	}
}

func TestParseDateUnrecognized(t *testing.T) {
	if _, err := ParseDate("15 Ocak 2024"); err == nil {
		t.Error("expected error for unrecognized format")
	}
}
