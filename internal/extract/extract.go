// ABOUTME: Decoding of extraction-result JSON files produced by the PDF pipeline.
// ABOUTME: Preserves document order of tests and coerces loosely-formatted numbers and dates.
package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// NullFloat is a numeric extraction value that may be missing or
// non-numeric. Raw keeps the original text when coercion fails so error
// messages can show what the extractor produced.
type NullFloat struct {
	Float64 float64
	Valid   bool
	Raw     string
}

// Num builds a valid NullFloat, mostly for tests and literals.
func Num(v float64) NullFloat {
	return NullFloat{Float64: v, Valid: true}
}

// Ptr returns the value as *float64, nil when missing or non-numeric.
func (n NullFloat) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// Missing reports whether the value was absent or JSON null, as opposed
// to present but non-numeric.
func (n NullFloat) Missing() bool {
	return !n.Valid && n.Raw == ""
}

func (n NullFloat) String() string {
	if n.Valid {
		return strconv.FormatFloat(n.Float64, 'f', -1, 64)
	}
	return n.Raw
}

// UnmarshalJSON accepts numbers, numeric strings (including comma
// decimal separators), and null. A non-coercible string yields an
// invalid NullFloat with Raw preserved rather than an error, so one bad
// cell never fails the whole document.
func (n *NullFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*n = NullFloat{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if v, ok := parseNumeric(raw); ok {
			*n = NullFloat{Float64: v, Valid: true}
		} else {
			*n = NullFloat{Raw: raw}
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		*n = NullFloat{Raw: s}
		return nil
	}
	*n = NullFloat{Float64: v, Valid: true}
	return nil
}

// MarshalJSON writes the number, or null when there is none.
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

// parseNumeric coerces a cell string to a float, treating a comma as a
// decimal separator the way Turkish lab reports format numbers.
func parseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Test is one extracted metric entry.
type Test struct {
	Value   NullFloat `json:"value"`
	Unit    *string   `json:"unit"`
	Flag    *string   `json:"flag"`
	RefLow  NullFloat `json:"ref_low"`
	RefHigh NullFloat `json:"ref_high"`
}

// TestList holds extracted tests in document order, with a name index
// for lookups. Ingestion iterates it in order so results are stable
// run-to-run.
type TestList struct {
	names []string
	index map[string]int
	tests []Test
}

// Len returns the number of tests.
func (l *TestList) Len() int {
	return len(l.names)
}

// Names returns metric names in document order.
func (l *TestList) Names() []string {
	return append([]string(nil), l.names...)
}

// Get looks up a test by name.
func (l *TestList) Get(name string) (Test, bool) {
	i, ok := l.index[name]
	if !ok {
		return Test{}, false
	}
	return l.tests[i], true
}

// At returns the name and test at position i.
func (l *TestList) At(i int) (string, Test) {
	return l.names[i], l.tests[i]
}

// Add appends a test, or replaces the value of an existing name while
// keeping its original position.
func (l *TestList) Add(name string, t Test) {
	if l.index == nil {
		l.index = make(map[string]int)
	}
	if i, ok := l.index[name]; ok {
		l.tests[i] = t
		return
	}
	l.index[name] = len(l.names)
	l.names = append(l.names, name)
	l.tests = append(l.tests, t)
}

// UnmarshalJSON decodes a JSON object while preserving key order, which
// encoding/json's map decoding would lose.
func (l *TestList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("tests: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("tests: expected string key, got %v", keyTok)
		}
		var t Test
		if err := dec.Decode(&t); err != nil {
			return fmt.Errorf("tests: decode %q: %w", name, err)
		}
		l.Add(name, t)
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// MarshalJSON writes tests as an object in document order.
func (l TestList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range l.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(l.tests[i])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Result is one extraction result: the sample date and the tests read
// from a single report.
type Result struct {
	SampleDate *string  `json:"sample_date"`
	Tests      TestList `json:"tests"`
}

// Decode reads an extraction result from r.
func Decode(r io.Reader) (*Result, error) {
	var res Result
	dec := json.NewDecoder(r)
	if err := dec.Decode(&res); err != nil {
		return nil, fmt.Errorf("decode extraction result: %w", err)
	}
	if res.SampleDate != nil {
		normalized, err := ParseDate(*res.SampleDate)
		if err != nil {
			return nil, fmt.Errorf("sample date: %w", err)
		}
		res.SampleDate = &normalized
	}
	return &res, nil
}

// Load reads an extraction result from a file.
func Load(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open extraction result: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// dateFormats are tried in order; US before EU matches how the
// spreadsheet migration resolved ambiguous dates.
var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"2006/01/02",
}

// ParseDate normalizes a date string to ISO YYYY-MM-DD.
func ParseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty date")
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unrecognized date format: %q", s)
}
