// ABOUTME: Integration tests for labtrack CLI.
// ABOUTME: Tests full workflow from CLI commands.
package test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestFullWorkflow(t *testing.T) {
	// Build the binary
	projectRoot, _ := filepath.Abs("..")
	binary := filepath.Join(projectRoot, "labtrack")

	buildCmd := exec.Command("go", "build", "-o", binary, "./cmd/labtrack")
	buildCmd.Dir = projectRoot
	if output, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build: %v\n%s", err, output)
	}
	defer os.Remove(binary)

	// Sandbox config and data under a temp home
	tmpDir := t.TempDir()
	env := append(os.Environ(),
		"XDG_CONFIG_HOME="+filepath.Join(tmpDir, "config"),
		"XDG_DATA_HOME="+filepath.Join(tmpDir, "data"),
	)

	run := func(args ...string) (string, error) {
		cmd := exec.Command(binary, args...)
		cmd.Env = env
		output, err := cmd.CombinedOutput()
		return string(output), err
	}

	// Sample extraction result with a name variant to consolidate later
	resultFile := filepath.Join(tmpDir, "report.json")
	resultJSON := `{
  "sample_date": "2025-03-20",
  "tests": {
    "HGB": {"value": 14.2, "unit": "g/dL", "flag": "N", "ref_low": 13.5, "ref_high": 17.5},
    "Hemoglobin": {"value": 14.2, "unit": "g/dL", "flag": null, "ref_low": 13.5, "ref_high": 17.5},
    "WBC": {"value": "6,8", "unit": "10^3/uL", "flag": null, "ref_low": 4.0, "ref_high": 10.0}
  }
}`
	if err := os.WriteFile(resultFile, []byte(resultJSON), 0600); err != nil {
		t.Fatalf("Failed to write extraction result: %v", err)
	}

	// Test profile creation
	output, err := run("profile", "add", "alice")
	if err != nil {
		t.Fatalf("Failed to add profile: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Profile alice") {
		t.Errorf("Expected 'Profile alice' in output, got: %s", output)
	}

	// Test ingestion
	output, err = run("ingest", resultFile, "-p", "alice")
	if err != nil {
		t.Fatalf("Failed to ingest: %v\n%s", err, output)
	}
	if !strings.Contains(output, "3 stored") {
		t.Errorf("Expected '3 stored' in output, got: %s", output)
	}

	// Re-ingesting the same file is a cache no-op
	output, err = run("ingest", resultFile, "-p", "alice")
	if err != nil {
		t.Fatalf("Failed to re-ingest: %v\n%s", err, output)
	}
	if !strings.Contains(output, "already ingested") {
		t.Errorf("Expected cache skip in output, got: %s", output)
	}

	// Test report listing
	output, err = run("report", "list", "-p", "alice")
	if err != nil {
		t.Fatalf("Failed to list reports: %v\n%s", err, output)
	}
	if !strings.Contains(output, "2025-03-20") {
		t.Errorf("Expected '2025-03-20' in report list, got: %s", output)
	}

	// Test normalization preview, then apply
	output, err = run("normalize", "-p", "alice")
	if err != nil {
		t.Fatalf("Failed to preview normalize: %v\n%s", err, output)
	}
	if !strings.Contains(output, "HGB -> Hemoglobin") {
		t.Errorf("Expected 'HGB -> Hemoglobin' in plan, got: %s", output)
	}

	output, err = run("normalize", "--apply", "-p", "alice")
	if err != nil {
		t.Fatalf("Failed to apply normalize: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Consolidated alice") {
		t.Errorf("Expected 'Consolidated alice' in output, got: %s", output)
	}

	// Test metric catalog after consolidation
	output, err = run("list", "-p", "alice")
	if err != nil {
		t.Fatalf("Failed to list metrics: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Hemoglobin") {
		t.Errorf("Expected 'Hemoglobin' in catalog, got: %s", output)
	}
	if strings.Contains(output, "HGB") {
		t.Errorf("Expected HGB to be consolidated away, got: %s", output)
	}

	// Test export
	output, err = run("export", "json")
	if err != nil {
		t.Fatalf("Failed to export: %v\n%s", err, output)
	}
	if !strings.Contains(output, "\"alice\"") {
		t.Errorf("Expected alice in export, got: %s", output)
	}
}
