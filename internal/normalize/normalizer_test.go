// ABOUTME: Tests for the metric name normalizer.
// ABOUTME: Covers mapping rules, merge validation, and repository-backed consolidation.
package normalize

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/viziai/labtrack/internal/models"
	"github.com/viziai/labtrack/internal/storage"
)

func TestPlanSuffixPromotion(t *testing.T) {
	n := NewWithGroups(nil)

	plan := n.Plan([]string{"Lenfosit", "Lenfosit#"}, nil)
	if got := plan.Mapping["Lenfosit"]; got != "Lenfosit#" {
		t.Errorf("expected Lenfosit -> Lenfosit#, got %q", got)
	}

	// Percent names are a distinct axis and are never folded into #
	plan = n.Plan([]string{"Nötrofil%", "Nötrofil#"}, nil)
	if len(plan.Mapping) != 0 {
		t.Errorf("expected no mapping for %%/# siblings, got %v", plan.Mapping)
	}
}

func TestPlanSuffixConflict(t *testing.T) {
	n := NewWithGroups(nil)

	plan := n.Plan([]string{"Nötrofil", "Nötrofil#", "Nötrofil%"}, nil)
	if _, ok := plan.Mapping["Nötrofil"]; ok {
		t.Error("ambiguous base name must not be merged")
	}
	if len(plan.Warnings) == 0 {
		t.Error("expected a conflict warning")
	} else if !strings.Contains(plan.Warnings[0], "Nötrofil") {
		t.Errorf("warning should name the metric: %q", plan.Warnings[0])
	}
}

func TestPlanAbbreviations(t *testing.T) {
	n := NewWithGroups(nil)

	// Both forms present: short maps to long
	plan := n.Plan([]string{"HGB", "Hemoglobin"}, nil)
	if got := plan.Mapping["HGB"]; got != "Hemoglobin" {
		t.Errorf("expected HGB -> Hemoglobin, got %q", got)
	}

	// Short form alone is left untouched by the structural rule
	plan = n.Plan([]string{"HGB"}, nil)
	if _, ok := plan.Mapping["HGB"]; ok {
		t.Error("abbreviation without its long form must not map")
	}
}

func TestPlanCaseFoldDedup(t *testing.T) {
	n := NewWithGroups(nil)

	plan := n.Plan([]string{"SEDIMANTASYON", "Sedimantasyon"}, nil)
	if got := plan.Mapping["SEDIMANTASYON"]; got != "Sedimantasyon" {
		t.Errorf("expected uppercase to fold into mixed case, got %q", got)
	}
	if _, ok := plan.Mapping["Sedimantasyon"]; ok {
		t.Error("mixed-case form is the canonical one and must not map")
	}
}

func TestPlanStaticCorrectionsWin(t *testing.T) {
	n := New()

	// "Hgb" is a static variant of Hemoglobin; the case-fold rule would
	// otherwise leave it alone.
	plan := n.Plan([]string{"Hgb", "HGB"}, nil)
	if got := plan.Mapping["Hgb"]; got != "Hemoglobin" {
		t.Errorf("expected static correction Hgb -> Hemoglobin, got %q", got)
	}
	if got := plan.Mapping["HGB"]; got != "Hemoglobin" {
		t.Errorf("expected static correction HGB -> Hemoglobin, got %q", got)
	}
}

func TestPlanStaticStillValidated(t *testing.T) {
	n := New()

	// The static table folds "Nötrofil" into "Nötrofil#", but the
	// percent sibling being present makes the merge unsafe.
	plan := n.Plan([]string{"Nötrofil", "Nötrofil#", "Nötrofil%"}, nil)
	if _, ok := plan.Mapping["Nötrofil"]; ok {
		t.Error("static correction must still pass the validation step")
	}
}

func TestPlanRefRangeWarning(t *testing.T) {
	n := NewWithGroups(nil)

	refHigh := map[string]float64{
		"Ferritin": 300,
		"FERRITIN": 12,
	}
	plan := n.Plan([]string{"FERRITIN", "Ferritin"}, refHigh)

	// Still merged, but with a warning
	if got := plan.Mapping["FERRITIN"]; got != "Ferritin" {
		t.Errorf("2x range difference must warn, not block: got %q", got)
	}
	found := false
	for _, w := range plan.Warnings {
		if strings.Contains(w, "2x") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a 2x range warning, got %v", plan.Warnings)
	}
}

func TestPlanDeterministicOrder(t *testing.T) {
	n := New()

	names := []string{"HGB", "Hemoglobin", "Lenfosit", "Lenfosit#", "HCT", "Hematokrit"}
	first := n.Plan(names, nil)
	second := n.Plan(names, nil)

	if len(first.Order) != len(second.Order) {
		t.Fatalf("order length differs: %v vs %v", first.Order, second.Order)
	}
	for i := range first.Order {
		if first.Order[i] != second.Order[i] {
			t.Errorf("order differs at %d: %q vs %q", i, first.Order[i], second.Order[i])
		}
	}
}

func TestConsolidate(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	p, err := db.GetOrCreateProfile("Alice")
	if err != nil {
		t.Fatalf("GetOrCreateProfile failed: %v", err)
	}

	r1, _ := db.GetOrCreateReport(p.ID, "2024-01-15", nil)
	r2, _ := db.GetOrCreateReport(p.ID, "2024-03-10", nil)

	obs := []*models.Observation{
		models.NewObservation(r1.ID, "HGB", 13.5),
		models.NewObservation(r1.ID, "Lenfosit", 2.1),
		models.NewObservation(r2.ID, "Hemoglobin", 13.8),
		models.NewObservation(r2.ID, "Lenfosit#", 2.3),
		models.NewObservation(r2.ID, "Ferritin", 85),
	}
	if err := db.UpsertObservations(obs); err != nil {
		t.Fatalf("UpsertObservations failed: %v", err)
	}

	unit := "g/dL"
	hgbDef := models.NewMetricDefinition(p.ID, "HGB")
	hgbDef.Unit = &unit
	hgbDef.DisplayOrder = 0
	lenDef := models.NewMetricDefinition(p.ID, "Lenfosit")
	lenDef.DisplayOrder = 1
	ferDef := models.NewMetricDefinition(p.ID, "Ferritin")
	ferDef.DisplayOrder = 2
	if err := db.UpsertDefinitions([]*models.MetricDefinition{hgbDef, lenDef, ferDef}); err != nil {
		t.Fatalf("UpsertDefinitions failed: %v", err)
	}

	n := New()
	result, err := n.Consolidate(db, p.ID)
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}

	if result.Mapping["HGB"] != "Hemoglobin" || result.Mapping["Lenfosit"] != "Lenfosit#" {
		t.Errorf("unexpected mapping: %v", result.Mapping)
	}
	if result.Renamed != 2 {
		t.Errorf("expected 2 renamed observations, got %d", result.Renamed)
	}
	if result.AliasesInserted != 2 {
		t.Errorf("expected 2 aliases, got %d", result.AliasesInserted)
	}

	names, _ := db.DistinctMetricNames(p.ID)
	for _, name := range names {
		if name == "HGB" || name == "Lenfosit" {
			t.Errorf("variant name %q survived consolidation", name)
		}
	}

	history, _ := db.MetricHistory(p.ID, "Hemoglobin")
	if len(history) != 2 {
		t.Errorf("expected merged Hemoglobin history of 2, got %v", history)
	}

	// Merged names keep the position of their first occurrence;
	// untouched names keep theirs.
	defs, _ := db.ListDefinitions(p.ID)
	var order []string
	for _, def := range defs {
		order = append(order, def.Name)
	}
	want := []string{"Hemoglobin", "Lenfosit#", "Ferritin"}
	if len(order) != len(want) {
		t.Fatalf("expected %d definitions, got %v", len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}

	// Curated group metadata lands on the canonical definition
	hgb, _ := db.GetDefinition(p.ID, "Hemoglobin")
	if hgb == nil {
		t.Fatal("expected Hemoglobin definition")
	}
	if hgb.Unit == nil || *hgb.Unit != "g/dL" {
		t.Errorf("Unit mismatch: got %v", hgb.Unit)
	}
	if hgb.RefLow == nil || *hgb.RefLow != 13 || hgb.RefHigh == nil || *hgb.RefHigh != 17.5 {
		t.Errorf("expected curated reference range, got %v-%v", hgb.RefLow, hgb.RefHigh)
	}

	// Variant definitions are gone
	if def, _ := db.GetDefinition(p.ID, "HGB"); def != nil {
		t.Error("variant definition HGB should be removed")
	}

	aliases, _ := db.ListAliases()
	byAlias := make(map[string]string)
	for _, a := range aliases {
		byAlias[a.Alias] = a.CanonicalName
	}
	if byAlias["HGB"] != "Hemoglobin" || byAlias["Lenfosit"] != "Lenfosit#" {
		t.Errorf("unexpected aliases: %v", byAlias)
	}
}

func TestConsolidateIdempotent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	p, _ := db.GetOrCreateProfile("Alice")
	r, _ := db.GetOrCreateReport(p.ID, "2024-01-15", nil)
	obs := []*models.Observation{
		models.NewObservation(r.ID, "HGB", 13.5),
		models.NewObservation(r.ID, "Hemoglobin", 13.8),
	}
	// Same report holds both names; the canonical row must win
	if err := db.UpsertObservations(obs); err != nil {
		t.Fatalf("UpsertObservations failed: %v", err)
	}

	n := New()
	first, err := n.Consolidate(db, p.ID)
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}
	if first.AliasesInserted != 1 {
		t.Errorf("expected 1 alias on first run, got %d", first.AliasesInserted)
	}

	second, err := n.Consolidate(db, p.ID)
	if err != nil {
		t.Fatalf("second Consolidate failed: %v", err)
	}
	if second.Renamed != 0 || second.AliasesInserted != 0 || second.DefinitionsMerged != 0 {
		t.Errorf("expected no-op on consolidated data, got %+v", second)
	}

	history, _ := db.MetricHistory(p.ID, "Hemoglobin")
	if len(history) != 1 || history[0] != 13.8 {
		t.Errorf("canonical value should win the collision, got %v", history)
	}
}

func TestLoadGroups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.json")
	content := `[{"canonical": "Hemoglobin", "unit": "g/dL", "ref_low": 13, "ref_high": 17.5, "variants": ["HGB"]}]`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write groups file: %v", err)
	}

	groups, err := LoadGroups(path)
	if err != nil {
		t.Fatalf("LoadGroups failed: %v", err)
	}
	if len(groups) != 1 || groups[0].Canonical != "Hemoglobin" {
		t.Fatalf("unexpected groups: %+v", groups)
	}
	if groups[0].RefHigh == nil || *groups[0].RefHigh != 17.5 {
		t.Errorf("RefHigh mismatch: %v", groups[0].RefHigh)
	}

	n := NewWithGroups(groups)
	plan := n.Plan([]string{"HGB"}, nil)
	if plan.Mapping["HGB"] != "Hemoglobin" {
		t.Errorf("custom group not applied: %v", plan.Mapping)
	}
}

func setupTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "labtrack.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	return db
}
