// ABOUTME: Metric name normalizer: maps raw label variants onto canonical names.
// ABOUTME: Static corrections plus structural rules, guarded by a merge validation pass.
package normalize

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/viziai/labtrack/internal/models"
	"github.com/viziai/labtrack/internal/storage"
)

// abbreviations is a fixed short-form to long-form lookup. A mapping is
// proposed only when both forms appear in the input set.
var abbreviations = map[string]string{
	"HGB": "Hemoglobin",
	"HCT": "Hematokrit",
	"PLT": "Trombosit",
	"WBC": "Lökosit",
	"RBC": "Eritrosit",
	"ESR": "Sedimantasyon",
	"MCV": "Ortalama Eritrosit Hacmi",
	"TSH": "Tiroid Stimülan Hormon",
}

// Normalizer collapses raw metric name variants onto canonical names.
// It never merges names that look semantically different: count (#) and
// percent (%) suffixed names are distinct measurement axes and are kept
// apart by the validation pass.
type Normalizer struct {
	groups      []Group
	byVariant   map[string]string
	byCanonical map[string]*Group
}

// New creates a Normalizer with the built-in correction table.
func New() *Normalizer {
	return NewWithGroups(DefaultGroups())
}

// NewWithGroups creates a Normalizer with a custom correction table.
func NewWithGroups(groups []Group) *Normalizer {
	n := &Normalizer{
		groups:      groups,
		byVariant:   make(map[string]string),
		byCanonical: make(map[string]*Group),
	}
	for i := range groups {
		g := &groups[i]
		n.byCanonical[g.Canonical] = g
		for _, v := range g.Variants {
			n.byVariant[v] = g.Canonical
		}
	}
	return n
}

// Plan is a proposed raw -> canonical mapping for one profile's name
// set, after the validation pass. Order lists the raw names in the
// deterministic order Consolidate processes them.
type Plan struct {
	Mapping  map[string]string
	Order    []string
	Warnings []string
}

// Plan computes the raw -> canonical mapping for a set of names.
// refHigh carries the known reference upper bound per name (from the
// profile's definitions) and is only used for the 2x sanity warning; a
// nil map disables that check.
func (n *Normalizer) Plan(names []string, refHigh map[string]float64) *Plan {
	present := make(map[string]bool, len(names))
	for _, name := range names {
		present[name] = true
	}

	// Structural rules, in order; the first proposal for a name wins.
	mapping := make(map[string]string)
	propose := func(raw, canonical string) {
		if raw == canonical || !present[raw] {
			return
		}
		if _, ok := mapping[raw]; !ok {
			mapping[raw] = canonical
		}
	}

	// Suffix promotion: a bare name merges into its count-suffixed
	// sibling. Percent names are never promoted.
	for _, name := range names {
		if strings.HasSuffix(name, "#") || strings.HasSuffix(name, "%") {
			continue
		}
		if present[name+"#"] {
			propose(name, name+"#")
		}
	}

	// Abbreviation table, only when both forms are present.
	for short, long := range abbreviations {
		if present[short] && present[long] {
			propose(short, long)
		}
	}

	// Case-fold dedup: the all-uppercase form maps to the mixed-case
	// form.
	byFold := make(map[string][]string)
	for _, name := range names {
		f := strings.ToLower(name)
		byFold[f] = append(byFold[f], name)
	}
	for _, group := range byFold {
		if len(group) < 2 {
			continue
		}
		sort.Strings(group)
		canonical := ""
		for _, name := range group {
			if name != strings.ToUpper(name) {
				canonical = name
				break
			}
		}
		if canonical == "" {
			continue
		}
		for _, name := range group {
			if name != canonical && name == strings.ToUpper(name) {
				propose(name, canonical)
			}
		}
	}

	// Static corrections win on collision.
	for _, name := range names {
		if canonical, ok := n.byVariant[name]; ok && canonical != name {
			mapping[name] = canonical
		}
	}

	plan := &Plan{Mapping: mapping}
	n.validate(plan, present, refHigh)

	for raw := range plan.Mapping {
		plan.Order = append(plan.Order, raw)
	}
	sort.Strings(plan.Order)
	return plan
}

// validate drops unsafe groups from the mapping: anything that would
// mix count (#) and percent (%) names under one canonical name, and
// bare names whose # and % siblings are both present (ambiguous).
// Groups whose reference upper bounds differ by more than 2x get a
// warning but are still merged.
func (n *Normalizer) validate(plan *Plan, present map[string]bool, refHigh map[string]float64) {
	byTarget := make(map[string][]string)
	for raw, canonical := range plan.Mapping {
		byTarget[canonical] = append(byTarget[canonical], raw)
	}

	targets := make([]string, 0, len(byTarget))
	for t := range byTarget {
		targets = append(targets, t)
	}
	sort.Strings(targets)

	for _, target := range targets {
		sources := byTarget[target]
		sort.Strings(sources)
		members := append([]string{target}, sources...)

		if reason := suffixConflict(members, present); reason != "" {
			for _, raw := range sources {
				delete(plan.Mapping, raw)
			}
			w := fmt.Sprintf("Merge rejected for %s: %s", target, reason)
			plan.Warnings = append(plan.Warnings, w)
			log.Warn("metric merge rejected", "canonical", target, "reason", reason)
			continue
		}

		if len(refHigh) > 0 {
			if w := refRangeWarning(target, members, refHigh); w != "" {
				plan.Warnings = append(plan.Warnings, w)
				log.Warn("metric merge looks suspicious", "canonical", target, "warning", w)
			}
		}
	}
}

// suffixConflict reports why a group of names must not merge, or "".
func suffixConflict(members []string, present map[string]bool) string {
	var hasCount, hasPercent bool
	for _, m := range members {
		if strings.HasSuffix(m, "#") {
			hasCount = true
		}
		if strings.HasSuffix(m, "%") {
			hasPercent = true
		}
	}
	if hasCount && hasPercent {
		return fmt.Sprintf("cannot mix # and %% metrics (%s)", strings.Join(members, ", "))
	}
	for _, m := range members {
		if strings.HasSuffix(m, "#") || strings.HasSuffix(m, "%") {
			continue
		}
		if present[m+"#"] && present[m+"%"] {
			return fmt.Sprintf("%s is ambiguous between %s# and %s%%", m, m, m)
		}
	}
	return ""
}

// refRangeWarning flags groups whose known reference upper bounds
// differ by more than 2x. Minor inter-lab variation is expected; this
// usually means different tests masquerading as synonyms.
func refRangeWarning(target string, members []string, refHigh map[string]float64) string {
	var lo, hi float64
	var seen bool
	for _, m := range members {
		v, ok := refHigh[m]
		if !ok {
			continue
		}
		if !seen {
			lo, hi, seen = v, v, true
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if !seen || lo == hi {
		return ""
	}
	if (lo == 0 && hi > 0) || (lo > 0 && hi/lo > 2) {
		return fmt.Sprintf("Merging %s: reference upper bounds differ more than 2x (%g vs %g)", target, lo, hi)
	}
	return ""
}

// Result summarizes one consolidation run.
type Result struct {
	Mapping           map[string]string
	Renamed           int
	AliasesInserted   int
	DefinitionsMerged int
	Warnings          []string
}

// nameOrder is an ordered sequence of canonical names with a position
// index, used to carry display order through merges.
type nameOrder struct {
	names []string
	index map[string]int
}

func newNameOrder() *nameOrder {
	return &nameOrder{index: make(map[string]int)}
}

// add appends a name unless it is already placed; a merged name keeps
// the position of its first occurrence.
func (o *nameOrder) add(name string) {
	if _, ok := o.index[name]; ok {
		return
	}
	o.index[name] = len(o.names)
	o.names = append(o.names, name)
}

func (o *nameOrder) has(name string) bool {
	_, ok := o.index[name]
	return ok
}

// Consolidate applies the normalization plan to a profile's persisted
// data: observations are renamed to their canonical name, definitions
// are merged first-non-empty-wins, and an alias is recorded per raw
// name. Display order is preserved for untouched names; merged names
// take the position of their first occurrence and net-new names are
// appended alphabetically. Re-running on already consolidated data is a
// no-op. Per-item storage failures are recorded as warnings and do not
// abort the rest of the run.
func (n *Normalizer) Consolidate(repo storage.Repository, profileID uuid.UUID) (*Result, error) {
	obsNames, err := repo.DistinctMetricNames(profileID)
	if err != nil {
		return nil, fmt.Errorf("list metric names: %w", err)
	}
	defs, err := repo.ListDefinitions(profileID)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}

	defByName := make(map[string]*models.MetricDefinition, len(defs))
	refHigh := make(map[string]float64)
	for _, def := range defs {
		defByName[def.Name] = def
		if def.RefHigh != nil {
			refHigh[def.Name] = *def.RefHigh
		}
	}

	var names []string
	seen := make(map[string]bool)
	for _, def := range defs {
		names = append(names, def.Name)
		seen[def.Name] = true
	}
	for _, name := range obsNames {
		if !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}

	plan := n.Plan(names, refHigh)
	result := &Result{Mapping: plan.Mapping, Warnings: plan.Warnings}

	// Capture pre-merge ordering: definitions in display order first,
	// each mapped through the plan.
	order := newNameOrder()
	for _, def := range defs {
		if canonical, ok := plan.Mapping[def.Name]; ok {
			order.add(canonical)
		} else {
			order.add(def.Name)
		}
	}

	dirty := make(map[string]bool)

	for _, raw := range plan.Order {
		canonical := plan.Mapping[raw]

		renamed, err := repo.RenameMetric(profileID, raw, canonical)
		if err != nil {
			w := fmt.Sprintf("%s: rename failed: %v", raw, err)
			result.Warnings = append(result.Warnings, w)
			log.Warn("rename failed", "from", raw, "to", canonical, "error", err)
			continue
		}
		result.Renamed += renamed

		canonDef := defByName[canonical]
		if canonDef == nil {
			canonDef = models.NewMetricDefinition(profileID, canonical)
			defByName[canonical] = canonDef
		}
		if rawDef := defByName[raw]; rawDef != nil {
			mergeDefinition(canonDef, rawDef)
			if err := repo.DeleteDefinition(profileID, raw); err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s: remove definition failed: %v", raw, err))
			} else {
				result.DefinitionsMerged++
			}
			delete(defByName, raw)
		}
		if g := n.byCanonical[canonical]; g != nil {
			applyGroupMetadata(canonDef, g)
		}
		canonDef.UpdatedAt = time.Now()
		dirty[canonical] = true

		inserted, err := repo.InsertAlias(raw, canonical)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: alias insert failed: %v", raw, err))
			log.Warn("alias insert failed", "alias", raw, "error", err)
		} else if inserted {
			result.AliasesInserted++
		}
	}

	// Net-new canonical names follow the preserved ones alphabetically.
	var extras []string
	for name := range defByName {
		if !order.has(name) {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	for _, name := range extras {
		order.add(name)
	}

	var updates []*models.MetricDefinition
	for _, name := range order.names {
		def := defByName[name]
		if def == nil {
			continue
		}
		pos := order.index[name]
		if def.DisplayOrder != pos {
			def.DisplayOrder = pos
			dirty[name] = true
		}
		if dirty[name] {
			updates = append(updates, def)
		}
	}
	if len(updates) > 0 {
		if err := repo.UpsertDefinitions(updates); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("definition update failed: %v", err))
		}
	}

	return result, nil
}

// mergeDefinition copies fields from src into dst where dst is empty.
// Existing canonical data is never overwritten.
func mergeDefinition(dst, src *models.MetricDefinition) {
	if dst.Unit == nil {
		dst.Unit = src.Unit
	}
	if dst.RefLow == nil {
		dst.RefLow = src.RefLow
	}
	if dst.RefHigh == nil {
		dst.RefHigh = src.RefHigh
	}
	if src.Favorite {
		dst.Favorite = true
	}
}

// applyGroupMetadata applies the curated unit and reference range of a
// static correction group to the canonical definition.
func applyGroupMetadata(def *models.MetricDefinition, g *Group) {
	if g.Unit != "" {
		unit := g.Unit
		def.Unit = &unit
	}
	if g.RefLow != nil {
		def.RefLow = g.RefLow
	}
	if g.RefHigh != nil {
		def.RefHigh = g.RefHigh
	}
}
