// ABOUTME: Static correction table mapping known variant spellings to canonical metric names.
// ABOUTME: Groups also carry curated unit and reference metadata applied during consolidation.
package normalize

import (
	"encoding/json"
	"fmt"
	"os"
)

// Group is one canonical metric name together with its known variant
// spellings and curated unit/reference metadata. The built-in table
// covers the Turkish lab labels seen in practice; a custom table can be
// loaded from JSON.
type Group struct {
	Canonical string   `json:"canonical"`
	Unit      string   `json:"unit"`
	RefLow    *float64 `json:"ref_low"`
	RefHigh   *float64 `json:"ref_high"`
	Variants  []string `json:"variants"`
}

// LoadGroups reads a custom correction table from a JSON file.
func LoadGroups(path string) ([]Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read groups file: %w", err)
	}
	var groups []Group
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("parse groups file: %w", err)
	}
	return groups, nil
}

// DefaultGroups returns the built-in correction table.
func DefaultGroups() []Group {
	return defaultGroups
}

func ref(v float64) *float64 { return &v }

var defaultGroups = []Group{
	{
		Canonical: "ALT (Alanin Aminotransferaz)",
		Unit:      "U/L", RefLow: ref(5), RefHigh: ref(55),
		Variants: []string{
			"ALT",
			"Alanin aminotransferaz",
			"Alanin aminotransferaz - [Alt / Sgpt]",
			"Alanine aminotransferaz (ALT)",
			"Alt (Alanin Aminotransferaz)",
			"Alt (Alanine Aminotransferaz)",
		},
	},
	{
		Canonical: "AST (Aspartat Transaminaz)",
		Unit:      "U/L", RefLow: ref(5), RefHigh: ref(40),
		Variants: []string{
			"AST",
			"Aspartat transaminaz",
			"Aspartat transaminaz (AST)",
			"Aspartat transaminaz [Ast / Sgot]",
			"Ast (Aspartat Transaminaz)",
		},
	},
	{
		Canonical: "Albümin",
		Unit:      "g/L",
		Variants: []string{
			"Albumin",
			"Albümin (Serum/Plazma)",
			"Albümün",
		},
	},
	{
		Canonical: "ALP (Alkalen Fosfataz)",
		Unit:      "U/L", RefLow: ref(30), RefHigh: ref(150),
		Variants: []string{
			"ALP",
			"Alkalen Fosfataz",
			"Alkalen fosfataz",
			"Alkalen fosfataz (Serum/Plazma)",
			"Alkalin fosfataz",
			"Alp (Alkalen Fosfataz)",
		},
	},
	{
		Canonical: "GGT (Gamma Glutamil Transferaz)",
		Unit:      "U/L", RefLow: ref(5), RefHigh: ref(55),
		Variants: []string{
			"GGT",
			"GGT - Gamma glutamil transferaz",
			"Gama glutamil transferaz (GGT)",
			"Ggt (Gamma Glutamil Transferaz)",
		},
	},
	{
		Canonical: "LDH (Laktik Dehidrogenaz)",
		Unit:      "U/L", RefLow: ref(120), RefHigh: ref(246),
		Variants: []string{
			"LDH",
			"LDH - Laktik Dehidrogenaz",
			"Laktik Dehidrogenaz (LDH)",
			"Ldh (Laktik Dehidrogenaz)",
		},
	},
	{
		Canonical: "CRP (C-Reaktif Protein)",
		Unit:      "mg/L", RefLow: ref(0), RefHigh: ref(5),
		Variants: []string{
			"CRP",
			"C-reaktif Protein",
			"C Reaktif Protein",
			"Crp (Turbidimetrik)",
		},
	},
	{
		Canonical: "Kalsiyum",
		Unit:      "mg/dL", RefLow: ref(8.5), RefHigh: ref(10.5),
		Variants: []string{
			"Kalsiyum (Ca)",
			"Kalsiyum (Serum/Plazma)",
		},
	},
	{
		Canonical: "Sodyum",
		Unit:      "mmol/L", RefLow: ref(136), RefHigh: ref(145),
		Variants: []string{
			"Sodyum (Na)",
			"Sodyum (Na)(Serum/Plazma)",
			"Sodyum [Na]",
		},
	},
	{
		Canonical: "Demir",
		Unit:      "µg/dL", RefLow: ref(31), RefHigh: ref(144),
		Variants: []string{
			"Demir [Serum]",
		},
	},
	{
		Canonical: "Ürik Asit",
		Unit:      "mg/dL", RefLow: ref(2.6), RefHigh: ref(6),
		Variants: []string{
			"Ürik asit",
			"Ürik Asit (Serum/Plazma)",
		},
	},
	{
		Canonical: "eGFR (Glomerüler Filtrasyon Hızı)",
		Unit:      "mL/dk/1.73m²", RefLow: ref(60), RefHigh: ref(120),
		Variants: []string{
			"eGFR",
			"E-GFR",
			"Gfr - Tahmini Glomerüler Filtrasyon Hızı",
			"Glomerüler Filtrasyon Hızı CKD",
			"tGFR",
		},
	},
	{
		Canonical: "Ferritin",
		Unit:      "ng/mL", RefLow: ref(12), RefHigh: ref(300),
		Variants: []string{
			"Ferritin(Serum/Plazma)",
		},
	},
	{
		Canonical: "Hemoglobin",
		Unit:      "g/dL", RefLow: ref(13), RefHigh: ref(17.5),
		Variants: []string{
			"HGB",
			"Hgb",
		},
	},
	{
		Canonical: "Hematokrit",
		Unit:      "%", RefLow: ref(36), RefHigh: ref(51),
		Variants: []string{
			"HCT",
			"Hct",
		},
	},
	{
		Canonical: "MPV (Ortalama Trombosit Hacmi)",
		Unit:      "fL", RefLow: ref(7), RefHigh: ref(12.4),
		Variants: []string{
			"MPV",
			"Ortalama Trombosit Hacmi",
		},
	},
	{
		Canonical: "Sedimantasyon",
		Unit:      "mm/h", RefLow: ref(0), RefHigh: ref(20),
		Variants: []string{
			"Sedimentasyon",
			"SEDIMENTASYON",
		},
	},
	{
		Canonical: "Vitamin B12",
		Unit:      "pg/mL", RefLow: ref(190), RefHigh: ref(880),
		Variants: []string{
			"B12 Vitamini",
		},
	},
	{
		Canonical: "Total Bilirubin",
		Unit:      "mg/dL", RefLow: ref(0.2), RefHigh: ref(1.2),
		Variants: []string{
			"Bilirubin (Total)",
			"Bilirubin Total",
			"Bilirubin",
		},
	},
	{
		Canonical: "Direkt Bilirubin",
		Unit:      "mg/dL", RefLow: ref(0), RefHigh: ref(0.3),
		Variants: []string{
			"Bilirubin Direkt",
			"Bilirubin (Direkt)",
			"Bilirubin (direk)",
			"Bilirubin - [Direkt]",
		},
	},
	{
		Canonical: "APTT (Parsiyel Tromboplastin Zamanı)",
		Unit:      "sn", RefLow: ref(21), RefHigh: ref(35),
		Variants: []string{
			"APTT",
			"Aktive Parsiyel Tromboplastin Zamanı",
		},
	},
	{
		Canonical: "Trigliserid",
		Unit:      "mg/dL", RefLow: ref(0), RefHigh: ref(150),
		Variants: []string{
			"Trigliserit",
		},
	},
	{
		Canonical: "Potasyum",
		Unit:      "mmol/L", RefLow: ref(3.5), RefHigh: ref(5.1),
		Variants: []string{
			"Potasuyum (K)",
		},
	},
	{
		Canonical: "Kan Üre Azotu",
		Unit:      "mg/dL", RefLow: ref(6), RefHigh: ref(23),
		Variants: []string{
			"Kan Üre Azotu (BUN)",
			"Kan üre azotu (BUN)",
		},
	},
	{
		Canonical: "Nötrofil#",
		Unit:      "10^3/µL", RefLow: ref(1.5), RefHigh: ref(7.7),
		Variants: []string{
			"Nötrofil",
			"NEU#",
		},
	},
	{
		Canonical: "Monosit#",
		Unit:      "10^3/µL", RefLow: ref(0.1), RefHigh: ref(1.0),
		Variants: []string{
			"Monosit",
			"MO#",
			"MON#",
		},
	},
	{
		Canonical: "Lenfosit#",
		Unit:      "10^3/µL", RefLow: ref(1), RefHigh: ref(4.8),
		Variants: []string{
			"Lenfosit",
			"LY#",
			"LYM#",
		},
	},
	{
		Canonical: "Eozinofil#",
		Unit:      "10^3/µL", RefLow: ref(0), RefHigh: ref(0.5),
		Variants: []string{
			"Eozinofil",
			"EOS#",
		},
	},
	{
		Canonical: "Bazofil#",
		Unit:      "10^3/µL", RefLow: ref(0), RefHigh: ref(0.1),
		Variants: []string{
			"Bazofil",
			"BASO#",
		},
	},
}
