// ABOUTME: MCP resource implementations for lab metrics.
// ABOUTME: Provides labtrack://reports/recent and labtrack://metrics/catalog resources.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerResources() {
	// labtrack://reports/recent - last 10 reports across all profiles
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "labtrack://reports/recent",
		Name:        "Recent Lab Reports",
		Description: "Last 10 lab reports across all profiles, with observation counts",
		MIMEType:    "application/json",
	}, s.handleRecentReportsResource)

	// labtrack://metrics/catalog - every defined metric per profile
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "labtrack://metrics/catalog",
		Name:        "Metric Catalog",
		Description: "All metric definitions per profile, with known aliases",
		MIMEType:    "application/json",
	}, s.handleCatalogResource)
}

// Resource handlers

func (s *Server) handleRecentReportsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	profiles, err := s.repo.ListProfiles()
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	type reportEntry struct {
		Profile      string `json:"profile"`
		SampleDate   string `json:"sample_date"`
		FileName     string `json:"file_name,omitempty"`
		Source       string `json:"source"`
		Observations int    `json:"observations"`
	}

	var entries []reportEntry
	for _, p := range profiles {
		reports, err := s.repo.ListReports(p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list reports: %w", err)
		}
		for _, r := range reports {
			obs, err := s.repo.ListObservations(r.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to list observations: %w", err)
			}
			e := reportEntry{
				Profile:      p.DisplayName,
				SampleDate:   r.SampleDate,
				Source:       r.Source,
				Observations: len(obs),
			}
			if r.FileName != nil {
				e.FileName = *r.FileName
			}
			entries = append(entries, e)
		}
	}

	// Reports come back date-ascending per profile; keep the newest 10
	// overall.
	sort.Slice(entries, func(i, j int) bool { return entries[i].SampleDate > entries[j].SampleDate })
	if len(entries) > 10 {
		entries = entries[:10]
	}

	result := map[string]interface{}{
		"reports": entries,
		"count":   len(entries),
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      "labtrack://reports/recent",
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func (s *Server) handleCatalogResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	profiles, err := s.repo.ListProfiles()
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	aliases, err := s.repo.ListAliases()
	if err != nil {
		return nil, fmt.Errorf("failed to list aliases: %w", err)
	}
	aliasesByCanonical := make(map[string][]string)
	for _, a := range aliases {
		aliasesByCanonical[a.CanonicalName] = append(aliasesByCanonical[a.CanonicalName], a.Alias)
	}

	catalog := make(map[string]interface{})
	for _, p := range profiles {
		defs, err := s.repo.ListDefinitions(p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list definitions: %w", err)
		}

		metrics := make([]map[string]interface{}, 0, len(defs))
		for _, d := range defs {
			m := map[string]interface{}{
				"name":          d.Name,
				"display_order": d.DisplayOrder,
				"favorite":      d.Favorite,
			}
			if d.Unit != nil {
				m["unit"] = *d.Unit
			}
			if d.RefLow != nil {
				m["ref_low"] = *d.RefLow
			}
			if d.RefHigh != nil {
				m["ref_high"] = *d.RefHigh
			}
			if known := aliasesByCanonical[d.Name]; len(known) > 0 {
				m["aliases"] = known
			}
			metrics = append(metrics, m)
		}
		catalog[p.DisplayName] = metrics
	}

	result := map[string]interface{}{
		"profiles": catalog,
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      "labtrack://metrics/catalog",
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
