// ABOUTME: MCP tool implementations for lab metrics.
// ABOUTME: Provides read and validation operations over stored lab data.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/viziai/labtrack/internal/extract"
	"github.com/viziai/labtrack/internal/storage"
	"github.com/viziai/labtrack/internal/validate"
)

func (s *Server) registerTools() {
	// list_profiles
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_profiles",
		Description: "List all profiles in the lab data store",
	}, s.handleListProfiles)

	// list_reports
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_reports",
		Description: "List a profile's lab reports in sample-date order",
	}, s.handleListReports)

	// metric_series
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "metric_series",
		Description: "Get one metric's values across all of a profile's reports",
	}, s.handleMetricSeries)

	// list_definitions
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_definitions",
		Description: "List a profile's metric definitions (units, reference ranges, display order)",
	}, s.handleListDefinitions)

	// validate_value
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "validate_value",
		Description: "Check a candidate metric value against the profile's history",
	}, s.handleValidateValue)
}

// Tool input/output types

type listProfilesInput struct{}

type profileOutput struct {
	DisplayName string `json:"display_name"`
	ID          string `json:"id"`
}

type listReportsInput struct {
	Profile string `json:"profile,omitempty" jsonschema:"Profile display name (optional when only one profile exists)"`
}

type reportOutput struct {
	ID         string `json:"id"`
	SampleDate string `json:"sample_date"`
	FileName   string `json:"file_name,omitempty"`
	Source     string `json:"source"`
}

type metricSeriesInput struct {
	Profile string `json:"profile,omitempty" jsonschema:"Profile display name (optional when only one profile exists)"`
	Metric  string `json:"metric" jsonschema:"Metric name as stored (e.g. Hemoglobin)"`
}

type metricSeriesOutput struct {
	Metric  string     `json:"metric"`
	Unit    *string    `json:"unit,omitempty"`
	RefLow  *float64   `json:"ref_low,omitempty"`
	RefHigh *float64   `json:"ref_high,omitempty"`
	Dates   []string   `json:"dates"`
	Values  []*float64 `json:"values"`
}

type listDefinitionsInput struct {
	Profile string `json:"profile,omitempty" jsonschema:"Profile display name (optional when only one profile exists)"`
}

type definitionOutput struct {
	Name         string   `json:"name"`
	Unit         *string  `json:"unit,omitempty"`
	RefLow       *float64 `json:"ref_low,omitempty"`
	RefHigh      *float64 `json:"ref_high,omitempty"`
	DisplayOrder int      `json:"display_order"`
	Favorite     bool     `json:"favorite"`
}

type validateValueInput struct {
	Profile         string  `json:"profile,omitempty" jsonschema:"Profile display name (optional when only one profile exists)"`
	Metric          string  `json:"metric" jsonschema:"Metric name as stored"`
	Value           float64 `json:"value" jsonschema:"Candidate value to check"`
	MaxDeviationPct float64 `json:"max_deviation_pct,omitempty" jsonschema:"Allowed deviation from the historical median in percent (default 500)"`
}

type validateValueOutput struct {
	Valid        bool    `json:"valid"`
	Reason       string  `json:"reason,omitempty"`
	Median       float64 `json:"median"`
	HistoryCount int     `json:"history_count"`
}

// Tool handlers

func (s *Server) handleListProfiles(ctx context.Context, req *mcp.CallToolRequest, input listProfilesInput) (*mcp.CallToolResult, any, error) {
	profiles, err := s.repo.ListProfiles()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	if len(profiles) == 0 {
		return nil, map[string]interface{}{"message": "No profiles found."}, nil
	}

	out := make([]profileOutput, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, profileOutput{DisplayName: p.DisplayName, ID: p.ID.String()[:8]})
	}
	return nil, out, nil
}

func (s *Server) handleListReports(ctx context.Context, req *mcp.CallToolRequest, input listReportsInput) (*mcp.CallToolResult, any, error) {
	p, err := s.findProfile(input.Profile)
	if err != nil {
		return nil, nil, err
	}

	reports, err := s.repo.ListReports(p.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list reports: %w", err)
	}

	if len(reports) == 0 {
		return nil, map[string]interface{}{"message": "No reports found."}, nil
	}

	out := make([]reportOutput, 0, len(reports))
	for _, r := range reports {
		ro := reportOutput{
			ID:         r.ID.String()[:8],
			SampleDate: r.SampleDate,
			Source:     r.Source,
		}
		if r.FileName != nil {
			ro.FileName = *r.FileName
		}
		out = append(out, ro)
	}
	return nil, out, nil
}

func (s *Server) handleMetricSeries(ctx context.Context, req *mcp.CallToolRequest, input metricSeriesInput) (*mcp.CallToolResult, metricSeriesOutput, error) {
	p, err := s.findProfile(input.Profile)
	if err != nil {
		return nil, metricSeriesOutput{}, err
	}

	set, err := storage.BuildSeries(s.repo, p.ID)
	if err != nil {
		return nil, metricSeriesOutput{}, fmt.Errorf("failed to build series: %w", err)
	}

	for _, series := range set.Series {
		if series.Name == input.Metric {
			return nil, metricSeriesOutput{
				Metric:  series.Name,
				Unit:    series.Unit,
				RefLow:  series.RefLow,
				RefHigh: series.RefHigh,
				Dates:   set.Dates,
				Values:  series.Values,
			}, nil
		}
	}
	return nil, metricSeriesOutput{}, fmt.Errorf("metric not found: %s", input.Metric)
}

func (s *Server) handleListDefinitions(ctx context.Context, req *mcp.CallToolRequest, input listDefinitionsInput) (*mcp.CallToolResult, any, error) {
	p, err := s.findProfile(input.Profile)
	if err != nil {
		return nil, nil, err
	}

	defs, err := s.repo.ListDefinitions(p.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list definitions: %w", err)
	}

	if len(defs) == 0 {
		return nil, map[string]interface{}{"message": "No definitions found."}, nil
	}

	out := make([]definitionOutput, 0, len(defs))
	for _, d := range defs {
		out = append(out, definitionOutput{
			Name:         d.Name,
			Unit:         d.Unit,
			RefLow:       d.RefLow,
			RefHigh:      d.RefHigh,
			DisplayOrder: d.DisplayOrder,
			Favorite:     d.Favorite,
		})
	}
	return nil, out, nil
}

func (s *Server) handleValidateValue(ctx context.Context, req *mcp.CallToolRequest, input validateValueInput) (*mcp.CallToolResult, validateValueOutput, error) {
	p, err := s.findProfile(input.Profile)
	if err != nil {
		return nil, validateValueOutput{}, err
	}

	history, err := s.repo.MetricHistory(p.ID, input.Metric)
	if err != nil {
		return nil, validateValueOutput{}, fmt.Errorf("failed to load history: %w", err)
	}

	result := validate.MetricValue(input.Metric, extract.Num(input.Value), history, input.MaxDeviationPct)

	return nil, validateValueOutput{
		Valid:        result.Valid,
		Reason:       result.Reason,
		Median:       validate.Median(history),
		HistoryCount: len(history),
	}, nil
}
