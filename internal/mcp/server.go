// ABOUTME: MCP server setup for the lab metric store.
// ABOUTME: Wraps MCP server with a storage Repository connection.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/viziai/labtrack/internal/models"
	"github.com/viziai/labtrack/internal/storage"
)

// Server wraps the MCP server with storage access.
type Server struct {
	mcpServer *mcp.Server
	repo      storage.Repository
}

// NewServer creates a new MCP server with the given storage.
func NewServer(repo storage.Repository) (*Server, error) {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "labtrack",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		repo:      repo,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server using stdio transport.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// findProfile resolves a profile by display name without creating one.
// An empty name matches when exactly one profile exists.
func (s *Server) findProfile(name string) (*models.Profile, error) {
	profiles, err := s.repo.ListProfiles()
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	if name == "" {
		if len(profiles) == 1 {
			return profiles[0], nil
		}
		return nil, fmt.Errorf("profile name required (%d profiles exist)", len(profiles))
	}

	for _, p := range profiles {
		if p.DisplayName == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("profile not found: %s", name)
}
