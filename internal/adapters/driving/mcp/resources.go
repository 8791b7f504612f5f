package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for sercha-ingest resources.
	uriScheme = "sercha-ingest://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "source-types",
		Name:        "source-types",
		Description: "Source types the crawler can parse, with descriptions",
		MIMEType:    "application/json",
	}, s.handleSourceTypesResource)

	if s.ports.Settings != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "settings",
			Name:        "settings",
			Description: "Effective settings with secrets masked",
			MIMEType:    "application/json",
		}, s.handleSettingsResource)
	}

	if s.ports.Runs != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "runs",
			Name:        "runs",
			Description: "Recent ingest runs, newest first",
			MIMEType:    "application/json",
		}, s.handleRunsResource)
	}
}

// handleSourceTypesResource lists the parseable source types.
func (s *Server) handleSourceTypesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	types := domain.AllSourceTypes()
	if s.ports.SourceTypes != nil {
		types = s.ports.SourceTypes()
	}

	type sourceTypeInfo struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	}
	infos := make([]sourceTypeInfo, len(types))
	for i, st := range types {
		infos[i] = sourceTypeInfo{Type: st.String(), Description: st.Description()}
	}

	return jsonResource(req.Params.URI, infos)
}

// handleSettingsResource returns the effective settings.
func (s *Server) handleSettingsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	settings, err := s.ports.Settings.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return jsonResource(req.Params.URI, settings.Redacted())
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleRunsResource returns the most recent ingest runs.
func (s *Server) handleRunsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	runs, err := s.ports.Runs.List(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	if runs == nil {
		runs = []domain.RunRecord{}
	}
	return jsonResource(req.Params.URI, runs)
}
