// Package mcpserver exposes the discovery tree over the Model Context
// Protocol so MCP clients can browse, refresh, and retry tree nodes through
// a small set of tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"canopy/internal/identity"
	"canopy/internal/tree"
	"canopy/pkg/logging"
)

// Server wraps an MCP server around the tree orchestrator.
type Server struct {
	orchestrator *tree.Orchestrator
	mcpServer    *server.MCPServer
}

// New creates the MCP server and registers the tree tools.
func New(orchestrator *tree.Orchestrator, version string) *Server {
	s := &Server{orchestrator: orchestrator}

	mcpServer := server.NewMCPServer(
		"canopy",
		version,
		server.WithToolCapabilities(true),
	)
	mcpServer.AddTools(s.tools()...)
	s.mcpServer = mcpServer
	return s
}

// ServeStdio serves MCP over stdin/stdout until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	logging.Info("MCPServer", "Serving discovery tree over stdio")
	stdioServer := server.NewStdioServer(s.mcpServer)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// nodeSummary is the JSON shape returned for a tree node.
type nodeSummary struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Provider   string `json:"provider"`
	Expandable bool   `json:"expandable"`
	ResourceID string `json:"resourceId,omitempty"`
	IsError    bool   `json:"isError,omitempty"`
}

func summarize(node tree.Node) nodeSummary {
	summary := nodeSummary{
		ID:       node.ID(),
		Label:    node.Label(),
		Provider: identity.OwningProviderID(node.ID()),
	}
	if _, ok := node.(tree.Expandable); ok {
		summary.Expandable = true
	}
	if carrier, ok := node.(tree.ResourceCarrier); ok {
		summary.ResourceID = carrier.ResourceID()
	}
	if _, ok := node.(*tree.ErrorNode); ok {
		summary.IsError = true
	}
	return summary
}

func nodesResult(nodes []tree.Node) (*mcp.CallToolResult, error) {
	summaries := make([]nodeSummary, len(nodes))
	for i, n := range nodes {
		summaries[i] = summarize(n)
	}
	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode nodes: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func nodeResult(node tree.Node) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(summarize(node), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode node: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// resolveNode locates the node a tool call addresses, re-expanding cached
// subtrees as needed.
func (s *Server) resolveNode(ctx context.Context, nodeID string) (tree.Node, error) {
	node, found, err := s.orchestrator.FindByID(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("node %q not found", nodeID)
	}
	return node, nil
}
