package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"canopy/pkg/logging"
)

func nodeIDProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// tools declares the MCP tool surface of the discovery tree.
func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.Tool{
				Name:        "tree_roots",
				Description: "List the root nodes of the discovery tree, one per active provider, sorted by id.",
				InputSchema: mcp.ToolInputSchema{
					Type:       "object",
					Properties: map[string]interface{}{},
				},
			},
			Handler: s.handleRoots,
		},
		{
			Tool: mcp.Tool{
				Name:        "tree_children",
				Description: "Expand a node and list its children. Failed expansions return a stable error placeholder until tree_retry is called for the node.",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						"node_id": nodeIDProperty("The tree id of the node to expand"),
					},
					Required: []string{"node_id"},
				},
			},
			Handler: s.handleChildren,
		},
		{
			Tool: mcp.Tool{
				Name:        "tree_parent",
				Description: "Return the parent of a node, or report that the node is a root.",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						"node_id": nodeIDProperty("The tree id of the node"),
					},
					Required: []string{"node_id"},
				},
			},
			Handler: s.handleParent,
		},
		{
			Tool: mcp.Tool{
				Name:        "tree_find",
				Description: "Locate a node by tree id, or by resource id suffix when no exact match exists.",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						"id": nodeIDProperty("A tree id or a namespaced resource id"),
					},
					Required: []string{"id"},
				},
			},
			Handler: s.handleFind,
		},
		{
			Tool: mcp.Tool{
				Name:        "tree_refresh",
				Description: "Invalidate a node's cached subtree so its children are re-fetched lazily. Without node_id the whole tree is invalidated.",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						"node_id": nodeIDProperty("The tree id of the node to refresh; omit for the whole tree"),
					},
				},
			},
			Handler: s.handleRefresh,
		},
		{
			Tool: mcp.Tool{
				Name:        "tree_retry",
				Description: "Reset a node's error state so its next expansion is attempted for real.",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						"node_id": nodeIDProperty("The tree id of the node whose error state to clear"),
					},
					Required: []string{"node_id"},
				},
			},
			Handler: s.handleRetry,
		},
	}
}

func (s *Server) handleRoots(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roots, err := s.orchestrator.RootNodes(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list roots: %v", err)), nil
	}
	return nodesResult(roots)
}

func (s *Server) handleChildren(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeID, err := req.RequireString("node_id")
	if err != nil {
		return mcp.NewToolResultError("node_id argument is required"), nil
	}

	node, err := s.resolveNode(ctx, nodeID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	children, err := s.orchestrator.Children(ctx, node)
	if err != nil {
		logging.Error("MCPServer", err, "Expansion of %s aborted", nodeID)
		return mcp.NewToolResultError(fmt.Sprintf("Failed to expand %s: %v", nodeID, err)), nil
	}
	return nodesResult(children)
}

func (s *Server) handleParent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeID, err := req.RequireString("node_id")
	if err != nil {
		return mcp.NewToolResultError("node_id argument is required"), nil
	}

	node, err := s.resolveNode(ctx, nodeID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	parent, ok := s.orchestrator.Parent(node)
	if !ok {
		return mcp.NewToolResultText(fmt.Sprintf("%q is a root node", nodeID)), nil
	}
	return nodeResult(parent)
}

func (s *Server) handleFind(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id argument is required"), nil
	}

	node, found, err := s.orchestrator.FindByID(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Lookup failed: %v", err)), nil
	}
	if !found {
		// Resource ids are position-independent; fall back to suffix match.
		node, found = s.orchestrator.FindBySuffix(id)
	}
	if !found {
		return mcp.NewToolResultError(fmt.Sprintf("No node found for %q", id)), nil
	}
	return nodeResult(node)
}

func (s *Server) handleRefresh(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeID := ""
	if raw, ok := req.GetArguments()["node_id"]; ok {
		nodeID, _ = raw.(string)
	}

	if nodeID == "" {
		if err := s.orchestrator.Refresh(ctx, nil); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Refresh failed: %v", err)), nil
		}
		return mcp.NewToolResultText("Refreshed the whole tree"), nil
	}

	node, err := s.resolveNode(ctx, nodeID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.orchestrator.Refresh(ctx, node); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Refresh failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Refreshed %s", nodeID)), nil
}

func (s *Server) handleRetry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeID, err := req.RequireString("node_id")
	if err != nil {
		return mcp.NewToolResultError("node_id argument is required"), nil
	}

	s.orchestrator.ResetNodeErrorState(nodeID)
	return mcp.NewToolResultText(fmt.Sprintf("Cleared error state for %s", nodeID)), nil
}
