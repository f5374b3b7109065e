// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// NewSnapshotTool creates the sidera_snapshot tool definition
func NewSnapshotTool() mcp.Tool {
	return mcp.NewTool("sidera_snapshot",
		mcp.WithDescription("Export a project's graph as a versioned YAML snapshot, or list snapshot history. Omit project_id to snapshot all projects."),
		mcp.WithString("project_id",
			mcp.Description("Project to snapshot. All projects when omitted."),
		),
		mcp.WithBoolean("history",
			mcp.Description("List recent snapshot commits instead of exporting"),
		),
	)
}

// SnapshotHandler handles the sidera_snapshot tool
func SnapshotHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if request.GetBool("history", false) {
			commits, err := ctx.Exporter.History(20)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("failed to read history: %v", err)), nil
			}
			if len(commits) == 0 {
				return mcp.NewToolResultText("No snapshots yet."), nil
			}
			var lines []string
			for _, commit := range commits {
				lines = append(lines, fmt.Sprintf("%s  %s  %s",
					commit.Hash[:8], commit.When.Format("2006-01-02 15:04"),
					strings.TrimSpace(commit.Message)))
			}
			return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
		}

		if projectID := request.GetString("project_id", ""); projectID != "" {
			path, err := ctx.Exporter.Export(projectID)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("snapshot failed: %v", err)), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("Snapshot written to %s", path)), nil
		}

		paths, err := ctx.Exporter.ExportAll()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("snapshot failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Snapshotted %d projects", len(paths))), nil
	}
}
