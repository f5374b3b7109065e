// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/orca-svg/Sidera-project-sub000/internal/graph"
	"github.com/orca-svg/Sidera-project-sub000/internal/locking"
)

// NewRebuildTool creates the sidera_rebuild tool definition
func NewRebuildTool() mcp.Tool {
	return mcp.NewTool("sidera_rebuild",
		mcp.WithDescription("Recompute a project's graph from scratch: importance scores, star ratings and the full typed edge set. Omit project_id to rebuild every project."),
		mcp.WithString("project_id",
			mcp.Description("Project to rebuild. All projects when omitted."),
		),
	)
}

// RebuildHandler handles the sidera_rebuild tool
func RebuildHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID := request.GetString("project_id", "")

		if projectID != "" {
			result, err := ctx.Recomputer.RebuildProject(projectID)
			if err != nil {
				return rebuildErrorResult(err), nil
			}
			return mcp.NewToolResultText(formatRebuild(projectID, result)), nil
		}

		results, err := ctx.Recomputer.RebuildAll()
		if err != nil {
			return rebuildErrorResult(err), nil
		}
		if len(results) == 0 {
			return mcp.NewToolResultText("No projects to rebuild."), nil
		}

		var lines []string
		for id, result := range results {
			lines = append(lines, formatRebuild(id, result))
		}
		return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
	}
}

func formatRebuild(projectID string, result *graph.RebuildResult) string {
	return fmt.Sprintf("Rebuilt project %s: %d turns, %d edges in %s",
		projectID, result.TurnsProcessed, result.EdgesCreated, result.Duration.Round(time.Millisecond))
}

func rebuildErrorResult(err error) *mcp.CallToolResult {
	var lockErr *locking.LockError
	if errors.As(err, &lockErr) {
		return mcp.NewToolResultError(fmt.Sprintf(
			"project %s is being rebuilt by another agent (%s); retry shortly",
			lockErr.ProjectID, lockErr.LockedBy))
	}
	if errors.Is(err, graph.ErrProjectNotFound) {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(fmt.Sprintf("rebuild failed: %v", err))
}
