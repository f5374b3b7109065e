// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"gorm.io/gorm"

	"github.com/orca-svg/Sidera-project-sub000/internal/database"
)

// NewProjectTool creates the sidera_project tool definition
func NewProjectTool() mcp.Tool {
	return mcp.NewTool("sidera_project",
		mcp.WithDescription("Manage conversation projects: create, list, rename or delete. Deleting a project removes its turns and edges."),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("One of: create, list, rename, delete"),
		),
		mcp.WithString("project_id",
			mcp.Description("Target project (rename, delete)"),
		),
		mcp.WithString("name",
			mcp.Description("Project name (create, rename)"),
		),
	)
}

// ProjectHandler handles the sidera_project tool
func ProjectHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		action, err := request.RequireString("action")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		switch action {
		case "create":
			return handleCreate(ctx, request)
		case "list":
			return handleList(ctx)
		case "rename":
			return handleRename(ctx, request)
		case "delete":
			return handleDelete(ctx, request)
		default:
			return mcp.NewToolResultError(fmt.Sprintf("invalid action: '%s'. Valid: create, list, rename, delete", action)), nil
		}
	}
}

func handleCreate(ctx *ToolContext, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "New Conversation")

	project := database.Project{ID: uuid.NewString(), Name: name}
	if err := ctx.Projects.Create(&project); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create project: %v", err)), nil
	}

	payload, _ := json.Marshal(map[string]string{"id": project.ID, "name": project.Name})
	return mcp.NewToolResultText(string(payload)), nil
}

func handleList(ctx *ToolContext) (*mcp.CallToolResult, error) {
	projects, err := ctx.Projects.List()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list projects: %v", err)), nil
	}

	type entry struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Turns int64  `json:"turns"`
	}
	entries := make([]entry, 0, len(projects))
	for _, p := range projects {
		count, err := ctx.Turns.CountByProject(p.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to count turns: %v", err)), nil
		}
		entries = append(entries, entry{ID: p.ID, Name: p.Name, Turns: count})
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func handleRename(ctx *ToolContext, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := request.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if _, err := ctx.Projects.Get(projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("project not found: %s", projectID)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to load project: %v", err)), nil
	}

	if err := ctx.Projects.Rename(projectID, name); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to rename project: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Renamed project %s to '%s'", projectID, name)), nil
}

func handleDelete(ctx *ToolContext, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := request.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if _, err := ctx.Projects.Get(projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("project not found: %s", projectID)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to load project: %v", err)), nil
	}

	if err := ctx.Projects.Delete(projectID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete project: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted project %s and its graph", projectID)), nil
}
