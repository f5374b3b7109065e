// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"gorm.io/gorm"
)

// NewGraphTool creates the sidera_graph tool definition
func NewGraphTool() mcp.Tool {
	return mcp.NewTool("sidera_graph",
		mcp.WithDescription("Retrieve a project's full conversation graph: turns with scores, ratings and 3D positions, plus the typed edge set."),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project to retrieve"),
		),
		mcp.WithNumber("min_rating",
			mcp.Description("Only include turns rated at or above this value (1-5)"),
		),
	)
}

// graphResponse is the JSON payload for a project graph
type graphResponse struct {
	Project struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"project"`
	Turns []turnView `json:"turns"`
	Edges []edgeView `json:"edges"`
}

// GraphHandler handles the sidera_graph tool
func GraphHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID, err := request.RequireString("project_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		minRating := int(request.GetFloat("min_rating", 0))

		project, err := ctx.Projects.Get(projectID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("project not found: %s", projectID)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("failed to load project: %v", err)), nil
		}

		turns, err := ctx.Turns.ListByProject(projectID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to load turns: %v", err)), nil
		}
		edges, err := ctx.Edges.ListByProject(projectID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to load edges: %v", err)), nil
		}

		var resp graphResponse
		resp.Project.ID = project.ID
		resp.Project.Name = project.Name

		included := make(map[string]bool, len(turns))
		for i := range turns {
			t := &turns[i]
			if t.Rating < minRating {
				continue
			}
			included[t.ID] = true

			var keywords []string
			if t.Keywords != "" {
				_ = json.Unmarshal([]byte(t.Keywords), &keywords)
			}
			resp.Turns = append(resp.Turns, turnView{
				ID:       t.ID,
				ParentID: t.ParentID,
				Seq:      t.Seq,
				Question: t.Question,
				Answer:   t.Answer,
				Summary:  t.Summary,
				Keywords: keywords,
				RawScore: t.RawScore,
				Rating:   t.Rating,
				X:        t.X,
				Y:        t.Y,
				Z:        t.Z,
			})
		}

		// Edges with a filtered-out endpoint are dropped with the turn
		for _, e := range edges {
			if !included[e.SourceID] || !included[e.TargetID] {
				continue
			}
			resp.Edges = append(resp.Edges, edgeView{
				ID: e.ID, SourceID: e.SourceID, TargetID: e.TargetID, Type: e.Type,
			})
		}

		payload, err := json.Marshal(resp)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode response: %v", err)), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}
