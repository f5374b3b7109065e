// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/orca-svg/Sidera-project-sub000/internal/ai"
	"github.com/orca-svg/Sidera-project-sub000/internal/database"
	"github.com/orca-svg/Sidera-project-sub000/internal/graph"
	"github.com/orca-svg/Sidera-project-sub000/internal/similarity"
)

// Retrieval tunables for the chat context block
const (
	coreMemoryThreshold = 0.6 // Minimum similarity for a recalled turn
	recentContextTurns  = 3   // Trailing turns always included
)

// NewChatTool creates the sidera_chat tool definition
func NewChatTool() mcp.Tool {
	return mcp.NewTool("sidera_chat",
		mcp.WithDescription("Send a message to a project conversation. The answer is generated with retrieved context, scored, rated, placed in 3D space and linked into the graph."),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project to converse in"),
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The user's message"),
		),
		mcp.WithString("parent_id",
			mcp.Description("Turn to branch from. Defaults to the latest turn."),
		),
	)
}

// chatResponse is the JSON payload returned to the MCP client
type chatResponse struct {
	Turn         turnView   `json:"turn"`
	Edges        []edgeView `json:"edges"`
	ProjectTitle string     `json:"project_title,omitempty"`
}

type turnView struct {
	ID       string   `json:"id"`
	ParentID *string  `json:"parent_id,omitempty"`
	Seq      int      `json:"seq"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Summary  string   `json:"summary,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	RawScore float64  `json:"raw_score"`
	Rating   int      `json:"rating"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Z        float64  `json:"z"`
}

type edgeView struct {
	ID       string `json:"id"`
	SourceID string `json:"source"`
	TargetID string `json:"target"`
	Type     string `json:"type"`
}

// ChatHandler handles the sidera_chat tool
func ChatHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID, err := request.RequireString("project_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		message, err := request.RequireString("message")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		existing, err := ctx.Turns.ListByProject(projectID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to load turns: %v", err)), nil
		}

		// Parent defaults to the latest turn so plain chatting extends
		// the conversation tail.
		var parentID *string
		if p := request.GetString("parent_id", ""); p != "" {
			parentID = &p
		} else if len(existing) > 0 {
			parentID = &existing[len(existing)-1].ID
		}

		questionVec := ctx.AI.EmbedText(message)
		contextBlock := buildContextBlock(questionVec, existing)
		draft := ctx.AI.Compose(message, contextBlock)

		fullVec := ctx.AI.EmbedText(draft.Answer + " " + message)

		result, err := ctx.Recomputer.AppendTurn(projectID, graph.AppendInput{
			ParentID:  parentID,
			Question:  message,
			Answer:    draft.Answer,
			Summary:   draft.Summary,
			Keywords:  draft.Keywords,
			Embedding: fullVec,
		})
		if err != nil {
			return appendErrorResult(err), nil
		}

		resp := chatResponse{
			Turn:  toTurnView(&result.Turn, draft),
			Edges: toEdgeViews(result.Edges),
		}

		// Auto-title the project on its first turn
		if len(existing) == 0 && ctx.HasAI() {
			title := ctx.AI.GenerateTitle(message)
			if err := ctx.Projects.Rename(projectID, title); err == nil {
				resp.ProjectTitle = title
			}
		}

		payload, err := json.Marshal(resp)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode response: %v", err)), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}

// buildContextBlock assembles the retrieval context: the single best
// recalled turn above the similarity threshold plus the trailing turns.
func buildContextBlock(questionVec []float32, turns []database.Turn) string {
	var parts []string

	if len(questionVec) > 0 {
		type match struct {
			turn  *database.Turn
			score float64
		}
		var matches []match
		for i := range turns {
			vec := turns[i].Vector()
			if len(vec) == 0 {
				continue
			}
			matches = append(matches, match{turn: &turns[i], score: similarity.Cosine(questionVec, vec)})
		}
		sort.SliceStable(matches, func(a, b int) bool { return matches[a].score > matches[b].score })

		if len(matches) > 0 && matches[0].score > coreMemoryThreshold {
			best := matches[0].turn
			parts = append(parts, fmt.Sprintf(
				"[CORE MEMORY]\nUser previously asked: %q\nAnswer: %q\nSummary: %s",
				best.Question, best.Answer, best.Summary))
		}
	}

	start := len(turns) - recentContextTurns
	if start < 0 {
		start = 0
	}
	if start < len(turns) {
		var recent []string
		for _, t := range turns[start:] {
			recent = append(recent, fmt.Sprintf("User: %s\nAI: %s", t.Question, t.Answer))
		}
		parts = append(parts, "[RECENT CHAT]\n"+strings.Join(recent, "\n"))
	}

	return strings.Join(parts, "\n\n")
}

func toTurnView(turn *database.Turn, draft *ai.TurnDraft) turnView {
	return turnView{
		ID:       turn.ID,
		ParentID: turn.ParentID,
		Seq:      turn.Seq,
		Question: turn.Question,
		Answer:   turn.Answer,
		Summary:  turn.Summary,
		Keywords: draft.Keywords,
		RawScore: turn.RawScore,
		Rating:   turn.Rating,
		X:        turn.X,
		Y:        turn.Y,
		Z:        turn.Z,
	}
}

func toEdgeViews(edges []database.Edge) []edgeView {
	views := make([]edgeView, 0, len(edges))
	for _, e := range edges {
		views = append(views, edgeView{
			ID: e.ID, SourceID: e.SourceID, TargetID: e.TargetID, Type: e.Type,
		})
	}
	return views
}

// appendErrorResult maps recomputer errors to tool errors
func appendErrorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}
