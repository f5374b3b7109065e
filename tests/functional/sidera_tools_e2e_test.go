// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package functional

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/orca-svg/Sidera-project-sub000/internal/ai"
	"github.com/orca-svg/Sidera-project-sub000/internal/config"
	"github.com/orca-svg/Sidera-project-sub000/internal/database"
	"github.com/orca-svg/Sidera-project-sub000/internal/locking"
	"github.com/orca-svg/Sidera-project-sub000/internal/tools"
)

// TestE2EConversationWorkflow drives the full tool surface: create a
// project, chat several turns with a mocked model, inspect the graph,
// rebuild it and snapshot it.
func TestE2EConversationWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}

	// Setup
	tempDir := t.TempDir()

	dbCfg := &database.Config{
		Type:       "sqlite",
		SQLitePath: filepath.Join(tempDir, "test.db"),
		LogLevel:   logger.Silent,
	}
	db, err := database.Connect(dbCfg)
	require.NoError(t, err)
	defer database.Close(db) //nolint:errcheck

	require.NoError(t, database.Migrate(db))
	require.NoError(t, locking.MigrateLocks(db))

	cfg := config.DefaultConfig()
	cfg.Snapshot.Dir = filepath.Join(tempDir, "snapshots")

	toolCtx, err := tools.NewToolContext(db, cfg)
	require.NoError(t, err)

	// Deterministic mock model: messages about "orbits" share a vector,
	// the "lunch" message is orthogonal.
	mock := &ai.MockProvider{
		EmbedFunc: func(text string) ([]float32, error) {
			if strings.Contains(text, "orbit") {
				return []float32{1, 0, 0}, nil
			}
			return []float32{0, 1, 0}, nil
		},
		GenerateFunc: func(system, prompt string) (string, error) {
			if strings.Contains(system, "title") {
				return "Orbital Mechanics Chat", nil
			}
			draft := ai.TurnDraft{
				Answer:   "Here is what I know about that.",
				Summary:  "Explained the topic.",
				Keywords: []string{"topic"},
			}
			payload, _ := json.Marshal(draft)
			return string(payload), nil
		},
	}
	toolCtx.AI = ai.NewServiceWithProviders(mock, mock)

	chatHandler := tools.ChatHandler(toolCtx)
	graphHandler := tools.GraphHandler(toolCtx)
	rebuildHandler := tools.RebuildHandler(toolCtx)
	projectHandler := tools.ProjectHandler(toolCtx)
	snapshotHandler := tools.SnapshotHandler(toolCtx)

	ctx := context.Background()

	// Step 1: Create a project
	createRequest := mcp.CallToolRequest{}
	createRequest.Params.Arguments = map[string]interface{}{
		"action": "create",
		"name":   "Scratch",
	}
	result, err := projectHandler(ctx, createRequest)
	require.NoError(t, err)
	require.False(t, result.IsError, "create failed: %s", getResultText(result))

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(getResultText(result)), &created))
	projectID := created.ID
	t.Logf("✓ Project created: %s", projectID)

	// Step 2: Chat three turns
	messages := []string{
		"How do orbit transfers work?",
		"What should I have for lunch?",
		"Back to orbit mechanics: what about bi-elliptic transfers?",
	}
	for _, message := range messages {
		request := mcp.CallToolRequest{}
		request.Params.Arguments = map[string]interface{}{
			"project_id": projectID,
			"message":    message,
		}
		result, err := chatHandler(ctx, request)
		require.NoError(t, err)
		require.False(t, result.IsError, "chat failed: %s", getResultText(result))
	}
	t.Logf("✓ Chatted %d turns", len(messages))

	// First turn auto-titles the project
	listRequest := mcp.CallToolRequest{}
	listRequest.Params.Arguments = map[string]interface{}{"action": "list"}
	result, err = projectHandler(ctx, listRequest)
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, getResultText(result), "Orbital Mechanics Chat")

	// Step 3: Retrieve the graph
	graphRequest := mcp.CallToolRequest{}
	graphRequest.Params.Arguments = map[string]interface{}{
		"project_id": projectID,
	}
	result, err = graphHandler(ctx, graphRequest)
	require.NoError(t, err)
	require.False(t, result.IsError, "graph failed: %s", getResultText(result))

	var view struct {
		Turns []struct {
			ID     string `json:"id"`
			Seq    int    `json:"seq"`
			Rating int    `json:"rating"`
		} `json:"turns"`
		Edges []struct {
			SourceID string `json:"source"`
			TargetID string `json:"target"`
			Type     string `json:"type"`
		} `json:"edges"`
	}
	require.NoError(t, json.Unmarshal([]byte(getResultText(result)), &view))
	require.Len(t, view.Turns, 3)

	// Every non-first turn connects to its predecessor
	for i := 1; i < len(view.Turns); i++ {
		found := false
		for _, e := range view.Edges {
			if e.SourceID == view.Turns[i-1].ID && e.TargetID == view.Turns[i].ID {
				found = true
				assert.Contains(t, []string{database.EdgeTypeTemporal, database.EdgeTypeExplicit}, e.Type)
			}
		}
		assert.True(t, found, "turn %d missing backbone edge", i)
	}
	for _, turn := range view.Turns {
		assert.GreaterOrEqual(t, turn.Rating, 1)
		assert.LessOrEqual(t, turn.Rating, 5)
	}
	t.Logf("✓ Graph verified: %d turns, %d edges", len(view.Turns), len(view.Edges))

	// Step 4: Rebuild the project
	rebuildRequest := mcp.CallToolRequest{}
	rebuildRequest.Params.Arguments = map[string]interface{}{
		"project_id": projectID,
	}
	result, err = rebuildHandler(ctx, rebuildRequest)
	require.NoError(t, err)
	require.False(t, result.IsError, "rebuild failed: %s", getResultText(result))
	assert.Contains(t, getResultText(result), "3 turns")
	t.Logf("✓ Rebuilt: %s", getResultText(result))

	// Step 5: Snapshot and list history
	snapshotRequest := mcp.CallToolRequest{}
	snapshotRequest.Params.Arguments = map[string]interface{}{
		"project_id": projectID,
	}
	result, err = snapshotHandler(ctx, snapshotRequest)
	require.NoError(t, err)
	require.False(t, result.IsError, "snapshot failed: %s", getResultText(result))

	historyRequest := mcp.CallToolRequest{}
	historyRequest.Params.Arguments = map[string]interface{}{
		"history": true,
	}
	result, err = snapshotHandler(ctx, historyRequest)
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, getResultText(result), "snapshot:")
	t.Logf("✓ Snapshot history:\n%s", getResultText(result))

	// Step 6: Delete the project; turns and edges go with it
	deleteRequest := mcp.CallToolRequest{}
	deleteRequest.Params.Arguments = map[string]interface{}{
		"action":     "delete",
		"project_id": projectID,
	}
	result, err = projectHandler(ctx, deleteRequest)
	require.NoError(t, err)
	require.False(t, result.IsError, "delete failed: %s", getResultText(result))

	count, err := toolCtx.Turns.CountByProject(projectID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	edges, err := toolCtx.Edges.ListByProject(projectID)
	require.NoError(t, err)
	assert.Empty(t, edges)
	t.Log("✓ Project deleted with its graph")
}

// TestE2EDegradedWithoutAI verifies the chat flow works with the AI
// providers disabled: placeholder answers, no embeddings, temporal-only
// edges.
func TestE2EDegradedWithoutAI(t *testing.T) {
	tempDir := t.TempDir()

	dbCfg := &database.Config{
		Type:       "sqlite",
		SQLitePath: filepath.Join(tempDir, "test.db"),
		LogLevel:   logger.Silent,
	}
	db, err := database.Connect(dbCfg)
	require.NoError(t, err)
	defer database.Close(db) //nolint:errcheck

	require.NoError(t, database.Migrate(db))
	require.NoError(t, locking.MigrateLocks(db))

	cfg := config.DefaultConfig()
	cfg.Snapshot.Dir = filepath.Join(tempDir, "snapshots")

	toolCtx, err := tools.NewToolContext(db, cfg)
	require.NoError(t, err)
	require.False(t, toolCtx.HasAI())

	require.NoError(t, toolCtx.Projects.Create(&database.Project{ID: "p1", Name: "Offline"}))

	chatHandler := tools.ChatHandler(toolCtx)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		request := mcp.CallToolRequest{}
		request.Params.Arguments = map[string]interface{}{
			"project_id": "p1",
			"message":    fmt.Sprintf("message %d", i),
		}
		result, err := chatHandler(ctx, request)
		require.NoError(t, err)
		require.False(t, result.IsError, "chat failed: %s", getResultText(result))
	}

	edges, err := toolCtx.Edges.ListByProject("p1")
	require.NoError(t, err)
	require.Len(t, edges, 2)
	for _, e := range edges {
		assert.Equal(t, database.EdgeTypeTemporal, e.Type)
	}
}

// getResultText extracts the text payload from a tool result
func getResultText(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	if textContent, ok := result.Content[0].(mcp.TextContent); ok {
		return textContent.Text
	}
	return ""
}
