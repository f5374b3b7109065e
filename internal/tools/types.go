// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"gorm.io/gorm"

	"github.com/orca-svg/Sidera-project-sub000/internal/ai"
	"github.com/orca-svg/Sidera-project-sub000/internal/config"
	"github.com/orca-svg/Sidera-project-sub000/internal/database"
	"github.com/orca-svg/Sidera-project-sub000/internal/graph"
	"github.com/orca-svg/Sidera-project-sub000/internal/snapshot"
)

// ToolContext holds shared dependencies for all tools
type ToolContext struct {
	DB         *gorm.DB
	Projects   *database.ProjectStore
	Turns      *database.TurnStore
	Edges      *database.EdgeStore
	Recomputer *graph.Recomputer
	AI         *ai.Service
	Exporter   *snapshot.Exporter
}

// NewToolContext wires the full tool context from a database connection
// and configuration.
func NewToolContext(db *gorm.DB, cfg *config.Config) (*ToolContext, error) {
	exporter, err := snapshot.NewExporter(db, cfg.Snapshot)
	if err != nil {
		return nil, err
	}

	return &ToolContext{
		DB:         db,
		Projects:   database.NewProjectStore(db),
		Turns:      database.NewTurnStore(db),
		Edges:      database.NewEdgeStore(db),
		Recomputer: graph.NewRecomputer(db, cfg),
		AI:         ai.NewService(cfg.AI),
		Exporter:   exporter,
	}, nil
}

// HasAI returns true when the AI service is available and enabled
func (tc *ToolContext) HasAI() bool {
	return tc.AI != nil && tc.AI.IsEnabled()
}
