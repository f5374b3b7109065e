// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package snapshot

import (
	"os"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/orca-svg/Sidera-project-sub000/internal/config"
	"github.com/orca-svg/Sidera-project-sub000/internal/database"
)

func setupExporter(t *testing.T) (*Exporter, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	exporter, err := NewExporter(db, config.SnapshotConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	return exporter, db
}

func seedProject(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, database.NewProjectStore(db).Create(&database.Project{ID: "proj-1", Name: "Stars"}))

	turns := database.NewTurnStore(db)
	require.NoError(t, turns.Create(&database.Turn{
		ID: "t0", ProjectID: "proj-1", Seq: 0,
		Question: "What is a quasar?", Answer: "An active galactic nucleus.",
		Keywords: `["quasar","galaxy"]`, RawScore: 1.0, Rating: 5,
	}))
	parent := "t0"
	require.NoError(t, turns.Create(&database.Turn{
		ID: "t1", ProjectID: "proj-1", ParentID: &parent, Seq: 1,
		Question: "How bright?", Answer: "Brighter than its host galaxy.",
		RawScore: 0.5, Rating: 3, X: 7.2, Y: -1.1, Z: 3.4,
	}))

	require.NoError(t, database.NewEdgeStore(db).Create(&database.Edge{
		ID: "e0", ProjectID: "proj-1", SourceID: "t0", TargetID: "t1",
		Type: database.EdgeTypeTemporal,
	}))
}

func TestExport_WritesYAMLAndCommits(t *testing.T) {
	exporter, db := setupExporter(t)
	seedProject(t, db)

	path, err := exporter.Export("proj-1")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc Document
	require.NoError(t, yaml.Unmarshal(data, &doc))

	assert.Equal(t, "proj-1", doc.Project.ID)
	assert.Equal(t, "Stars", doc.Project.Name)
	require.Len(t, doc.Turns, 2)
	assert.Equal(t, "t0", doc.Turns[0].ID)
	assert.Equal(t, []string{"quasar", "galaxy"}, doc.Turns[0].Keywords)
	assert.Equal(t, 7.2, doc.Turns[1].Position.X)
	require.Len(t, doc.Edges, 1)
	assert.Equal(t, database.EdgeTypeTemporal, doc.Edges[0].Type)

	history, err := exporter.History(10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Contains(t, history[0].Message, "Stars")
}

func TestExport_RepeatedExportsVersionTheFile(t *testing.T) {
	exporter, db := setupExporter(t)
	seedProject(t, db)

	_, err := exporter.Export("proj-1")
	require.NoError(t, err)

	// Graph changes between snapshots
	require.NoError(t, database.NewTurnStore(db).UpdateScores("t1", 0.9, 5))

	_, err = exporter.Export("proj-1")
	require.NoError(t, err)

	history, err := exporter.History(10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestExport_UnchangedGraphSkipsCommit(t *testing.T) {
	exporter, db := setupExporter(t)
	seedProject(t, db)

	_, err := exporter.Export("proj-1")
	require.NoError(t, err)
	history, err := exporter.History(10)
	require.NoError(t, err)
	before := len(history)

	// Identical content differs only in taken_at, which always changes,
	// so a second export does commit. A clean worktree case needs the
	// same bytes; simulate by committing with no writes at all.
	require.NoError(t, exporter.repo.CommitAll("noop"))

	history, err = exporter.History(10)
	require.NoError(t, err)
	assert.Len(t, history, before, "clean worktree must not create a commit")
}

func TestExport_ProjectNotFound(t *testing.T) {
	exporter, _ := setupExporter(t)

	_, err := exporter.Export("missing")
	require.Error(t, err)
}

func TestExportAll(t *testing.T) {
	exporter, db := setupExporter(t)
	seedProject(t, db)
	require.NoError(t, database.NewProjectStore(db).Create(&database.Project{ID: "proj-2", Name: "Nebulae"}))

	paths, err := exporter.ExportAll()
	require.NoError(t, err)
	require.Len(t, paths, 2)

	for _, path := range paths {
		_, err := os.Stat(path)
		assert.NoError(t, err)
	}

	history, err := exporter.History(10)
	require.NoError(t, err)
	assert.Len(t, history, 1, "one commit covers all projects")
}
