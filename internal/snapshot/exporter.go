// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package snapshot exports project graphs as versioned YAML files. Each
// export writes one file per project into a local git repository and
// commits it, so the full history of a graph stays inspectable with
// ordinary git tooling.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/orca-svg/Sidera-project-sub000/internal/config"
	"github.com/orca-svg/Sidera-project-sub000/internal/database"
)

// Document is the on-disk snapshot format
type Document struct {
	Project ProjectMeta    `yaml:"project"`
	TakenAt time.Time      `yaml:"taken_at"`
	Turns   []TurnSnapshot `yaml:"turns"`
	Edges   []EdgeSnapshot `yaml:"edges"`
}

// ProjectMeta identifies the snapshotted project
type ProjectMeta struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// TurnSnapshot is one turn without its embedding blob. Vectors are
// provider-specific and bulky; they are regenerable and stay out of
// version control.
type TurnSnapshot struct {
	ID       string   `yaml:"id"`
	ParentID *string  `yaml:"parent_id,omitempty"`
	Seq      int      `yaml:"seq"`
	Question string   `yaml:"question"`
	Answer   string   `yaml:"answer"`
	Summary  string   `yaml:"summary,omitempty"`
	Keywords []string `yaml:"keywords,omitempty"`
	RawScore float64  `yaml:"raw_score"`
	Rating   int      `yaml:"rating"`
	Position Position `yaml:"position"`
}

// Position is a turn's 3D placement
type Position struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// EdgeSnapshot is one typed edge
type EdgeSnapshot struct {
	SourceID string `yaml:"source"`
	TargetID string `yaml:"target"`
	Type     string `yaml:"type"`
}

// Exporter writes project snapshots into the snapshot repository
type Exporter struct {
	projects *database.ProjectStore
	turns    *database.TurnStore
	edges    *database.EdgeStore
	repo     *Repo
}

// NewExporter opens (or initializes) the snapshot repository and wires
// the stores it exports from.
func NewExporter(db *gorm.DB, cfg config.SnapshotConfig) (*Exporter, error) {
	repo, err := InitOrOpen(cfg.Dir)
	if err != nil {
		return nil, err
	}
	return &Exporter{
		projects: database.NewProjectStore(db),
		turns:    database.NewTurnStore(db),
		edges:    database.NewEdgeStore(db),
		repo:     repo,
	}, nil
}

// Export writes one project's graph to <dir>/<projectID>.yaml and
// commits it. Returns the snapshot file path.
func (e *Exporter) Export(projectID string) (string, error) {
	project, err := e.projects.Get(projectID)
	if err != nil {
		return "", fmt.Errorf("failed to load project: %w", err)
	}

	doc, err := e.buildDocument(project)
	if err != nil {
		return "", err
	}

	path := filepath.Join(e.repo.Path, projectID+".yaml")
	if err := writeDocument(path, doc); err != nil {
		return "", err
	}

	message := fmt.Sprintf("snapshot: Export project '%s' (%d turns, %d edges)",
		project.Name, len(doc.Turns), len(doc.Edges))
	if err := e.repo.CommitAll(message); err != nil {
		return "", err
	}
	return path, nil
}

// ExportAll snapshots every project in a single commit
func (e *Exporter) ExportAll() ([]string, error) {
	projects, err := e.projects.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	var paths []string
	for i := range projects {
		doc, err := e.buildDocument(&projects[i])
		if err != nil {
			return nil, err
		}
		path := filepath.Join(e.repo.Path, projects[i].ID+".yaml")
		if err := writeDocument(path, doc); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	message := fmt.Sprintf("snapshot: Export all projects (%d)", len(projects))
	if err := e.repo.CommitAll(message); err != nil {
		return nil, err
	}
	return paths, nil
}

// History returns the most recent snapshot commits
func (e *Exporter) History(maxCount int) ([]*CommitInfo, error) {
	commits, err := e.repo.History(maxCount)
	if err != nil {
		return nil, err
	}

	infos := make([]*CommitInfo, 0, len(commits))
	for _, c := range commits {
		infos = append(infos, &CommitInfo{
			Hash:    c.Hash.String(),
			Message: c.Message,
			When:    c.Author.When,
		})
	}
	return infos, nil
}

// CommitInfo is a summarized snapshot commit
type CommitInfo struct {
	Hash    string
	Message string
	When    time.Time
}

func (e *Exporter) buildDocument(project *database.Project) (*Document, error) {
	turns, err := e.turns.ListByProject(project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	edges, err := e.edges.ListByProject(project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}

	doc := &Document{
		Project: ProjectMeta{ID: project.ID, Name: project.Name},
		TakenAt: time.Now().UTC(),
	}

	for i := range turns {
		t := &turns[i]
		var keywords []string
		if t.Keywords != "" {
			// Stored as a JSON array; a malformed value degrades to none
			_ = json.Unmarshal([]byte(t.Keywords), &keywords)
		}
		doc.Turns = append(doc.Turns, TurnSnapshot{
			ID:       t.ID,
			ParentID: t.ParentID,
			Seq:      t.Seq,
			Question: t.Question,
			Answer:   t.Answer,
			Summary:  t.Summary,
			Keywords: keywords,
			RawScore: t.RawScore,
			Rating:   t.Rating,
			Position: Position{X: t.X, Y: t.Y, Z: t.Z},
		})
	}

	for _, edge := range edges {
		doc.Edges = append(doc.Edges, EdgeSnapshot{
			SourceID: edge.SourceID,
			TargetID: edge.TargetID,
			Type:     edge.Type,
		})
	}
	return doc, nil
}

func writeDocument(path string, doc *Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}
