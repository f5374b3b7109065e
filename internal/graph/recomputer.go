// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orca-svg/Sidera-project-sub000/internal/config"
	"github.com/orca-svg/Sidera-project-sub000/internal/database"
	"github.com/orca-svg/Sidera-project-sub000/internal/layout"
	"github.com/orca-svg/Sidera-project-sub000/internal/locking"
	"github.com/orca-svg/Sidera-project-sub000/internal/scoring"
)

// Hard errors surfaced to callers. Everything else about degenerate input
// (missing embeddings, tiny populations, empty windows) degrades silently.
var (
	ErrProjectNotFound = errors.New("project not found")
	ErrParentNotFound  = errors.New("parent turn not found")
)

// Recomputer orchestrates scoring, rating, edge classification and
// placement over a project's turns.
//
// Two modes: AppendTurn runs in the turn-creation request path and scores
// the new turn against whatever population exists at that moment; its
// ratings may drift from a full recompute until RebuildProject replays the
// whole project and reconciles them. Both modes serialize on a
// project-scoped lock held under a per-operation identity, so concurrent
// operations exclude each other even inside one process, and their writes
// commit in a single transaction so readers never observe a half-built
// edge set.
type Recomputer struct {
	db         *gorm.DB
	projects   *database.ProjectStore
	turns      *database.TurnStore
	edges      *database.EdgeStore
	scorer     *scoring.ImportanceScorer
	rater      *scoring.PercentileRater
	classifier *Classifier
	layout     *layout.Generator
	locker     *locking.Locker
	agentID    string
}

// NewRecomputer wires a recomputer over the given database connection
func NewRecomputer(db *gorm.DB, cfg *config.Config) *Recomputer {
	return &Recomputer{
		db:         db,
		projects:   database.NewProjectStore(db),
		turns:      database.NewTurnStore(db),
		edges:      database.NewEdgeStore(db),
		scorer:     scoring.NewImportanceScorer(cfg.Scoring, nil),
		rater:      scoring.NewPercentileRater(cfg.Rating),
		classifier: NewClassifier(cfg.Connect),
		layout:     layout.NewGenerator(cfg.Layout),
		locker:     locking.NewLocker(db),
		agentID:    uuid.NewString(),
	}
}

// lockOwner derives a fresh holder identity for one operation. The lock's
// reentrancy branch matches on the holder string, so a shared identity
// would let two in-flight operations overlap; the process-wide prefix is
// kept only to make lock rows attributable.
func (r *Recomputer) lockOwner() string {
	return r.agentID + ":" + uuid.NewString()
}

// WithClassifier swaps the speech-act classifier used for scoring.
// Lets deployments plug alternate locales without touching the weights.
func (r *Recomputer) WithClassifier(cfg config.ScoringConfig, acts scoring.SpeechActClassifier) *Recomputer {
	r.scorer = scoring.NewImportanceScorer(cfg, acts)
	return r
}

// AppendInput describes a new turn arriving in the request path
type AppendInput struct {
	ParentID  *string
	Question  string
	Answer    string
	Summary   string
	Keywords  []string
	Embedding []float32 // nil when the embedding provider failed or is disabled
}

// AppendResult is the committed state of the appended turn
type AppendResult struct {
	Turn  database.Turn
	Edges []database.Edge
}

// RebuildResult contains statistics from a batch recompute
type RebuildResult struct {
	TurnsProcessed int
	EdgesCreated   int
	Duration       time.Duration
}

// AppendTurn scores, rates, classifies and places one new turn.
// It runs synchronously and commits turn plus edges atomically: on
// failure no partial edge set is left behind.
func (r *Recomputer) AppendTurn(projectID string, input AppendInput) (*AppendResult, error) {
	if _, err := r.projects.Get(projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	var parent *database.Turn
	if input.ParentID != nil {
		p, err := r.turns.Get(*input.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrParentNotFound, *input.ParentID)
			}
			return nil, fmt.Errorf("failed to load parent turn: %w", err)
		}
		if p.ProjectID != projectID {
			return nil, fmt.Errorf("%w: %s belongs to another project", ErrParentNotFound, *input.ParentID)
		}
		parent = p
	}

	var result *AppendResult
	err := r.locker.WithLock(projectID, r.lockOwner(), func() error {
		existing, err := r.turns.ListByProject(projectID)
		if err != nil {
			return err
		}

		text := input.Answer + " " + input.Question
		var rawScore float64
		if len(existing) == 0 {
			rawScore = r.scorer.ScoreFirst(input.Question, text)
		} else {
			rawScore = r.scorer.Score(text)
		}

		population := make([]float64, 0, len(existing)+1)
		for _, turn := range existing {
			population = append(population, turn.RawScore)
		}
		population = append(population, rawScore)
		rating := r.rater.Rate(rawScore, population)

		siblingIndex := 0
		for _, turn := range existing {
			if sameParent(turn.ParentID, input.ParentID) {
				siblingIndex++
			}
		}
		position := r.layout.Position(projectID, parent, siblingIndex)

		keywords, err := json.Marshal(input.Keywords)
		if err != nil {
			return fmt.Errorf("failed to encode keywords: %w", err)
		}

		// Seq must stay monotonic even after a turn is deleted, so it is
		// derived from the stored maximum rather than the list length.
		seq, err := r.turns.NextSeq(projectID)
		if err != nil {
			return err
		}

		turn := database.Turn{
			ID:        uuid.NewString(),
			ProjectID: projectID,
			ParentID:  input.ParentID,
			Seq:       seq,
			Question:  input.Question,
			Answer:    input.Answer,
			Summary:   input.Summary,
			Keywords:  string(keywords),
			RawScore:  rawScore,
			Rating:    rating,
			X:         position.X,
			Y:         position.Y,
			Z:         position.Z,
		}
		turn.SetVector(input.Embedding)

		ordered := append(existing, turn)
		newEdges := r.classifier.ClassifyAppend(projectID, ordered)

		err = r.db.Transaction(func(tx *gorm.DB) error {
			if err := r.turns.WithTx(tx).Create(&turn); err != nil {
				return err
			}
			return r.edges.WithTx(tx).BulkInsert(newEdges)
		})
		if err != nil {
			return fmt.Errorf("failed to commit turn: %w", err)
		}

		result = &AppendResult{Turn: turn, Edges: newEdges}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RebuildProject replays every turn of a project in chronological order:
// all raw scores are recomputed (root anchor included), all ratings are
// re-derived from the complete population, and the edge set is deleted
// and regenerated. The delete+rebuild commits as one transaction, so the
// "edges deleted, not yet rebuilt" window is never observable.
func (r *Recomputer) RebuildProject(projectID string) (*RebuildResult, error) {
	if _, err := r.projects.Get(projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	started := time.Now()
	var result *RebuildResult

	err := r.locker.WithLock(projectID, r.lockOwner(), func() error {
		turns, err := r.turns.ListByProject(projectID)
		if err != nil {
			return err
		}

		// Pass 1: raw scores
		rawScores := make([]float64, len(turns))
		for i := range turns {
			text := turns[i].Answer + " " + turns[i].Question
			if i == 0 {
				rawScores[i] = r.scorer.ScoreFirst(turns[i].Question, text)
			} else {
				rawScores[i] = r.scorer.Score(text)
			}
			turns[i].RawScore = rawScores[i]
		}

		// Pass 2: ratings against the complete population
		ratings := make([]int, len(turns))
		for i := range turns {
			ratings[i] = r.rater.Rate(rawScores[i], rawScores)
		}

		newEdges := r.classifier.ClassifyAll(projectID, turns)

		err = r.db.Transaction(func(tx *gorm.DB) error {
			turnStore := r.turns.WithTx(tx)
			for i := range turns {
				if err := turnStore.UpdateScores(turns[i].ID, rawScores[i], ratings[i]); err != nil {
					return err
				}
			}

			edgeStore := r.edges.WithTx(tx)
			if err := edgeStore.DeleteByProject(projectID); err != nil {
				return err
			}
			return edgeStore.BulkInsert(newEdges)
		})
		if err != nil {
			return fmt.Errorf("failed to commit rebuild: %w", err)
		}

		result = &RebuildResult{
			TurnsProcessed: len(turns),
			EdgesCreated:   len(newEdges),
			Duration:       time.Since(started),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RebuildAll replays every project. Used by the background reconciler.
// Projects locked by another holder are skipped, not failed; the caller's
// next pass retries them.
func (r *Recomputer) RebuildAll() (map[string]*RebuildResult, error) {
	projects, err := r.projects.List()
	if err != nil {
		return nil, err
	}

	results := make(map[string]*RebuildResult, len(projects))
	for _, project := range projects {
		res, err := r.RebuildProject(project.ID)
		if err != nil {
			var lockErr *locking.LockError
			if errors.As(err, &lockErr) {
				continue
			}
			return results, fmt.Errorf("failed to rebuild project %s: %w", project.ID, err)
		}
		results[project.ID] = res
	}
	return results, nil
}

// sameParent compares two optional parent references
func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
