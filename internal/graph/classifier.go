// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package graph

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/orca-svg/Sidera-project-sub000/internal/config"
	"github.com/orca-svg/Sidera-project-sub000/internal/database"
	"github.com/orca-svg/Sidera-project-sub000/internal/similarity"
)

// Classifier derives the typed edge set of a project from its
// chronologically ordered turns.
//
// Every turn after the first gets exactly one backbone edge to its
// immediate predecessor. The backbone edge starts as temporal and may be
// upgraded in place to explicit when the predecessor also qualifies as a
// direct reply; it is never duplicated, never downgraded, and never turned
// implicit. Non-adjacent earlier turns can additionally be linked with
// explicit (direct reply) or implicit (same topic) edges, both capped per
// turn.
type Classifier struct {
	cfg config.ConnectConfig
}

// NewClassifier creates a classifier with the given tunables
func NewClassifier(cfg config.ConnectConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// candidate is an earlier turn scored against the current one
type candidate struct {
	turn       *database.Turn
	replyScore float64
	topicScore float64
}

// ClassifyAll builds the complete edge set for a project's ordered turns.
// Used by batch rebuild: the result replaces whatever edges exist.
func (c *Classifier) ClassifyAll(projectID string, turns []database.Turn) []database.Edge {
	var edges []database.Edge
	for i := range turns {
		c.classifyTurn(projectID, turns, i, &edges)
	}
	return edges
}

// ClassifyAppend builds the edges for the newly appended turn, which must
// be the last element of the ordered list. Only edges targeting the new
// turn are produced, so the result is safe to insert next to the
// project's existing edge set.
func (c *Classifier) ClassifyAppend(projectID string, turns []database.Turn) []database.Edge {
	if len(turns) == 0 {
		return nil
	}
	var edges []database.Edge
	c.classifyTurn(projectID, turns, len(turns)-1, &edges)
	return edges
}

// classifyTurn appends the edges for turns[i] to edges. Two-phase: the
// tentative temporal backbone edge is materialized first, then explicit
// classification may upgrade it in place, then implicit edges are added.
func (c *Classifier) classifyTurn(projectID string, turns []database.Turn, i int, edges *[]database.Edge) {
	current := &turns[i]

	var prev *database.Turn
	if i > 0 {
		prev = &turns[i-1]
		*edges = append(*edges, database.Edge{
			ID:        uuid.NewString(),
			ProjectID: projectID,
			SourceID:  prev.ID,
			TargetID:  current.ID,
			Type:      database.EdgeTypeTemporal,
		})
	}

	// Without an embedding the turn is not a semantic candidate; the
	// temporal edge alone stands.
	currentVec := current.Vector()
	if len(currentVec) == 0 {
		return
	}

	candidates := c.scoreCandidates(currentVec, turns, i)
	if len(candidates) == 0 {
		return
	}

	c.linkExplicit(projectID, current, prev, candidates, edges)
	c.linkImplicit(projectID, current, candidates, edges)
}

// scoreCandidates scores the embedded turns inside the look-back window
// against the current vector. Similarity decays with chronological index
// distance: a short decay for the direct-reply signal, a longer one for
// the same-topic signal.
func (c *Classifier) scoreCandidates(currentVec []float32, turns []database.Turn, i int) []candidate {
	start := i - c.cfg.Window
	if start < 0 {
		start = 0
	}

	var candidates []candidate
	for j := start; j < i; j++ {
		vec := turns[j].Vector()
		if len(vec) == 0 {
			continue
		}

		sim := similarity.Cosine(currentVec, vec)
		dist := float64(i - j)

		candidates = append(candidates, candidate{
			turn:       &turns[j],
			replyScore: sim * math.Exp(-dist/c.cfg.ReplyDecay),
			topicScore: sim * math.Exp(-dist/c.cfg.TopicDecay),
		})
	}
	return candidates
}

// linkExplicit selects the strongest direct-reply candidates. The
// immediate predecessor upgrades its backbone edge in place; any other
// selected candidate gets a new explicit edge.
func (c *Classifier) linkExplicit(projectID string, current, prev *database.Turn, candidates []candidate, edges *[]database.Edge) {
	selected := topCandidates(candidates, c.cfg.ExplicitLimit, c.cfg.ExplicitThreshold,
		func(cand candidate) float64 { return cand.replyScore })

	for _, cand := range selected {
		if prev != nil && cand.turn.ID == prev.ID {
			for k := range *edges {
				e := &(*edges)[k]
				if e.TargetID == current.ID && e.Type == database.EdgeTypeTemporal {
					e.Type = database.EdgeTypeExplicit
					break
				}
			}
			continue
		}

		*edges = append(*edges, database.Edge{
			ID:        uuid.NewString(),
			ProjectID: projectID,
			SourceID:  cand.turn.ID,
			TargetID:  current.ID,
			Type:      database.EdgeTypeExplicit,
		})
	}
}

// linkImplicit adds same-topic edges for candidates not already linked to
// the current turn. Implicit edges are purely additive: they never
// upgrade or replace an existing edge.
func (c *Classifier) linkImplicit(projectID string, current *database.Turn, candidates []candidate, edges *[]database.Edge) {
	linked := make(map[string]bool)
	for _, e := range *edges {
		if e.TargetID == current.ID {
			linked[e.SourceID] = true
		}
	}

	unlinked := make([]candidate, 0, len(candidates))
	for _, cand := range candidates {
		if !linked[cand.turn.ID] {
			unlinked = append(unlinked, cand)
		}
	}

	selected := topCandidates(unlinked, c.cfg.ImplicitLimit, c.cfg.ImplicitThreshold,
		func(cand candidate) float64 { return cand.topicScore })

	for _, cand := range selected {
		*edges = append(*edges, database.Edge{
			ID:        uuid.NewString(),
			ProjectID: projectID,
			SourceID:  cand.turn.ID,
			TargetID:  current.ID,
			Type:      database.EdgeTypeImplicit,
		})
	}
}

// topCandidates filters by threshold, sorts descending by score and takes
// the top limit entries. The sort is stable so equal scores keep
// chronological order.
func topCandidates(candidates []candidate, limit int, threshold float64, score func(candidate) float64) []candidate {
	qualified := make([]candidate, 0, len(candidates))
	for _, cand := range candidates {
		if score(cand) >= threshold {
			qualified = append(qualified, cand)
		}
	}

	sort.SliceStable(qualified, func(a, b int) bool {
		return score(qualified[a]) > score(qualified[b])
	})

	if len(qualified) > limit {
		qualified = qualified[:limit]
	}
	return qualified
}
