// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"fmt"

	"gorm.io/gorm"
)

// Query constants
const (
	queryProjectEquals = "project_id = ?"
)

// TurnStore handles persistence of turns
type TurnStore struct {
	db *gorm.DB
}

// NewTurnStore creates a new turn store
func NewTurnStore(db *gorm.DB) *TurnStore {
	return &TurnStore{db: db}
}

// WithTx returns a store bound to the given transaction
func (s *TurnStore) WithTx(tx *gorm.DB) *TurnStore {
	return &TurnStore{db: tx}
}

// Create persists a new turn
func (s *TurnStore) Create(turn *Turn) error {
	if err := s.db.Create(turn).Error; err != nil {
		return fmt.Errorf("failed to create turn: %w", err)
	}
	return nil
}

// Get retrieves a turn by id
func (s *TurnStore) Get(id string) (*Turn, error) {
	var turn Turn
	if err := s.db.Where("id = ?", id).First(&turn).Error; err != nil {
		return nil, err
	}
	return &turn, nil
}

// ListByProject returns all turns of a project in creation order
func (s *TurnStore) ListByProject(projectID string) ([]Turn, error) {
	var turns []Turn
	err := s.db.Where(queryProjectEquals, projectID).
		Order("seq ASC").
		Find(&turns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	return turns, nil
}

// CountByProject returns the number of turns in a project
func (s *TurnStore) CountByProject(projectID string) (int64, error) {
	var count int64
	err := s.db.Model(&Turn{}).Where(queryProjectEquals, projectID).Count(&count).Error
	return count, err
}

// CountSiblings returns how many turns already share the given parent.
// A nil parent counts the project's root-level turns.
func (s *TurnStore) CountSiblings(projectID string, parentID *string) (int64, error) {
	var count int64
	q := s.db.Model(&Turn{}).Where(queryProjectEquals, projectID)
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}
	err := q.Count(&count).Error
	return count, err
}

// NextSeq returns the next creation-order index for a project
func (s *TurnStore) NextSeq(projectID string) (int, error) {
	var max int64
	err := s.db.Model(&Turn{}).Where(queryProjectEquals, projectID).
		Select("COALESCE(MAX(seq), -1)").Scan(&max).Error
	if err != nil {
		return 0, fmt.Errorf("failed to compute next seq: %w", err)
	}
	return int(max) + 1, nil
}

// UpdateScores writes the recomputed raw score and rating of a turn
func (s *TurnStore) UpdateScores(id string, rawScore float64, rating int) error {
	err := s.db.Model(&Turn{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"raw_score": rawScore,
			"rating":    rating,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update turn scores: %w", err)
	}
	return nil
}

// Delete removes a turn by id
func (s *TurnStore) Delete(id string) error {
	result := s.db.Where("id = ?", id).Delete(&Turn{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete turn: %w", result.Error)
	}
	return nil
}

// DeleteByProject removes all turns of a project
func (s *TurnStore) DeleteByProject(projectID string) error {
	if err := s.db.Where(queryProjectEquals, projectID).Delete(&Turn{}).Error; err != nil {
		return fmt.Errorf("failed to delete project turns: %w", err)
	}
	return nil
}

// EdgeStore handles persistence of edges
type EdgeStore struct {
	db *gorm.DB
}

// NewEdgeStore creates a new edge store
func NewEdgeStore(db *gorm.DB) *EdgeStore {
	return &EdgeStore{db: db}
}

// WithTx returns a store bound to the given transaction
func (s *EdgeStore) WithTx(tx *gorm.DB) *EdgeStore {
	return &EdgeStore{db: tx}
}

// Create persists a single edge
func (s *EdgeStore) Create(edge *Edge) error {
	if err := s.db.Create(edge).Error; err != nil {
		return fmt.Errorf("failed to create edge: %w", err)
	}
	return nil
}

// BulkInsert persists a batch of edges
func (s *EdgeStore) BulkInsert(edges []Edge) error {
	if len(edges) == 0 {
		return nil
	}
	if err := s.db.Create(&edges).Error; err != nil {
		return fmt.Errorf("failed to bulk insert edges: %w", err)
	}
	return nil
}

// ListByProject returns all edges of a project
func (s *EdgeStore) ListByProject(projectID string) ([]Edge, error) {
	var edges []Edge
	if err := s.db.Where(queryProjectEquals, projectID).Find(&edges).Error; err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	return edges, nil
}

// ListByEndpoint returns all edges touching the given turn
func (s *EdgeStore) ListByEndpoint(turnID string) ([]Edge, error) {
	var edges []Edge
	err := s.db.Where("source_id = ? OR target_id = ?", turnID, turnID).Find(&edges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list edges by endpoint: %w", err)
	}
	return edges, nil
}

// DeleteByProject removes all edges of a project
func (s *EdgeStore) DeleteByProject(projectID string) error {
	if err := s.db.Where(queryProjectEquals, projectID).Delete(&Edge{}).Error; err != nil {
		return fmt.Errorf("failed to delete project edges: %w", err)
	}
	return nil
}

// DeleteByEndpoint removes all edges touching the given turn
func (s *EdgeStore) DeleteByEndpoint(turnID string) error {
	err := s.db.Where("source_id = ? OR target_id = ?", turnID, turnID).Delete(&Edge{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete edges by endpoint: %w", err)
	}
	return nil
}

// ProjectStore handles persistence of projects
type ProjectStore struct {
	db *gorm.DB
}

// NewProjectStore creates a new project store
func NewProjectStore(db *gorm.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

// Create persists a new project
func (s *ProjectStore) Create(project *Project) error {
	if err := s.db.Create(project).Error; err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// Get retrieves a project by id
func (s *ProjectStore) Get(id string) (*Project, error) {
	var project Project
	if err := s.db.Where("id = ?", id).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// List returns all projects ordered by most recently updated
func (s *ProjectStore) List() ([]Project, error) {
	var projects []Project
	if err := s.db.Order("updated_at DESC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// Rename updates a project's name
func (s *ProjectStore) Rename(id, name string) error {
	err := s.db.Model(&Project{}).Where("id = ?", id).Update("name", name).Error
	if err != nil {
		return fmt.Errorf("failed to rename project: %w", err)
	}
	return nil
}

// Delete removes a project and cascades its turns and edges
func (s *ProjectStore) Delete(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(queryProjectEquals, id).Delete(&Edge{}).Error; err != nil {
			return fmt.Errorf("failed to delete project edges: %w", err)
		}
		if err := tx.Where(queryProjectEquals, id).Delete(&Turn{}).Error; err != nil {
			return fmt.Errorf("failed to delete project turns: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&Project{}).Error; err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		return nil
	})
}
