// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"time"
)

// Edge types. The temporal backbone edge may be upgraded to explicit during
// classification, never to implicit and never back.
const (
	EdgeTypeTemporal = "temporal"
	EdgeTypeExplicit = "explicit"
	EdgeTypeImplicit = "implicit"
)

// ValidEdgeTypes returns all valid edge types
func ValidEdgeTypes() []string {
	return []string{EdgeTypeTemporal, EdgeTypeExplicit, EdgeTypeImplicit}
}

// Project represents a single conversation constellation
type Project struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Project
func (Project) TableName() string {
	return "sidera_projects"
}

// Turn represents one question/answer unit, the graph's node.
//
// Seq is the creation order within the project and is monotonic; it is the
// position index used for time-distance decay during edge classification.
// RawScore and Rating are derived values: the rating must always be
// recomputable from the raw score and the project's current score
// population, and it changes retroactively when the population changes.
type Turn struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	ProjectID string    `gorm:"index;not null" json:"project_id"`
	ParentID  *string   `gorm:"index" json:"parent_id,omitempty"`
	Seq       int       `gorm:"index;not null" json:"seq"`
	Question  string    `gorm:"type:text" json:"question"`
	Answer    string    `gorm:"type:text" json:"answer"`
	Summary   string    `gorm:"type:text" json:"summary"`
	Keywords  string    `gorm:"type:text" json:"keywords"` // JSON array
	Embedding []byte    `gorm:"type:blob" json:"-"`        // float32 little-endian, may be empty
	RawScore  float64   `json:"raw_score"`
	Rating    int       `json:"rating"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Project Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Turn
func (Turn) TableName() string {
	return "sidera_turns"
}

// Vector decodes the stored embedding blob. Returns nil when no embedding
// was captured for this turn.
func (t *Turn) Vector() []float32 {
	return BlobToFloat32Slice(t.Embedding)
}

// SetVector encodes and stores an embedding vector. A nil vector clears
// the embedding, which excludes the turn from semantic candidacy.
func (t *Turn) SetVector(v []float32) {
	t.Embedding = Float32SliceToBlob(v)
}

// Edge represents a typed directed relation between two turns
type Edge struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	ProjectID string    `gorm:"index;not null" json:"project_id"`
	SourceID  string    `gorm:"index;not null" json:"source_id"`
	TargetID  string    `gorm:"index;not null" json:"target_id"`
	Type      string    `gorm:"not null" json:"type"`
	CreatedAt time.Time `json:"created_at"`

	Project Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	Source  Turn    `gorm:"foreignKey:SourceID;constraint:OnDelete:CASCADE" json:"-"`
	Target  Turn    `gorm:"foreignKey:TargetID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Edge
func (Edge) TableName() string {
	return "sidera_edges"
}
