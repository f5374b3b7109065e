// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package layout

import (
	"fmt"
	"math"
	"unicode/utf16"

	"github.com/orca-svg/Sidera-project-sub000/internal/config"
	"github.com/orca-svg/Sidera-project-sub000/internal/database"
)

// Point3D is a position in the constellation space
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Generator places turns deterministically in 3D space relative to their
// parent. The same (projectID, parent, siblingIndex) input always yields
// the same point: renderers in other languages reproduce the layout from
// identical inputs, so the hash and LCG constants below are part of the
// wire contract and must not change.
type Generator struct {
	baseRadius   float64
	radiusJitter float64
}

// NewGenerator creates a generator with the configured step radius
func NewGenerator(cfg config.LayoutConfig) *Generator {
	return &Generator{
		baseRadius:   cfg.BaseRadius,
		radiusJitter: cfg.RadiusJitter,
	}
}

// Position computes the 3D position for a turn. The graph root (no parent)
// is always the origin. Children are offset from their parent by a seeded
// radius and spherical direction.
func (g *Generator) Position(projectID string, parent *database.Turn, siblingIndex int) Point3D {
	if parent == nil {
		return Point3D{}
	}

	seed := hashSeed(fmt.Sprintf("%s-%s-%d", projectID, parent.ID, siblingIndex))
	rng := newSeededRand(seed)

	r := g.baseRadius + rng.Float(-g.radiusJitter, g.radiusJitter)
	theta := rng.Float(0, 2*math.Pi)
	phi := rng.Float(0, math.Pi)

	return Point3D{
		X: parent.X + r*math.Sin(phi)*math.Cos(theta),
		Y: parent.Y + r*math.Sin(phi)*math.Sin(theta),
		Z: parent.Z + r*math.Cos(phi),
	}
}

// hashSeed computes a 32-bit rolling hash of the seed string under signed
// 32-bit overflow semantics (h*31 + code, wrapping), then takes the
// absolute value. Hashing runs over UTF-16 code units to stay
// bit-compatible with JavaScript charCodeAt consumers.
func hashSeed(s string) int64 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = h<<5 - h + int32(u)
	}
	seed := int64(h)
	if seed < 0 {
		seed = -seed
	}
	return seed
}

// seededRand is a linear congruential generator with fixed constants
type seededRand struct {
	seed int64
}

func newSeededRand(seed int64) *seededRand {
	return &seededRand{seed: seed}
}

// Next returns the next pseudo-random value in [0, 1)
func (r *seededRand) Next() float64 {
	r.seed = (r.seed*9301 + 49297) % 233280
	return float64(r.seed) / 233280
}

// Float returns the next pseudo-random value in [min, max)
func (r *seededRand) Float(min, max float64) float64 {
	return min + r.Next()*(max-min)
}
