// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine_IdenticalVectors(t *testing.T) {
	v := []float32{0.3, -0.5, 0.8, 0.1}
	assert.InDelta(t, 1.0, Cosine(v, v), 1e-9)
}

func TestCosine_OppositeVectors(t *testing.T) {
	v := []float32{0.3, -0.5, 0.8, 0.1}
	neg := make([]float32, len(v))
	for i := range v {
		neg[i] = -v[i]
	}
	assert.InDelta(t, -1.0, Cosine(v, neg), 1e-9)
}

func TestCosine_OrthogonalVectors(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	assert.InDelta(t, 0.0, Cosine(a, b), 1e-9)
}

func TestCosine_MismatchedLengths(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{1, 0}
	assert.Equal(t, 0.0, Cosine(a, b))
}

func TestCosine_MissingVectors(t *testing.T) {
	v := []float32{1, 0, 0}
	assert.Equal(t, 0.0, Cosine(nil, v))
	assert.Equal(t, 0.0, Cosine(v, nil))
	assert.Equal(t, 0.0, Cosine(nil, nil))
	assert.Equal(t, 0.0, Cosine([]float32{}, []float32{}))
}

func TestCosine_ZeroMagnitude(t *testing.T) {
	zero := []float32{0, 0, 0}
	v := []float32{1, 2, 3}
	// Zero-magnitude vectors must not produce NaN.
	assert.Equal(t, 0.0, Cosine(zero, v))
	assert.Equal(t, 0.0, Cosine(zero, zero))
}

func TestCosine_RangeBounds(t *testing.T) {
	a := []float32{0.9, 0.1, -0.4}
	b := []float32{-0.2, 0.8, 0.5}
	got := Cosine(a, b)
	assert.GreaterOrEqual(t, got, -1.0)
	assert.LessOrEqual(t, got, 1.0)
}
