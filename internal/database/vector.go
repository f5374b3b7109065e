// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"encoding/binary"
	"math"
)

// Float32SliceToBlob converts a float32 slice to a little-endian byte blob
// for storage alongside the turn record.
func Float32SliceToBlob(vector []float32) []byte {
	if len(vector) == 0 {
		return nil
	}

	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// BlobToFloat32Slice converts a stored byte blob back to a float32 slice.
// Returns nil for empty or malformed blobs.
func BlobToFloat32Slice(blob []byte) []float32 {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil
	}

	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}
