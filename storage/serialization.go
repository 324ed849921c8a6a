// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"fmt"

	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MarshalVector serializes an embedding vector to bytes:
// a varint length followed by raw little-endian float32 values.
func MarshalVector(vec []float32) []byte {
	buf := make([]byte, varint.Int.Size(len(vec))+4*len(vec))
	n := varint.Int.Marshal(len(vec), buf)
	for _, v := range vec {
		n += raw.Float32.Marshal(v, buf[n:])
	}
	return buf
}

// UnmarshalVector deserializes an embedding vector from bytes.
func UnmarshalVector(data []byte) ([]float32, error) {
	length, n, err := varint.Int.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: vector length: %w", ErrSerializationFailed, err)
	}
	if length < 0 || len(data)-n < 4*length {
		return nil, fmt.Errorf("%w: truncated vector", ErrSerializationFailed)
	}

	vec := make([]float32, length)
	for i := range vec {
		v, sz, err := raw.Float32.Unmarshal(data[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: vector element %d: %w", ErrSerializationFailed, i, err)
		}
		vec[i] = v
		n += sz
	}
	return vec, nil
}
