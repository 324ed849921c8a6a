package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorRoundTrip(t *testing.T) {
	t.Run("typical vector", func(t *testing.T) {
		vec := []float32{0.1, -0.5, 3.25, 0, 1e-7}
		got, err := UnmarshalVector(MarshalVector(vec))
		require.NoError(t, err)
		assert.Equal(t, vec, got)
	})

	t.Run("empty vector", func(t *testing.T) {
		got, err := UnmarshalVector(MarshalVector(nil))
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestUnmarshalVectorTruncated(t *testing.T) {
	data := MarshalVector([]float32{1, 2, 3})
	_, err := UnmarshalVector(data[:len(data)-2])
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestUnmarshalVectorGarbage(t *testing.T) {
	_, err := UnmarshalVector([]byte{0xff})
	assert.Error(t, err)
}
