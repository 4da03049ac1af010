package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritableView_Bounds(t *testing.T) {
	v := NewWritableView[ConeLightGPU](4)
	assert.Equal(t, 4, v.Len())
	assert.False(t, v.Dirty())

	tests := []struct {
		name string
		op   func() error
		ok   bool
	}{
		{"set first", func() error { return v.Set(0, ConeLightGPU{}) }, true},
		{"set last", func() error { return v.Set(3, ConeLightGPU{}) }, true},
		{"set past end", func() error { return v.Set(4, ConeLightGPU{}) }, false},
		{"set negative", func() error { return v.Set(-1, ConeLightGPU{}) }, false},
		{"read past end", func() error { _, err := v.At(9); return err }, false},
		{"full slice", func() error { _, err := v.Slice(0, 4); return err }, true},
		{"slice past end", func() error { _, err := v.Slice(2, 5); return err }, false},
		{"inverted slice", func() error { _, err := v.Slice(3, 1); return err }, false},
		{"copy overflow", func() error { return v.CopyFrom(3, make([]ConeLightGPU, 2)) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrOutOfRange)
			}
		})
	}
}

func TestWritableView_DirtyAndBytes(t *testing.T) {
	v := NewWritableView[MatrixSlot](3)
	require.NoError(t, v.Set(1, MatrixSlot{M: [16]float32{1}}))
	assert.True(t, v.Dirty())

	got, err := v.At(1)
	require.NoError(t, err)
	assert.Equal(t, float32(1), got.M[0])

	assert.Len(t, v.Bytes(2), 2*MatrixSlotSize)
	assert.Len(t, v.Bytes(10), 3*MatrixSlotSize)
	assert.Nil(t, v.Bytes(0))
	assert.Equal(t, uint64(MatrixSlotSize), v.ElemSize())

	v.Clean()
	assert.False(t, v.Dirty())
	s, err := v.Slice(0, 1)
	require.NoError(t, err)
	assert.Len(t, s, 1)
	assert.True(t, v.Dirty())
}
