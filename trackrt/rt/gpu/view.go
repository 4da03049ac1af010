package gpu

import (
	"errors"
	"fmt"
	"unsafe"
)

var ErrOutOfRange = errors.New("index out of range")

// WritableView is CPU-side staging memory for one frame slot. Writes are bounds
// checked and mark the view dirty so only touched views are uploaded.
type WritableView[T any] struct {
	data  []T
	dirty bool
}

func NewWritableView[T any](n int) *WritableView[T] {
	return &WritableView[T]{data: make([]T, n)}
}

func (v *WritableView[T]) Len() int { return len(v.data) }

func (v *WritableView[T]) Set(i int, val T) error {
	if i < 0 || i >= len(v.data) {
		return fmt.Errorf("%w: set %d of %d", ErrOutOfRange, i, len(v.data))
	}
	v.data[i] = val
	v.dirty = true
	return nil
}

func (v *WritableView[T]) At(i int) (T, error) {
	if i < 0 || i >= len(v.data) {
		var zero T
		return zero, fmt.Errorf("%w: read %d of %d", ErrOutOfRange, i, len(v.data))
	}
	return v.data[i], nil
}

// Slice returns the elements [start, end) for in-place writes and marks the view dirty.
func (v *WritableView[T]) Slice(start, end int) ([]T, error) {
	if start < 0 || end > len(v.data) || start > end {
		return nil, fmt.Errorf("%w: slice [%d:%d] of %d", ErrOutOfRange, start, end, len(v.data))
	}
	v.dirty = true
	return v.data[start:end:end], nil
}

// CopyFrom writes src starting at start.
func (v *WritableView[T]) CopyFrom(start int, src []T) error {
	dst, err := v.Slice(start, start+len(src))
	if err != nil {
		return err
	}
	copy(dst, src)
	return nil
}

func (v *WritableView[T]) Dirty() bool { return v.dirty }
func (v *WritableView[T]) Clean()      { v.dirty = false }

// Bytes reinterprets the first n elements as raw bytes for a queue upload.
// T must be a fixed-layout struct that matches its WGSL counterpart.
func (v *WritableView[T]) Bytes(n int) []byte {
	if n > len(v.data) {
		n = len(v.data)
	}
	if n <= 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&v.data[0])), n*int(unsafe.Sizeof(zero)))
}

// ElemSize is the byte stride of T.
func (v *WritableView[T]) ElemSize() uint64 {
	var zero T
	return uint64(unsafe.Sizeof(zero))
}
