package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// PerspectiveZO is a right-handed perspective projection mapping view depth
// [near, far] to clip depth [0, 1], the WebGPU convention. mgl32.Perspective
// targets the GL [-1, 1] range instead.
func PerspectiveZO(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := float32(1.0 / math.Tan(float64(fovY)/2.0))
	nmf := near - far
	return mgl32.Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, far / nmf, -1,
		0, 0, near * far / nmf, 0,
	}
}

// OrthoZO is the [0, 1] depth counterpart of mgl32.Ortho.
func OrthoZO(left, right, bottom, top, near, far float32) mgl32.Mat4 {
	return mgl32.Mat4{
		2 / (right - left), 0, 0, 0,
		0, 2 / (top - bottom), 0, 0,
		0, 0, 1 / (near - far), 0,
		(left + right) / (left - right), (top + bottom) / (bottom - top), near / (near - far), 1,
	}
}
