package cpuref

import (
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/headlights/trackrt/rt/core"
)

const unset = 0xFFFFFFFF

// ConeShadows traces the vehicles-only depth of every cone light's shadow
// slice. Texels are filled on first use and are safe to read concurrently.
type ConeShadows struct {
	Size     int
	vehicles []core.Vehicle
	vp       []mgl32.Mat4
	invVP    []mgl32.Mat4
	texels   [][]uint32
}

func NewConeShadows(lights []core.ConeLight, vehicles []core.Vehicle, size int) *ConeShadows {
	s := &ConeShadows{
		Size:     size,
		vehicles: vehicles,
		vp:       make([]mgl32.Mat4, len(lights)),
		invVP:    make([]mgl32.Mat4, len(lights)),
		texels:   make([][]uint32, len(lights)),
	}
	for i := range lights {
		s.vp[i] = core.LightViewProj(&lights[i])
		s.invVP[i] = s.vp[i].Inv()
		layer := make([]uint32, size*size)
		for j := range layer {
			layer[j] = unset
		}
		s.texels[i] = layer
	}
	return s
}

// Depth is the stored depth at a texel, 1 where no vehicle was hit.
func (s *ConeShadows) Depth(layer, x, y int) float32 {
	if layer < 0 || layer >= len(s.texels) {
		return 1
	}
	x = clamp(x, s.Size)
	y = clamp(y, s.Size)
	cell := &s.texels[layer][y*s.Size+x]
	if bits := atomic.LoadUint32(cell); bits != unset {
		return math.Float32frombits(bits)
	}
	d := s.trace(layer, x, y)
	atomic.StoreUint32(cell, math.Float32bits(d))
	return d
}

func (s *ConeShadows) trace(layer, x, y int) float32 {
	u := (float32(x) + 0.5) / float32(s.Size)
	v := (float32(y) + 0.5) / float32(s.Size)
	ray := UnprojectRay(s.invVP[layer], u*2-1, 1-v*2)
	hit, ok := Trace(ray, s.vehicles, false)
	if !ok {
		return 1
	}
	clip := s.vp[layer].Mul4x1(hit.Pos.Vec4(1))
	return mgl32.Clamp(clip.Z()/clip.W(), 0, 1)
}

func clamp(i, size int) int {
	if i < 0 {
		return 0
	}
	if i >= size {
		return size - 1
	}
	return i
}
