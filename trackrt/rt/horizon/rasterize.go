package horizon

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/headlights/trackrt/rt/core"
)

// RasterizeVehicles builds the height field the top-down depth pass would
// produce for the fleet: the ground at y=0 and each vehicle's roof at
// core.CarHeight over its oriented footprint.
func RasterizeVehicles(p *Params, vehicles []core.Vehicle) *HeightField {
	size := int(p.MapSize)
	h := NewHeightField(size)
	ground := p.DepthOf(0)
	for i := range h.Depth {
		h.Depth[i] = ground
	}
	roof := p.DepthOf(core.CarHeight)
	texel := p.WorldSize / float32(size)

	for i := range vehicles {
		v := &vehicles[i]
		box := core.VehicleAABB(v)
		x0, x1 := texelRange(box[0].X(), box[1].X(), p.WorldMin.X(), texel, size)
		y0, y1 := texelRange(box[0].Z(), box[1].Z(), p.WorldMin.Z(), texel, size)
		right := v.Right()
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				c := p.TexelWorldXZ(float32(x)+0.5, float32(y)+0.5)
				rel := mgl32.Vec3{c.X() - v.Position.X(), 0, c.Y() - v.Position.Z()}
				if abs(rel.Dot(v.Forward)) <= core.CarLength/2 && abs(rel.Dot(right)) <= core.CarWidth/2 {
					h.Set(x, y, roof)
				}
			}
		}
	}
	return h
}

func texelRange(lo, hi, origin, texel float32, size int) (int, int) {
	a := int(math.Floor(float64((lo - origin) / texel)))
	b := int(math.Floor(float64((hi - origin) / texel)))
	if a < 0 {
		a = 0
	}
	if b >= size {
		b = size - 1
	}
	return a, b
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
