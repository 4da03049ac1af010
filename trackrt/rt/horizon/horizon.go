// Package horizon computes, for every texel of a top-down height field, the
// minimum height a light must have to see that texel over the occluders
// between them. The GPU compute pass in shaders/horizon.wgsl runs the same
// march; this package is its CPU counterpart.
package horizon

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/headlights/trackrt/rt/core"
)

const (
	// AlwaysVisible is written when nothing between the texel and the light
	// blocks it, or when the light sits straight above the texel.
	AlwaysVisible = -1000.0

	MapSize = core.TopDownMapSize

	minDist = 0.001

	OcclusionBias     = 0.1
	OcclusionSoftness = 1.0
)

// HeightField is a copy of the top-down depth target, row-major, Size x Size.
type HeightField struct {
	Size  int
	Depth []float32
}

// NewHeightField returns a cleared field (depth 1, the far plane).
func NewHeightField(size int) *HeightField {
	h := &HeightField{Size: size, Depth: make([]float32, size*size)}
	for i := range h.Depth {
		h.Depth[i] = 1
	}
	return h
}

func (h *HeightField) At(x, y int) float32     { return h.Depth[y*h.Size+x] }
func (h *HeightField) Set(x, y int, d float32) { h.Depth[y*h.Size+x] = d }

// Params mirrors the uniform block of one horizon dispatch.
type Params struct {
	LightPos   mgl32.Vec3
	LightIndex uint32
	WorldMin   mgl32.Vec3
	WorldSize  float32
	MapSize    uint32
	NearPlaneY float32
	FarPlaneY  float32
}

// ParamsFor fills the dispatch parameters of one light from the top-down camera.
func ParamsFor(cam *core.TopDownCamera, lightPos mgl32.Vec3, lightIndex, mapSize int) Params {
	return Params{
		LightPos:   lightPos,
		LightIndex: uint32(lightIndex),
		WorldMin:   cam.WorldMin,
		WorldSize:  cam.WorldSize,
		MapSize:    uint32(mapSize),
		NearPlaneY: cam.NearPlaneY,
		FarPlaneY:  cam.FarPlaneY,
	}
}

// HeightAt converts a stored depth to world Y.
func (p *Params) HeightAt(depth float32) float32 {
	return p.NearPlaneY + depth*(p.FarPlaneY-p.NearPlaneY)
}

// DepthOf is the inverse of HeightAt.
func (p *Params) DepthOf(worldY float32) float32 {
	return (worldY - p.NearPlaneY) / (p.FarPlaneY - p.NearPlaneY)
}

// TexelWorldXZ returns the world XZ of a (possibly fractional) texel coordinate.
func (p *Params) TexelWorldXZ(tx, ty float32) mgl32.Vec2 {
	n := float32(p.MapSize)
	return mgl32.Vec2{
		p.WorldMin.X() + tx/n*p.WorldSize,
		p.WorldMin.Z() + ty/n*p.WorldSize,
	}
}

// RequiredHeight marches from texel (x, y) toward the light one texel at a time
// and returns the largest height the light needs to clear every sample.
func RequiredHeight(h *HeightField, p *Params, x, y int) float32 {
	n := float32(p.MapSize)
	cx, cy := float32(x)+0.5, float32(y)+0.5
	world := p.TexelWorldXZ(cx, cy)

	toLight := mgl32.Vec2{p.LightPos.X(), p.LightPos.Z()}.Sub(world)
	dist := toLight.Len()
	if dist < minDist {
		return AlwaysVisible
	}
	dir := toLight.Mul(1 / dist)

	best := float32(AlwaysVisible)
	for step := 1; step < int(p.MapSize); step++ {
		sx := cx + dir.X()*float32(step)
		sy := cy + dir.Y()*float32(step)
		if sx < 0 || sx >= n || sy < 0 || sy >= n {
			break
		}
		sampleDist := p.TexelWorldXZ(sx, sy).Sub(world).Len()
		if sampleDist > dist {
			break
		}
		height := p.HeightAt(h.At(int(sx), int(sy)))
		if sampleDist > minDist {
			if req := height * dist / sampleDist; req > best {
				best = req
			}
		}
	}
	return best
}

// Map is the horizon map of one light.
type Map struct {
	Size      int
	WorldMin  mgl32.Vec3
	WorldSize float32
	Required  []float32
}

// Compute fills a whole map for the light in p.
func Compute(h *HeightField, p Params) *Map {
	size := int(p.MapSize)
	m := &Map{Size: size, WorldMin: p.WorldMin, WorldSize: p.WorldSize, Required: make([]float32, size*size)}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			m.Required[y*size+x] = RequiredHeight(h, &p, x, y)
		}
	}
	return m
}

func (m *Map) At(x, y int) float32 { return m.Required[y*m.Size+x] }

// Sample bilinearly filters the required height at a world XZ position with
// clamp-to-edge addressing. ok is false outside the map footprint.
func (m *Map) Sample(worldX, worldZ float32) (value float32, ok bool) {
	u := (worldX - m.WorldMin.X()) / m.WorldSize
	v := (worldZ - m.WorldMin.Z()) / m.WorldSize
	if u < 0 || u > 1 || v < 0 || v > 1 {
		return 0, false
	}
	fx := u*float32(m.Size) - 0.5
	fy := v*float32(m.Size) - 0.5
	x0 := int(math.Floor(float64(fx)))
	y0 := int(math.Floor(float64(fy)))
	tx, ty := fx-float32(x0), fy-float32(y0)

	clamp := func(i int) int {
		if i < 0 {
			return 0
		}
		if i >= m.Size {
			return m.Size - 1
		}
		return i
	}
	a := m.At(clamp(x0), clamp(y0))
	b := m.At(clamp(x0+1), clamp(y0))
	c := m.At(clamp(x0), clamp(y0+1))
	d := m.At(clamp(x0+1), clamp(y0+1))
	top := a + (b-a)*tx
	bottom := c + (d-c)*tx
	return top + (bottom-top)*ty, true
}

// Shadow is the soft visibility of worldPos from a light at height lightY.
// Positions outside the map are fully lit.
func (m *Map) Shadow(worldPos mgl32.Vec3, lightY float32) float32 {
	req, ok := m.Sample(worldPos.X(), worldPos.Z())
	if !ok {
		return 1
	}
	return Occlusion(lightY, req)
}

// Occlusion maps light clearance above the required height to [0,1].
func Occlusion(lightY, required float32) float32 {
	return mgl32.Clamp((lightY-(required+OcclusionBias))/OcclusionSoftness, 0, 1)
}

// Maps holds the horizon map of each light layer. Layers without a map are
// treated as unoccluded.
type Maps map[int]*Map

func (ms Maps) Shadow(layer int, worldPos mgl32.Vec3, lightY float32) float32 {
	m, ok := ms[layer]
	if !ok {
		return 1
	}
	return m.Shadow(worldPos, lightY)
}

// ComputeAll builds one map per light in parallel, layer i for lights[i].
func ComputeAll(h *HeightField, cam *core.TopDownCamera, lights []core.ConeLight) Maps {
	out := make([]*Map, len(lights))
	var wg sync.WaitGroup
	for i := range lights {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out[i] = Compute(h, ParamsFor(cam, lights[i].Position, i, h.Size))
		}(i)
	}
	wg.Wait()

	ms := make(Maps, len(lights))
	for i, m := range out {
		ms[i] = m
	}
	return ms
}
