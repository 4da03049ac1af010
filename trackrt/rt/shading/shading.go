// Package shading evaluates the lit pass on the CPU with the same formulas as
// shaders/lit.wgsl. It backs the reference renderer and pins down the
// lighting rules in tests.
package shading

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/headlights/trackrt/rt/core"
)

const (
	gridScale     = 100
	gridLineWidth = 0.02
	fogDistance   = 2000
	overlapEps    = 1e-6
)

var (
	FogColor      = mgl32.Vec3{0.5, 0.6, 0.7}
	groundBase    = mgl32.Vec3{0.3, 0.3, 0.3}
	groundLine    = mgl32.Vec3{0.2, 0.2, 0.2}
	vehicleAlbedo = mgl32.Vec3{0.85, 0.85, 0.85}
	keyLightDir   = mgl32.Vec3{0.5, 1.0, 0.3}.Normalize()
)

// Params are the per-frame lighting constants.
type Params struct {
	AmbientIntensity   float32
	ConeLightIntensity float32
	ShadowBias         float32
	FalloffExponent    float32
	DisableShadows     bool
	UseHorizonMapping  bool
	OverlapMaxCount    float32
	CameraPos          mgl32.Vec3
}

func DefaultParams() Params {
	return Params{
		AmbientIntensity:   0.2,
		ConeLightIntensity: 1.0,
		ShadowBias:         0.001,
		FalloffExponent:    1.0,
		OverlapMaxCount:    8,
	}
}

// Surface is one shaded point.
type Surface struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
}

// IsGround matches the lit shader's ground classification.
func (s *Surface) IsGround() bool {
	return s.Normal.Y() > 0.9 && float32(math.Abs(float64(s.Position.Y()))) < 0.1
}

// ShadowMaps gives access to the stored depth of each light's depth slice.
type ShadowMaps interface {
	Depth(layer, x, y int) float32
}

// HorizonMaps gives the soft horizon visibility of a point for one light.
type HorizonMaps interface {
	Shadow(layer int, worldPos mgl32.Vec3, lightY float32) float32
}

// Evaluator shades surfaces against a fixed set of active lights.
type Evaluator struct {
	Params   Params
	Lights   []core.ConeLight
	Shadows  ShadowMaps
	Horizons HorizonMaps

	lightVP []mgl32.Mat4
}

// NewEvaluator precomputes each light's view-projection. Either map source may
// be nil when the matching technique is not in use.
func NewEvaluator(p Params, lights []core.ConeLight, shadows ShadowMaps, horizons HorizonMaps) *Evaluator {
	e := &Evaluator{Params: p, Lights: lights, Shadows: shadows, Horizons: horizons}
	e.lightVP = make([]mgl32.Mat4, len(lights))
	for i := range lights {
		e.lightVP[i] = core.LightViewProj(&lights[i])
	}
	return e
}

// ShadowFactor is 1 when the light reaches the point and 0 (or a soft value
// with horizon mapping) when it is blocked.
func (e *Evaluator) ShadowFactor(i int, pos mgl32.Vec3) float32 {
	if e.Params.DisableShadows {
		return 1
	}
	if e.Params.UseHorizonMapping {
		if e.Horizons == nil {
			return 1
		}
		return e.Horizons.Shadow(i, pos, e.Lights[i].Position.Y())
	}
	if e.Shadows == nil {
		return 1
	}

	clip := e.lightVP[i].Mul4x1(pos.Vec4(1))
	ndc := clip.Vec3().Mul(1 / clip.W())
	u := ndc.X()*0.5 + 0.5
	v := 1 - (ndc.Y()*0.5 + 0.5)
	x := clampTexel(int(u * core.ConeShadowMapSize))
	y := clampTexel(int(v * core.ConeShadowMapSize))
	if ndc.Z() <= e.Shadows.Depth(i, x, y)+e.Params.ShadowBias {
		return 1
	}
	return 0
}

// Contribution is the radiance light i adds at s, before global intensity.
func (e *Evaluator) Contribution(i int, s *Surface) mgl32.Vec3 {
	l := &e.Lights[i]
	toLight := l.Position.Sub(s.Position)
	dist := toLight.Len()
	if dist > l.Range || dist == 0 {
		return mgl32.Vec3{}
	}
	toLightN := toLight.Mul(1 / dist)
	cosAngle := toLightN.Mul(-1).Dot(l.Direction)
	cosOuter, cosInner := l.CosOuter(), l.CosInner()
	if cosAngle < cosOuter {
		return mgl32.Vec3{}
	}

	coneAtten := ConeAttenuation(cosAngle, cosInner, cosOuter)
	distAtten := float32(math.Pow(float64(saturate(1-dist/l.Range)), float64(e.Params.FalloffExponent)))
	ndotl := saturate(s.Normal.Dot(toLightN))
	shadow := e.ShadowFactor(i, s.Position)

	return l.Color.Mul(ndotl * coneAtten * distAtten * shadow)
}

// ConeAttenuation ramps from 0 at the outer edge to 1 inside the inner cone.
// A degenerate cone (inner not narrower than outer) has a hard edge.
func ConeAttenuation(cosAngle, cosInner, cosOuter float32) float32 {
	if cosInner <= cosOuter {
		if cosAngle >= cosOuter {
			return 1
		}
		return 0
	}
	return saturate((cosAngle - cosOuter) / (cosInner - cosOuter))
}

// Base is the unlit colour: a grid on the ground, key-lit grey on vehicles.
func (e *Evaluator) Base(s *Surface) mgl32.Vec3 {
	amb := e.Params.AmbientIntensity
	if s.IsGround() {
		gx := frac(s.UV.X() * gridScale)
		gy := frac(s.UV.Y() * gridScale)
		if gx < gridLineWidth || gy < gridLineWidth {
			return groundLine.Mul(amb)
		}
		return groundBase.Mul(amb)
	}
	ndotl := saturate(s.Normal.Dot(keyLightDir))
	return vehicleAlbedo.Mul(amb + (1-amb)*ndotl)
}

// Shade returns the final colour of s including fog.
func (e *Evaluator) Shade(s *Surface) mgl32.Vec3 {
	color := e.Base(s)
	for i := range e.Lights {
		color = color.Add(e.Contribution(i, s).Mul(e.Params.ConeLightIntensity))
	}
	fog := saturate(s.Position.Sub(e.Params.CameraPos).Len() / fogDistance)
	return lerp(color, FogColor, fog)
}

// OverlapCount counts the lights that reach s.
func (e *Evaluator) OverlapCount(s *Surface) int {
	n := 0
	for i := range e.Lights {
		c := e.Contribution(i, s)
		if c.X()+c.Y()+c.Z() > overlapEps {
			n++
		}
	}
	return n
}

// OverlapColor maps a light count to the heat map hue range red..magenta.
func OverlapColor(count int, maxCount float32) mgl32.Vec3 {
	if maxCount <= 0 {
		maxCount = 1
	}
	t := saturate(float32(count) / maxCount)
	return HSVToRGB(t*0.9, 1, 1)
}

// HSVToRGB converts h, s, v in [0,1].
func HSVToRGB(h, s, v float32) mgl32.Vec3 {
	c := v * s
	hp := h * 6
	x := c * (1 - float32(math.Abs(math.Mod(float64(hp), 2)-1)))
	m := v - c

	var rgb mgl32.Vec3
	switch {
	case hp < 1:
		rgb = mgl32.Vec3{c, x, 0}
	case hp < 2:
		rgb = mgl32.Vec3{x, c, 0}
	case hp < 3:
		rgb = mgl32.Vec3{0, c, x}
	case hp < 4:
		rgb = mgl32.Vec3{0, x, c}
	case hp < 5:
		rgb = mgl32.Vec3{x, 0, c}
	default:
		rgb = mgl32.Vec3{c, 0, x}
	}
	return rgb.Add(mgl32.Vec3{m, m, m})
}

// DebugDepth is the grey level of the shadow-map debug view.
func DebugDepth(d float32) float32 {
	return float32(math.Pow(float64(saturate(1-d)), 0.3))
}

func clampTexel(i int) int {
	if i < 0 {
		return 0
	}
	if i >= core.ConeShadowMapSize {
		return core.ConeShadowMapSize - 1
	}
	return i
}

func saturate(v float32) float32 { return mgl32.Clamp(v, 0, 1) }

func frac(v float32) float32 { return v - float32(math.Floor(float64(v))) }

func lerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 { return a.Add(b.Sub(a).Mul(t)) }
