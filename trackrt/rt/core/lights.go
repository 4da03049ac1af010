package core

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxConeLights is the capacity of the per-light shadow array and horizon maps.
const MaxConeLights = 128

type HeadlightSide int

const (
	HeadlightLeft HeadlightSide = iota
	HeadlightRight
)

type ConeLight struct {
	Position   mgl32.Vec3
	Direction  mgl32.Vec3
	Color      mgl32.Vec3
	Range      float32
	InnerAngle float32 // half-angle, radians
	OuterAngle float32 // half-angle, radians
	Vehicle    int
	Side       HeadlightSide
}

func (l *ConeLight) CosInner() float32 { return float32(math.Cos(float64(l.InnerAngle))) }
func (l *ConeLight) CosOuter() float32 { return float32(math.Cos(float64(l.OuterAngle))) }

// HeadlightParams is the mounting and beam shape shared by every headlight.
type HeadlightParams struct {
	Height     float32 // mount height above ground
	Spacing    float32 // lateral offset from the vehicle centreline
	Range      float32
	InnerAngle float32
	OuterAngle float32
	Color      mgl32.Vec3
}

func DefaultHeadlightParams() HeadlightParams {
	return HeadlightParams{
		Height:     0.6,
		Spacing:    0.7,
		Range:      30,
		InnerAngle: 0.15,
		OuterAngle: 0.35,
		Color:      mgl32.Vec3{1.5, 1.4, 1.2},
	}
}

// Validate requires 0 < inner < outer < pi/2 and a positive range.
func (p HeadlightParams) Validate() error {
	if p.Range <= 0 {
		return fmt.Errorf("headlight range must be positive, got %v", p.Range)
	}
	if p.InnerAngle <= 0 || p.OuterAngle <= 0 {
		return fmt.Errorf("headlight cone angles must be positive, got inner=%v outer=%v", p.InnerAngle, p.OuterAngle)
	}
	if p.InnerAngle >= p.OuterAngle {
		return fmt.Errorf("headlight inner angle %v must be narrower than outer angle %v", p.InnerAngle, p.OuterAngle)
	}
	if p.OuterAngle >= math.Pi/2 {
		return fmt.Errorf("headlight outer angle %v must be below pi/2", p.OuterAngle)
	}
	return nil
}

// LightCatalog holds two headlights per vehicle, light 2i on the left of vehicle i
// and 2i+1 on the right, capped at MaxConeLights. The active set is always a
// prefix of the catalog.
type LightCatalog struct {
	Lights []ConeLight
	Params HeadlightParams
	active int
}

func NewLightCatalog(fleet *Fleet, params HeadlightParams) (*LightCatalog, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	n := 2 * len(fleet.Vehicles)
	if n > MaxConeLights {
		n = MaxConeLights
	}
	c := &LightCatalog{
		Lights: make([]ConeLight, n),
		Params: params,
		active: n,
	}
	for i := range c.Lights {
		c.Lights[i] = ConeLight{
			Color:      params.Color,
			Range:      params.Range,
			InnerAngle: params.InnerAngle,
			OuterAngle: params.OuterAngle,
			Vehicle:    i / 2,
			Side:       HeadlightSide(i % 2),
		}
	}
	c.Refresh(fleet)
	return c, nil
}

// Refresh moves every light onto its vehicle's current pose.
func (c *LightCatalog) Refresh(fleet *Fleet) {
	for i := range c.Lights {
		l := &c.Lights[i]
		v := &fleet.Vehicles[l.Vehicle]

		front := v.Position.Add(v.Forward.Mul(CarLength * 0.5))
		front[1] = c.Params.Height
		offset := v.Right().Mul(c.Params.Spacing)
		if l.Side == HeadlightLeft {
			offset = offset.Mul(-1)
		}
		l.Position = front.Add(offset)
		l.Direction = v.Forward
	}
}

// SetRange applies a runtime range to every light. Non-positive values are ignored.
func (c *LightCatalog) SetRange(r float32) {
	if r <= 0 {
		return
	}
	c.Params.Range = r
	for i := range c.Lights {
		c.Lights[i].Range = r
	}
}

// SetActiveCount clamps n to [0, len(Lights)] and returns the applied count.
func (c *LightCatalog) SetActiveCount(n int) int {
	if n < 0 {
		n = 0
	}
	if n > len(c.Lights) {
		n = len(c.Lights)
	}
	c.active = n
	return n
}

func (c *LightCatalog) ActiveCount() int { return c.active }

// Active returns lights 0..ActiveCount-1.
func (c *LightCatalog) Active() []ConeLight {
	return c.Lights[:c.active]
}
