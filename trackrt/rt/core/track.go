package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Vehicle box dimensions in meters.
const (
	CarLength = 4.0
	CarWidth  = 2.0
	CarHeight = 1.5
)

// Track is an oval of two straights along X joined by two semicircles.
type Track struct {
	StraightLength float32
	Radius         float32
	LaneWidth      float32
}

func DefaultTrack() Track {
	return Track{StraightLength: 150, Radius: 50, LaneWidth: 4}
}

func (t Track) Length() float32 {
	return 2*t.StraightLength + 2*math.Pi*t.Radius
}

// LaneOffset is the signed lateral offset of a lane from the centreline.
// Lane 0 is the inner lane.
func (t Track) LaneOffset(lane int) float32 {
	if lane == 0 {
		return -t.LaneWidth / 2
	}
	return t.LaneWidth / 2
}

// PositionAndDirection maps progress in [0,1) onto the centreline. The loop runs
// counter-clockwise seen from above: bottom straight (+X at z=-R), right
// semicircle, top straight (-X at z=+R), left semicircle. Each piece takes a
// share of progress proportional to its length. dir is the unit tangent.
func PositionAndDirection(progress, straightLength, radius float32) (pos, dir mgl32.Vec3) {
	p := float64(progress)
	L := float64(straightLength)
	R := float64(radius)

	total := 2*L + 2*math.Pi*R
	straightFrac := L / total
	curveFrac := math.Pi * R / total
	half := L / 2

	switch {
	case p < straightFrac:
		t := p / straightFrac
		return mgl32.Vec3{float32(-half + t*L), 0, float32(-R)}, mgl32.Vec3{1, 0, 0}
	case p < straightFrac+curveFrac:
		t := (p - straightFrac) / curveFrac
		a := -math.Pi/2 + t*math.Pi
		return arcPoint(half, R, a)
	case p < 2*straightFrac+curveFrac:
		t := (p - straightFrac - curveFrac) / straightFrac
		return mgl32.Vec3{float32(half - t*L), 0, float32(R)}, mgl32.Vec3{-1, 0, 0}
	default:
		t := (p - 2*straightFrac - curveFrac) / curveFrac
		a := math.Pi/2 + t*math.Pi
		return arcPoint(-half, R, a)
	}
}

func arcPoint(cx, r, angle float64) (mgl32.Vec3, mgl32.Vec3) {
	s, c := math.Sincos(angle)
	return mgl32.Vec3{float32(cx + c*r), 0, float32(s * r)}, mgl32.Vec3{float32(-s), 0, float32(c)}
}

// PositionAndDirection evaluates the centreline of t.
func (t Track) PositionAndDirection(progress float32) (mgl32.Vec3, mgl32.Vec3) {
	return PositionAndDirection(progress, t.StraightLength, t.Radius)
}

// TrackRight is the horizontal right-hand vector of a tangent, equal to cross(up, dir).
func TrackRight(dir mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{dir.Z(), 0, -dir.X()}
}

// TrackBounds is the static AABB enclosing the track, both lanes and vehicle height,
// padded by pad meters horizontally.
func TrackBounds(t Track, pad float32) [2]mgl32.Vec3 {
	halfX := t.StraightLength/2 + t.Radius + pad
	halfZ := t.Radius + pad
	return [2]mgl32.Vec3{
		{-halfX, 0, -halfZ},
		{halfX, CarHeight, halfZ},
	}
}

func wrap01(p float32) float32 {
	p = p - float32(math.Floor(float64(p)))
	if p >= 1 {
		p = 0
	}
	return p
}
