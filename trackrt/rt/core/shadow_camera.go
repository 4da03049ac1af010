package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// ConeShadowMapSize is the resolution of each per-light depth slice.
	ConeShadowMapSize = 256
	// TopDownMapSize is the resolution of the top-down height target.
	TopDownMapSize = 1024

	shadowNear       = 0.1
	topDownPadding   = 20
	topDownClearance = 50
)

// LightViewProj is the perspective view-projection used to render a cone light's
// depth slice. The frustum's full vertical angle is twice the outer half-angle.
func LightViewProj(l *ConeLight) mgl32.Mat4 {
	up := mgl32.Vec3{0, 1, 0}
	if float32(math.Abs(float64(l.Direction.Y()))) >= 0.99 {
		up = mgl32.Vec3{1, 0, 0}
	}
	target := l.Position.Add(l.Direction.Mul(l.Range))
	view := mgl32.LookAtV(l.Position, target, up)
	proj := PerspectiveZO(l.OuterAngle*2, 1, shadowNear, l.Range)
	return proj.Mul4(view)
}

// TopDownCamera is the orthographic camera that renders the height field used by
// horizon mapping. Its square footprint starts at WorldMin and spans WorldSize
// meters along X and Z.
type TopDownCamera struct {
	View       mgl32.Mat4
	Proj       mgl32.Mat4
	ViewProj   mgl32.Mat4
	Eye        mgl32.Vec3
	WorldMin   mgl32.Vec3
	WorldSize  float32
	Near       float32
	Far        float32
	NearPlaneY float32 // world Y at depth 0
	FarPlaneY  float32 // world Y at depth 1
}

func NewTopDownCamera(bounds [2]mgl32.Vec3) TopDownCamera {
	min, max := bounds[0], bounds[1]
	halfW := (max.X()-min.X())*0.5 + topDownPadding
	halfD := (max.Z()-min.Z())*0.5 + topDownPadding
	half := halfW
	if halfD > half {
		half = halfD
	}

	height := max.Y() + topDownClearance
	eye := mgl32.Vec3{(min.X() + max.X()) * 0.5, height, (min.Z() + max.Z()) * 0.5}
	target := mgl32.Vec3{eye.X(), 0, eye.Z()}

	// view X = world X, view Y = world -Z
	view := mgl32.LookAtV(eye, target, mgl32.Vec3{0, 0, -1})
	near, far := float32(shadowNear), height+10
	proj := OrthoZO(-half, half, -half, half, near, far)

	return TopDownCamera{
		View:       view,
		Proj:       proj,
		ViewProj:   proj.Mul4(view),
		Eye:        eye,
		WorldMin:   mgl32.Vec3{eye.X() - half, 0, eye.Z() - half},
		WorldSize:  half * 2,
		Near:       near,
		Far:        far,
		NearPlaneY: height - near,
		FarPlaneY:  height - far,
	}
}

// DepthToWorldY converts a stored top-down depth back to a world height.
func (c *TopDownCamera) DepthToWorldY(depth float32) float32 {
	return c.NearPlaneY + depth*(c.FarPlaneY-c.NearPlaneY)
}
