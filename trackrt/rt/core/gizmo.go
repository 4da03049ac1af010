package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type GizmoType int

const (
	GizmoLine GizmoType = iota
	GizmoCone
)

// ConeSegments is the number of rim segments of a debug cone.
const ConeSegments = 16

var (
	ConeColor = [4]float32{1, 1, 0, 1}
	AxisColor = [4]float32{1, 0, 0, 1}
)

// Gizmo is a debug wireframe instance.
type Gizmo struct {
	Type  GizmoType
	Color [4]float32
	// Cone: maps the unit cone (apex at origin, rim radius 1 at z=1) to world space.
	ModelMatrix mgl32.Mat4
	// Line: world-space endpoints.
	P1, P2 mgl32.Vec3
}

// ConeGizmos describes a wireframe cone and a centre axis for each light.
func ConeGizmos(lights []ConeLight) []Gizmo {
	out := make([]Gizmo, 0, len(lights)*2)
	for i := range lights {
		l := &lights[i]
		endRadius := l.Range * float32(math.Tan(float64(l.OuterAngle)))
		out = append(out,
			Gizmo{
				Type:        GizmoCone,
				Color:       ConeColor,
				ModelMatrix: OrientedBasis(l.Position, l.Direction, endRadius, endRadius, l.Range),
			},
			Gizmo{
				Type:  GizmoLine,
				Color: AxisColor,
				P1:    l.Position,
				P2:    l.Position.Add(l.Direction.Mul(l.Range)),
			},
		)
	}
	return out
}

// OrientedBasis returns a transform whose local +Z follows dir, scaled per axis
// and translated to origin.
func OrientedBasis(origin, dir mgl32.Vec3, sx, sy, sz float32) mgl32.Mat4 {
	fwd := dir.Normalize()
	up := mgl32.Vec3{0, 1, 0}
	if float32(math.Abs(float64(fwd.Y()))) >= 0.99 {
		up = mgl32.Vec3{1, 0, 0}
	}
	right := fwd.Cross(up).Normalize()
	up = right.Cross(fwd).Normalize()

	return mgl32.Mat4FromCols(
		right.Mul(sx).Vec4(0),
		up.Mul(sy).Vec4(0),
		fwd.Mul(sz).Vec4(0),
		origin.Vec4(1),
	)
}
