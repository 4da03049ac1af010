package gpu

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"

	"github.com/gekko3d/headlights/trackrt/rt/core"
)

func TestUnitCone(t *testing.T) {
	verts := UnitCone(core.ConeSegments)
	assert.Len(t, verts, core.ConeSegments*4)
	for i := 0; i < len(verts); i += 4 {
		rim := mgl32.Vec3(verts[i].Pos)
		assert.InDelta(t, 1, rim.Vec2().Len(), 1e-5)
		assert.Equal(t, float32(1), rim.Z())
		assert.Equal(t, [3]float32{}, verts[i+2].Pos, "apex")
	}
	assert.Len(t, UnitLine(), 2)
}

func TestLineInstance(t *testing.T) {
	p1 := mgl32.Vec3{1, 2, 3}
	p2 := mgl32.Vec3{1, 2, 13}
	m, ok := LineInstance(p1, p2)
	assert.True(t, ok)
	assert.True(t, m.Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3().ApproxEqualThreshold(p1, 1e-4))
	assert.True(t, m.Mul4x1(mgl32.Vec4{0, 0, 1, 1}).Vec3().ApproxEqualThreshold(p2, 1e-4))

	p3 := mgl32.Vec3{4, 2, 3}
	m, ok = LineInstance(p1, p3)
	assert.True(t, ok)
	assert.True(t, m.Mul4x1(mgl32.Vec4{0, 0, 1, 1}).Vec3().ApproxEqualThreshold(p3, 1e-4))

	_, ok = LineInstance(p1, p1)
	assert.False(t, ok)
}

func TestGroupInstances(t *testing.T) {
	lights := []core.ConeLight{
		{Position: mgl32.Vec3{0, 1, 0}, Direction: mgl32.Vec3{0, 0, 1}, Range: 10, InnerAngle: 0.1, OuterAngle: 0.3},
		{Position: mgl32.Vec3{2, 1, 0}, Direction: mgl32.Vec3{1, 0, 0}, Range: 10, InnerAngle: 0.1, OuterAngle: 0.3},
	}
	gizmos := core.ConeGizmos(lights)
	gizmos = append(gizmos, core.Gizmo{Type: core.GizmoLine, P1: mgl32.Vec3{1, 1, 1}, P2: mgl32.Vec3{1, 1, 1}})

	by := GroupInstances(gizmos)
	assert.Len(t, by[core.GizmoCone], 2)
	assert.Len(t, by[core.GizmoLine], 2, "degenerate line dropped")
	assert.Equal(t, core.ConeColor, by[core.GizmoCone][0].Color)
}
