package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// VertsPerBox is 6 faces of 4 vertices each.
	VertsPerBox = 24
	// IndicesPerBox is 6 faces of 2 triangles each.
	IndicesPerBox = 36
	// GroundIndexCount is the number of indices of the ground quad, which always
	// comes first in the index buffer.
	GroundIndexCount = 6
	GroundSize       = 1000
)

// Vertex matches the shared vertex layout of every scene pass (32 bytes).
type Vertex struct {
	Pos    [3]float32
	Normal [3]float32
	UV     [2]float32
}

// SceneMesh is the ground quad followed by one oriented box per vehicle. Vehicle
// vertices start at CarVertexStart and are rewritten every frame in place.
type SceneMesh struct {
	Vertices       []Vertex
	Indices        []uint32
	CarVertexStart int
}

func BuildSceneMesh(fleet *Fleet) *SceneMesh {
	m := &SceneMesh{
		Vertices: make([]Vertex, 0, 4+len(fleet.Vehicles)*VertsPerBox),
		Indices:  make([]uint32, 0, GroundIndexCount+len(fleet.Vehicles)*IndicesPerBox),
	}

	h := float32(GroundSize / 2)
	up := [3]float32{0, 1, 0}
	m.Vertices = append(m.Vertices,
		Vertex{Pos: [3]float32{-h, 0, -h}, Normal: up, UV: [2]float32{0, 0}},
		Vertex{Pos: [3]float32{h, 0, -h}, Normal: up, UV: [2]float32{1, 0}},
		Vertex{Pos: [3]float32{h, 0, h}, Normal: up, UV: [2]float32{1, 1}},
		Vertex{Pos: [3]float32{-h, 0, h}, Normal: up, UV: [2]float32{0, 1}},
	)
	m.Indices = append(m.Indices, 0, 1, 2, 0, 2, 3)

	m.CarVertexStart = len(m.Vertices)
	m.Vertices = m.Vertices[:m.CarVertexStart+len(fleet.Vehicles)*VertsPerBox]
	for i := range fleet.Vehicles {
		base := uint32(m.CarVertexStart + i*VertsPerBox)
		for face := uint32(0); face < 6; face++ {
			b := base + face*4
			m.Indices = append(m.Indices, b, b+2, b+1, b, b+3, b+2)
		}
	}
	m.UpdateVehicles(fleet)
	return m
}

// UpdateVehicles rewrites every vehicle box from the fleet's current poses.
func (m *SceneMesh) UpdateVehicles(fleet *Fleet) {
	for i := range fleet.Vehicles {
		v := &fleet.Vehicles[i]
		start := m.CarVertexStart + i*VertsPerBox
		WriteOrientedBox(m.Vertices[start:start+VertsPerBox], v.Position, v.Forward, CarWidth, CarHeight, CarLength)
	}
}

// CarVertices is the per-frame dynamic part of the vertex array.
func (m *SceneMesh) CarVertices() []Vertex {
	return m.Vertices[m.CarVertexStart:]
}

// WriteOrientedBox fills dst with 24 vertices of a box centred at center whose
// local +Z follows forward. Sizes are width (X), height (Y) and length (Z).
// Faces are written front, back, right, left, top, bottom.
func WriteOrientedBox(dst []Vertex, center, forward mgl32.Vec3, sx, sy, sz float32) {
	fwd := forward.Normalize()
	up := mgl32.Vec3{0, 1, 0}
	right := up.Cross(fwd).Normalize()

	hx, hy, hz := sx*0.5, sy*0.5, sz*0.5
	world := func(lx, ly, lz float32) [3]float32 {
		return center.Add(right.Mul(lx)).Add(up.Mul(ly)).Add(fwd.Mul(lz))
	}
	normal := func(nx, ny, nz float32) [3]float32 {
		return right.Mul(nx).Add(up.Mul(ny)).Add(fwd.Mul(nz)).Normalize()
	}
	uvs := [4][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

	faces := [6]struct {
		n       [3]float32
		corners [4][3]float32
	}{
		{[3]float32{0, 0, 1}, [4][3]float32{{-hx, -hy, hz}, {hx, -hy, hz}, {hx, hy, hz}, {-hx, hy, hz}}},
		{[3]float32{0, 0, -1}, [4][3]float32{{hx, -hy, -hz}, {-hx, -hy, -hz}, {-hx, hy, -hz}, {hx, hy, -hz}}},
		{[3]float32{1, 0, 0}, [4][3]float32{{hx, -hy, hz}, {hx, -hy, -hz}, {hx, hy, -hz}, {hx, hy, hz}}},
		{[3]float32{-1, 0, 0}, [4][3]float32{{-hx, -hy, -hz}, {-hx, -hy, hz}, {-hx, hy, hz}, {-hx, hy, -hz}}},
		{[3]float32{0, 1, 0}, [4][3]float32{{-hx, hy, hz}, {hx, hy, hz}, {hx, hy, -hz}, {-hx, hy, -hz}}},
		{[3]float32{0, -1, 0}, [4][3]float32{{-hx, -hy, -hz}, {hx, -hy, -hz}, {hx, -hy, hz}, {-hx, -hy, hz}}},
	}

	v := 0
	for _, f := range faces {
		n := normal(f.n[0], f.n[1], f.n[2])
		for k, c := range f.corners {
			dst[v] = Vertex{Pos: world(c[0], c[1], c[2]), Normal: n, UV: uvs[k]}
			v++
		}
	}
}
