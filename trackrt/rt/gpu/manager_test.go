package gpu

import (
	"encoding/binary"
	"math"
	"testing"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/headlights/trackrt/rt/core"
	"github.com/gekko3d/headlights/trackrt/rt/shading"
)

func TestGPULayoutSizes(t *testing.T) {
	assert.Equal(t, uintptr(ConeLightGPUSize), unsafe.Sizeof(ConeLightGPU{}))
	assert.Equal(t, uintptr(MatrixSlotSize), unsafe.Sizeof(MatrixSlot{}))
	assert.Equal(t, uintptr(UniformSlotSize), unsafe.Sizeof(HorizonParamsGPU{}))
	assert.Equal(t, uintptr(32), unsafe.Sizeof(core.Vertex{}))
	assert.Equal(t, uintptr(80), unsafe.Sizeof(GizmoInstance{}))
}

func TestEncodeFrameUniform_Offsets(t *testing.T) {
	u := FrameUniform{
		ViewProj:       mgl32.Ident4(),
		CameraPos:      mgl32.Vec3{1, 2, 3},
		NumConeLights:  7,
		Ambient:        0.1,
		ConeIntensity:  2,
		ShadowBias:     0.005,
		Falloff:        1.5,
		ShowOverlap:    true,
		OverlapMax:     8,
		UseHorizon:     true,
		HorizonMin:     mgl32.Vec2{-50, -60},
		HorizonSize:    120,
		HorizonMapSize: 1024,
		DebugLayer:     3,
		ViewportW:      1280,
		ViewportH:      720,
	}
	buf := EncodeFrameUniform(&u)
	require.Len(t, buf, FrameUniformSize)

	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	i := func(off int) uint32 { return binary.LittleEndian.Uint32(buf[off:]) }

	assert.Equal(t, float32(1), f(0))
	assert.Equal(t, float32(1), f(20))
	assert.Equal(t, float32(1), f(60))
	assert.Equal(t, float32(2), f(68))
	assert.Equal(t, uint32(7), i(76))
	assert.Equal(t, float32(2), f(84))
	assert.Equal(t, float32(1.5), f(92))
	assert.Equal(t, uint32(1), i(96))
	assert.Equal(t, float32(8), f(100))
	assert.Equal(t, uint32(0), i(104))
	assert.Equal(t, uint32(1), i(108))
	assert.Equal(t, float32(-60), f(116))
	assert.Equal(t, float32(1024), f(124))
	assert.Equal(t, uint32(3), i(128))
	assert.Equal(t, float32(1280), f(136))
	assert.Equal(t, float32(720), f(140))
	for off := 144; off < FrameUniformSize; off++ {
		assert.Zero(t, buf[off], "padding at %d", off)
	}
}

func TestPackConeLight(t *testing.T) {
	l := core.ConeLight{
		Position:   mgl32.Vec3{1, 0.6, 2},
		Direction:  mgl32.Vec3{0, 0, 1},
		Color:      mgl32.Vec3{1.5, 1.4, 1.2},
		Range:      30,
		InnerAngle: 0,
		OuterAngle: math.Pi / 3,
	}
	g := PackConeLight(&l)
	assert.Equal(t, [4]float32{1, 0.6, 2, 30}, g.PosRange)
	assert.InDelta(t, 0.5, g.DirCosOuter[3], 1e-6)
	assert.InDelta(t, 1, g.ColorCosInner[3], 1e-6)
	assert.Equal(t, float32(1.4), g.ColorCosInner[1])
}

func frameInputs(t *testing.T, lightCount int) (*FrameInputs, *core.SceneMesh) {
	t.Helper()
	fleet := core.NewFleet(core.DefaultTrack(), 4)
	mesh := core.BuildSceneMesh(fleet)
	cam := core.NewTopDownCamera(core.TrackBounds(core.DefaultTrack(), 20))
	lights := make([]core.ConeLight, lightCount)
	for i := range lights {
		lights[i] = core.ConeLight{
			Position:   mgl32.Vec3{float32(i), 0.6, 0},
			Direction:  mgl32.Vec3{0, 0, 1},
			Range:      30,
			InnerAngle: 0.15,
			OuterAngle: 0.35,
		}
	}
	return &FrameInputs{
		ViewProj: mgl32.Ident4(),
		Shading:  shading.DefaultParams(),
		Lights:   lights,
		TopDown:  &cam,
		Mesh:     mesh,
		Width:    800,
		Height:   600,
	}, mesh
}

func TestFrameResources_Write(t *testing.T) {
	in, mesh := frameInputs(t, 3)
	fr := newFrameResources(len(mesh.Vertices))
	require.NoError(t, fr.Write(in))

	assert.Equal(t, 3, fr.LightCount)
	assert.True(t, fr.Lights.Dirty())
	assert.True(t, fr.Vertices.Dirty())

	m, err := fr.Matrices.At(1)
	require.NoError(t, err)
	assert.Equal(t, core.LightViewProj(&in.Lights[1]), m.M)

	td, err := fr.Matrices.At(TopDownSlot)
	require.NoError(t, err)
	assert.Equal(t, in.TopDown.ViewProj, td.M)

	hp, err := fr.HorizonParams.At(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), hp.LightIndex)
	assert.Equal(t, float32(2), hp.LightPos[0])

	u, err := fr.Frame.At(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), u.NumConeLights)
	assert.Equal(t, float32(800), u.ViewportW)
}

func TestFrameResources_WriteRejectsOverflow(t *testing.T) {
	in, mesh := frameInputs(t, core.MaxConeLights+1)
	fr := newFrameResources(len(mesh.Vertices))
	assert.Error(t, fr.Write(in))

	in, _ = frameInputs(t, 1)
	small := newFrameResources(1)
	assert.ErrorIs(t, small.Write(in), ErrOutOfRange)
}
