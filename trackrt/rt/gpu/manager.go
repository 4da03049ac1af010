package gpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/headlights/trackrt/rt/core"
	"github.com/gekko3d/headlights/trackrt/rt/horizon"
	"github.com/gekko3d/headlights/trackrt/rt/shading"
)

const (
	// UniformSlotSize is the dynamic-offset stride of every per-light uniform.
	UniformSlotSize  = 256
	MatrixSlotSize   = UniformSlotSize
	FrameUniformSize = 256
	// TopDownSlot is the matrix slot after the per-light ones.
	TopDownSlot      = core.MaxConeLights
	MatrixSlots      = core.MaxConeLights + 1
	ConeLightGPUSize = 48
)

// ConeLightGPU matches struct ConeLight in lit.wgsl (48 bytes).
type ConeLightGPU struct {
	PosRange      [4]float32 // xyz position, w range
	DirCosOuter   [4]float32 // xyz direction, w cos(outer)
	ColorCosInner [4]float32 // rgb color, w cos(inner)
}

func PackConeLight(l *core.ConeLight) ConeLightGPU {
	return ConeLightGPU{
		PosRange:      [4]float32{l.Position.X(), l.Position.Y(), l.Position.Z(), l.Range},
		DirCosOuter:   [4]float32{l.Direction.X(), l.Direction.Y(), l.Direction.Z(), l.CosOuter()},
		ColorCosInner: [4]float32{l.Color.X(), l.Color.Y(), l.Color.Z(), l.CosInner()},
	}
}

// MatrixSlot is one view-projection padded to the dynamic offset alignment.
type MatrixSlot struct {
	M mgl32.Mat4
	_ [48]float32
}

// HorizonParamsGPU matches struct HorizonParams in horizon.wgsl, padded to a
// full uniform slot.
type HorizonParamsGPU struct {
	LightPos   [3]float32
	WorldSize  float32
	WorldMin   [3]float32
	LightIndex uint32
	MapSize    uint32
	NearPlaneY float32
	FarPlaneY  float32
	_          float32
	_          [52]float32
}

func PackHorizonParams(p *horizon.Params) HorizonParamsGPU {
	return HorizonParamsGPU{
		LightPos:   p.LightPos,
		WorldSize:  p.WorldSize,
		WorldMin:   p.WorldMin,
		LightIndex: p.LightIndex,
		MapSize:    p.MapSize,
		NearPlaneY: p.NearPlaneY,
		FarPlaneY:  p.FarPlaneY,
	}
}

// FrameUniform holds the per-frame constants shared by the lit, debug-depth
// and gizmo shaders.
type FrameUniform struct {
	ViewProj       mgl32.Mat4
	CameraPos      mgl32.Vec3
	NumConeLights  uint32
	Ambient        float32
	ConeIntensity  float32
	ShadowBias     float32
	Falloff        float32
	ShowOverlap    bool
	OverlapMax     float32
	DisableShadows bool
	UseHorizon     bool
	HorizonMin     mgl32.Vec2
	HorizonSize    float32
	HorizonMapSize float32
	DebugLayer     uint32
	ViewportW      float32
	ViewportH      float32
}

// EncodeFrameUniform packs u in the layout of struct Frame.
func EncodeFrameUniform(u *FrameUniform) []byte {
	// struct Frame {
	//   viewProj: mat4x4<f32>            -- 0
	//   cameraPos: vec3<f32>             -- 64
	//   numConeLights: u32               -- 76
	//   ambient, coneIntensity,
	//   shadowBias, falloff: f32         -- 80
	//   showOverlap: u32                 -- 96
	//   overlapMax: f32                  -- 100
	//   disableShadows, useHorizon: u32  -- 104
	//   horizonMin: vec2<f32>            -- 112
	//   horizonSize, horizonMapSize: f32 -- 120
	//   debugLayer: u32                  -- 128
	//   viewport: vec2<f32>              -- 136
	// } -> padded to 256
	buf := make([]byte, FrameUniformSize)
	putF := func(off int, v float32) { binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v)) }
	putU := func(off int, v uint32) { binary.LittleEndian.PutUint32(buf[off:], v) }
	putB := func(off int, v bool) {
		if v {
			putU(off, 1)
		}
	}

	for i, v := range u.ViewProj {
		putF(i*4, v)
	}
	putF(64, u.CameraPos[0])
	putF(68, u.CameraPos[1])
	putF(72, u.CameraPos[2])
	putU(76, u.NumConeLights)
	putF(80, u.Ambient)
	putF(84, u.ConeIntensity)
	putF(88, u.ShadowBias)
	putF(92, u.Falloff)
	putB(96, u.ShowOverlap)
	putF(100, u.OverlapMax)
	putB(104, u.DisableShadows)
	putB(108, u.UseHorizon)
	putF(112, u.HorizonMin[0])
	putF(116, u.HorizonMin[1])
	putF(120, u.HorizonSize)
	putF(124, u.HorizonMapSize)
	putU(128, u.DebugLayer)
	putF(136, u.ViewportW)
	putF(140, u.ViewportH)
	return buf
}

// FrameInputs is everything the CPU produces for one frame.
type FrameInputs struct {
	ViewProj    mgl32.Mat4
	Shading     shading.Params
	Lights      []core.ConeLight
	TopDown     *core.TopDownCamera
	Mesh        *core.SceneMesh
	ShowOverlap bool
	DebugLayer  int
	Width       uint32
	Height      uint32
}

func NewFrameUniform(in *FrameInputs) FrameUniform {
	p := &in.Shading
	return FrameUniform{
		ViewProj:       in.ViewProj,
		CameraPos:      p.CameraPos,
		NumConeLights:  uint32(len(in.Lights)),
		Ambient:        p.AmbientIntensity,
		ConeIntensity:  p.ConeLightIntensity,
		ShadowBias:     p.ShadowBias,
		Falloff:        p.FalloffExponent,
		ShowOverlap:    in.ShowOverlap,
		OverlapMax:     p.OverlapMaxCount,
		DisableShadows: p.DisableShadows,
		UseHorizon:     p.UseHorizonMapping,
		HorizonMin:     mgl32.Vec2{in.TopDown.WorldMin.X(), in.TopDown.WorldMin.Z()},
		HorizonSize:    in.TopDown.WorldSize,
		HorizonMapSize: float32(horizon.MapSize),
		DebugLayer:     uint32(in.DebugLayer),
		ViewportW:      float32(in.Width),
		ViewportH:      float32(in.Height),
	}
}

// FrameResources are the per-slot uploads and the GPU buffers behind them.
type FrameResources struct {
	Frame         *WritableView[FrameUniform]
	Lights        *WritableView[ConeLightGPU]
	Matrices      *WritableView[MatrixSlot]
	HorizonParams *WritableView[HorizonParamsGPU]
	Vertices      *WritableView[core.Vertex]
	LightCount    int

	FrameBuf         *wgpu.Buffer
	LightsBuf        *wgpu.Buffer
	MatricesBuf      *wgpu.Buffer
	HorizonParamsBuf *wgpu.Buffer
	VertexBuf        *wgpu.Buffer
}

func newFrameResources(vertexCount int) *FrameResources {
	return &FrameResources{
		Frame:         NewWritableView[FrameUniform](1),
		Lights:        NewWritableView[ConeLightGPU](core.MaxConeLights),
		Matrices:      NewWritableView[MatrixSlot](MatrixSlots),
		HorizonParams: NewWritableView[HorizonParamsGPU](core.MaxConeLights),
		Vertices:      NewWritableView[core.Vertex](vertexCount),
	}
}

// Write fills the slot's views from the frame inputs. It fails if the inputs
// do not fit the slot, which leaves the frame to be dropped.
func (fr *FrameResources) Write(in *FrameInputs) error {
	if len(in.Lights) > fr.Lights.Len() {
		return fmt.Errorf("%d lights exceed capacity %d", len(in.Lights), fr.Lights.Len())
	}
	if err := fr.Frame.Set(0, NewFrameUniform(in)); err != nil {
		return err
	}
	for i := range in.Lights {
		l := &in.Lights[i]
		if err := fr.Lights.Set(i, PackConeLight(l)); err != nil {
			return err
		}
		if err := fr.Matrices.Set(i, MatrixSlot{M: core.LightViewProj(l)}); err != nil {
			return err
		}
		hp := horizon.ParamsFor(in.TopDown, l.Position, i, horizon.MapSize)
		if err := fr.HorizonParams.Set(i, PackHorizonParams(&hp)); err != nil {
			return err
		}
	}
	if err := fr.Matrices.Set(TopDownSlot, MatrixSlot{M: in.TopDown.ViewProj}); err != nil {
		return err
	}
	if err := fr.Vertices.CopyFrom(0, in.Mesh.Vertices); err != nil {
		return fmt.Errorf("vertices: %w", err)
	}
	fr.LightCount = len(in.Lights)
	return nil
}

// Manager owns the per-slot buffers, the static index buffer and the shared
// shadow and horizon targets.
type Manager struct {
	Device *wgpu.Device
	Queue  *wgpu.Queue

	Frames  [FramesInFlight]*FrameResources
	Targets *ShadowTargets
	States  *StateTracker

	IndexBuf      *wgpu.Buffer
	IndexCount    uint32
	CarIndexStart uint32
	VertexCount   int
}

func NewManager(device *wgpu.Device) *Manager {
	return &Manager{
		Device: device,
		Queue:  device.GetQueue(),
		States: DefaultStateTracker(),
	}
}

// Setup creates every fixed-size resource for the given scene mesh.
func (m *Manager) Setup(mesh *core.SceneMesh) error {
	m.VertexCount = len(mesh.Vertices)
	m.IndexCount = uint32(len(mesh.Indices))
	m.CarIndexStart = core.GroundIndexCount
	m.IndexBuf = m.createBuffer("SceneIndexBuf", uint64(len(mesh.Indices)*4), wgpu.BufferUsageIndex)
	m.Queue.WriteBuffer(m.IndexBuf, 0, unsafe.Slice((*byte)(unsafe.Pointer(&mesh.Indices[0])), len(mesh.Indices)*4))

	for i := range m.Frames {
		fr := newFrameResources(m.VertexCount)
		fr.FrameBuf = m.createBuffer(fmt.Sprintf("FrameUB[%d]", i), FrameUniformSize, wgpu.BufferUsageUniform)
		fr.LightsBuf = m.createBuffer(fmt.Sprintf("ConeLightsSB[%d]", i), uint64(core.MaxConeLights*ConeLightGPUSize), wgpu.BufferUsageStorage)
		fr.MatricesBuf = m.createBuffer(fmt.Sprintf("LightMatricesUB[%d]", i), uint64(MatrixSlots*MatrixSlotSize), wgpu.BufferUsageUniform|wgpu.BufferUsageStorage)
		fr.HorizonParamsBuf = m.createBuffer(fmt.Sprintf("HorizonParamsUB[%d]", i), uint64(core.MaxConeLights*UniformSlotSize), wgpu.BufferUsageUniform)
		fr.VertexBuf = m.createBuffer(fmt.Sprintf("SceneVB[%d]", i), uint64(m.VertexCount)*fr.Vertices.ElemSize(), wgpu.BufferUsageVertex)
		m.Frames[i] = fr
	}

	targets, err := NewShadowTargets(m.Device)
	if err != nil {
		return fmt.Errorf("shadow targets: %w", err)
	}
	m.Targets = targets
	return nil
}

func (m *Manager) createBuffer(label string, size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	if size%4 != 0 {
		size += 4 - size%4
	}
	buf, err := m.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	return buf
}

// WriteFrame fills the slot's views for this frame.
func (m *Manager) WriteFrame(slot int, in *FrameInputs) error {
	return m.Frames[slot].Write(in)
}

// Flush uploads every dirty view of the slot.
func (m *Manager) Flush(slot int) {
	fr := m.Frames[slot]
	if fr.Frame.Dirty() {
		u, _ := fr.Frame.At(0)
		m.Queue.WriteBuffer(fr.FrameBuf, 0, EncodeFrameUniform(&u))
		fr.Frame.Clean()
	}
	if fr.Lights.Dirty() && fr.LightCount > 0 {
		m.Queue.WriteBuffer(fr.LightsBuf, 0, fr.Lights.Bytes(fr.LightCount))
		fr.Lights.Clean()
	}
	if fr.Matrices.Dirty() {
		m.Queue.WriteBuffer(fr.MatricesBuf, 0, fr.Matrices.Bytes(fr.Matrices.Len()))
		fr.Matrices.Clean()
	}
	if fr.HorizonParams.Dirty() && fr.LightCount > 0 {
		m.Queue.WriteBuffer(fr.HorizonParamsBuf, 0, fr.HorizonParams.Bytes(fr.LightCount))
		fr.HorizonParams.Clean()
	}
	if fr.Vertices.Dirty() {
		m.Queue.WriteBuffer(fr.VertexBuf, 0, fr.Vertices.Bytes(fr.Vertices.Len()))
		fr.Vertices.Clean()
	}
}

func (m *Manager) Release() {
	for _, fr := range m.Frames {
		if fr == nil {
			continue
		}
		for _, b := range []*wgpu.Buffer{fr.FrameBuf, fr.LightsBuf, fr.MatricesBuf, fr.HorizonParamsBuf, fr.VertexBuf} {
			if b != nil {
				b.Release()
			}
		}
	}
	if m.IndexBuf != nil {
		m.IndexBuf.Release()
	}
	if m.Targets != nil {
		m.Targets.Release()
	}
}
