package gpu

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/headlights/trackrt/rt/core"
	"github.com/gekko3d/headlights/trackrt/rt/shaders"
)

// GizmoVertex matches the position input of gizmo.wgsl.
type GizmoVertex struct {
	Pos [3]float32
}

// GizmoInstance matches the per-instance attributes of gizmo.wgsl.
type GizmoInstance struct {
	ModelMat mgl32.Mat4
	Color    [4]float32
}

var GizmoBindings = BindingTable{
	Label: "Gizmo",
	Bindings: []Binding{
		{Slot: 0, Name: "frame", Kind: BindUniform, Visibility: wgpu.ShaderStageVertex, Size: 64},
	},
}

var gizmoShapes = []core.GizmoType{core.GizmoLine, core.GizmoCone}

// UnitLine runs from the origin one unit along +Z.
func UnitLine() []GizmoVertex {
	return []GizmoVertex{{Pos: [3]float32{0, 0, 0}}, {Pos: [3]float32{0, 0, 1}}}
}

// UnitCone is a line list: the rim circle of radius 1 at z=1 and a line from
// the apex to every rim vertex.
func UnitCone(segments int) []GizmoVertex {
	verts := make([]GizmoVertex, 0, segments*4)
	step := 2 * math.Pi / float64(segments)
	rim := func(i int) GizmoVertex {
		a := float64(i) * step
		return GizmoVertex{Pos: [3]float32{float32(math.Cos(a)), float32(math.Sin(a)), 1}}
	}
	for i := 0; i < segments; i++ {
		verts = append(verts, rim(i), rim(i+1))
		verts = append(verts, GizmoVertex{}, rim(i))
	}
	return verts
}

// LineInstance places the unit line between two world points. Degenerate
// segments report false.
func LineInstance(p1, p2 mgl32.Vec3) (mgl32.Mat4, bool) {
	diff := p2.Sub(p1)
	dist := diff.Len()
	if dist < 0.0001 {
		return mgl32.Mat4{}, false
	}
	rot := mgl32.QuatBetweenVectors(mgl32.Vec3{0, 0, 1}, diff.Normalize())
	return mgl32.Translate3D(p1.X(), p1.Y(), p1.Z()).
		Mul4(rot.Mat4()).
		Mul4(mgl32.Scale3D(1, 1, dist)), true
}

// GroupInstances sorts gizmos into per-shape instance lists.
func GroupInstances(gizmos []core.Gizmo) map[core.GizmoType][]GizmoInstance {
	out := make(map[core.GizmoType][]GizmoInstance, len(gizmoShapes))
	for _, g := range gizmos {
		inst := GizmoInstance{Color: g.Color, ModelMat: g.ModelMatrix}
		if g.Type == core.GizmoLine {
			m, ok := LineInstance(g.P1, g.P2)
			if !ok {
				continue
			}
			inst.ModelMat = m
		}
		out[g.Type] = append(out[g.Type], inst)
	}
	return out
}

// ConePass draws the light cones as instanced wireframes into the main pass.
type ConePass struct {
	Device     *wgpu.Device
	Pipeline   *wgpu.RenderPipeline
	BindGroups [FramesInFlight]*wgpu.BindGroup

	VertexBuffer *wgpu.Buffer
	ShapeOffsets map[core.GizmoType]uint32
	ShapeCounts  map[core.GizmoType]uint32

	InstanceBuffer *wgpu.Buffer
	InstanceCap    uint32
	ByShape        map[core.GizmoType][]GizmoInstance
}

func NewConePass(device *wgpu.Device, m *Manager, format wgpu.TextureFormat) (*ConePass, error) {
	module, err := createShader(device, "GizmoShader", shaders.GizmoWGSL)
	if err != nil {
		return nil, err
	}
	bgl, err := GizmoBindings.CreateLayout(device)
	if err != nil {
		return nil, err
	}
	layout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "GizmoPipelineLayout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		return nil, err
	}

	instanceAttrs := make([]wgpu.VertexAttribute, 5)
	for i := range instanceAttrs {
		instanceAttrs[i] = wgpu.VertexAttribute{
			Format:         wgpu.VertexFormatFloat32x4,
			Offset:         uint64(i * 16),
			ShaderLocation: uint32(i + 2),
		}
	}

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "GizmoPipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: uint64(unsafe.Sizeof(GizmoVertex{})),
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes:  []wgpu.VertexAttribute{{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0}},
				},
				{
					ArrayStride: uint64(unsafe.Sizeof(GizmoInstance{})),
					StepMode:    wgpu.VertexStepModeInstance,
					Attributes:  instanceAttrs,
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				WriteMask: wgpu.ColorWriteMaskAll,
				Blend:     alphaBlend(),
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyLineList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		// Tested against the scene but never written.
		DepthStencil: depthState(false, wgpu.CompareFunctionLessEqual),
		Multisample:  defaultMultisample,
	})
	if err != nil {
		return nil, fmt.Errorf("gizmo pipeline: %w", err)
	}

	p := &ConePass{
		Device:       device,
		Pipeline:     pipeline,
		ShapeOffsets: make(map[core.GizmoType]uint32),
		ShapeCounts:  make(map[core.GizmoType]uint32),
		ByShape:      make(map[core.GizmoType][]GizmoInstance),
	}
	for i, fr := range m.Frames {
		p.BindGroups[i], err = GizmoBindings.CreateGroup(device, bgl, map[uint32]BindResource{
			0: {Buffer: fr.FrameBuf, Size: FrameUniformSize},
		})
		if err != nil {
			return nil, fmt.Errorf("gizmo bind group %d: %w", i, err)
		}
	}

	var vertices []GizmoVertex
	addShape := func(t core.GizmoType, shape []GizmoVertex) {
		p.ShapeOffsets[t] = uint32(len(vertices))
		p.ShapeCounts[t] = uint32(len(shape))
		vertices = append(vertices, shape...)
	}
	addShape(core.GizmoLine, UnitLine())
	addShape(core.GizmoCone, UnitCone(core.ConeSegments))

	size := uint64(len(vertices)) * uint64(unsafe.Sizeof(GizmoVertex{}))
	p.VertexBuffer, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "GizmoUnitVertexBuffer",
		Size:  size,
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	device.GetQueue().WriteBuffer(p.VertexBuffer, 0, unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), size))
	return p, nil
}

// Update uploads this frame's instances. The buffer grows with a margin and is
// never shrunk.
func (p *ConePass) Update(queue *wgpu.Queue, gizmos []core.Gizmo) {
	p.ByShape = GroupInstances(gizmos)

	var all []GizmoInstance
	for _, t := range gizmoShapes {
		all = append(all, p.ByShape[t]...)
	}
	if len(all) == 0 {
		return
	}

	count := uint32(len(all))
	stride := uint64(unsafe.Sizeof(GizmoInstance{}))
	if p.InstanceBuffer == nil || p.InstanceCap < count {
		if p.InstanceBuffer != nil {
			p.InstanceBuffer.Release()
		}
		p.InstanceCap = count + 64
		var err error
		p.InstanceBuffer, err = p.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "GizmoInstanceBuffer",
			Size:  uint64(p.InstanceCap) * stride,
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			panic(err)
		}
	}
	queue.WriteBuffer(p.InstanceBuffer, 0, unsafe.Slice((*byte)(unsafe.Pointer(&all[0])), uint64(count)*stride))
}

func (p *ConePass) Draw(pass *wgpu.RenderPassEncoder, slot int) {
	if p.InstanceBuffer == nil {
		return
	}
	pass.SetPipeline(p.Pipeline)
	pass.SetBindGroup(0, p.BindGroups[slot], nil)
	pass.SetVertexBuffer(0, p.VertexBuffer, 0, wgpu.WholeSize)
	pass.SetVertexBuffer(1, p.InstanceBuffer, 0, wgpu.WholeSize)

	var first uint32
	for _, t := range gizmoShapes {
		n := uint32(len(p.ByShape[t]))
		if n > 0 {
			pass.Draw(p.ShapeCounts[t], n, p.ShapeOffsets[t], first)
		}
		first += n
	}
}

func (p *ConePass) Release() {
	if p.InstanceBuffer != nil {
		p.InstanceBuffer.Release()
	}
	if p.VertexBuffer != nil {
		p.VertexBuffer.Release()
	}
}
