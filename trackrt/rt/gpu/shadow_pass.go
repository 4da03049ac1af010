package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/headlights/trackrt/rt/core"
	"github.com/gekko3d/headlights/trackrt/rt/shaders"
)

var ShadowBindings = BindingTable{
	Label: "Shadow",
	Bindings: []Binding{
		{Slot: 0, Name: "lightViewProj", Kind: BindUniformDynamic, Visibility: wgpu.ShaderStageVertex, Size: 64},
	},
}

// ShadowPass renders depth-only views of the scene: the whole scene from the
// top-down camera and the vehicles from each active cone light.
type ShadowPass struct {
	Pipeline   *wgpu.RenderPipeline
	Layout     *wgpu.BindGroupLayout
	BindGroups [FramesInFlight]*wgpu.BindGroup
}

func NewShadowPass(device *wgpu.Device, m *Manager) (*ShadowPass, error) {
	module, err := createShader(device, "ShadowShader", shaders.ShadowWGSL)
	if err != nil {
		return nil, err
	}
	bgl, err := ShadowBindings.CreateLayout(device)
	if err != nil {
		return nil, err
	}
	layout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "ShadowPipelineLayout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		return nil, err
	}

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "ShadowPipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers:    []wgpu.VertexBufferLayout{sceneVertexLayout(true)},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: depthState(true, wgpu.CompareFunctionLess),
		Multisample:  defaultMultisample,
	})
	if err != nil {
		return nil, err
	}

	p := &ShadowPass{Pipeline: pipeline, Layout: bgl}
	for i, fr := range m.Frames {
		p.BindGroups[i], err = ShadowBindings.CreateGroup(device, bgl, map[uint32]BindResource{
			0: {Buffer: fr.MatricesBuf},
		})
		if err != nil {
			return nil, fmt.Errorf("shadow bind group %d: %w", i, err)
		}
	}
	return p, nil
}

func (p *ShadowPass) begin(encoder *wgpu.CommandEncoder, label string, view *wgpu.TextureView, size uint32) *wgpu.RenderPassEncoder {
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: label,
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	pass.SetViewport(0, 0, float32(size), float32(size), 0, 1)
	pass.SetScissorRect(0, 0, size, size)
	pass.SetPipeline(p.Pipeline)
	return pass
}

// EncodeTopDown clears and renders ground and vehicles into the top-down target.
func (p *ShadowPass) EncodeTopDown(encoder *wgpu.CommandEncoder, m *Manager, slot int) error {
	fr := m.Frames[slot]
	pass := p.begin(encoder, "TopDownPass", m.Targets.TopDownView, core.TopDownMapSize)
	pass.SetBindGroup(0, p.BindGroups[slot], []uint32{TopDownSlot * MatrixSlotSize})
	pass.SetVertexBuffer(0, fr.VertexBuf, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(m.IndexBuf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	pass.DrawIndexed(m.IndexCount, 1, 0, 0, 0)
	return pass.End()
}

// EncodeCones renders one depth slice per active light, vehicles only.
func (p *ShadowPass) EncodeCones(encoder *wgpu.CommandEncoder, m *Manager, slot int) error {
	fr := m.Frames[slot]
	vehicleIndices := m.IndexCount - m.CarIndexStart
	for i := 0; i < fr.LightCount; i++ {
		pass := p.begin(encoder, "ConeShadowPass", m.Targets.ConeSliceViews[i], core.ConeShadowMapSize)
		pass.SetBindGroup(0, p.BindGroups[slot], []uint32{uint32(i * MatrixSlotSize)})
		pass.SetVertexBuffer(0, fr.VertexBuf, 0, wgpu.WholeSize)
		pass.SetIndexBuffer(m.IndexBuf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		pass.DrawIndexed(vehicleIndices, 1, m.CarIndexStart, 0, 0)
		if err := pass.End(); err != nil {
			return fmt.Errorf("light %d: %w", i, err)
		}
	}
	return nil
}
