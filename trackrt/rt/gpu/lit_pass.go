package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/headlights/trackrt/rt/core"
	"github.com/gekko3d/headlights/trackrt/rt/shaders"
)

// ClearColor matches the fog colour so distant geometry fades into the sky.
var ClearColor = wgpu.Color{R: 0.5, G: 0.6, B: 0.7, A: 1}

var LitBindings = BindingTable{
	Label: "Lit",
	Bindings: []Binding{
		{Slot: 0, Name: "frame", Kind: BindUniform, Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment, Size: 144},
		{Slot: 1, Name: "lights", Kind: BindStorageRead, Visibility: wgpu.ShaderStageFragment, Size: core.MaxConeLights * ConeLightGPUSize},
		{Slot: 2, Name: "lightMatrices", Kind: BindStorageRead, Visibility: wgpu.ShaderStageFragment, Size: MatrixSlots * MatrixSlotSize},
		{Slot: 3, Name: "coneShadows", Kind: BindDepthArray, Visibility: wgpu.ShaderStageFragment},
		{Slot: 4, Name: "shadowSampler", Kind: BindComparisonSampler, Visibility: wgpu.ShaderStageFragment},
		{Slot: 5, Name: "horizonMaps", Kind: BindUnfilterableArray, Visibility: wgpu.ShaderStageFragment},
	},
}

var DebugDepthBindings = BindingTable{
	Label: "DebugDepth",
	Bindings: []Binding{
		{Slot: 0, Name: "frame", Kind: BindUniform, Visibility: wgpu.ShaderStageFragment, Size: 144},
		{Slot: 1, Name: "coneShadows", Kind: BindDepthArray, Visibility: wgpu.ShaderStageFragment},
	},
}

// LitPass owns the main render pass: the lit scene or the shadow slice debug
// view, drawn over a window-sized depth buffer.
type LitPass struct {
	Device *wgpu.Device

	Pipeline   *wgpu.RenderPipeline
	Layout     *wgpu.BindGroupLayout
	BindGroups [FramesInFlight]*wgpu.BindGroup

	DebugPipeline   *wgpu.RenderPipeline
	DebugLayout     *wgpu.BindGroupLayout
	DebugBindGroups [FramesInFlight]*wgpu.BindGroup

	DepthTexture *wgpu.Texture
	DepthView    *wgpu.TextureView
	Width        uint32
	Height       uint32
}

func NewLitPass(device *wgpu.Device, m *Manager, format wgpu.TextureFormat, width, height uint32) (*LitPass, error) {
	p := &LitPass{Device: device}

	module, err := createShader(device, "LitShader", shaders.LitWGSL)
	if err != nil {
		return nil, err
	}
	if p.Layout, err = LitBindings.CreateLayout(device); err != nil {
		return nil, err
	}
	layout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "LitPipelineLayout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.Layout},
	})
	if err != nil {
		return nil, err
	}
	p.Pipeline, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "LitPipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers:    []wgpu.VertexBufferLayout{sceneVertexLayout(false)},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets:    []wgpu.ColorTargetState{{Format: format, WriteMask: wgpu.ColorWriteMaskAll}},
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
		return nil, fmt.Errorf("lit pipeline: %w", err)
	}

	debugModule, err := createShader(device, "DebugDepthShader", shaders.DebugDepthWGSL)
	if err != nil {
		return nil, err
	}
	if p.DebugLayout, err = DebugDepthBindings.CreateLayout(device); err != nil {
		return nil, err
	}
	debugLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "DebugDepthPipelineLayout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.DebugLayout},
	})
	if err != nil {
		return nil, err
	}
	p.DebugPipeline, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "DebugDepthPipeline",
		Layout: debugLayout,
		Vertex: wgpu.VertexState{
			Module:     debugModule,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     debugModule,
			EntryPoint: "fs_main",
			Targets:    []wgpu.ColorTargetState{{Format: format, WriteMask: wgpu.ColorWriteMaskAll}},
		},
		Primitive:    wgpu.PrimitiveState{Topology: wgpu.PrimitiveTopologyTriangleList},
		DepthStencil: depthState(false, wgpu.CompareFunctionAlways),
		Multisample:  defaultMultisample,
	})
	if err != nil {
		return nil, fmt.Errorf("debug depth pipeline: %w", err)
	}

	t := m.Targets
	for i, fr := range m.Frames {
		p.BindGroups[i], err = LitBindings.CreateGroup(device, p.Layout, map[uint32]BindResource{
			0: {Buffer: fr.FrameBuf, Size: FrameUniformSize},
			1: {Buffer: fr.LightsBuf},
			2: {Buffer: fr.MatricesBuf},
			3: {View: t.ConeArrayView},
			4: {Sampler: t.ShadowSampler},
			5: {View: t.HorizonSampleView},
		})
		if err != nil {
			return nil, fmt.Errorf("lit bind group %d: %w", i, err)
		}
		p.DebugBindGroups[i], err = DebugDepthBindings.CreateGroup(device, p.DebugLayout, map[uint32]BindResource{
			0: {Buffer: fr.FrameBuf, Size: FrameUniformSize},
			1: {View: t.ConeArrayView},
		})
		if err != nil {
			return nil, fmt.Errorf("debug depth bind group %d: %w", i, err)
		}
	}

	p.Resize(width, height)
	return p, nil
}

// Resize recreates the main depth buffer. A zero-area size is ignored.
func (p *LitPass) Resize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	if p.DepthView != nil {
		p.DepthView.Release()
	}
	if p.DepthTexture != nil {
		p.DepthTexture.Release()
	}
	var err error
	p.DepthTexture, err = p.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "MainDepth",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        DepthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	p.DepthView, err = p.DepthTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}
	p.Width, p.Height = width, height
}

// Begin opens the main pass on the backbuffer view. The caller draws overlays
// into the returned encoder and ends it.
func (p *LitPass) Begin(encoder *wgpu.CommandEncoder, target *wgpu.TextureView) *wgpu.RenderPassEncoder {
	return encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "MainPass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       target,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: ClearColor,
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            p.DepthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
}

// DrawScene draws ground and vehicles with full lighting.
func (p *LitPass) DrawScene(pass *wgpu.RenderPassEncoder, m *Manager, slot int) {
	fr := m.Frames[slot]
	pass.SetPipeline(p.Pipeline)
	pass.SetBindGroup(0, p.BindGroups[slot], nil)
	pass.SetVertexBuffer(0, fr.VertexBuf, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(m.IndexBuf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	pass.DrawIndexed(m.IndexCount, 1, 0, 0, 0)
}

// DrawDebugDepth fills the screen with the frame's selected shadow slice.
func (p *LitPass) DrawDebugDepth(pass *wgpu.RenderPassEncoder, slot int) {
	pass.SetPipeline(p.DebugPipeline)
	pass.SetBindGroup(0, p.DebugBindGroups[slot], nil)
	pass.Draw(3, 1, 0, 0)
}
