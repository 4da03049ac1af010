package gpu

import (
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/headlights/trackrt/rt/core"
	"github.com/gekko3d/headlights/trackrt/rt/shaders"
)

var TextBindings = BindingTable{
	Label: "Text",
	Bindings: []Binding{
		{Slot: 0, Name: "atlas", Kind: BindTexture, Visibility: wgpu.ShaderStageFragment},
		{Slot: 1, Name: "atlasSampler", Kind: BindSampler, Visibility: wgpu.ShaderStageFragment},
	},
}

// TextPass draws HUD text over the finished frame.
type TextPass struct {
	Device    *wgpu.Device
	Renderer  *core.TextRenderer
	Pipeline  *wgpu.RenderPipeline
	BindGroup *wgpu.BindGroup

	Atlas     *wgpu.Texture
	AtlasView *wgpu.TextureView
	Sampler   *wgpu.Sampler

	VertexBuffer *wgpu.Buffer
	VertexCount  uint32
}

func NewTextPass(device *wgpu.Device, tr *core.TextRenderer, format wgpu.TextureFormat) (*TextPass, error) {
	p := &TextPass{Device: device, Renderer: tr}

	w, h := uint32(tr.AtlasImage.Bounds().Dx()), uint32(tr.AtlasImage.Bounds().Dy())
	extent := wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}
	var err error
	p.Atlas, err = device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "TextAtlas",
		Size:          extent,
		Format:        wgpu.TextureFormatR8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("text atlas: %w", err)
	}
	device.GetQueue().WriteTexture(p.Atlas.AsImageCopy(), tr.AtlasImage.Pix, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(tr.AtlasImage.Stride),
		RowsPerImage: h,
	}, &extent)
	if p.AtlasView, err = p.Atlas.CreateView(nil); err != nil {
		return nil, err
	}
	p.Sampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "TextSampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, err
	}

	module, err := createShader(device, "TextShader", shaders.TextWGSL)
	if err != nil {
		return nil, err
	}
	bgl, err := TextBindings.CreateLayout(device)
	if err != nil {
		return nil, err
	}
	layout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "TextPipelineLayout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		return nil, err
	}
	p.Pipeline, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "TextPipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: uint64(unsafe.Sizeof(core.TextVertex{})),
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
					{Format: wgpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				Blend:     alphaBlend(),
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive:    wgpu.PrimitiveState{Topology: wgpu.PrimitiveTopologyTriangleList},
		DepthStencil: depthState(false, wgpu.CompareFunctionAlways),
		Multisample:  defaultMultisample,
	})
	if err != nil {
		return nil, fmt.Errorf("text pipeline: %w", err)
	}

	p.BindGroup, err = TextBindings.CreateGroup(device, bgl, map[uint32]BindResource{
		0: {View: p.AtlasView},
		1: {Sampler: p.Sampler},
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Update rebuilds the glyph quads for the given screen size.
func (p *TextPass) Update(queue *wgpu.Queue, items []core.TextItem, screenW, screenH int) {
	p.VertexCount = 0
	if len(items) == 0 {
		return
	}
	vertices := p.Renderer.BuildVertices(items, screenW, screenH)
	if len(vertices) == 0 {
		return
	}
	size := uint64(len(vertices)) * uint64(unsafe.Sizeof(core.TextVertex{}))
	if p.VertexBuffer == nil || p.VertexBuffer.GetSize() < size {
		if p.VertexBuffer != nil {
			p.VertexBuffer.Release()
		}
		var err error
		p.VertexBuffer, err = p.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "TextVB",
			Size:  size * 2,
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			panic(err)
		}
	}
	queue.WriteBuffer(p.VertexBuffer, 0, unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), size))
	p.VertexCount = uint32(len(vertices))
}

func (p *TextPass) Draw(pass *wgpu.RenderPassEncoder) {
	if p.VertexCount == 0 {
		return
	}
	pass.SetPipeline(p.Pipeline)
	pass.SetBindGroup(0, p.BindGroup, nil)
	pass.SetVertexBuffer(0, p.VertexBuffer, 0, wgpu.WholeSize)
	pass.Draw(p.VertexCount, 1, 0, 0)
}

func (p *TextPass) Release() {
	if p.VertexBuffer != nil {
		p.VertexBuffer.Release()
	}
	if p.AtlasView != nil {
		p.AtlasView.Release()
	}
	if p.Atlas != nil {
		p.Atlas.Release()
	}
	if p.Sampler != nil {
		p.Sampler.Release()
	}
}
