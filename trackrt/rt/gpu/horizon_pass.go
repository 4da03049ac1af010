package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/headlights/trackrt/rt/core"
	"github.com/gekko3d/headlights/trackrt/rt/horizon"
	"github.com/gekko3d/headlights/trackrt/rt/shaders"
)

const horizonWorkgroup = 16

var HorizonBindings = BindingTable{
	Label: "Horizon",
	Bindings: []Binding{
		{Slot: 0, Name: "heightMap", Kind: BindUnfilterableTexture, Visibility: wgpu.ShaderStageCompute},
		{Slot: 1, Name: "horizonMaps", Kind: BindStorageArrayWrite, Visibility: wgpu.ShaderStageCompute},
		{Slot: 2, Name: "params", Kind: BindUniformDynamic, Visibility: wgpu.ShaderStageCompute, Size: 48},
	},
}

// HorizonPass turns the top-down depth into one horizon map per active light.
type HorizonPass struct {
	Pipeline   *wgpu.ComputePipeline
	Layout     *wgpu.BindGroupLayout
	BindGroups [FramesInFlight]*wgpu.BindGroup
}

func NewHorizonPass(device *wgpu.Device, m *Manager) (*HorizonPass, error) {
	module, err := createShader(device, "HorizonShader", shaders.HorizonWGSL)
	if err != nil {
		return nil, err
	}
	bgl, err := HorizonBindings.CreateLayout(device)
	if err != nil {
		return nil, err
	}
	layout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "HorizonPipelineLayout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		return nil, err
	}
	pipeline, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  "HorizonPipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "cs_main",
		},
	})
	if err != nil {
		return nil, err
	}

	p := &HorizonPass{Pipeline: pipeline, Layout: bgl}
	for i, fr := range m.Frames {
		p.BindGroups[i], err = HorizonBindings.CreateGroup(device, bgl, map[uint32]BindResource{
			0: {View: m.Targets.HeightMapView},
			1: {View: m.Targets.HorizonStorageView},
			2: {Buffer: fr.HorizonParamsBuf},
		})
		if err != nil {
			return nil, fmt.Errorf("horizon bind group %d: %w", i, err)
		}
	}
	return p, nil
}

// EncodeCopy copies the top-down depth into the height map via the staging buffer.
func (p *HorizonPass) EncodeCopy(encoder *wgpu.CommandEncoder, t *ShadowTargets) {
	extent := &wgpu.Extent3D{Width: core.TopDownMapSize, Height: core.TopDownMapSize, DepthOrArrayLayers: 1}
	layout := wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  HeightRowPitch,
		RowsPerImage: core.TopDownMapSize,
	}
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  t.TopDown,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectDepthOnly,
		},
		&wgpu.ImageCopyBuffer{Buffer: t.DepthStaging, Layout: layout},
		extent,
	)
	encoder.CopyBufferToTexture(
		&wgpu.ImageCopyBuffer{Buffer: t.DepthStaging, Layout: layout},
		&wgpu.ImageCopyTexture{
			Texture:  t.HeightMap,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		extent,
	)
}

// EncodeCompute dispatches the march once per active light.
func (p *HorizonPass) EncodeCompute(encoder *wgpu.CommandEncoder, slot, lightCount int) error {
	groups := uint32((horizon.MapSize + horizonWorkgroup - 1) / horizonWorkgroup)
	pass := encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: "HorizonPass"})
	pass.SetPipeline(p.Pipeline)
	for i := 0; i < lightCount; i++ {
		pass.SetBindGroup(0, p.BindGroups[slot], []uint32{uint32(i * UniformSlotSize)})
		pass.DispatchWorkgroups(groups, groups, 1)
	}
	return pass.End()
}
