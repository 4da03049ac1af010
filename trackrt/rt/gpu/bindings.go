package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

type BindingKind int

const (
	BindUniform BindingKind = iota
	BindUniformDynamic
	BindStorageRead
	BindTexture
	BindUnfilterableTexture
	BindUnfilterableArray
	BindDepthTexture
	BindDepthArray
	BindStorageArrayWrite
	BindSampler
	BindComparisonSampler
)

// Binding declares one slot of a bind group. Size is the minimum binding size
// for buffers and the bound range for dynamic uniforms.
type Binding struct {
	Slot       uint32
	Name       string
	Kind       BindingKind
	Visibility wgpu.ShaderStage
	Size       uint64
}

// BindingTable is the declared shape of a bind group. The layout and every
// bind group created against it are derived from the same table.
type BindingTable struct {
	Label    string
	Bindings []Binding
}

// BindResource is what gets bound at a slot.
type BindResource struct {
	Buffer  *wgpu.Buffer
	Size    uint64
	View    *wgpu.TextureView
	Sampler *wgpu.Sampler
}

func (t BindingTable) Validate() error {
	seen := make(map[uint32]string, len(t.Bindings))
	for _, b := range t.Bindings {
		if prev, ok := seen[b.Slot]; ok {
			return fmt.Errorf("%s: slot %d used by %s and %s", t.Label, b.Slot, prev, b.Name)
		}
		seen[b.Slot] = b.Name
		if b.Visibility == 0 {
			return fmt.Errorf("%s: %s has no shader visibility", t.Label, b.Name)
		}
		if b.Kind == BindUniformDynamic && b.Size == 0 {
			return fmt.Errorf("%s: dynamic uniform %s needs a size", t.Label, b.Name)
		}
	}
	return nil
}

func (t BindingTable) LayoutEntries() []wgpu.BindGroupLayoutEntry {
	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(t.Bindings))
	for _, b := range t.Bindings {
		e := wgpu.BindGroupLayoutEntry{Binding: b.Slot, Visibility: b.Visibility}
		switch b.Kind {
		case BindUniform:
			e.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform, MinBindingSize: b.Size}
		case BindUniformDynamic:
			e.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform, MinBindingSize: b.Size, HasDynamicOffset: true}
		case BindStorageRead:
			e.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage, MinBindingSize: b.Size}
		case BindTexture:
			e.Texture = wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeFloat, ViewDimension: wgpu.TextureViewDimension2D}
		case BindUnfilterableTexture:
			e.Texture = wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeUnfilterableFloat, ViewDimension: wgpu.TextureViewDimension2D}
		case BindUnfilterableArray:
			e.Texture = wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeUnfilterableFloat, ViewDimension: wgpu.TextureViewDimension2DArray}
		case BindDepthTexture:
			e.Texture = wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeDepth, ViewDimension: wgpu.TextureViewDimension2D}
		case BindDepthArray:
			e.Texture = wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeDepth, ViewDimension: wgpu.TextureViewDimension2DArray}
		case BindStorageArrayWrite:
			e.StorageTexture = wgpu.StorageTextureBindingLayout{
				Access:        wgpu.StorageTextureAccessWriteOnly,
				Format:        wgpu.TextureFormatR32Float,
				ViewDimension: wgpu.TextureViewDimension2DArray,
			}
		case BindSampler:
			e.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}
		case BindComparisonSampler:
			e.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeComparison}
		}
		entries = append(entries, e)
	}
	return entries
}

// Entries matches resources to the declared slots. Every slot must be supplied
// with the kind of resource it declares.
func (t BindingTable) Entries(res map[uint32]BindResource) ([]wgpu.BindGroupEntry, error) {
	if len(res) != len(t.Bindings) {
		return nil, fmt.Errorf("%s: %d resources for %d bindings", t.Label, len(res), len(t.Bindings))
	}
	entries := make([]wgpu.BindGroupEntry, 0, len(t.Bindings))
	for _, b := range t.Bindings {
		r, ok := res[b.Slot]
		if !ok {
			return nil, fmt.Errorf("%s: missing resource for %s (slot %d)", t.Label, b.Name, b.Slot)
		}
		e := wgpu.BindGroupEntry{Binding: b.Slot}
		switch b.Kind {
		case BindUniform, BindUniformDynamic, BindStorageRead:
			if r.Buffer == nil {
				return nil, fmt.Errorf("%s: %s needs a buffer", t.Label, b.Name)
			}
			e.Buffer = r.Buffer
			e.Size = r.Size
			if b.Kind == BindUniformDynamic {
				e.Size = b.Size
			}
			if e.Size == 0 {
				e.Size = wgpu.WholeSize
			}
		case BindSampler, BindComparisonSampler:
			if r.Sampler == nil {
				return nil, fmt.Errorf("%s: %s needs a sampler", t.Label, b.Name)
			}
			e.Sampler = r.Sampler
		default:
			if r.View == nil {
				return nil, fmt.Errorf("%s: %s needs a texture view", t.Label, b.Name)
			}
			e.TextureView = r.View
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (t BindingTable) CreateLayout(device *wgpu.Device) (*wgpu.BindGroupLayout, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   t.Label + " BGL",
		Entries: t.LayoutEntries(),
	})
}

func (t BindingTable) CreateGroup(device *wgpu.Device, layout *wgpu.BindGroupLayout, res map[uint32]BindResource) (*wgpu.BindGroup, error) {
	entries, err := t.Entries(res)
	if err != nil {
		return nil, err
	}
	return device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   t.Label + " BG",
		Layout:  layout,
		Entries: entries,
	})
}
