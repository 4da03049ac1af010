package gpu

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindingTables_Validate(t *testing.T) {
	for _, tbl := range []BindingTable{ShadowBindings, HorizonBindings, LitBindings, DebugDepthBindings, GizmoBindings, TextBindings} {
		t.Run(tbl.Label, func(t *testing.T) {
			assert.NoError(t, tbl.Validate())
			assert.Len(t, tbl.LayoutEntries(), len(tbl.Bindings))
		})
	}
}

func TestBindingTable_ValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		tbl  BindingTable
		msg  string
	}{
		{
			name: "duplicate slot",
			tbl: BindingTable{Label: "T", Bindings: []Binding{
				{Slot: 0, Name: "a", Kind: BindUniform, Visibility: wgpu.ShaderStageVertex},
				{Slot: 0, Name: "b", Kind: BindSampler, Visibility: wgpu.ShaderStageFragment},
			}},
			msg: "slot 0 used by a and b",
		},
		{
			name: "no visibility",
			tbl:  BindingTable{Label: "T", Bindings: []Binding{{Slot: 0, Name: "a", Kind: BindUniform}}},
			msg:  "a has no shader visibility",
		},
		{
			name: "dynamic without size",
			tbl: BindingTable{Label: "T", Bindings: []Binding{
				{Slot: 0, Name: "a", Kind: BindUniformDynamic, Visibility: wgpu.ShaderStageCompute},
			}},
			msg: "dynamic uniform a needs a size",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tbl.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestBindingTable_LayoutKinds(t *testing.T) {
	entries := LitBindings.LayoutEntries()
	assert.Equal(t, wgpu.BufferBindingTypeUniform, entries[0].Buffer.Type)
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, entries[1].Buffer.Type)
	assert.Equal(t, wgpu.TextureSampleTypeDepth, entries[3].Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension2DArray, entries[3].Texture.ViewDimension)
	assert.Equal(t, wgpu.SamplerBindingTypeComparison, entries[4].Sampler.Type)
	assert.Equal(t, wgpu.TextureSampleTypeUnfilterableFloat, entries[5].Texture.SampleType)

	h := HorizonBindings.LayoutEntries()
	assert.Equal(t, wgpu.StorageTextureAccessWriteOnly, h[1].StorageTexture.Access)
	assert.Equal(t, wgpu.TextureFormatR32Float, h[1].StorageTexture.Format)
	assert.True(t, h[2].Buffer.HasDynamicOffset)
}

func TestBindingTable_Entries(t *testing.T) {
	buf := &wgpu.Buffer{}

	_, err := HorizonBindings.Entries(map[uint32]BindResource{0: {}})
	assert.ErrorContains(t, err, "1 resources for 3 bindings")

	_, err = ShadowBindings.Entries(map[uint32]BindResource{1: {Buffer: buf}})
	assert.ErrorContains(t, err, "missing resource for lightViewProj")

	_, err = ShadowBindings.Entries(map[uint32]BindResource{0: {}})
	assert.ErrorContains(t, err, "needs a buffer")

	_, err = TextBindings.Entries(map[uint32]BindResource{0: {}, 1: {}})
	assert.ErrorContains(t, err, "atlas needs a texture view")

	entries, err := ShadowBindings.Entries(map[uint32]BindResource{0: {Buffer: buf}})
	require.NoError(t, err)
	assert.Equal(t, uint64(64), entries[0].Size)

	entries, err = GizmoBindings.Entries(map[uint32]BindResource{0: {Buffer: buf}})
	require.NoError(t, err)
	assert.Equal(t, uint64(wgpu.WholeSize), entries[0].Size)
}
