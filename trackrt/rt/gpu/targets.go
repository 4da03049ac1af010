package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/headlights/trackrt/rt/core"
	"github.com/gekko3d/headlights/trackrt/rt/horizon"
)

const (
	DepthFormat   = wgpu.TextureFormatDepth32Float
	HeightFormat  = wgpu.TextureFormatR32Float
	depthTexelLen = 4
	// HeightRowPitch is the staging row pitch of the top-down copy. 1024 texels
	// of 4 bytes already satisfy the 256-byte copy alignment.
	HeightRowPitch = core.TopDownMapSize * depthTexelLen
)

// ShadowTargets are the fixed-size textures shared by all frame slots. They do
// not depend on the window and survive resizes.
type ShadowTargets struct {
	TopDown     *wgpu.Texture
	TopDownView *wgpu.TextureView

	// Depth cannot be copied into a colour texture directly, so the top-down
	// depth goes through this buffer into HeightMap.
	DepthStaging  *wgpu.Buffer
	HeightMap     *wgpu.Texture
	HeightMapView *wgpu.TextureView

	ConeShadows    *wgpu.Texture
	ConeSliceViews []*wgpu.TextureView
	ConeArrayView  *wgpu.TextureView
	ShadowSampler  *wgpu.Sampler

	HorizonMaps        *wgpu.Texture
	HorizonStorageView *wgpu.TextureView
	HorizonSampleView  *wgpu.TextureView
}

func NewShadowTargets(device *wgpu.Device) (*ShadowTargets, error) {
	t := &ShadowTargets{}
	var err error

	t.TopDown, err = device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "TopDownDepth",
		Size:          wgpu.Extent3D{Width: core.TopDownMapSize, Height: core.TopDownMapSize, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        DepthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("top-down depth: %w", err)
	}
	if t.TopDownView, err = t.TopDown.CreateView(nil); err != nil {
		return nil, err
	}

	t.DepthStaging, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "TopDownStaging",
		Size:  uint64(HeightRowPitch * core.TopDownMapSize),
		Usage: wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("depth staging: %w", err)
	}

	t.HeightMap, err = device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "HeightMap",
		Size:          wgpu.Extent3D{Width: horizon.MapSize, Height: horizon.MapSize, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        HeightFormat,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("height map: %w", err)
	}
	if t.HeightMapView, err = t.HeightMap.CreateView(nil); err != nil {
		return nil, err
	}

	t.ConeShadows, err = device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "ConeShadowArray",
		Size:          wgpu.Extent3D{Width: core.ConeShadowMapSize, Height: core.ConeShadowMapSize, DepthOrArrayLayers: core.MaxConeLights},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        DepthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, fmt.Errorf("cone shadow array: %w", err)
	}
	t.ConeSliceViews = make([]*wgpu.TextureView, core.MaxConeLights)
	for i := range t.ConeSliceViews {
		t.ConeSliceViews[i], err = t.ConeShadows.CreateView(&wgpu.TextureViewDescriptor{
			Label:           fmt.Sprintf("ConeShadow %d", i),
			Format:          DepthFormat,
			Dimension:       wgpu.TextureViewDimension2D,
			BaseMipLevel:    0,
			MipLevelCount:   1,
			BaseArrayLayer:  uint32(i),
			ArrayLayerCount: 1,
			Aspect:          wgpu.TextureAspectDepthOnly,
		})
		if err != nil {
			return nil, fmt.Errorf("cone shadow slice %d: %w", i, err)
		}
	}
	t.ConeArrayView, err = t.ConeShadows.CreateView(&wgpu.TextureViewDescriptor{
		Label:           "ConeShadowArrayView",
		Format:          DepthFormat,
		Dimension:       wgpu.TextureViewDimension2DArray,
		MipLevelCount:   1,
		ArrayLayerCount: core.MaxConeLights,
		Aspect:          wgpu.TextureAspectDepthOnly,
	})
	if err != nil {
		return nil, err
	}

	t.ShadowSampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "ShadowCompare",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeNearest,
		MinFilter:     wgpu.FilterModeNearest,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		Compare:       wgpu.CompareFunctionLessEqual,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("shadow sampler: %w", err)
	}

	t.HorizonMaps, err = device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "HorizonMaps",
		Size:          wgpu.Extent3D{Width: horizon.MapSize, Height: horizon.MapSize, DepthOrArrayLayers: core.MaxConeLights},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        HeightFormat,
		Usage:         wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, fmt.Errorf("horizon maps: %w", err)
	}
	arrayView := func(label string) (*wgpu.TextureView, error) {
		return t.HorizonMaps.CreateView(&wgpu.TextureViewDescriptor{
			Label:           label,
			Format:          HeightFormat,
			Dimension:       wgpu.TextureViewDimension2DArray,
			MipLevelCount:   1,
			ArrayLayerCount: core.MaxConeLights,
			Aspect:          wgpu.TextureAspectAll,
		})
	}
	if t.HorizonStorageView, err = arrayView("HorizonMapsStorage"); err != nil {
		return nil, err
	}
	if t.HorizonSampleView, err = arrayView("HorizonMapsSample"); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *ShadowTargets) Release() {
	for _, v := range t.ConeSliceViews {
		if v != nil {
			v.Release()
		}
	}
	for _, v := range []*wgpu.TextureView{t.TopDownView, t.HeightMapView, t.ConeArrayView, t.HorizonStorageView, t.HorizonSampleView} {
		if v != nil {
			v.Release()
		}
	}
	for _, tex := range []*wgpu.Texture{t.TopDown, t.HeightMap, t.ConeShadows, t.HorizonMaps} {
		if tex != nil {
			tex.Release()
		}
	}
	if t.DepthStaging != nil {
		t.DepthStaging.Release()
	}
	if t.ShadowSampler != nil {
		t.ShadowSampler.Release()
	}
}
