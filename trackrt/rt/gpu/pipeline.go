package gpu

import (
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/headlights/trackrt/rt/core"
)

func createShader(device *wgpu.Device, label, code string) (*wgpu.ShaderModule, error) {
	return device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: code},
	})
}

// sceneVertexLayout describes core.Vertex. Depth-only passes only read the position.
func sceneVertexLayout(positionOnly bool) wgpu.VertexBufferLayout {
	attrs := []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
	}
	if !positionOnly {
		attrs = append(attrs,
			wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
			wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
		)
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: uint64(unsafe.Sizeof(core.Vertex{})),
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}
}

func depthState(write bool, compare wgpu.CompareFunction) *wgpu.DepthStencilState {
	return &wgpu.DepthStencilState{
		Format:            DepthFormat,
		DepthWriteEnabled: write,
		DepthCompare:      compare,
		StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
	}
}

func alphaBlend() *wgpu.BlendState {
	return &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			Operation: wgpu.BlendOperationAdd,
			SrcFactor: wgpu.BlendFactorSrcAlpha,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		},
		Alpha: wgpu.BlendComponent{
			Operation: wgpu.BlendOperationAdd,
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		},
	}
}

var defaultMultisample = wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF}
