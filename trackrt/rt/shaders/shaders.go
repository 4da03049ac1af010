package shaders

import (
	_ "embed"
)

//go:embed shadow.wgsl
var ShadowWGSL string

//go:embed horizon.wgsl
var HorizonWGSL string

//go:embed lit.wgsl
var LitWGSL string

//go:embed debug_depth.wgsl
var DebugDepthWGSL string

//go:embed gizmo.wgsl
var GizmoWGSL string

//go:embed text.wgsl
var TextWGSL string
