package app

import (
	"github.com/gekko3d/headlights/trackrt/rt/gpu"
	"github.com/gekko3d/headlights/trackrt/rt/sim"
)

func frameInputs(s *sim.Simulation, width, height uint32) *gpu.FrameInputs {
	return &gpu.FrameInputs{
		ViewProj:    s.ViewProjection(width, height),
		Shading:     s.ShadingParams(),
		Lights:      s.Catalog.Active(),
		TopDown:     &s.TopDown,
		Mesh:        s.Mesh,
		ShowOverlap: s.Tunables.ShowLightOverlap,
		DebugLayer:  s.Tunables.DebugShadowMapIndex,
		Width:       width,
		Height:      height,
	}
}

// frameOptions selects the passes of one frame from the current toggles.
func frameOptions(s *sim.Simulation, text, capture bool) gpu.FrameOptions {
	return gpu.FrameOptions{
		Horizon:     s.Tunables.UseHorizonMapping,
		ShadowDebug: s.Tunables.ShowShadowMapDebug,
		DebugCones:  s.Tunables.ShowDebugLights,
		Text:        text,
		Capture:     capture,
	}
}
