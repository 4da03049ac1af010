package sim

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/headlights/trackrt/rt/hud"
)

// Action is a debug control bound to a key.
type Action int

const (
	ActionNone Action = iota
	ActionToggleHorizon
	ActionToggleShadows
	ActionToggleDebugLights
	ActionToggleOverlap
	ActionToggleShadowDebug
	ActionPrevShadowLayer
	ActionNextShadowLayer
	ActionMoreLights
	ActionFewerLights
	ActionFaster
	ActionSlower
	ActionPause
	ActionWiderSpacing
	ActionTighterSpacing
	ActionBrighter
	ActionDimmer
	ActionMoreAmbient
	ActionLessAmbient
	ActionMoreBias
	ActionLessBias
	ActionLongerRange
	ActionShorterRange
	ActionSharperFalloff
	ActionSofterFalloff
	ActionQuickSave
	ActionQuickLoad
	ActionCapture
	ActionExportPBRT
	ActionReferenceRender
)

const (
	lightStep     = 8
	speedStep     = 5
	spacingStep   = 0.05
	intensityStep = 0.1
	ambientStep   = 0.05
	biasScale     = 2
	rangeStep     = 5
	falloffStep   = 0.25
	maxSpeed      = 200
	minRange      = 1
	minBias       = 1e-6
)

// Do applies a tunable change and returns a log line for it. Actions that
// need the GPU or the filesystem (save, load, capture, export) are left to
// the caller and return "".
func (s *Simulation) Do(a Action) string {
	t := s.Tunables
	switch a {
	case ActionToggleHorizon:
		t.UseHorizonMapping = !t.UseHorizonMapping
	case ActionToggleShadows:
		t.DisableShadows = !t.DisableShadows
	case ActionToggleDebugLights:
		t.ShowDebugLights = !t.ShowDebugLights
	case ActionToggleOverlap:
		t.ShowLightOverlap = !t.ShowLightOverlap
	case ActionToggleShadowDebug:
		t.ShowShadowMapDebug = !t.ShowShadowMapDebug
	case ActionPrevShadowLayer:
		t.DebugShadowMapIndex--
	case ActionNextShadowLayer:
		t.DebugShadowMapIndex++
	case ActionMoreLights:
		t.ActiveLightCount += lightStep
	case ActionFewerLights:
		t.ActiveLightCount -= lightStep
	case ActionFaster:
		t.CarSpeed = min(t.CarSpeed+speedStep, maxSpeed)
	case ActionSlower:
		t.CarSpeed = max(t.CarSpeed-speedStep, 0)
	case ActionPause:
		t.CarSpeed = 0
	case ActionWiderSpacing:
		t.CarSpacing += spacingStep
	case ActionTighterSpacing:
		t.CarSpacing -= spacingStep
	case ActionBrighter:
		t.ConeLightIntensity += intensityStep
	case ActionDimmer:
		t.ConeLightIntensity = max(t.ConeLightIntensity-intensityStep, 0)
	case ActionMoreAmbient:
		t.AmbientIntensity = mgl32.Clamp(t.AmbientIntensity+ambientStep, 0, 1)
	case ActionLessAmbient:
		t.AmbientIntensity = mgl32.Clamp(t.AmbientIntensity-ambientStep, 0, 1)
	case ActionMoreBias:
		t.ShadowBias *= biasScale
	case ActionLessBias:
		t.ShadowBias = max(t.ShadowBias/biasScale, minBias)
	case ActionLongerRange:
		t.HeadlightRange += rangeStep
	case ActionShorterRange:
		t.HeadlightRange = max(t.HeadlightRange-rangeStep, minRange)
	case ActionSharperFalloff:
		t.HeadlightFalloff += falloffStep
	case ActionSofterFalloff:
		t.HeadlightFalloff = max(t.HeadlightFalloff-falloffStep, falloffStep)
	default:
		return ""
	}
	s.Apply(t)
	return s.describe(a)
}

func (s *Simulation) describe(a Action) string {
	t := &s.Tunables
	switch a {
	case ActionToggleHorizon, ActionToggleShadows:
		return "shadows: " + hud.Technique(t)
	case ActionToggleDebugLights:
		return fmt.Sprintf("debug lights: %v", t.ShowDebugLights)
	case ActionToggleOverlap:
		return fmt.Sprintf("light overlap: %v", t.ShowLightOverlap)
	case ActionToggleShadowDebug:
		return fmt.Sprintf("shadow map debug: %v", t.ShowShadowMapDebug)
	case ActionPrevShadowLayer, ActionNextShadowLayer:
		return fmt.Sprintf("shadow map layer: %d", t.DebugShadowMapIndex)
	case ActionMoreLights, ActionFewerLights:
		return fmt.Sprintf("active lights: %d / %d", t.ActiveLightCount, s.LightCount())
	case ActionFaster, ActionSlower, ActionPause:
		return fmt.Sprintf("car speed: %.1f", t.CarSpeed)
	case ActionWiderSpacing, ActionTighterSpacing:
		return fmt.Sprintf("car spacing: %.2f", t.CarSpacing)
	case ActionBrighter, ActionDimmer:
		return fmt.Sprintf("cone intensity: %.2f", t.ConeLightIntensity)
	case ActionMoreAmbient, ActionLessAmbient:
		return fmt.Sprintf("ambient: %.2f", t.AmbientIntensity)
	case ActionMoreBias, ActionLessBias:
		return fmt.Sprintf("shadow bias: %g", t.ShadowBias)
	case ActionLongerRange, ActionShorterRange:
		return fmt.Sprintf("headlight range: %.1f", t.HeadlightRange)
	default:
		return fmt.Sprintf("falloff exponent: %.2f", t.HeadlightFalloff)
	}
}
