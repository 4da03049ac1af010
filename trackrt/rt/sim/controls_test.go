package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gekko3d/headlights/trackrt/rt/config"
)

func TestDo_Toggles(t *testing.T) {
	tests := []struct {
		action Action
		get    func(*config.Tunables) bool
		msg    string
	}{
		{ActionToggleHorizon, func(t *config.Tunables) bool { return t.UseHorizonMapping }, "shadows: horizon mapping"},
		{ActionToggleShadows, func(t *config.Tunables) bool { return t.DisableShadows }, "shadows: none"},
		{ActionToggleDebugLights, func(t *config.Tunables) bool { return t.ShowDebugLights }, "debug lights: true"},
		{ActionToggleOverlap, func(t *config.Tunables) bool { return t.ShowLightOverlap }, "light overlap: true"},
		{ActionToggleShadowDebug, func(t *config.Tunables) bool { return t.ShowShadowMapDebug }, "shadow map debug: true"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			sim := newTestSim(t, 8)
			assert.False(t, tt.get(&sim.Tunables))
			assert.Equal(t, tt.msg, sim.Do(tt.action))
			assert.True(t, tt.get(&sim.Tunables))
			sim.Do(tt.action)
			assert.False(t, tt.get(&sim.Tunables))
		})
	}
}

func TestDo_LightCountClamps(t *testing.T) {
	sim := newTestSim(t, 8)
	sim.Do(ActionMoreLights)
	assert.Equal(t, 16, sim.Tunables.ActiveLightCount)

	sim.Do(ActionFewerLights)
	assert.Equal(t, 8, sim.Catalog.ActiveCount())
	sim.Do(ActionFewerLights)
	msg := sim.Do(ActionFewerLights)
	assert.Equal(t, 0, sim.Tunables.ActiveLightCount)
	assert.Empty(t, sim.Catalog.Active())
	assert.Equal(t, "active lights: 0 / 16", msg)
}

func TestDo_ShadowLayerClamps(t *testing.T) {
	sim := newTestSim(t, 8)
	sim.Do(ActionPrevShadowLayer)
	assert.Equal(t, 0, sim.Tunables.DebugShadowMapIndex)

	for i := 0; i < 20; i++ {
		sim.Do(ActionNextShadowLayer)
	}
	assert.Equal(t, 15, sim.Tunables.DebugShadowMapIndex)
}

func TestDo_Adjustments(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		repeat int
		get    func(*config.Tunables) float32
		want   float32
	}{
		{"speed floor", ActionSlower, 10, func(t *config.Tunables) float32 { return t.CarSpeed }, 0},
		{"speed up", ActionFaster, 1, func(t *config.Tunables) float32 { return t.CarSpeed }, 25},
		{"pause", ActionPause, 1, func(t *config.Tunables) float32 { return t.CarSpeed }, 0},
		{"spacing ceiling", ActionWiderSpacing, 5, func(t *config.Tunables) float32 { return t.CarSpacing }, 1},
		{"spacing floor", ActionTighterSpacing, 30, func(t *config.Tunables) float32 { return t.CarSpacing }, 0},
		{"dimmer floor", ActionDimmer, 20, func(t *config.Tunables) float32 { return t.ConeLightIntensity }, 0},
		{"ambient ceiling", ActionMoreAmbient, 30, func(t *config.Tunables) float32 { return t.AmbientIntensity }, 1},
		{"ambient floor", ActionLessAmbient, 30, func(t *config.Tunables) float32 { return t.AmbientIntensity }, 0},
		{"bias doubles", ActionMoreBias, 1, func(t *config.Tunables) float32 { return t.ShadowBias }, 0.002},
		{"bias floor", ActionLessBias, 40, func(t *config.Tunables) float32 { return t.ShadowBias }, minBias},
		{"range up", ActionLongerRange, 2, func(t *config.Tunables) float32 { return t.HeadlightRange }, 40},
		{"range floor", ActionShorterRange, 20, func(t *config.Tunables) float32 { return t.HeadlightRange }, minRange},
		{"falloff up", ActionSharperFalloff, 2, func(t *config.Tunables) float32 { return t.HeadlightFalloff }, 1.5},
		{"falloff floor", ActionSofterFalloff, 10, func(t *config.Tunables) float32 { return t.HeadlightFalloff }, falloffStep},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := newTestSim(t, 8)
			for i := 0; i < tt.repeat; i++ {
				assert.NotEmpty(t, sim.Do(tt.action))
			}
			assert.InDelta(t, tt.want, tt.get(&sim.Tunables), 1e-5)
		})
	}
}

func TestDo_RangeReachesLights(t *testing.T) {
	sim := newTestSim(t, 8)
	sim.Do(ActionLongerRange)
	for _, l := range sim.Catalog.Lights {
		assert.Equal(t, sim.Tunables.HeadlightRange, l.Range)
	}
}

func TestDo_CallerActionsAreNoops(t *testing.T) {
	for _, a := range []Action{ActionNone, ActionQuickSave, ActionQuickLoad, ActionCapture, ActionExportPBRT, ActionReferenceRender} {
		sim := newTestSim(t, 8)
		before := sim.Snapshot()
		assert.Empty(t, sim.Do(a))
		assert.Equal(t, before, sim.Snapshot())
	}
}
