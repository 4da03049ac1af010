package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/headlights/trackrt/rt/config"
	"github.com/gekko3d/headlights/trackrt/rt/cpuref"
)

func newTestSim(t *testing.T, vehicles int) *Simulation {
	t.Helper()
	settings := config.DefaultSettings()
	settings.Track.Vehicles = vehicles
	settings.Tunables = filepath.Join(t.TempDir(), "trackrt.cfg")
	sim, err := NewSimulation(settings)
	require.NoError(t, err)
	return sim
}

func TestNewSimulation(t *testing.T) {
	sim := newTestSim(t, 8)
	assert.Equal(t, 16, sim.LightCount())
	assert.Equal(t, 16, sim.Tunables.ActiveLightCount)
	assert.Equal(t, 16, sim.Catalog.ActiveCount())
	assert.Equal(t, float32(0), sim.Time)
	require.NotNil(t, sim.Camera)
}

func TestNewSimulation_CapsLights(t *testing.T) {
	sim := newTestSim(t, 100)
	assert.Equal(t, 128, sim.LightCount())
	assert.Equal(t, 128, sim.Tunables.ActiveLightCount)
}

func TestSimulation_ApplySanitizes(t *testing.T) {
	sim := newTestSim(t, 8)
	tun := sim.Tunables
	tun.ActiveLightCount = 500
	tun.DebugShadowMapIndex = 99
	tun.HeadlightRange = 55
	sim.Apply(tun)

	assert.Equal(t, 16, sim.Tunables.ActiveLightCount)
	assert.Equal(t, 15, sim.Tunables.DebugShadowMapIndex)
	assert.Len(t, sim.Catalog.Active(), 16)
	for _, l := range sim.Catalog.Lights {
		assert.Equal(t, float32(55), l.Range)
	}
}

func TestSimulation_ApplyKeepsCameraAndTime(t *testing.T) {
	sim := newTestSim(t, 8)
	sim.Step(1.5)
	sim.Camera.Position = mgl32.Vec3{1, 2, 3}

	tun := sim.Tunables
	tun.CameraX, tun.SimulationTime = 999, 999
	sim.Apply(tun)

	assert.Equal(t, mgl32.Vec3{1, 2, 3}, sim.Camera.Position)
	assert.InDelta(t, 1.5, sim.Time, 1e-6)
}

func TestSimulation_StepMovesLights(t *testing.T) {
	sim := newTestSim(t, 8)
	before := sim.Catalog.Lights[0].Position
	sim.Step(0.5)

	assert.InDelta(t, 0.5, sim.Time, 1e-6)
	assert.NotEqual(t, before, sim.Catalog.Lights[0].Position)
}

func TestSimulation_StepPaused(t *testing.T) {
	sim := newTestSim(t, 8)
	sim.Do(ActionPause)
	before := sim.Fleet.Vehicles[3].Position
	sim.Step(2)
	assert.Equal(t, before, sim.Fleet.Vehicles[3].Position)
}

func TestSimulation_LoadMatchesStepping(t *testing.T) {
	a := newTestSim(t, 8)
	for i := 0; i < 10; i++ {
		a.Step(0.1)
	}
	// A speed change mid-run must not move the fleet on reload.
	a.Do(ActionFaster)
	a.Do(ActionFaster)
	for i := 0; i < 10; i++ {
		a.Step(0.1)
	}
	require.NotEqual(t, float64(a.Tunables.CarSpeed*a.Time), a.Fleet.Distance())

	b := newTestSim(t, 8)
	b.Load(a.Snapshot())

	assert.InDelta(t, a.Time, b.Time, 1e-5)
	assert.InDelta(t, a.Fleet.Distance(), b.Fleet.Distance(), 1e-3)
	for i := range a.Fleet.Vehicles {
		assert.InDelta(t, 0, a.Fleet.Vehicles[i].Position.Sub(b.Fleet.Vehicles[i].Position).Len(), 1e-2, "vehicle %d", i)
	}
}

func TestSimulation_QuickSaveLoad(t *testing.T) {
	sim := newTestSim(t, 8)
	path := sim.Settings.Tunables

	sim.Do(ActionToggleHorizon)
	sim.Do(ActionFewerLights)
	sim.Camera.Position = mgl32.Vec3{-4, 12, 30}
	sim.Camera.Yaw = 0.75
	sim.Step(2)
	want := sim.Snapshot()
	require.NoError(t, sim.QuickSave(path))

	other := newTestSim(t, 8)
	require.NoError(t, other.QuickLoad(path))
	assert.Equal(t, want, other.Snapshot())
	assert.Equal(t, 8, other.Catalog.ActiveCount())
}

func TestSimulation_QuickLoadFailureKeepsState(t *testing.T) {
	sim := newTestSim(t, 8)
	path := filepath.Join(t.TempDir(), "bad.cfg")
	require.NoError(t, os.WriteFile(path, []byte("useHorizonMapping=true\nambientIntensity=bright\n"), 0644))

	before := sim.Snapshot()
	err := sim.QuickLoad(path)
	require.Error(t, err)
	assert.Equal(t, before, sim.Snapshot())
	assert.False(t, sim.Tunables.UseHorizonMapping)

	require.Error(t, sim.QuickLoad(filepath.Join(t.TempDir(), "missing.cfg")))
}

func TestSimulation_ShadingParams(t *testing.T) {
	sim := newTestSim(t, 8)
	tun := sim.Tunables
	tun.HeadlightFalloff = 2.5
	tun.ShadowBias = 0.004
	tun.DisableShadows = true
	sim.Apply(tun)

	p := sim.ShadingParams()
	assert.Equal(t, float32(2.5), p.FalloffExponent)
	assert.Equal(t, float32(0.004), p.ShadowBias)
	assert.True(t, p.DisableShadows)
	assert.Equal(t, sim.Camera.Position, p.CameraPos)
}

func TestSimulation_ViewProjection(t *testing.T) {
	sim := newTestSim(t, 8)
	assert.Equal(t, sim.Camera.GetViewProjection(1280.0/720.0), sim.ViewProjection(1280, 720))

	// A zero height must not divide by zero.
	assert.Equal(t, sim.Camera.GetViewProjection(1), sim.ViewProjection(0, 0))
}

func TestSimulation_Gizmos(t *testing.T) {
	sim := newTestSim(t, 8)
	assert.Nil(t, sim.Gizmos())

	sim.Do(ActionToggleDebugLights)
	assert.Len(t, sim.Gizmos(), 2*16)
}

func TestSimulation_ReferenceScene(t *testing.T) {
	sim := newTestSim(t, 8)

	scene, opt := sim.ReferenceScene()
	assert.Equal(t, cpuref.ModeLit, opt.Mode)
	assert.Len(t, scene.Lights, 16)
	assert.Len(t, scene.Vehicles, 8)
	assert.Equal(t, sim.Settings.Window.Width, opt.Width)

	// The scene is a copy; stepping must not move it.
	pos := scene.Vehicles[0].Position
	sim.Step(1)
	assert.Equal(t, pos, scene.Vehicles[0].Position)

	sim.Do(ActionToggleOverlap)
	_, opt = sim.ReferenceScene()
	assert.Equal(t, cpuref.ModeOverlap, opt.Mode)

	sim.Do(ActionToggleShadowDebug)
	_, opt = sim.ReferenceScene()
	assert.Equal(t, cpuref.ModeDebugDepth, opt.Mode)
}

func TestSimulation_ExportScene(t *testing.T) {
	sim := newTestSim(t, 8)
	sim.Do(ActionFewerLights)
	s := sim.ExportScene(640, 480, "out.exr")
	assert.Len(t, s.Lights, 8)
	assert.Equal(t, "out.exr", s.Image)

	// Exported from a background job, so nothing may alias live state.
	assert.NotSame(t, sim.Fleet, s.Fleet)
	assert.NotSame(t, sim.Camera, s.Camera)
	pos := s.Fleet.Vehicles[0].Position
	sim.Step(1)
	sim.Camera.Position[0] += 10
	assert.Equal(t, pos, s.Fleet.Vehicles[0].Position)
	assert.NotEqual(t, sim.Camera.Position, s.Camera.Position)
}
