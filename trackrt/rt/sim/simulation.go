package sim

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/headlights/trackrt/rt/config"
	"github.com/gekko3d/headlights/trackrt/rt/core"
	"github.com/gekko3d/headlights/trackrt/rt/cpuref"
	"github.com/gekko3d/headlights/trackrt/rt/export"
	"github.com/gekko3d/headlights/trackrt/rt/shading"
)

// Simulation is the CPU side of a frame: vehicles, lights and the camera,
// driven by the live tunables. It needs no GPU.
type Simulation struct {
	Settings *config.Settings
	Tunables config.Tunables
	Fleet    *core.Fleet
	Catalog  *core.LightCatalog
	Mesh     *core.SceneMesh
	TopDown  core.TopDownCamera
	Camera   *core.CameraState
	Time     float32
}

func NewSimulation(settings *config.Settings) (*Simulation, error) {
	track := settings.TrackGeometry()
	fleet := core.NewFleet(track, settings.Track.Vehicles)
	catalog, err := core.NewLightCatalog(fleet, core.DefaultHeadlightParams())
	if err != nil {
		return nil, fmt.Errorf("light catalog: %w", err)
	}
	s := &Simulation{
		Settings: settings,
		Fleet:    fleet,
		Catalog:  catalog,
		Mesh:     core.BuildSceneMesh(fleet),
		TopDown:  core.NewTopDownCamera(core.TrackBounds(track, 20)),
	}
	s.Load(config.DefaultTunables(len(catalog.Lights)))
	return s, nil
}

// LightCount is the catalog size.
func (s *Simulation) LightCount() int { return len(s.Catalog.Lights) }

// Apply makes t the live tunables, keeping the current camera and time.
func (s *Simulation) Apply(t config.Tunables) {
	t.Sanitize(s.LightCount())
	s.Tunables = t
	s.Catalog.SetActiveCount(t.ActiveLightCount)
	s.Catalog.SetRange(t.HeadlightRange)
	s.Catalog.Refresh(s.Fleet)
}

// Load applies t including its camera pose, simulation time and the distance
// the leaders have driven, so a saved file reproduces the saved frame.
func (s *Simulation) Load(t config.Tunables) {
	s.Apply(t)
	s.Camera = s.Tunables.CameraState()
	s.Time = s.Tunables.SimulationTime
	s.Fleet.SetDistance(s.Tunables.LeaderDistance(), s.Tunables.CarSpacing)
	s.Catalog.Refresh(s.Fleet)
	s.Mesh.UpdateVehicles(s.Fleet)
}

// Snapshot returns the live tunables with the current camera, time and distance.
func (s *Simulation) Snapshot() config.Tunables {
	t := s.Tunables
	t.SetCamera(s.Camera)
	t.SimulationTime = s.Time
	t.SimulationDistance = float32(s.Fleet.Distance())
	return t
}

// Step advances the vehicles and moves the lights and boxes with them.
func (s *Simulation) Step(dt float32) {
	s.Time += dt
	s.Fleet.Update(dt, s.Tunables.CarSpeed, s.Tunables.CarSpacing)
	s.Catalog.Refresh(s.Fleet)
	s.Mesh.UpdateVehicles(s.Fleet)
}

func (s *Simulation) ShadingParams() shading.Params {
	t := &s.Tunables
	return shading.Params{
		AmbientIntensity:   t.AmbientIntensity,
		ConeLightIntensity: t.ConeLightIntensity,
		ShadowBias:         t.ShadowBias,
		FalloffExponent:    t.HeadlightFalloff,
		DisableShadows:     t.DisableShadows,
		UseHorizonMapping:  t.UseHorizonMapping,
		OverlapMaxCount:    t.OverlapMaxCount,
		CameraPos:          s.Camera.Position,
	}
}

// ViewProjection is the free camera's matrix for a width x height target.
func (s *Simulation) ViewProjection(width, height uint32) mgl32.Mat4 {
	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	return s.Camera.GetViewProjection(aspect)
}

// Gizmos are the debug cones of the active lights.
func (s *Simulation) Gizmos() []core.Gizmo {
	if !s.Tunables.ShowDebugLights {
		return nil
	}
	return core.ConeGizmos(s.Catalog.Active())
}

func (s *Simulation) ExportScene(width, height int, image string) *export.Scene {
	cam := *s.Camera
	fleet := *s.Fleet
	fleet.Vehicles = append([]core.Vehicle(nil), s.Fleet.Vehicles...)
	return &export.Scene{
		Camera:             &cam,
		Width:              width,
		Height:             height,
		Fleet:              &fleet,
		Lights:             append([]core.ConeLight(nil), s.Catalog.Active()...),
		ConeLightIntensity: s.Tunables.ConeLightIntensity,
		AmbientIntensity:   s.Tunables.AmbientIntensity,
		Image:              image,
	}
}

// ReferenceScene freezes the current state for the CPU renderer.
func (s *Simulation) ReferenceScene() (*cpuref.Scene, cpuref.Options) {
	cam := *s.Camera
	scene := &cpuref.Scene{
		Camera:   &cam,
		Vehicles: append([]core.Vehicle(nil), s.Fleet.Vehicles...),
		Lights:   append([]core.ConeLight(nil), s.Catalog.Active()...),
		TopDown:  s.TopDown,
	}
	opt := cpuref.DefaultOptions(s.Settings.Window.Width, s.Settings.Window.Height)
	opt.Params = s.ShadingParams()
	opt.DebugLayer = s.Tunables.DebugShadowMapIndex
	switch {
	case s.Tunables.ShowShadowMapDebug:
		opt.Mode = cpuref.ModeDebugDepth
	case s.Tunables.ShowLightOverlap:
		opt.Mode = cpuref.ModeOverlap
	}
	return scene, opt
}

// QuickSave writes the current state to the tunables file.
func (s *Simulation) QuickSave(path string) error {
	return s.Snapshot().Save(path)
}

// QuickLoad replaces the state from the tunables file. A bad file leaves the
// state untouched.
func (s *Simulation) QuickLoad(path string) error {
	base := s.Snapshot()
	base.SimulationDistance = config.UnsetDistance
	t, err := config.Load(path, base)
	if err != nil {
		return err
	}
	s.Load(t)
	return nil
}
