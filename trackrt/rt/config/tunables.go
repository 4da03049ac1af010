// Package config holds the runtime tunables (plain key=value files used for
// quick-save, quick-load and test scenes) and the YAML launch settings.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gekko3d/headlights/trackrt/rt/core"
)

// Tunables is every value the debug controls can change at runtime, plus the
// camera pose and simulation time so a saved file reproduces a frame.
type Tunables struct {
	AmbientIntensity    float32
	ConeLightIntensity  float32
	HeadlightRange      float32
	HeadlightFalloff    float32
	ShadowBias          float32
	DisableShadows      bool
	UseHorizonMapping   bool
	ActiveLightCount    int
	CarSpeed            float32
	CarSpacing          float32
	ShowDebugLights     bool
	ShowLightOverlap    bool
	OverlapMaxCount     float32
	ShowShadowMapDebug  bool
	DebugShadowMapIndex int

	CameraX     float32
	CameraY     float32
	CameraZ     float32
	CameraYaw   float32
	CameraPitch float32

	SimulationTime     float32
	// SimulationDistance is how far the lane leaders have driven. UnsetDistance
	// places them at CarSpeed*SimulationTime instead.
	SimulationDistance float32
}

// UnsetDistance marks a file without a simulationDistance line.
const UnsetDistance = -1

// DefaultTunables enables every light of a catalog of lightCount lights.
func DefaultTunables(lightCount int) Tunables {
	cam := core.NewCameraState()
	return Tunables{
		AmbientIntensity:   0.2,
		ConeLightIntensity: 1.0,
		HeadlightRange:     30,
		HeadlightFalloff:   1.0,
		ShadowBias:         0.001,
		ActiveLightCount:   lightCount,
		CarSpeed:           20,
		CarSpacing:         1.0,
		OverlapMaxCount:    8,
		CameraX:            cam.Position.X(),
		CameraY:            cam.Position.Y(),
		CameraZ:            cam.Position.Z(),
		CameraYaw:          cam.Yaw,
		CameraPitch:        cam.Pitch,
		SimulationDistance: UnsetDistance,
	}
}

// Sanitize clamps values that index into fixed-size resources.
func (t *Tunables) Sanitize(lightCount int) {
	if t.ActiveLightCount < 0 {
		t.ActiveLightCount = 0
	}
	if t.ActiveLightCount > lightCount {
		t.ActiveLightCount = lightCount
	}
	if t.DebugShadowMapIndex < 0 {
		t.DebugShadowMapIndex = 0
	}
	if lightCount > 0 && t.DebugShadowMapIndex >= lightCount {
		t.DebugShadowMapIndex = lightCount - 1
	}
	if t.CarSpacing < 0 {
		t.CarSpacing = 0
	}
	if t.CarSpacing > 1 {
		t.CarSpacing = 1
	}
	if t.OverlapMaxCount < 1 {
		t.OverlapMaxCount = 1
	}
}

// CameraState returns a camera at the saved pose with default lens settings.
func (t *Tunables) CameraState() *core.CameraState {
	cam := core.NewCameraState()
	cam.Position[0], cam.Position[1], cam.Position[2] = t.CameraX, t.CameraY, t.CameraZ
	cam.Yaw, cam.Pitch = t.CameraYaw, t.CameraPitch
	return cam
}

// LeaderDistance is the distance the fleet should be placed at.
func (t *Tunables) LeaderDistance() float64 {
	if t.SimulationDistance < 0 {
		return float64(t.CarSpeed) * float64(t.SimulationTime)
	}
	return float64(t.SimulationDistance)
}

// SetCamera records a camera pose.
func (t *Tunables) SetCamera(cam *core.CameraState) {
	t.CameraX, t.CameraY, t.CameraZ = cam.Position.X(), cam.Position.Y(), cam.Position.Z()
	t.CameraYaw, t.CameraPitch = cam.Yaw, cam.Pitch
}

type field struct {
	key     string
	float   func(t *Tunables) *float32
	flag    func(t *Tunables) *bool
	integer func(t *Tunables) *int
}

// fields lists the file keys in write order.
var fields = []field{
	{key: "ambientIntensity", float: func(t *Tunables) *float32 { return &t.AmbientIntensity }},
	{key: "coneLightIntensity", float: func(t *Tunables) *float32 { return &t.ConeLightIntensity }},
	{key: "headlightRange", float: func(t *Tunables) *float32 { return &t.HeadlightRange }},
	{key: "headlightFalloff", float: func(t *Tunables) *float32 { return &t.HeadlightFalloff }},
	{key: "shadowBias", float: func(t *Tunables) *float32 { return &t.ShadowBias }},
	{key: "disableShadows", flag: func(t *Tunables) *bool { return &t.DisableShadows }},
	{key: "useHorizonMapping", flag: func(t *Tunables) *bool { return &t.UseHorizonMapping }},
	{key: "activeLightCount", integer: func(t *Tunables) *int { return &t.ActiveLightCount }},
	{key: "carSpeed", float: func(t *Tunables) *float32 { return &t.CarSpeed }},
	{key: "carSpacing", float: func(t *Tunables) *float32 { return &t.CarSpacing }},
	{key: "showDebugLights", flag: func(t *Tunables) *bool { return &t.ShowDebugLights }},
	{key: "showLightOverlap", flag: func(t *Tunables) *bool { return &t.ShowLightOverlap }},
	{key: "overlapMaxCount", float: func(t *Tunables) *float32 { return &t.OverlapMaxCount }},
	{key: "showShadowMapDebug", flag: func(t *Tunables) *bool { return &t.ShowShadowMapDebug }},
	{key: "debugShadowMapIndex", integer: func(t *Tunables) *int { return &t.DebugShadowMapIndex }},
	{key: "cameraX", float: func(t *Tunables) *float32 { return &t.CameraX }},
	{key: "cameraY", float: func(t *Tunables) *float32 { return &t.CameraY }},
	{key: "cameraZ", float: func(t *Tunables) *float32 { return &t.CameraZ }},
	{key: "cameraYaw", float: func(t *Tunables) *float32 { return &t.CameraYaw }},
	{key: "cameraPitch", float: func(t *Tunables) *float32 { return &t.CameraPitch }},
	{key: "simulationTime", float: func(t *Tunables) *float32 { return &t.SimulationTime }},
	{key: "simulationDistance", float: func(t *Tunables) *float32 { return &t.SimulationDistance }},
}

var fieldsByKey = func() map[string]field {
	m := make(map[string]field, len(fields))
	for _, f := range fields {
		m[f.key] = f
	}
	return m
}()

// FormatFloat writes the shortest text that parses back to exactly v.
func FormatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

// Write serializes t as key=value lines.
func (t Tunables) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# trackrt tunables")
	for _, f := range fields {
		var val string
		switch {
		case f.float != nil:
			val = FormatFloat(*f.float(&t))
		case f.flag != nil:
			val = strconv.FormatBool(*f.flag(&t))
		default:
			val = strconv.Itoa(*f.integer(&t))
		}
		fmt.Fprintf(bw, "%s=%s\n", f.key, val)
	}
	return bw.Flush()
}

// Parse reads key=value lines on top of base. The result is only returned when
// every recognised line parses; base is never modified. Unknown keys, blank
// lines and # comments are skipped.
func Parse(r io.Reader, base Tunables) (Tunables, error) {
	out := base
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		key, val, ok := strings.Cut(text, "=")
		if !ok {
			return base, fmt.Errorf("line %d: expected key=value, got %q", line, text)
		}
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		f, known := fieldsByKey[key]
		if !known {
			continue
		}
		if err := f.set(&out, val); err != nil {
			return base, fmt.Errorf("line %d: %s: %w", line, key, err)
		}
	}
	if err := sc.Err(); err != nil {
		return base, err
	}
	return out, nil
}

func (f field) set(t *Tunables, val string) error {
	switch {
	case f.float != nil:
		v, err := strconv.ParseFloat(val, 32)
		if err != nil {
			return err
		}
		*f.float(t) = float32(v)
	case f.flag != nil:
		v, err := strconv.ParseBool(val)
		if err != nil {
			return err
		}
		*f.flag(t) = v
	default:
		v, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		*f.integer(t) = v
	}
	return nil
}

// Save writes t to path, creating parent directories.
func (t Tunables) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// Load parses path on top of base. On error base is returned unchanged.
func Load(path string, base Tunables) (Tunables, error) {
	f, err := os.Open(path)
	if err != nil {
		return base, err
	}
	defer f.Close()
	t, err := Parse(f, base)
	if err != nil {
		return base, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}
