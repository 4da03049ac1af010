package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gekko3d/headlights/trackrt/rt/cpuref"
	"github.com/gekko3d/headlights/trackrt/rt/export"
	"github.com/gekko3d/headlights/trackrt/rt/hud"
	"github.com/gekko3d/headlights/trackrt/rt/sim"
)

// KeyBindings maps debug keys to actions. Movement keys are polled separately.
var KeyBindings = map[glfw.Key]sim.Action{
	glfw.KeyH:            sim.ActionToggleHorizon,
	glfw.KeyB:            sim.ActionToggleShadows,
	glfw.KeyL:            sim.ActionToggleDebugLights,
	glfw.KeyO:            sim.ActionToggleOverlap,
	glfw.KeyM:            sim.ActionToggleShadowDebug,
	glfw.KeyLeftBracket:  sim.ActionPrevShadowLayer,
	glfw.KeyRightBracket: sim.ActionNextShadowLayer,
	glfw.KeyEqual:        sim.ActionMoreLights,
	glfw.KeyKPAdd:        sim.ActionMoreLights,
	glfw.KeyMinus:        sim.ActionFewerLights,
	glfw.KeyKPSubtract:   sim.ActionFewerLights,
	glfw.KeyUp:           sim.ActionFaster,
	glfw.KeyDown:         sim.ActionSlower,
	glfw.KeyP:            sim.ActionPause,
	glfw.KeyRight:        sim.ActionWiderSpacing,
	glfw.KeyLeft:         sim.ActionTighterSpacing,
	glfw.KeyI:            sim.ActionBrighter,
	glfw.KeyK:            sim.ActionDimmer,
	glfw.KeyU:            sim.ActionMoreAmbient,
	glfw.KeyJ:            sim.ActionLessAmbient,
	glfw.KeyY:            sim.ActionMoreBias,
	glfw.KeyG:            sim.ActionLessBias,
	glfw.KeyT:            sim.ActionLongerRange,
	glfw.KeyR:            sim.ActionShorterRange,
	glfw.KeyF:            sim.ActionSharperFalloff,
	glfw.KeyV:            sim.ActionSofterFalloff,
	glfw.KeyF5:           sim.ActionQuickSave,
	glfw.KeyF9:           sim.ActionQuickLoad,
	glfw.KeyF12:          sim.ActionCapture,
	glfw.KeyX:            sim.ActionExportPBRT,
	glfw.KeyF10:          sim.ActionReferenceRender,
}

// HandleKey runs the action bound to key. Held keys repeat tunable changes.
func (a *App) HandleKey(key glfw.Key, action glfw.Action) {
	if action != glfw.Press && action != glfw.Repeat {
		return
	}
	act, ok := KeyBindings[key]
	if !ok {
		return
	}
	if action == glfw.Repeat && act >= sim.ActionQuickSave {
		return
	}
	switch act {
	case sim.ActionQuickSave:
		path := a.Sim.Settings.Tunables
		if err := a.Sim.QuickSave(path); err != nil {
			a.Logger.Errorf("quick save: %v", err)
			return
		}
		a.Logger.Infof("saved %s", path)
	case sim.ActionQuickLoad:
		path := a.Sim.Settings.Tunables
		if err := a.Sim.QuickLoad(path); err != nil {
			a.Logger.Errorf("quick load: %v", err)
			return
		}
		a.Logger.Infof("loaded %s", path)
	case sim.ActionCapture:
		a.RequestCapture()
		a.saveCapture = true
	case sim.ActionExportPBRT:
		a.Jobs.Submit("pbrt export", a.pbrtJob())
	case sim.ActionReferenceRender:
		a.Jobs.Submit("reference render", a.referenceJob(context.Background()))
	default:
		if msg := a.Sim.Do(act); msg != "" {
			a.Logger.Infof("%s", msg)
		}
	}
}

func (a *App) captureDir() string {
	return a.Sim.Settings.Capture.Dir
}

func (a *App) captureFormat() export.Format {
	return export.Format(a.Sim.Settings.Capture.Format)
}

// writeCapture saves the last captured frame into the capture directory.
func (a *App) writeCapture() {
	pix, w, h, ok := a.Capture()
	if !ok {
		return
	}
	img, err := export.RGBAImage(pix, int(w), int(h))
	if err != nil {
		a.Logger.Errorf("capture: %v", err)
		return
	}
	path, err := export.SaveCapture(a.captureDir(), a.captureFormat(), img)
	if err != nil {
		a.Logger.Errorf("capture: %v", err)
		return
	}
	a.Logger.Infof("captured %s", path)
}

// pbrtJob snapshots the current frame as a PBRT scene. The returned job
// writes it next to the captures.
func (a *App) pbrtJob() func() (string, error) {
	dir := a.captureDir()
	path := export.CaptureName(dir, export.Format("pbrt"), time.Now())
	image := strings.TrimSuffix(filepath.Base(path), ".pbrt") + ".exr"
	scene := a.Sim.ExportScene(int(a.Config.Width), int(a.Config.Height), image)
	return func() (string, error) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
		return path, export.SavePBRT(path, scene)
	}
}

// referenceJob snapshots the current frame for the CPU renderer. The returned
// job renders it and saves the image next to the captures.
func (a *App) referenceJob(ctx context.Context) func() (string, error) {
	scene, opt := a.Sim.ReferenceScene()
	if a.Config != nil {
		opt.Width, opt.Height = int(a.Config.Width), int(a.Config.Height)
	}
	dir, format := a.captureDir(), a.captureFormat()
	return func() (string, error) {
		start := time.Now()
		img, err := cpuref.Render(ctx, scene, opt)
		if err != nil {
			return "", err
		}
		a.Logger.Debugf("reference render took %.0f ms", hud.MsSince(start))
		return export.SaveCapture(dir, format, img)
	}
}
