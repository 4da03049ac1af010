package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gekko3d/headlights"
	"github.com/gekko3d/headlights/trackrt/rt/app"
	"github.com/gekko3d/headlights/trackrt/rt/config"
	"github.com/gekko3d/headlights/trackrt/rt/core"
	"github.com/gekko3d/headlights/trackrt/rt/cpuref"
	"github.com/gekko3d/headlights/trackrt/rt/export"
	"github.com/gekko3d/headlights/trackrt/rt/sim"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	settingsPath := flag.String("settings", "", "YAML launch settings")
	cfgPath := flag.String("config", "", "tunables file to load at start (replaces the quick-save file)")
	test := flag.Bool("test", false, "render the config, write <config>_test_out.<format> and exit")
	generateRef := flag.Bool("generate-ref", false, "write <config>.pbrt for the config and exit")
	cpuRef := flag.Bool("cpu-ref", false, "render the config on the CPU, write <config>_ref.<format> and exit")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	if err := run(*settingsPath, *cfgPath, *test, *generateRef, *cpuRef, *debug); err != nil {
		fmt.Fprintln(os.Stderr, "trackrt:", err)
		os.Exit(1)
	}
}

func run(settingsPath, cfgPath string, test, generateRef, cpuRef, debug bool) error {
	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		return err
	}
	level := settings.Logging.Level
	if debug {
		level = "debug"
	}
	logger := headlights.NewLogger("trackrt", level, headlights.DefaultFileConfig(settings.Logging.File), true)
	defer logger.Close()

	if cfgPath != "" {
		settings.Tunables = cfgPath
	}
	simulation, err := sim.NewSimulation(settings)
	if err != nil {
		return err
	}
	if cfgPath != "" {
		if err := simulation.QuickLoad(cfgPath); err != nil {
			return err
		}
		logger.Infof("loaded %s", cfgPath)
	}
	base := outputBase(cfgPath)
	format := export.Format(settings.Capture.Format)

	if generateRef {
		path := base + ".pbrt"
		image := filepath.Base(base) + ".exr"
		if err := export.SavePBRT(path, simulation.ExportScene(settings.Window.Width, settings.Window.Height, image)); err != nil {
			return err
		}
		logger.Infof("wrote %s", path)
		return nil
	}
	if cpuRef {
		scene, opt := simulation.ReferenceScene()
		img, err := cpuref.Render(context.Background(), scene, opt)
		if err != nil {
			return err
		}
		path := base + "_ref." + string(format)
		if err := export.WriteImage(path, format, img); err != nil {
			return err
		}
		logger.Infof("wrote %s", path)
		return nil
	}

	if err := glfw.Init(); err != nil {
		return err
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	if test {
		glfw.WindowHint(glfw.Resizable, glfw.False)
	}
	window, err := glfw.CreateWindow(settings.Window.Width, settings.Window.Height, settings.Window.Title, nil, nil)
	if err != nil {
		return err
	}
	defer window.Destroy()

	application := app.NewApp(window, simulation, logger)
	if err := application.Init(); err != nil {
		return err
	}
	defer application.Release()

	clock := headlights.NewClockAt(settings.Capture.Step(), time.Duration(float64(simulation.Time)*float64(time.Second)))
	if test {
		return runTest(application, clock, settings, base, format)
	}

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		application.Resize(width, height)
	})

	var lastX, lastY float64
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		if application.MouseCaptured {
			application.Sim.Camera.Look(float32(xpos-lastX), float32(ypos-lastY))
		}
		lastX, lastY = xpos, ypos
	})
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button == glfw.MouseButtonLeft && action == glfw.Press && !application.MouseCaptured {
			application.MouseCaptured = true
			w.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
			lastX, lastY = w.GetCursorPos()
		}
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			// First Esc releases the mouse, the second quits.
			if application.MouseCaptured {
				application.MouseCaptured = false
				w.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
			} else {
				w.SetShouldClose(true)
			}
			return
		}
		if key == glfw.KeyF1 && action == glfw.Press {
			application.ShowHUD = !application.ShowHUD
			return
		}
		application.HandleKey(key, action)
	})

	for !window.ShouldClose() {
		glfw.PollEvents()
		application.Input = pollMovement(window, application.MouseCaptured)
		application.Update(clock.Tick())
		application.Render()
	}
	return nil
}

// runTest renders the warm-up frames, captures the last one and writes it next
// to the config. A fixed-step clock advances the simulation between frames,
// otherwise every frame shows the loaded simulation time.
func runTest(a *app.App, clock *headlights.Clock, settings *config.Settings, base string, format export.Format) error {
	a.ShowHUD = false
	frames := max(settings.Capture.WarmupFrames, 1)
	for i := 0; i < frames; i++ {
		glfw.PollEvents()
		if clock.FixedDt > 0 {
			a.Update(clock.Tick())
		}
		if i == frames-1 {
			a.RequestCapture()
		}
		a.Render()
	}
	pix, w, h, ok := a.Capture()
	if !ok {
		return fmt.Errorf("no frame captured after %d frames", frames)
	}
	img, err := export.RGBAImage(pix, int(w), int(h))
	if err != nil {
		return err
	}
	path := base + "_test_out." + string(format)
	if err := export.WriteImage(path, format, img); err != nil {
		return err
	}
	a.Logger.Infof("wrote %s after %d frames at t=%.3fs", path, frames, clock.Seconds())
	return nil
}

func pollMovement(w *glfw.Window, captured bool) core.MoveInput {
	if !captured {
		return core.MoveInput{}
	}
	down := func(keys ...glfw.Key) bool {
		for _, k := range keys {
			if w.GetKey(k) == glfw.Press {
				return true
			}
		}
		return false
	}
	return core.MoveInput{
		Forward: down(glfw.KeyW),
		Back:    down(glfw.KeyS),
		Left:    down(glfw.KeyA),
		Right:   down(glfw.KeyD),
		Up:      down(glfw.KeyE, glfw.KeySpace),
		Down:    down(glfw.KeyQ, glfw.KeyLeftControl),
		Sprint:  down(glfw.KeyLeftShift),
	}
}

func outputBase(cfgPath string) string {
	if cfgPath == "" {
		return "trackrt"
	}
	return strings.TrimSuffix(cfgPath, filepath.Ext(cfgPath))
}
