package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gekko3d/headlights"
	"github.com/gekko3d/headlights/trackrt/rt/core"
	"github.com/gekko3d/headlights/trackrt/rt/gpu"
	"github.com/gekko3d/headlights/trackrt/rt/hud"
	"github.com/gekko3d/headlights/trackrt/rt/sim"
)

const hudFontSize = 14

type App struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	Sim      *sim.Simulation
	Logger   headlights.Logger
	Profiler *hud.Profiler
	Stats    hud.FrameStats

	Manager  *gpu.Manager
	Slots    *gpu.FrameSlots
	Shadow   *gpu.ShadowPass
	Horizon  *gpu.HorizonPass
	Lit      *gpu.LitPass
	Cones    *gpu.ConePass
	Text     *gpu.TextPass
	Readback *gpu.Readback
	Jobs     *sim.Jobs

	ShowHUD       bool
	MouseCaptured bool
	Input         core.MoveInput

	captureNext bool
	saveCapture bool
	captured    []byte
	capW, capH  uint32
}

func NewApp(window *glfw.Window, s *sim.Simulation, logger headlights.Logger) *App {
	if logger == nil {
		logger = headlights.NewNopLogger()
	}
	return &App{
		Window:  window,
		Sim:     s,
		Logger:  logger,
		ShowHUD: true,
		Jobs:    sim.NewJobs(logger),
	}
}

func (a *App) Init() error {
	a.Instance = wgpu.CreateInstance(nil)
	a.Surface = a.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(a.Window))

	adapter, err := a.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: a.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("requesting adapter: %w", err)
	}
	a.Adapter = adapter

	a.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return fmt.Errorf("requesting device: %w", err)
	}
	a.Queue = a.Device.GetQueue()

	width, height := a.Window.GetFramebufferSize()
	caps := a.Surface.GetCapabilities(adapter)
	present := wgpu.PresentModeFifo
	if !a.Sim.Settings.Window.VSync {
		present = wgpu.PresentModeImmediate
	}
	// CopySrc lets the capture step read the backbuffer.
	a.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: present,
		AlphaMode:   caps.AlphaModes[0],
	}
	a.Surface.Configure(adapter, a.Device, a.Config)

	if a.Profiler, err = hud.NewProfiler(); err != nil {
		return err
	}

	a.Manager = gpu.NewManager(a.Device)
	if err := a.Manager.Setup(a.Sim.Mesh); err != nil {
		return fmt.Errorf("gpu setup: %w", err)
	}
	a.Slots = gpu.NewFrameSlots(gpu.FramesInFlight, func() { a.Device.Poll(true, nil) })

	if a.Shadow, err = gpu.NewShadowPass(a.Device, a.Manager); err != nil {
		return fmt.Errorf("shadow pass: %w", err)
	}
	if a.Horizon, err = gpu.NewHorizonPass(a.Device, a.Manager); err != nil {
		return fmt.Errorf("horizon pass: %w", err)
	}
	if a.Lit, err = gpu.NewLitPass(a.Device, a.Manager, a.Config.Format, a.Config.Width, a.Config.Height); err != nil {
		return fmt.Errorf("lit pass: %w", err)
	}
	if a.Cones, err = gpu.NewConePass(a.Device, a.Manager, a.Config.Format); err != nil {
		return fmt.Errorf("cone pass: %w", err)
	}
	tr, err := core.NewDefaultTextRenderer(hudFontSize)
	if err != nil {
		return fmt.Errorf("text renderer: %w", err)
	}
	if a.Text, err = gpu.NewTextPass(a.Device, tr, a.Config.Format); err != nil {
		return fmt.Errorf("text pass: %w", err)
	}
	a.Readback = gpu.NewReadback(a.Device)

	a.Logger.Infof("gpu ready: %dx%d %v, %d lights", width, height, a.Config.Format, a.Sim.LightCount())
	return nil
}

// Resize reconfigures the surface. A minimised window reports zero and is ignored.
func (a *App) Resize(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	if err := a.Slots.WaitAll(context.Background()); err != nil {
		a.Logger.Warnf("resize: %v", err)
	}
	a.Config.Width = uint32(w)
	a.Config.Height = uint32(h)
	a.Surface.Configure(a.Adapter, a.Device, a.Config)
	a.Lit.Resize(uint32(w), uint32(h))
	a.Logger.Debugf("resized to %dx%d", w, h)
}

// Update moves the free camera and advances the simulation.
func (a *App) Update(dt float32) {
	a.Profiler.BeginScope("Update")
	a.Sim.Camera.Move(a.Input, dt)
	a.Sim.Step(dt)
	a.Profiler.EndScope("Update")
}

// RequestCapture reads the next rendered frame back to the CPU.
func (a *App) RequestCapture() { a.captureNext = true }

// Capture returns the last captured frame as tightly packed RGBA.
func (a *App) Capture() ([]byte, uint32, uint32, bool) {
	if a.captured == nil {
		return nil, 0, 0, false
	}
	return a.captured, a.capW, a.capH, true
}

func (a *App) Render() {
	start := time.Now()
	if err := a.renderFrame(); err != nil {
		a.Manager.States.Reset()
		a.Profiler.FrameDropped()
		a.Logger.Errorf("frame dropped: %v", err)
		return
	}
	a.Profiler.FrameDone()
	a.Stats.Add(hud.MsSince(start))
	if a.saveCapture {
		a.saveCapture = false
		a.writeCapture()
	}
}

func (a *App) renderFrame() error {
	a.Profiler.BeginScope("Wait")
	slot, err := a.Slots.Acquire(context.Background())
	a.Profiler.EndScope("Wait")
	if err != nil {
		return err
	}

	nextTexture, err := a.Surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("acquiring backbuffer: %w", err)
	}
	defer nextTexture.Release()
	view, err := nextTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("backbuffer view: %w", err)
	}
	defer view.Release()

	a.Profiler.BeginScope("Upload")
	w, h := a.Config.Width, a.Config.Height
	if err := a.Manager.WriteFrame(slot, frameInputs(a.Sim, w, h)); err != nil {
		a.Profiler.EndScope("Upload")
		return err
	}
	a.Manager.Flush(slot)
	a.Cones.Update(a.Queue, a.Sim.Gizmos())
	if a.ShowHUD {
		lines := hud.HUDLines(&a.Stats, &a.Sim.Tunables, a.Sim.LightCount(), a.Profiler)
		a.Text.Update(a.Queue, lines, int(w), int(h))
	}
	a.Profiler.EndScope("Upload")
	a.Profiler.SetCount("Lights", a.Manager.Frames[slot].LightCount)

	encoder, err := a.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("command encoder: %w", err)
	}
	defer encoder.Release()

	capture := a.captureNext
	a.captureNext = false
	plan := gpu.BuildFramePlan(frameOptions(a.Sim, a.ShowHUD, capture))

	a.Profiler.BeginScope("Encode")
	var main *wgpu.RenderPassEncoder
	err = plan.Execute(a.Manager.States, func(s gpu.Step) error {
		switch s.Kind {
		case gpu.StepUpload:
			return nil
		case gpu.StepTopDown:
			return a.Shadow.EncodeTopDown(encoder, a.Manager, slot)
		case gpu.StepConeShadows:
			return a.Shadow.EncodeCones(encoder, a.Manager, slot)
		case gpu.StepHorizonCopy:
			a.Horizon.EncodeCopy(encoder, a.Manager.Targets)
			return nil
		case gpu.StepHorizonCompute:
			return a.Horizon.EncodeCompute(encoder, slot, a.Manager.Frames[slot].LightCount)
		case gpu.StepLit:
			main = a.Lit.Begin(encoder, view)
			a.Lit.DrawScene(main, a.Manager, slot)
		case gpu.StepDebugDepth:
			main = a.Lit.Begin(encoder, view)
			a.Lit.DrawDebugDepth(main, slot)
		case gpu.StepCones:
			a.Cones.Draw(main, slot)
		case gpu.StepText:
			a.Text.Draw(main)
		case gpu.StepRestore:
			if main == nil {
				return errors.New("main pass was never opened")
			}
			err := main.End()
			main = nil
			return err
		case gpu.StepCapture:
			return a.Readback.Encode(encoder, nextTexture, a.Config.Format)
		}
		return nil
	})
	if main != nil {
		main.End()
	}
	a.Profiler.EndScope("Encode")
	if err != nil {
		return err
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finishing encoder: %w", err)
	}
	a.Queue.Submit(cmd)
	done := a.Slots.Arm(slot)
	a.Queue.OnSubmittedWorkDone(func(wgpu.QueueWorkDoneStatus) { done() })

	if capture {
		a.Profiler.BeginScope("Readback")
		pix, cw, ch, err := a.Readback.Read()
		a.Profiler.EndScope("Readback")
		if err != nil {
			a.Surface.Present()
			return fmt.Errorf("capture: %w", err)
		}
		a.captured, a.capW, a.capH = pix, cw, ch
	}
	a.Surface.Present()
	return nil
}

func (a *App) Release() {
	// Exports and reference renders still writing files finish first.
	a.Jobs.Wait()
	if a.Slots != nil {
		if err := a.Slots.WaitAll(context.Background()); err != nil {
			a.Logger.Warnf("release: %v", err)
		}
	}
	if a.Readback != nil {
		a.Readback.Release()
	}
	if a.Text != nil {
		a.Text.Release()
	}
	if a.Cones != nil {
		a.Cones.Release()
	}
	if a.Manager != nil {
		a.Manager.Release()
	}
	if a.Device != nil {
		a.Device.Release()
	}
	if a.Surface != nil {
		a.Surface.Release()
	}
	if a.Instance != nil {
		a.Instance.Release()
	}
}
