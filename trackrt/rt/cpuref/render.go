// Package cpuref renders a frame on the CPU with the lighting rules of the GPU
// path. The output is a reference image for comparing against captures.
package cpuref

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"github.com/gekko3d/headlights/trackrt/rt/core"
	"github.com/gekko3d/headlights/trackrt/rt/horizon"
	"github.com/gekko3d/headlights/trackrt/rt/shading"
)

type Mode int

const (
	ModeLit Mode = iota
	ModeOverlap
	ModeDebugDepth
)

type Options struct {
	Width, Height int
	Mode          Mode
	Params        shading.Params
	// DebugLayer selects the shadow slice shown in ModeDebugDepth.
	DebugLayer int
	// HorizonMapSize is the horizon map resolution. The reference path uses a
	// smaller size than the GPU to keep the march affordable.
	HorizonMapSize int
}

func DefaultOptions(width, height int) Options {
	return Options{
		Width:          width,
		Height:         height,
		Params:         shading.DefaultParams(),
		HorizonMapSize: 256,
	}
}

// Scene is a frozen simulation state.
type Scene struct {
	Camera   *core.CameraState
	Vehicles []core.Vehicle
	Lights   []core.ConeLight
	TopDown  core.TopDownCamera
}

// Render shades every pixel. Rows are split across workers; cancelling ctx
// stops the remaining rows and returns the context error.
func Render(ctx context.Context, scene *Scene, opt Options) (*image.RGBA, error) {
	if opt.Width <= 0 || opt.Height <= 0 {
		return nil, fmt.Errorf("invalid size %dx%d", opt.Width, opt.Height)
	}
	if len(scene.Lights) > core.MaxConeLights {
		return nil, fmt.Errorf("%d lights exceed %d", len(scene.Lights), core.MaxConeLights)
	}

	params := opt.Params
	params.CameraPos = scene.Camera.Position
	shadows := NewConeShadows(scene.Lights, scene.Vehicles, core.ConeShadowMapSize)

	var horizons shading.HorizonMaps
	if params.UseHorizonMapping && !params.DisableShadows && len(scene.Lights) > 0 {
		size := opt.HorizonMapSize
		if size <= 0 {
			size = horizon.MapSize
		}
		hp := horizon.ParamsFor(&scene.TopDown, mgl32.Vec3{}, 0, size)
		field := horizon.RasterizeVehicles(&hp, scene.Vehicles)
		horizons = horizon.ComputeAll(field, &scene.TopDown, scene.Lights)
	}
	eval := shading.NewEvaluator(params, scene.Lights, shadows, horizons)

	aspect := float32(opt.Width) / float32(opt.Height)
	invVP := scene.Camera.GetViewProjection(aspect).Inv()
	img := image.NewRGBA(image.Rect(0, 0, opt.Width, opt.Height))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for y := 0; y < opt.Height; y++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for x := 0; x < opt.Width; x++ {
				c := shadePixel(eval, shadows, scene, &opt, invVP, x, y)
				img.SetRGBA(x, y, toRGBA(c))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return img, nil
}

func shadePixel(eval *shading.Evaluator, shadows *ConeShadows, scene *Scene, opt *Options, invVP mgl32.Mat4, x, y int) mgl32.Vec3 {
	if opt.Mode == ModeDebugDepth {
		tx := x * shadows.Size / opt.Width
		ty := y * shadows.Size / opt.Height
		d := shading.DebugDepth(shadows.Depth(opt.DebugLayer, tx, ty))
		return mgl32.Vec3{d, d, d}
	}

	ndcX := (float32(x)+0.5)/float32(opt.Width)*2 - 1
	ndcY := 1 - (float32(y)+0.5)/float32(opt.Height)*2
	hit, ok := Trace(UnprojectRay(invVP, ndcX, ndcY), scene.Vehicles, true)
	if !ok {
		return shading.FogColor
	}
	s := &shading.Surface{Position: hit.Pos, Normal: hit.Normal}
	if hit.Vehicle < 0 {
		s.UV = GroundUV(hit.Pos)
	}
	if opt.Mode == ModeOverlap {
		return shading.OverlapColor(eval.OverlapCount(s), eval.Params.OverlapMaxCount)
	}
	return eval.Shade(s)
}

func toRGBA(c mgl32.Vec3) color.RGBA {
	ch := func(v float32) uint8 { return uint8(mgl32.Clamp(v, 0, 1)*255 + 0.5) }
	return color.RGBA{R: ch(c.X()), G: ch(c.Y()), B: ch(c.Z()), A: 255}
}
