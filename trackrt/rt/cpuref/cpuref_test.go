package cpuref

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/headlights/trackrt/rt/core"
	"github.com/gekko3d/headlights/trackrt/rt/shading"
)

func testVehicle(pos mgl32.Vec3, fwd mgl32.Vec3) core.Vehicle {
	pos[1] = core.CarHeight / 2
	return core.Vehicle{Position: pos, Forward: fwd}
}

func TestIntersectVehicle(t *testing.T) {
	v := testVehicle(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 1})
	tests := []struct {
		name   string
		ray    Ray
		hit    bool
		t      float32
		normal mgl32.Vec3
	}{
		{"from front", Ray{mgl32.Vec3{0, 0.5, 10}, mgl32.Vec3{0, 0, -1}}, true, 8, mgl32.Vec3{0, 0, 1}},
		{"from above", Ray{mgl32.Vec3{0, 10, 0}, mgl32.Vec3{0, -1, 0}}, true, 8.5, mgl32.Vec3{0, 1, 0}},
		{"from side", Ray{mgl32.Vec3{-5, 0.5, 0}, mgl32.Vec3{1, 0, 0}}, true, 4, mgl32.Vec3{-1, 0, 0}},
		{"miss", Ray{mgl32.Vec3{5, 0.5, 10}, mgl32.Vec3{0, 0, -1}}, false, 0, mgl32.Vec3{}},
		{"behind", Ray{mgl32.Vec3{0, 0.5, 10}, mgl32.Vec3{0, 0, 1}}, false, 0, mgl32.Vec3{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, n, ok := IntersectVehicle(tt.ray, &v)
			require.Equal(t, tt.hit, ok)
			if !ok {
				return
			}
			assert.InDelta(t, tt.t, d, 1e-4)
			assert.True(t, n.ApproxEqualThreshold(tt.normal, 1e-5), "normal %v", n)
		})
	}
}

func TestIntersectVehicle_Rotated(t *testing.T) {
	// heading +X: the long side now faces a ray along Z
	v := testVehicle(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0})
	d, _, ok := IntersectVehicle(Ray{mgl32.Vec3{0, 0.5, 10}, mgl32.Vec3{0, 0, -1}}, &v)
	require.True(t, ok)
	assert.InDelta(t, 10-core.CarWidth/2, d, 1e-4)
}

func TestTrace(t *testing.T) {
	vehicles := []core.Vehicle{testVehicle(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 1})}

	hit, ok := Trace(Ray{mgl32.Vec3{0, 10, 0}, mgl32.Vec3{0, -1, 0}}, vehicles, true)
	require.True(t, ok)
	assert.Equal(t, 0, hit.Vehicle)

	hit, ok = Trace(Ray{mgl32.Vec3{20, 10, 0}, mgl32.Vec3{0, -1, 0}}, vehicles, true)
	require.True(t, ok)
	assert.Equal(t, -1, hit.Vehicle)
	assert.InDelta(t, 0, hit.Pos.Y(), 1e-5)

	_, ok = Trace(Ray{mgl32.Vec3{20, 10, 0}, mgl32.Vec3{0, -1, 0}}, vehicles, false)
	assert.False(t, ok, "ground excluded")

	_, ok = Trace(Ray{mgl32.Vec3{0, 10, 0}, mgl32.Vec3{0, 1, 0}}, vehicles, true)
	assert.False(t, ok, "sky")
}

func TestGroundUV(t *testing.T) {
	assert.Equal(t, mgl32.Vec2{0.5, 0.5}, GroundUV(mgl32.Vec3{}))
	assert.Equal(t, mgl32.Vec2{0, 1}, GroundUV(mgl32.Vec3{-core.GroundSize / 2, 0, core.GroundSize / 2}))
}

func headlight(pos, dir mgl32.Vec3) core.ConeLight {
	return core.ConeLight{
		Position:   pos,
		Direction:  dir.Normalize(),
		Color:      mgl32.Vec3{1, 1, 1},
		Range:      30,
		InnerAngle: 0.15,
		OuterAngle: 0.35,
	}
}

func TestConeShadows_Depth(t *testing.T) {
	light := headlight(mgl32.Vec3{0, 0.6, 0}, mgl32.Vec3{0, 0, 1})
	center := core.ConeShadowMapSize / 2

	empty := NewConeShadows([]core.ConeLight{light}, nil, core.ConeShadowMapSize)
	assert.Equal(t, float32(1), empty.Depth(0, center, center))
	assert.Equal(t, float32(1), empty.Depth(5, center, center), "unknown layer")

	blocker := testVehicle(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{0, 0, 1})
	s := NewConeShadows([]core.ConeLight{light}, []core.Vehicle{blocker}, core.ConeShadowMapSize)
	d := s.Depth(0, center, center)
	assert.Less(t, d, float32(1))
	assert.Greater(t, d, float32(0))
	assert.Equal(t, d, s.Depth(0, center, center), "cached")
}

func TestRender_Shadowing(t *testing.T) {
	cam := core.NewCameraState()
	cam.Position = mgl32.Vec3{0, 60, 15}
	cam.Pitch = -1.5
	cam.Yaw = 0

	light := headlight(mgl32.Vec3{0, 0.6, 0}, mgl32.Vec3{0, -0.1, 1})
	blocker := testVehicle(mgl32.Vec3{0, 0, 8}, mgl32.Vec3{0, 0, 1})
	scene := &Scene{
		Camera:   cam,
		Vehicles: []core.Vehicle{blocker},
		Lights:   []core.ConeLight{light},
		TopDown:  core.NewTopDownCamera([2]mgl32.Vec3{{-50, 0, -50}, {50, 1.5, 50}}),
	}

	opt := DefaultOptions(48, 32)
	lit, err := Render(context.Background(), scene, opt)
	require.NoError(t, err)
	assert.Equal(t, 48, lit.Bounds().Dx())

	opt.Params.DisableShadows = true
	unshadowed, err := Render(context.Background(), scene, opt)
	require.NoError(t, err)

	var litSum, freeSum int
	for i := 0; i < len(lit.Pix); i += 4 {
		litSum += int(lit.Pix[i])
		freeSum += int(unshadowed.Pix[i])
		assert.Equal(t, uint8(255), lit.Pix[i+3])
	}
	assert.Less(t, litSum, freeSum, "the blocker darkens the ground behind it")
}

func TestRender_Modes(t *testing.T) {
	cam := core.NewCameraState()
	scene := &Scene{
		Camera:  cam,
		Lights:  []core.ConeLight{headlight(mgl32.Vec3{0, 0.6, 80}, mgl32.Vec3{0, -0.2, -1})},
		TopDown: core.NewTopDownCamera([2]mgl32.Vec3{{-50, 0, -50}, {50, 1.5, 50}}),
	}
	for _, mode := range []Mode{ModeLit, ModeOverlap, ModeDebugDepth} {
		opt := DefaultOptions(16, 8)
		opt.Mode = mode
		opt.Params.UseHorizonMapping = true
		opt.HorizonMapSize = 32
		img, err := Render(context.Background(), scene, opt)
		require.NoError(t, err)
		assert.Len(t, img.Pix, 16*8*4)
	}

	opt := DefaultOptions(16, 8)
	opt.Mode = ModeDebugDepth
	img, err := Render(context.Background(), scene, opt)
	require.NoError(t, err)
	want := uint8(shading.DebugDepth(1)*255 + 0.5)
	assert.Equal(t, want, img.Pix[0], "an empty slice shows the far plane")
}

func TestRender_Errors(t *testing.T) {
	scene := &Scene{Camera: core.NewCameraState()}
	_, err := Render(context.Background(), scene, DefaultOptions(0, 10))
	assert.Error(t, err)

	scene.Lights = make([]core.ConeLight, core.MaxConeLights+1)
	_, err = Render(context.Background(), scene, DefaultOptions(4, 4))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Render(ctx, &Scene{Camera: core.NewCameraState()}, DefaultOptions(4, 4))
	assert.ErrorIs(t, err, context.Canceled)
}
