package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const maxPitch = 1.5

type CameraState struct {
	Position    mgl32.Vec3
	Yaw         float32
	Pitch       float32
	FovY        float32
	Near        float32
	Far         float32
	Speed       float32
	Sensitivity float32
}

func NewCameraState() *CameraState {
	return &CameraState{
		Position:    mgl32.Vec3{0, 50, 100},
		Yaw:         0,
		Pitch:       -0.3,
		FovY:        1.0472,
		Near:        0.1,
		Far:         5000,
		Speed:       100,
		Sensitivity: 0.002,
	}
}

func (c *CameraState) GetForward() mgl32.Vec3 {
	// Y-up, yaw 0 looks down -Z
	return mgl32.Vec3{
		float32(math.Sin(float64(c.Yaw)) * math.Cos(float64(c.Pitch))),
		float32(math.Sin(float64(c.Pitch))),
		float32(-math.Cos(float64(c.Yaw)) * math.Cos(float64(c.Pitch))),
	}
}

func (c *CameraState) GetRight() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Yaw))),
		0,
		float32(math.Sin(float64(c.Yaw))),
	}
}

func (c *CameraState) GetViewMatrix() mgl32.Mat4 {
	eye := c.Position
	return mgl32.LookAtV(eye, eye.Add(c.GetForward()), mgl32.Vec3{0, 1, 0})
}

func (c *CameraState) GetProjectionMatrix(aspect float32) mgl32.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return PerspectiveZO(c.FovY, aspect, c.Near, c.Far)
}

func (c *CameraState) GetViewProjection(aspect float32) mgl32.Mat4 {
	return c.GetProjectionMatrix(aspect).Mul4(c.GetViewMatrix())
}

// Look applies a mouse delta in pixels.
func (c *CameraState) Look(dx, dy float32) {
	c.Yaw += dx * c.Sensitivity
	c.Pitch -= dy * c.Sensitivity
	c.Pitch = mgl32.Clamp(c.Pitch, -maxPitch, maxPitch)
}

// MoveInput is the set of movement keys held during a frame.
type MoveInput struct {
	Forward, Back, Left, Right, Up, Down bool
	Sprint                               bool
}

// Move translates along the normalized sum of the held directions.
func (c *CameraState) Move(in MoveInput, dt float32) {
	fwd, right := c.GetForward(), c.GetRight()
	up := mgl32.Vec3{0, 1, 0}
	var dir mgl32.Vec3
	if in.Forward {
		dir = dir.Add(fwd)
	}
	if in.Back {
		dir = dir.Sub(fwd)
	}
	if in.Right {
		dir = dir.Add(right)
	}
	if in.Left {
		dir = dir.Sub(right)
	}
	if in.Up {
		dir = dir.Add(up)
	}
	if in.Down {
		dir = dir.Sub(up)
	}
	if dir.Len() < 0.001 {
		return
	}
	speed := c.Speed * dt
	if in.Sprint {
		speed *= 3
	}
	c.Position = c.Position.Add(dir.Normalize().Mul(speed))
}

// ExtractFrustum extracts the 6 planes of the frustum from a zero-to-one depth view-projection.
// Returns planes in order: Left, Right, Bottom, Top, Near, Far.
// Plane is Ax + By + Cz + D = 0 with the normal pointing inside.
func (c *CameraState) ExtractFrustum(vp mgl32.Mat4) [6]mgl32.Vec4 {
	row := func(r int) mgl32.Vec4 {
		return mgl32.Vec4{vp.At(r, 0), vp.At(r, 1), vp.At(r, 2), vp.At(r, 3)}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	planes := [6]mgl32.Vec4{
		r3.Add(r0),
		r3.Sub(r0),
		r3.Add(r1),
		r3.Sub(r1),
		r2, // clip z >= 0
		r3.Sub(r2),
	}
	for i := range planes {
		length := planes[i].Vec3().Len()
		if length > 0 {
			planes[i] = planes[i].Mul(1.0 / length)
		}
	}
	return planes
}

// AABBInFrustum reports whether any part of the box lies inside all six planes.
func AABBInFrustum(aabb [2]mgl32.Vec3, planes [6]mgl32.Vec4) bool {
	for _, plane := range planes {
		// most-inside corner
		var p mgl32.Vec3
		for k := 0; k < 3; k++ {
			if plane[k] > 0 {
				p[k] = aabb[1][k]
			} else {
				p[k] = aabb[0][k]
			}
		}
		if plane.Vec3().Dot(p)+plane[3] < 0 {
			return false
		}
	}
	return true
}
