package cpuref

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/headlights/trackrt/rt/core"
)

type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

func (r Ray) At(t float32) mgl32.Vec3 { return r.Origin.Add(r.Direction.Mul(t)) }

// Hit is the nearest surface along a ray.
type Hit struct {
	T       float32
	Pos     mgl32.Vec3
	Normal  mgl32.Vec3
	Vehicle int // -1 for the ground
}

// UnprojectRay builds the world ray through an NDC point of a zero-to-one
// depth projection.
func UnprojectRay(invVP mgl32.Mat4, ndcX, ndcY float32) Ray {
	near := invVP.Mul4x1(mgl32.Vec4{ndcX, ndcY, 0, 1})
	far := invVP.Mul4x1(mgl32.Vec4{ndcX, ndcY, 1, 1})
	n := near.Vec3().Mul(1 / near.W())
	f := far.Vec3().Mul(1 / far.W())
	return Ray{Origin: n, Direction: f.Sub(n).Normalize()}
}

// intersectAABB is the slab test. It returns the entry and exit distances and
// the axis the ray entered through.
func intersectAABB(ray Ray, minB, maxB mgl32.Vec3) (tNear, tFar float32, axis int) {
	tNear, tFar = 0, float32(math.MaxFloat32)
	axis = -1
	for a := 0; a < 3; a++ {
		d := ray.Direction[a]
		if float32(math.Abs(float64(d))) < 1e-8 {
			if ray.Origin[a] < minB[a] || ray.Origin[a] > maxB[a] {
				return 0, -1, -1
			}
			continue
		}
		inv := 1 / d
		t1 := (minB[a] - ray.Origin[a]) * inv
		t2 := (maxB[a] - ray.Origin[a]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tNear {
			tNear, axis = t1, a
		}
		if t2 < tFar {
			tFar = t2
		}
		if tNear > tFar {
			return 0, -1, -1
		}
	}
	return tNear, tFar, axis
}

// IntersectVehicle tests a ray against a vehicle's oriented box.
func IntersectVehicle(ray Ray, v *core.Vehicle) (float32, mgl32.Vec3, bool) {
	fwd := v.Forward.Normalize()
	right := v.Right()
	up := mgl32.Vec3{0, 1, 0}

	rel := ray.Origin.Sub(v.Position)
	local := Ray{
		Origin:    mgl32.Vec3{rel.Dot(right), rel.Dot(up), rel.Dot(fwd)},
		Direction: mgl32.Vec3{ray.Direction.Dot(right), ray.Direction.Dot(up), ray.Direction.Dot(fwd)},
	}
	half := mgl32.Vec3{core.CarWidth / 2, core.CarHeight / 2, core.CarLength / 2}
	tNear, tFar, axis := intersectAABB(local, half.Mul(-1), half)
	if tFar < 0 || axis < 0 {
		return 0, mgl32.Vec3{}, false
	}

	basis := [3]mgl32.Vec3{right, up, fwd}
	n := basis[axis]
	if local.Direction[axis] > 0 {
		n = n.Mul(-1)
	}
	return tNear, n, true
}

// Trace finds the nearest of the ground quad and the vehicles. Vehicles only
// is used for shadow depth, which never includes the ground.
func Trace(ray Ray, vehicles []core.Vehicle, withGround bool) (Hit, bool) {
	best := Hit{T: float32(math.MaxFloat32), Vehicle: -1}
	found := false

	if withGround && ray.Direction.Y() < -1e-6 {
		t := -ray.Origin.Y() / ray.Direction.Y()
		p := ray.At(t)
		h := float32(core.GroundSize / 2)
		if t > 0 && p.X() >= -h && p.X() <= h && p.Z() >= -h && p.Z() <= h {
			best = Hit{T: t, Pos: p, Normal: mgl32.Vec3{0, 1, 0}, Vehicle: -1}
			found = true
		}
	}
	for i := range vehicles {
		t, n, ok := IntersectVehicle(ray, &vehicles[i])
		if ok && t < best.T {
			best = Hit{T: t, Pos: ray.At(t), Normal: n, Vehicle: i}
			found = true
		}
	}
	return best, found
}

// GroundUV matches the ground quad's texture coordinates.
func GroundUV(p mgl32.Vec3) mgl32.Vec2 {
	h := float32(core.GroundSize / 2)
	return mgl32.Vec2{(p.X() + h) / core.GroundSize, (p.Z() + h) / core.GroundSize}
}
