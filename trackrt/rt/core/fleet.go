package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MinCarGap is the bumper-to-bumper gap at carSpacing 0.
const MinCarGap = 0.5

type Vehicle struct {
	Index      int
	Lane       int
	PosInLane  int
	LaneOffset float32
	Progress   float32
	Position   mgl32.Vec3
	Forward    mgl32.Vec3
}

// Right is the vehicle's horizontal right-hand vector.
func (v *Vehicle) Right() mgl32.Vec3 {
	return TrackRight(v.Forward)
}

// Fleet owns every vehicle on the track. Vehicles alternate lanes by index and
// follow their lane leader at a fixed progress offset.
type Fleet struct {
	Track       Track
	Vehicles    []Vehicle
	CarsPerLane int

	// distance is how far the lane leaders have driven, wrapped to one lap.
	distance float64
	spacing  float32
}

func NewFleet(track Track, count int) *Fleet {
	// Lane 0 takes the extra vehicle of an odd count.
	perLane := (count + 1) / 2
	if perLane < 1 {
		perLane = 1
	}
	f := &Fleet{
		Track:       track,
		Vehicles:    make([]Vehicle, count),
		CarsPerLane: perLane,
		spacing:     1,
	}
	for i := range f.Vehicles {
		lane := i % 2
		f.Vehicles[i] = Vehicle{
			Index:      i,
			Lane:       lane,
			PosInLane:  i / 2,
			LaneOffset: track.LaneOffset(lane),
		}
	}
	f.place()
	return f
}

// SpacingMeters maps carSpacing in [0,1] onto the gap between consecutive vehicle
// centres in one lane: CarLength+MinCarGap at 0, an even spread at 1.
func (f *Fleet) SpacingMeters(spacing float32) float32 {
	spacing = mgl32.Clamp(spacing, 0, 1)
	maxM := f.Track.Length() / float32(f.CarsPerLane)
	minM := float32(CarLength + MinCarGap)
	return minM + (maxM-minM)*spacing
}

// Update advances both lane leaders by speed*dt meters and repositions every vehicle.
func (f *Fleet) Update(dt, speed, spacing float32) {
	f.SetDistance(f.distance+float64(speed)*float64(dt), spacing)
}

// SetDistance places the fleet with its lane leaders d meters past the start
// line. Only d modulo the track length matters.
func (f *Fleet) SetDistance(d float64, spacing float32) {
	lap := float64(f.Track.Length())
	d = math.Mod(d, lap)
	if d < 0 {
		d += lap
	}
	f.distance = d
	f.spacing = spacing
	f.place()
}

// Distance is the leaders' distance past the start line, in [0, Length).
func (f *Fleet) Distance() float64 { return f.distance }

func (f *Fleet) Leaders() [2]float32 {
	lead := wrap01(float32(f.distance / float64(f.Track.Length())))
	return [2]float32{lead, lead}
}

func (f *Fleet) place() {
	frac := f.SpacingMeters(f.spacing) / f.Track.Length()
	leaders := f.Leaders()
	for i := range f.Vehicles {
		v := &f.Vehicles[i]
		v.Progress = wrap01(leaders[v.Lane] + float32(v.PosInLane)*frac)

		pos, dir := f.Track.PositionAndDirection(v.Progress)
		pos = pos.Add(TrackRight(dir).Mul(v.LaneOffset))
		pos[1] = CarHeight * 0.5
		v.Position = pos
		v.Forward = dir
	}
}

// VehicleAABB is a conservative axis-aligned box around a vehicle at any heading.
func VehicleAABB(v *Vehicle) [2]mgl32.Vec3 {
	r := float32(math.Hypot(CarLength/2, CarWidth/2))
	return [2]mgl32.Vec3{
		{v.Position.X() - r, 0, v.Position.Z() - r},
		{v.Position.X() + r, CarHeight, v.Position.Z() + r},
	}
}
