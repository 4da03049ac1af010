package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadlightParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *HeadlightParams)
		wantErr bool
	}{
		{"defaults", func(p *HeadlightParams) {}, false},
		{"inner equals outer", func(p *HeadlightParams) { p.InnerAngle = p.OuterAngle }, true},
		{"inner wider than outer", func(p *HeadlightParams) { p.InnerAngle = 0.5 }, true},
		{"outer at right angle", func(p *HeadlightParams) { p.OuterAngle = 1.5708 }, true},
		{"zero inner", func(p *HeadlightParams) { p.InnerAngle = 0 }, true},
		{"negative range", func(p *HeadlightParams) { p.Range = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultHeadlightParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLightCatalog_Placement(t *testing.T) {
	fleet := NewFleet(DefaultTrack(), 60)
	cat, err := NewLightCatalog(fleet, DefaultHeadlightParams())
	require.NoError(t, err)
	require.Len(t, cat.Lights, 120)
	assert.Equal(t, 120, cat.ActiveCount())

	for i, l := range cat.Lights {
		v := fleet.Vehicles[i/2]
		assert.Equal(t, i/2, l.Vehicle)
		assert.Equal(t, v.Forward, l.Direction)
		assert.InDelta(t, 0.6, l.Position.Y(), 1e-6)

		front := v.Position.Add(v.Forward.Mul(CarLength / 2))
		front[1] = 0.6
		lateral := l.Position.Sub(front).Dot(v.Right())
		if i%2 == 0 {
			assert.Equal(t, HeadlightLeft, l.Side)
			assert.InDelta(t, -0.7, lateral, 1e-4)
		} else {
			assert.Equal(t, HeadlightRight, l.Side)
			assert.InDelta(t, 0.7, lateral, 1e-4)
		}
	}
}

func TestLightCatalog_FollowsFleet(t *testing.T) {
	fleet := NewFleet(DefaultTrack(), 10)
	cat, err := NewLightCatalog(fleet, DefaultHeadlightParams())
	require.NoError(t, err)

	before := cat.Lights[4].Position
	fleet.Update(0.5, 20, 1)
	cat.Refresh(fleet)
	moved := cat.Lights[4].Position.Sub(before).Len()
	assert.InDelta(t, 10.0, moved, 0.05)
}

func TestLightCatalog_Capacity(t *testing.T) {
	fleet := NewFleet(DefaultTrack(), 100)
	cat, err := NewLightCatalog(fleet, DefaultHeadlightParams())
	require.NoError(t, err)
	assert.Len(t, cat.Lights, MaxConeLights)
	assert.Equal(t, 63, cat.Lights[MaxConeLights-1].Vehicle)
}

func TestLightCatalog_ActiveIsPrefix(t *testing.T) {
	fleet := NewFleet(DefaultTrack(), 60)
	cat, err := NewLightCatalog(fleet, DefaultHeadlightParams())
	require.NoError(t, err)

	all := append([]ConeLight(nil), cat.Active()...)
	assert.Equal(t, 40, cat.SetActiveCount(40))
	active := cat.Active()
	require.Len(t, active, 40)
	assert.Equal(t, all[:40], active)

	assert.Equal(t, 0, cat.SetActiveCount(-5))
	assert.Empty(t, cat.Active())
	assert.Equal(t, 120, cat.SetActiveCount(500))
}

func TestLightCatalog_InvalidParams(t *testing.T) {
	p := DefaultHeadlightParams()
	p.InnerAngle, p.OuterAngle = p.OuterAngle, p.InnerAngle
	_, err := NewLightCatalog(NewFleet(DefaultTrack(), 2), p)
	assert.Error(t, err)
}

func TestLightCatalog_SetRange(t *testing.T) {
	cat, err := NewLightCatalog(NewFleet(DefaultTrack(), 2), DefaultHeadlightParams())
	require.NoError(t, err)
	cat.SetRange(45)
	for _, l := range cat.Lights {
		assert.Equal(t, float32(45), l.Range)
	}
	cat.SetRange(0)
	assert.Equal(t, float32(45), cat.Lights[0].Range)
}

func TestConeLight_Cosines(t *testing.T) {
	l := ConeLight{InnerAngle: 0.15, OuterAngle: 0.35, Direction: mgl32.Vec3{1, 0, 0}}
	assert.Greater(t, l.CosInner(), l.CosOuter())
	assert.InDelta(t, 0.98877, l.CosInner(), 1e-4)
	assert.InDelta(t, 0.93937, l.CosOuter(), 1e-4)
}
