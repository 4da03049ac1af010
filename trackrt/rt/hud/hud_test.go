package hud

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/headlights/trackrt/rt/config"
)

func TestFrameStats(t *testing.T) {
	var s FrameStats
	avg, lo, hi := s.Summary()
	assert.Zero(t, avg+lo+hi)

	for _, ms := range []float32{10, 20, 30} {
		s.Add(ms)
	}
	avg, lo, hi = s.Summary()
	assert.Equal(t, 3, s.Len())
	assert.InDelta(t, 20, avg, 1e-5)
	assert.Equal(t, float32(10), lo)
	assert.Equal(t, float32(30), hi)
}

func TestFrameStats_Wraps(t *testing.T) {
	var s FrameStats
	s.Add(1000)
	for i := 0; i < FrameHistory; i++ {
		s.Add(5)
	}
	avg, lo, hi := s.Summary()
	assert.Equal(t, FrameHistory, s.Len())
	assert.InDelta(t, 5, avg, 1e-5)
	assert.Equal(t, float32(5), lo)
	assert.Equal(t, float32(5), hi)
}

func TestTechnique(t *testing.T) {
	tun := config.DefaultTunables(4)
	assert.Equal(t, "shadow maps", Technique(&tun))
	tun.UseHorizonMapping = true
	assert.Equal(t, "horizon mapping", Technique(&tun))
	tun.DisableShadows = true
	assert.Equal(t, "none", Technique(&tun))
}

func TestHUDLines(t *testing.T) {
	var s FrameStats
	s.Add(20)
	tun := config.DefaultTunables(120)
	tun.ActiveLightCount = 64

	items := HUDLines(&s, &tun, 120, nil)
	require.Len(t, items, 4)
	assert.Contains(t, items[0].Text, " 50 fps")
	assert.Equal(t, hudAccent, items[0].Color)
	assert.Contains(t, items[1].Text, "lights 64 / 120")
	assert.Contains(t, items[1].Text, "shadows: shadow maps")
	for i, it := range items {
		assert.Equal(t, float32(10+18*i), it.Position[1])
		if i > 0 {
			assert.Equal(t, hudColor, it.Color)
		}
	}

	tun.ShowShadowMapDebug = true
	tun.DebugShadowMapIndex = 3
	tun.ShowLightOverlap = true
	items = HUDLines(&s, &tun, 120, nil)
	require.Len(t, items, 6)
	assert.Equal(t, "shadow map debug: layer 3", items[4].Text)
	assert.Equal(t, "light overlap (max 8)", items[5].Text)
}

func TestHUDLines_Profiler(t *testing.T) {
	p, err := NewProfiler()
	require.NoError(t, err)
	p.BeginScope("Encode")
	p.EndScope("Encode")
	p.SetCount("Lights", 12)

	var s FrameStats
	tun := config.DefaultTunables(4)
	items := HUDLines(&s, &tun, 4, p)

	var text []string
	for _, it := range items {
		text = append(text, it.Text)
	}
	joined := strings.Join(text, "\n")
	assert.Contains(t, joined, "Timings (CPU):")
	assert.Contains(t, joined, "Lights")
	assert.Contains(t, items[0].Text, "0 fps")
}

func TestMsSince(t *testing.T) {
	ms := MsSince(time.Now().Add(-50 * time.Millisecond))
	assert.GreaterOrEqual(t, ms, float32(50))
}
