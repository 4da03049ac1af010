package hud

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gekko3d/headlights/trackrt/rt/config"
	"github.com/gekko3d/headlights/trackrt/rt/core"
)

// FrameHistory is the number of frame times kept for the HUD statistics.
const FrameHistory = 200

var (
	hudColor  = [4]float32{1, 1, 1, 1}
	hudAccent = [4]float32{1, 1, 0, 1}
)

// FrameStats is a ring of recent frame times.
type FrameStats struct {
	samples [FrameHistory]float32
	next    int
	count   int
}

// Add records one frame time in milliseconds.
func (s *FrameStats) Add(ms float32) {
	s.samples[s.next] = ms
	s.next = (s.next + 1) % FrameHistory
	if s.count < FrameHistory {
		s.count++
	}
}

func (s *FrameStats) Len() int { return s.count }

// Summary returns the average, minimum and maximum over the kept frames.
func (s *FrameStats) Summary() (avg, lo, hi float32) {
	if s.count == 0 {
		return 0, 0, 0
	}
	lo, hi = float32(math.MaxFloat32), 0
	var sum float32
	for _, v := range s.samples[:s.count] {
		sum += v
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return sum / float32(s.count), lo, hi
}

// Technique names the active shadowing method.
func Technique(t *config.Tunables) string {
	switch {
	case t.DisableShadows:
		return "none"
	case t.UseHorizonMapping:
		return "horizon mapping"
	default:
		return "shadow maps"
	}
}

// HUDLines builds the overlay text.
func HUDLines(stats *FrameStats, t *config.Tunables, lightCount int, prof *Profiler) []core.TextItem {
	avg, lo, hi := stats.Summary()
	fps := float32(0)
	if avg > 0 {
		fps = 1000 / avg
	}

	lines := []string{
		fmt.Sprintf("frame %.2f ms (min %.2f, max %.2f)  %.0f fps", avg, lo, hi, fps),
		fmt.Sprintf("lights %d / %d  range %.1f  shadows: %s", t.ActiveLightCount, lightCount, t.HeadlightRange, Technique(t)),
		fmt.Sprintf("ambient %.2f  intensity %.2f  bias %.4f  falloff %.2f",
			t.AmbientIntensity, t.ConeLightIntensity, t.ShadowBias, t.HeadlightFalloff),
		fmt.Sprintf("speed %.1f  spacing %.2f", t.CarSpeed, t.CarSpacing),
	}
	if t.ShowShadowMapDebug {
		lines = append(lines, fmt.Sprintf("shadow map debug: layer %d", t.DebugShadowMapIndex))
	}
	if t.ShowLightOverlap {
		lines = append(lines, fmt.Sprintf("light overlap (max %.0f)", t.OverlapMaxCount))
	}
	if prof != nil {
		lines = append(lines, strings.Split(strings.TrimRight(prof.GetStatsString(), "\n"), "\n")...)
	}

	items := make([]core.TextItem, 0, len(lines))
	for i, l := range lines {
		color := hudColor
		if i == 0 {
			color = hudAccent
		}
		items = append(items, core.TextItem{
			Text:     l,
			Position: [2]float32{10, 10 + float32(i)*18},
			Scale:    1,
			Color:    color,
		})
	}
	return items
}

func MsSince(start time.Time) float32 {
	return float32(time.Since(start).Microseconds()) / 1000
}
