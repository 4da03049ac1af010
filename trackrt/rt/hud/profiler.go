package hud

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/gekko3d/headlights/trackrt/rt/hud"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Profiler times named CPU scopes for the HUD and mirrors them to the global
// OTel meter (no-op unless an SDK is installed).
type Profiler struct {
	Scopes     map[string]time.Duration
	StartTimes map[string]time.Time
	Counts     map[string]int
	Order      []string

	scopeHist metric.Float64Histogram
	frames    metric.Int64Counter
	dropped   metric.Int64Counter
	attrs     map[string]metric.MeasurementOption
	now       func() time.Time
}

func NewProfiler() (*Profiler, error) {
	p := &Profiler{
		Scopes:     make(map[string]time.Duration),
		StartTimes: make(map[string]time.Time),
		Counts:     make(map[string]int),
		attrs:      make(map[string]metric.MeasurementOption),
		now:        time.Now,
	}
	m := meter()

	var err error
	p.scopeHist, err = m.Float64Histogram(
		"trackrt.scope.duration",
		metric.WithDescription("CPU time spent in a frame scope"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating scope histogram: %w", err)
	}
	p.frames, err = m.Int64Counter(
		"trackrt.frames.rendered",
		metric.WithDescription("Frames submitted to the GPU"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating frame counter: %w", err)
	}
	p.dropped, err = m.Int64Counter(
		"trackrt.frames.dropped",
		metric.WithDescription("Frames abandoned after a per-frame error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	return p, nil
}

func (p *Profiler) BeginScope(name string) {
	p.StartTimes[name] = p.now()
	if _, seen := p.attrs[name]; !seen {
		p.Order = append(p.Order, name)
		p.attrs[name] = metric.WithAttributes(attribute.String("scope", name))
	}
}

func (p *Profiler) EndScope(name string) {
	start, ok := p.StartTimes[name]
	if !ok {
		return
	}
	d := p.now().Sub(start)
	p.Scopes[name] = d
	p.scopeHist.Record(context.Background(), float64(d.Microseconds())/1000, p.attrs[name])
}

func (p *Profiler) SetCount(name string, count int) {
	p.Counts[name] = count
}

func (p *Profiler) FrameDone()    { p.frames.Add(context.Background(), 1) }
func (p *Profiler) FrameDropped() { p.dropped.Add(context.Background(), 1) }

// Reset clears the timings and keeps the display order.
func (p *Profiler) Reset() {
	for k := range p.Scopes {
		p.Scopes[k] = 0
	}
}

func (p *Profiler) GetStatsString() string {
	var sb strings.Builder

	sb.WriteString("Timings (CPU):\n")
	for _, name := range p.Order {
		ms := float64(p.Scopes[name].Microseconds()) / 1000.0
		fmt.Fprintf(&sb, "  %-15s: %.2f ms\n", name, ms)
	}

	sb.WriteString("\nStats:\n")
	keys := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %-15s: %d\n", k, p.Counts[k])
	}
	return sb.String()
}
