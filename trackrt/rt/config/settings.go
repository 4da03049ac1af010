package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gekko3d/headlights/trackrt/rt/core"
)

// Settings are read once at launch.
type Settings struct {
	Window  WindowSettings  `yaml:"window"`
	Track   TrackSettings   `yaml:"track"`
	Logging LoggingSettings `yaml:"logging"`
	Capture CaptureSettings `yaml:"capture"`
	// Tunables is the key=value file used by quick-save and quick-load.
	Tunables string `yaml:"tunables"`
}

type WindowSettings struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
	VSync  bool   `yaml:"vsync"`
}

type TrackSettings struct {
	StraightLength float32 `yaml:"straight_length"`
	Radius         float32 `yaml:"radius"`
	LaneWidth      float32 `yaml:"lane_width"`
	Vehicles       int     `yaml:"vehicles"`
}

type LoggingSettings struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type CaptureSettings struct {
	Dir          string  `yaml:"dir"`
	Format       string  `yaml:"format"` // tga, png or bmp
	WarmupFrames int     `yaml:"warmup_frames"`
	// FixedStep is the frame delta in seconds. Zero follows the wall clock
	// and keeps -test frames at the loaded simulation time.
	FixedStep    float32 `yaml:"fixed_step"`
}

// Step returns FixedStep as a duration.
func (c CaptureSettings) Step() time.Duration {
	return time.Duration(float64(c.FixedStep) * float64(time.Second))
}

func DefaultSettings() *Settings {
	track := core.DefaultTrack()
	return &Settings{
		Window: WindowSettings{
			Width:  1280,
			Height: 720,
			Title:  "trackrt (click to capture mouse, Esc to release or quit)",
			VSync:  true,
		},
		Track: TrackSettings{
			StraightLength: track.StraightLength,
			Radius:         track.Radius,
			LaneWidth:      track.LaneWidth,
			Vehicles:       60,
		},
		Logging:  LoggingSettings{Level: "info"},
		Capture:  CaptureSettings{Dir: "captures", Format: "png", WarmupFrames: 10},
		Tunables: "trackrt.cfg",
	}
}

// LoadSettings overlays the YAML file at path on the defaults. An empty path
// returns the defaults.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading settings from %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}
	return s, nil
}

// Validate rejects settings the renderer cannot start with.
func (s *Settings) Validate() error {
	if s.Window.Width <= 0 || s.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d must be positive", s.Window.Width, s.Window.Height)
	}
	if s.Track.StraightLength < 0 || s.Track.Radius <= 0 || s.Track.LaneWidth <= 0 {
		return fmt.Errorf("invalid track geometry %+v", s.Track)
	}
	if s.Track.Vehicles <= 0 {
		return fmt.Errorf("vehicle count %d must be positive", s.Track.Vehicles)
	}
	if s.Capture.FixedStep < 0 {
		return fmt.Errorf("fixed step %v must not be negative", s.Capture.FixedStep)
	}
	switch s.Capture.Format {
	case "tga", "png", "bmp":
	default:
		return fmt.Errorf("unknown capture format %q", s.Capture.Format)
	}
	return nil
}

// TrackGeometry converts the track section to the kinematics type.
func (s *Settings) TrackGeometry() core.Track {
	return core.Track{
		StraightLength: s.Track.StraightLength,
		Radius:         s.Track.Radius,
		LaneWidth:      s.Track.LaneWidth,
	}
}

// SaveTo writes the settings as YAML, creating parent directories.
func (s *Settings) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
