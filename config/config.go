package config

import (
	"image/color"
	"time"
)

// Config holds general window configuration
type Config struct {
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	Title  string `mapstructure:"title"`
	Font   string `mapstructure:"font"` // optional TrueType file for the HUD
}

// SourceKind selects the snapshot producer.
type SourceKind string

const (
	SourceReplay SourceKind = "replay"
	SourceLive   SourceKind = "ws"
)

// SourceConfig selects and configures the snapshot producer
type SourceConfig struct {
	Kind     SourceKind    `mapstructure:"kind"`
	URL      string        `mapstructure:"url"`      // live websocket endpoint
	Log      string        `mapstructure:"log"`      // JSONL file for replay
	Interval time.Duration `mapstructure:"interval"` // replay period
}

// InterpConfig contains snapshot interpolation tuning values
type InterpConfig struct {
	// Reconciliation window bounds
	MinCorrection time.Duration `mapstructure:"min_correction"`
	MaxCorrection time.Duration `mapstructure:"max_correction"`

	// Dead-reckoning horizon cap
	MaxPredict time.Duration `mapstructure:"max_predict"`

	// Cadence estimation
	InitialCadence     time.Duration `mapstructure:"initial_cadence"`
	CadenceMin         time.Duration `mapstructure:"cadence_min"`
	CadenceMax         time.Duration `mapstructure:"cadence_max"`
	CadenceSmoothing   float64       `mapstructure:"cadence_smoothing"`   // EMA weight
	CorrectionFraction float64       `mapstructure:"correction_fraction"` // of cadence

	// Velocity estimation
	SpeedEpsilon  float64       `mapstructure:"speed_epsilon"`  // world units/s
	FallbackSpeed float64       `mapstructure:"fallback_speed"` // world units/s
	MinElapsed    time.Duration `mapstructure:"min_elapsed"`    // divide-by-zero floor
}

// ViewConfig contains render consumer configuration values
type ViewConfig struct {
	CellSize     float64 // pixels per world unit at zoom 1
	EntitySize   float64 // world units
	FacingLength float64 // world units
	CameraEase   float64 // seconds for the fit tween
	HUDPadding   float64

	Background    color.RGBA
	GridLine      color.RGBA
	EntityOutline color.RGBA
	Selected      color.RGBA
	HUDBackground color.RGBA
	HUDText       color.RGBA

	EntityColors   map[string]color.RGBA
	DefaultEntity  color.RGBA
	ObstacleColors map[string]color.RGBA
}

// RelayConfig contains the development relay server configuration
type RelayConfig struct {
	Port     uint          `mapstructure:"port"`
	Path     string        `mapstructure:"path"`
	Log      string        `mapstructure:"log"`
	Interval time.Duration `mapstructure:"interval"`
}

// TermConfig contains terminal viewer configuration
type TermConfig struct {
	LogFile string        `mapstructure:"log_file"`
	Frame   time.Duration `mapstructure:"frame"`
}

// Global configuration instances
var C *Config
var Source SourceConfig
var Interp InterpConfig
var View ViewConfig
var Relay RelayConfig
var Term TermConfig

// Shared RGBA color constants
var (
	White     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Black     = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	Yellow    = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	Orange    = color.RGBA{R: 255, G: 140, B: 0, A: 255}
	LightBlue = color.RGBA{R: 100, G: 180, B: 255, A: 255}
	DarkBlue  = color.RGBA{R: 60, G: 100, B: 160, A: 255}
	Slate     = color.RGBA{R: 208, G: 224, B: 227, A: 255}
	Grey      = color.RGBA{R: 136, G: 136, B: 136, A: 255}
	Sand      = color.RGBA{R: 221, G: 204, B: 170, A: 255}
	LightGrey = color.RGBA{R: 170, G: 170, B: 170, A: 255}
	Overlay   = color.RGBA{R: 0, G: 0, B: 0, A: 180}
)

func init() {
	Reset()
}

// Reset restores every global to its built-in default.
func Reset() {
	C = &Config{
		Width:  1280,
		Height: 720,
		Title:  "herdview",
	}

	Source = SourceConfig{
		Kind:     SourceReplay,
		URL:      "ws://localhost:6969/ws",
		Log:      "a2.log",
		Interval: 500 * time.Millisecond,
	}

	Interp = InterpConfig{
		MinCorrection: 120 * time.Millisecond,
		MaxCorrection: 300 * time.Millisecond,
		MaxPredict:    1500 * time.Millisecond,

		InitialCadence:     1000 * time.Millisecond,
		CadenceMin:         100 * time.Millisecond,
		CadenceMax:         2000 * time.Millisecond,
		CadenceSmoothing:   0.25,
		CorrectionFraction: 0.35,

		SpeedEpsilon:  0.0001,
		FallbackSpeed: 1.0,
		MinElapsed:    time.Millisecond,
	}

	View = ViewConfig{
		CellSize:     14,
		EntitySize:   0.5,
		FacingLength: 0.45,
		CameraEase:   0.6,
		HUDPadding:   8,

		Background:    Slate,
		GridLine:      color.RGBA{R: 180, G: 196, B: 200, A: 255},
		EntityOutline: Black,
		Selected:      Yellow,
		HUDBackground: Overlay,
		HUDText:       White,

		EntityColors: map[string]color.RGBA{
			"goat": Sand,
			"wolf": Grey,
		},
		DefaultEntity: LightGrey,
		ObstacleColors: map[string]color.RGBA{
			"wall":         color.RGBA{R: 96, G: 96, B: 96, A: 255},
			"water_source": LightBlue,
			"food_source":  color.RGBA{R: 110, G: 170, B: 80, A: 255},
			"rest_area":    color.RGBA{R: 200, G: 170, B: 120, A: 255},
		},
	}

	Relay = RelayConfig{
		Port:     6969,
		Path:     "/ws",
		Log:      "a2.log",
		Interval: 500 * time.Millisecond,
	}

	Term = TermConfig{
		LogFile: "",
		Frame:   16 * time.Millisecond,
	}
}

// EntityColor returns the fill colour for an entity type label.
func EntityColor(entityType string) color.RGBA {
	if c, ok := View.EntityColors[entityType]; ok {
		return c
	}
	return View.DefaultEntity
}
