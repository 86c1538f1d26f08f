package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	configName = "herdview"
	configType = "toml"
	envPrefix  = "HERDVIEW"
)

var envReplacer = strings.NewReplacer(".", "_")

// EnvKey returns the environment variable that overrides a config key.
func EnvKey(key string) string {
	return envPrefix + "_" + strings.ToUpper(envReplacer.Replace(key))
}

// fileConfig is the on-disk and environment shape of the tunable globals.
type fileConfig struct {
	Window Config       `mapstructure:"window"`
	Source SourceConfig `mapstructure:"source"`
	Interp InterpConfig `mapstructure:"interp"`
	Relay  RelayConfig  `mapstructure:"relay"`
	Term   TermConfig   `mapstructure:"term"`
}

// NewViper returns a viper instance seeded with the built-in defaults. It looks
// for herdview.toml in the working directory and the user config directory, and
// honours HERDVIEW_* environment variables (HERDVIEW_INTERP_MAX_PREDICT etc).
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, configName))
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()

	Reset()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("window.width", C.Width)
	v.SetDefault("window.height", C.Height)
	v.SetDefault("window.title", C.Title)
	v.SetDefault("window.font", C.Font)

	v.SetDefault("source.kind", string(Source.Kind))
	v.SetDefault("source.url", Source.URL)
	v.SetDefault("source.log", Source.Log)
	v.SetDefault("source.interval", Source.Interval)

	v.SetDefault("interp.min_correction", Interp.MinCorrection)
	v.SetDefault("interp.max_correction", Interp.MaxCorrection)
	v.SetDefault("interp.max_predict", Interp.MaxPredict)
	v.SetDefault("interp.initial_cadence", Interp.InitialCadence)
	v.SetDefault("interp.cadence_min", Interp.CadenceMin)
	v.SetDefault("interp.cadence_max", Interp.CadenceMax)
	v.SetDefault("interp.cadence_smoothing", Interp.CadenceSmoothing)
	v.SetDefault("interp.correction_fraction", Interp.CorrectionFraction)
	v.SetDefault("interp.speed_epsilon", Interp.SpeedEpsilon)
	v.SetDefault("interp.fallback_speed", Interp.FallbackSpeed)
	v.SetDefault("interp.min_elapsed", Interp.MinElapsed)

	v.SetDefault("relay.port", Relay.Port)
	v.SetDefault("relay.path", Relay.Path)
	v.SetDefault("relay.log", Relay.Log)
	v.SetDefault("relay.interval", Relay.Interval)

	v.SetDefault("term.log_file", Term.LogFile)
	v.SetDefault("term.frame", Term.Frame)
}

// Load reads the config file (if any) and applies file, environment and bound
// flag values to the package globals. A missing config file is not an error.
func Load(v *viper.Viper) error {
	if v == nil {
		v = NewViper()
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if err := fc.validate(); err != nil {
		return err
	}

	window := fc.Window
	C = &window
	Source = fc.Source
	Interp = fc.Interp
	Relay = fc.Relay
	Term = fc.Term
	return nil
}

// Validate checks the current globals for inverted or non-positive ranges.
func Validate() error {
	fc := fileConfig{Window: *C, Source: Source, Interp: Interp, Relay: Relay, Term: Term}
	return fc.validate()
}

func (fc fileConfig) validate() error {
	var errs []error
	ic := fc.Interp

	if ic.MinCorrection <= 0 {
		errs = append(errs, errors.New("interp.min_correction must be positive"))
	}
	if ic.MaxCorrection < ic.MinCorrection {
		errs = append(errs, errors.New("interp.max_correction must not be below interp.min_correction"))
	}
	if ic.MaxPredict < 0 {
		errs = append(errs, errors.New("interp.max_predict must not be negative"))
	}
	if ic.CadenceMin <= 0 || ic.CadenceMax < ic.CadenceMin {
		errs = append(errs, errors.New("interp cadence bounds must satisfy 0 < cadence_min <= cadence_max"))
	}
	if ic.InitialCadence <= 0 {
		errs = append(errs, errors.New("interp.initial_cadence must be positive"))
	}
	if ic.CadenceSmoothing <= 0 || ic.CadenceSmoothing > 1 {
		errs = append(errs, errors.New("interp.cadence_smoothing must be in (0, 1]"))
	}
	if ic.CorrectionFraction < 0 {
		errs = append(errs, errors.New("interp.correction_fraction must not be negative"))
	}
	if ic.MinElapsed <= 0 {
		errs = append(errs, errors.New("interp.min_elapsed must be positive"))
	}
	if ic.SpeedEpsilon < 0 || ic.FallbackSpeed < 0 {
		errs = append(errs, errors.New("interp speeds must not be negative"))
	}

	switch fc.Source.Kind {
	case SourceReplay, SourceLive:
	default:
		errs = append(errs, fmt.Errorf("source.kind %q: want %q or %q", fc.Source.Kind, SourceReplay, SourceLive))
	}
	if fc.Source.Interval <= 0 || fc.Relay.Interval <= 0 {
		errs = append(errs, errors.New("replay intervals must be positive"))
	}
	if fc.Window.Width <= 0 || fc.Window.Height <= 0 {
		errs = append(errs, errors.New("window size must be positive"))
	}

	return errors.Join(errs...)
}

// WriteDefaults writes the effective settings of v as TOML. Durations are
// rendered as strings ("500ms") so the file reads back through viper.
func WriteDefaults(w io.Writer, v *viper.Viper) error {
	if v == nil {
		v = NewViper()
	}
	settings := humanize(v.AllSettings())
	data, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode toml: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func humanize(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, val := range m {
		switch typed := val.(type) {
		case map[string]any:
			out[k] = humanize(typed)
		case time.Duration:
			out[k] = typed.String()
		case SourceKind:
			out[k] = string(typed)
		default:
			out[k] = val
		}
	}
	return out
}
