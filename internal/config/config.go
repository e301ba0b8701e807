// ABOUTME: Player configuration loaded with viper
// ABOUTME: Defaults, an optional config file and MABRIDGE_ environment overrides
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. MABRIDGE_VOLUME=40
const EnvPrefix = "MABRIDGE"

// Config holds every setting the player reads
type Config struct {
	LogLevel string `mapstructure:"loglevel"`
	LogFile  string `mapstructure:"logfile"`

	// Output is malgo, oto or wav
	Output  string `mapstructure:"output"`
	OutFile string `mapstructure:"outfile"`

	SampleRate   int  `mapstructure:"samplerate"`
	Channels     int  `mapstructure:"channels"`
	BitDepth     int  `mapstructure:"bitdepth"`
	Volume       int  `mapstructure:"volume"`
	Loop         bool `mapstructure:"loop"`
	BufferFrames int  `mapstructure:"buffer_frames"`

	// Tone settings apply when no source is given
	Waveform  string  `mapstructure:"waveform"`
	Frequency float64 `mapstructure:"frequency"`
	Duration  float64 `mapstructure:"duration"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("loglevel", "info")
	v.SetDefault("logfile", "")
	v.SetDefault("output", "malgo")
	v.SetDefault("outfile", "out.wav")
	v.SetDefault("samplerate", 48000)
	v.SetDefault("channels", 2)
	v.SetDefault("bitdepth", 16)
	v.SetDefault("volume", 100)
	v.SetDefault("loop", false)
	v.SetDefault("buffer_frames", 512)
	v.SetDefault("waveform", "sine")
	v.SetDefault("frequency", 440.0)
	v.SetDefault("duration", 0.0)
}

// Load reads configFile, if given, over the defaults and applies environment
// overrides. A missing config file is not an error when none was named.
func Load(configFile string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error during config read: %w", err)
		}
	} else {
		v.SetConfigName("mabridge")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("error during config read: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the player cannot honour
func (c Config) Validate() error {
	switch c.Output {
	case "malgo", "oto", "wav":
	default:
		return fmt.Errorf("invalid output %q (supported: malgo, oto, wav)", c.Output)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", c.SampleRate)
	}
	if c.Channels < 1 || c.Channels > 254 {
		return fmt.Errorf("invalid channel count: %d", c.Channels)
	}
	if c.BitDepth != 16 && c.BitDepth != 24 && c.BitDepth != 32 {
		return fmt.Errorf("unsupported bit depth: %d (supported: 16, 24, 32)", c.BitDepth)
	}
	if c.Volume < 0 || c.Volume > 100 {
		return fmt.Errorf("volume must be 0-100, got %d", c.Volume)
	}
	if c.BufferFrames <= 0 {
		return fmt.Errorf("invalid buffer_frames: %d", c.BufferFrames)
	}
	return nil
}
