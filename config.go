package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"autorec/encoder"
	"autorec/recorder"

	"github.com/spf13/viper"
)

// settings merges config file, AUTOREC_* env vars and explicit flags, in
// increasing priority.
type settings struct {
	AutoStop bool
	Volume   float64
	Silence  time.Duration
	Format   string
	Device   string
	SaveDir  string
	LogPath  string
	TUI      bool
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"autostop": "autostop",
	"volume":   "volume",
	"silence":  "silence",
	"format":   "format",
	"device":   "device",
	"save":     "save",
	"logpath":  "logpath",
	"tui":      "tui",
}

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	return filepath.Join(xdgConfig, "autorec"), nil
}

func newViper(cfgDir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if cfgDir != "" {
		v.AddConfigPath(cfgDir)
	}

	v.SetDefault("autostop", false)
	v.SetDefault("volume", float64(recorder.DefaultVolumeThreshold))
	v.SetDefault("silence", recorder.DefaultSilenceThreshold.String())
	v.SetDefault("format", "auto")
	v.SetDefault("tui", true)

	v.SetEnvPrefix("AUTOREC")
	v.AutomaticEnv()
	return v
}

// loadSettings reads the config file (a missing file is fine) and applies
// every flag the user set explicitly on top.
func loadSettings(v *viper.Viper, fs *flag.FlagSet) (settings, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return settings{}, fmt.Errorf("config: %w", err)
		}
	}

	fs.Visit(func(f *flag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			v.Set(key, f.Value.String())
		}
	})

	s := settings{
		AutoStop: v.GetBool("autostop"),
		Volume:   v.GetFloat64("volume"),
		Silence:  v.GetDuration("silence"),
		Format:   v.GetString("format"),
		Device:   v.GetString("device"),
		SaveDir:  v.GetString("save"),
		LogPath:  v.GetString("logpath"),
		TUI:      v.GetBool("tui"),
	}
	if s.Silence <= 0 {
		return settings{}, fmt.Errorf("config: silence must be a positive duration, got %q", v.GetString("silence"))
	}
	if _, err := formatPreference(s.Format); err != nil {
		return settings{}, err
	}
	return s, nil
}

// formatPreference turns the -format value into a media-type preference
// list. "auto" keeps the default order.
func formatPreference(name string) ([]string, error) {
	switch name {
	case "", "auto":
		return encoder.DefaultPreference, nil
	case "flac":
		return []string{encoder.MediaTypeFLAC, encoder.MediaTypeWAV}, nil
	case "wav":
		return []string{encoder.MediaTypeWAV, encoder.MediaTypeFLAC}, nil
	}
	return nil, fmt.Errorf("unknown format %q (use auto, flac or wav)", name)
}

func (s settings) recorderConfig() recorder.Config {
	formats, _ := formatPreference(s.Format)
	return recorder.Config{
		AutoStop:         s.AutoStop,
		VolumeThreshold:  s.Volume,
		SilenceThreshold: s.Silence,
		Formats:          formats,
	}
}
