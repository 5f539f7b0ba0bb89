// Package config loads atticd's YAML configuration file and merges it
// with command-line flag overrides, the way the teacher's src/appserver.go
// combines a couple of pflag-parsed values with compiled-in defaults —
// generalized here to a full YAML document since atticd has far more
// knobs (three port numbers, a socket directory, discovery toggles) than
// the teacher's "hostname and port" pair.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config is atticd's full runtime configuration.
type Config struct {
	Host         string `yaml:"host"`
	ControlPort  int    `yaml:"control_port"`
	VideoPort    int    `yaml:"video_port"`
	AudioPort    int    `yaml:"audio_port"`
	CLISocketDir string `yaml:"cli_socket_dir"`
	Discovery    bool   `yaml:"discovery"`
	LogLevel     string `yaml:"log_level"`
}

// Default returns the spec's default configuration (spec §6 "Listener
// ports ... Control 47800, Video 47801, Audio 47802").
func Default() Config {
	return Config{
		Host:         "localhost",
		ControlPort:  47800,
		VideoPort:    47801,
		AudioPort:    47802,
		CLISocketDir: "/tmp",
		Discovery:    false,
		LogLevel:     "info",
	}
}

// Load reads path as YAML over top of Default, ignoring a missing file so
// a fresh install runs with pure defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}

		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Flags registers pflag overrides for every Config field onto fs, mirroring
// the teacher's appserver.go StringP/Bool flag declarations. Call Apply
// after fs.Parse to fold the parsed values back into cfg.
type Flags struct {
	Host         *string
	ControlPort  *int
	VideoPort    *int
	AudioPort    *int
	CLISocketDir *string
	Discovery    *bool
	LogLevel     *string
	ConfigPath   *string
}

// RegisterFlags declares atticd's command-line flags on fs.
func RegisterFlags(fs *pflag.FlagSet, defaults Config) *Flags {
	return &Flags{
		Host:         fs.StringP("host", "H", defaults.Host, "Listener host interface."),
		ControlPort:  fs.Int("control-port", defaults.ControlPort, "AESP control channel TCP port."),
		VideoPort:    fs.Int("video-port", defaults.VideoPort, "AESP video channel TCP port."),
		AudioPort:    fs.Int("audio-port", defaults.AudioPort, "AESP audio channel TCP port."),
		CLISocketDir: fs.String("cli-socket-dir", defaults.CLISocketDir, "Directory for the CLI Unix socket (atticd does not read it; the socket is always /tmp/attic-<pid>.sock)."),
		Discovery:    fs.Bool("discovery", defaults.Discovery, "Announce this server via mDNS/DNS-SD."),
		LogLevel:     fs.StringP("log-level", "l", defaults.LogLevel, "Log level: debug, info, warn, error."),
		ConfigPath:   fs.StringP("config", "c", "", "Path to a YAML config file."),
	}
}

// Apply folds parsed flag values onto cfg. pflag.Changed distinguishes an
// explicit override from a flag left at its (already-applied) default.
func Apply(cfg Config, fs *pflag.FlagSet, flags *Flags) Config {
	if fs.Changed("host") {
		cfg.Host = *flags.Host
	}

	if fs.Changed("control-port") {
		cfg.ControlPort = *flags.ControlPort
	}

	if fs.Changed("video-port") {
		cfg.VideoPort = *flags.VideoPort
	}

	if fs.Changed("audio-port") {
		cfg.AudioPort = *flags.AudioPort
	}

	if fs.Changed("cli-socket-dir") {
		cfg.CLISocketDir = *flags.CLISocketDir
	}

	if fs.Changed("discovery") {
		cfg.Discovery = *flags.Discovery
	}

	if fs.Changed("log-level") {
		cfg.LogLevel = *flags.LogLevel
	}

	return cfg
}
