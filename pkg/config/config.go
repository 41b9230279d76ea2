// Package config provides YAML-based configuration loading for flowmux.
package config

import (
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"

    "github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
    // AppName optional logical name of the process
    AppName string `mapstructure:"app_name"`

    // Log holds logging configuration
    Log LogConfig `mapstructure:"log"`

    // Stream tunes the per-channel buffering
    Stream StreamConfig `mapstructure:"stream"`

    // Mux tunes the framing session
    Mux MuxConfig `mapstructure:"mux"`

    // Transport selects and addresses the conn carrying the session
    Transport TransportConfig `mapstructure:"transport"`
}

// LogConfig defines logger settings.
type LogConfig struct {
    // Level: debug, info, warn, error
    Level string `mapstructure:"level"`
    // Format: console or json
    Format string `mapstructure:"format"`
    // Outputs: list of outputs: stdout, stderr, or file paths
    Outputs []string `mapstructure:"outputs"`

    // Rotation controls file rotation when writing to files
    Rotation RotationConfig `mapstructure:"rotation"`
    // Development toggles development-friendly logging options
    Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
    Enable     bool   `mapstructure:"enable"`
    Filename   string `mapstructure:"filename"`
    MaxSizeMB  int    `mapstructure:"max_size_mb"`
    MaxBackups int    `mapstructure:"max_backups"`
    MaxAgeDays int    `mapstructure:"max_age_days"`
    Compress   bool   `mapstructure:"compress"`
}

// StreamConfig tunes per-channel stream buffers.
type StreamConfig struct {
    // HighWaterMark is the buffer capacity in bytes before backpressure
    HighWaterMark int `mapstructure:"high_water_mark"`
    // ReadChunk is the size hint passed to producers, in bytes
    ReadChunk int `mapstructure:"read_chunk"`
}

// MuxConfig tunes the framing session.
type MuxConfig struct {
    // MaxFrame caps one frame's payload; larger chunks are fragmented
    MaxFrame int `mapstructure:"max_frame"`
    // RateBytesPerSec shapes each channel when positive
    RateBytesPerSec int64 `mapstructure:"rate_bytes_per_sec"`
    // IdleTimeoutMS tears the session down after this much inactivity;
    // zero disables the watchdog
    IdleTimeoutMS int `mapstructure:"idle_timeout_ms"`
}

// TransportConfig describes the conn under the session.
// Example YAML:
// transport:
//   kind: tcp
//   listen: ":7777"
//   dial: "10.0.0.2:7777"
type TransportConfig struct {
    // Kind: tcp, quic, mem, or winpipe
    Kind string `mapstructure:"kind"`
    // Listen address for the receiving side
    Listen string `mapstructure:"listen"`
    // Dial address for the sending side
    Dial string `mapstructure:"dial"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
    return &Config{
        AppName: "flowmux",
        Log: LogConfig{
            Level:       "info",
            Format:      "console",
            Outputs:     []string{"stdout"},
            Development: true,
            Rotation: RotationConfig{
                Enable:     false,
                Filename:   "logs/flowmux.log",
                MaxSizeMB:  50,
                MaxBackups: 3,
                MaxAgeDays: 28,
                Compress:   true,
            },
        },
        Stream: StreamConfig{
            HighWaterMark: 64 * 1024,
            ReadChunk:     4 * 1024,
        },
        Mux: MuxConfig{
            MaxFrame: 64 * 1024,
        },
        Transport: TransportConfig{
            Kind:   "tcp",
            Listen: ":7777",
        },
    }
}

// Load reads configuration from the provided path (if non-empty),
// otherwise it searches common locations and supports environment overrides.
// Environment variables use the prefix FLOWMUX and `.`/`-` are replaced with `_`.
// Example: FLOWMUX_LOG_LEVEL=debug
func Load(path string) (*Config, error) {
    cfg := Default()

    v := viper.New()
    v.SetConfigType("yaml")
    v.SetEnvPrefix("FLOWMUX")
    v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
    v.AutomaticEnv()

    // seed defaults for viper so env-only configs work
    v.SetDefault("app_name", cfg.AppName)
    v.SetDefault("log.level", cfg.Log.Level)
    v.SetDefault("log.format", cfg.Log.Format)
    v.SetDefault("log.outputs", cfg.Log.Outputs)
    v.SetDefault("log.development", cfg.Log.Development)
    v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
    v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
    v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
    v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
    v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
    v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
    v.SetDefault("stream.high_water_mark", cfg.Stream.HighWaterMark)
    v.SetDefault("stream.read_chunk", cfg.Stream.ReadChunk)
    v.SetDefault("mux.max_frame", cfg.Mux.MaxFrame)
    v.SetDefault("mux.rate_bytes_per_sec", cfg.Mux.RateBytesPerSec)
    v.SetDefault("mux.idle_timeout_ms", cfg.Mux.IdleTimeoutMS)
    v.SetDefault("transport.kind", cfg.Transport.Kind)
    v.SetDefault("transport.listen", cfg.Transport.Listen)
    v.SetDefault("transport.dial", cfg.Transport.Dial)

    // Choose config file
    if path == "" {
        // Allow override via env var
        if envPath := os.Getenv("FLOWMUX_CONFIG"); envPath != "" {
            path = envPath
        }
    }

    if path != "" {
        v.SetConfigFile(path)
    } else {
        // Search common locations with base name `flowmux`
        v.SetConfigName("flowmux")
        v.AddConfigPath(".")
        v.AddConfigPath("./configs")
        if home, err := os.UserHomeDir(); err == nil {
            v.AddConfigPath(filepath.Join(home, ".flowmux"))
        }
    }

    // Read config file if present; if not found, continue with defaults/env
    if err := v.ReadInConfig(); err != nil {
        var viperConfigFileNotFound viper.ConfigFileNotFoundError
        if !errors.As(err, &viperConfigFileNotFound) {
            return nil, fmt.Errorf("read config: %w", err)
        }
    }

    if err := v.Unmarshal(&cfg); err != nil {
        return nil, fmt.Errorf("decode config: %w", err)
    }

    if err := cfg.validate(); err != nil {
        return nil, err
    }
    return cfg, nil
}

func (c *Config) validate() error {
    lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
    switch lvl {
    case "debug", "info", "warn", "warning", "error":
        // ok
    default:
        return fmt.Errorf("invalid log.level: %q", c.Log.Level)
    }

    if c.Log.Format == "" {
        c.Log.Format = "console"
    }
    if len(c.Log.Outputs) == 0 {
        c.Log.Outputs = []string{"stdout"}
    }

    if c.Stream.HighWaterMark < 0 {
        return fmt.Errorf("stream.high_water_mark must not be negative")
    }
    if c.Stream.ReadChunk < 0 {
        return fmt.Errorf("stream.read_chunk must not be negative")
    }
    if c.Mux.MaxFrame < 0 {
        return fmt.Errorf("mux.max_frame must not be negative")
    }
    if c.Mux.RateBytesPerSec < 0 {
        return fmt.Errorf("mux.rate_bytes_per_sec must not be negative")
    }

    c.Transport.Kind = strings.ToLower(strings.TrimSpace(c.Transport.Kind))
    switch c.Transport.Kind {
    case "tcp", "quic", "mem", "winpipe":
        // ok
    default:
        return fmt.Errorf("invalid transport.kind: %q", c.Transport.Kind)
    }
    return nil
}

// MustLoad is a convenience that panics on error.
func MustLoad(path string) *Config {
    cfg, err := Load(path)
    if err != nil {
        panic(err)
    }
    return cfg
}
