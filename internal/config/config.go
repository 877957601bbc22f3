package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	HTTPAddr          string        `mapstructure:"http_addr" yaml:"http_addr"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	MaxFrameSize      int           `mapstructure:"max_frame_size" yaml:"max_frame_size"`
	BroadcastPacing   time.Duration `mapstructure:"broadcast_pacing" yaml:"broadcast_pacing"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Default returns configuration with reasonable starter defaults.
// BroadcastPacing stays zero: framed transports need no write throttle,
// the knob exists for slow terminal clients only.
func Default() Config {
	return Config{
		Addr:              ":5500",
		HTTPAddr:          ":8080",
		DatabasePath:      "hearth.db",
		LogLevel:          "info",
		MaxFrameSize:      1 << 20,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}
}
