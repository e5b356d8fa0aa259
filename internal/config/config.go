package config

import "time"

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `json:"addr" yaml:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout" yaml:"read_header_timeout"`
	IdleTimeout       Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxRequestBytes   int64    `json:"max_request_bytes" yaml:"max_request_bytes"`

	// AllowOrigins is the CORS allowlist for the API and the event stream.
	AllowOrigins []string `json:"allow_origins,omitempty" yaml:"allow_origins,omitempty"`
}

type RegistryConfig struct {
	// MailboxSize is the capacity of the controller's request queue. Senders
	// block once it fills, which is the intended back-pressure behavior.
	MailboxSize int `json:"mailbox_size,omitempty" yaml:"mailbox_size,omitempty"`

	// MaxWorkers caps how many live buckets the supervisor will hold at once.
	// Zero means unlimited.
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`

	// EventBuffer is the per-subscriber buffer on the SSE fan-out side.
	// The in-process publish path stays synchronous regardless.
	EventBuffer int `json:"event_buffer,omitempty" yaml:"event_buffer,omitempty"`
}

type Config struct {
	Env      string         `json:"env" yaml:"env"`
	HTTP     HTTPConfig     `json:"http" yaml:"http"`
	Registry RegistryConfig `json:"registry" yaml:"registry"`
}
