// Package config provides configuration management for the remotepad host.
//
// Values are layered with koanf, later sources overriding earlier ones:
// built-in defaults, the YAML file, REMOTEPAD_* environment variables and
// finally command-line overrides.
package config

import (
	"errors"
	"fmt"
	"time"

	"remotepad/internal/gesture"
	"remotepad/internal/input"
	"remotepad/internal/logging"
	"remotepad/internal/pairing"
	"remotepad/internal/session"
	"remotepad/internal/translator"
)

// ErrInvalid is returned for configuration values that fail verification
var ErrInvalid = errors.New("invalid configuration")

// Config represents the host configuration
type Config struct {
	Server   ServerSection   `koanf:"server"`
	Pairing  PairingSection  `koanf:"pairing"`
	Input    InputSection    `koanf:"input"`
	Actuator ActuatorSection `koanf:"actuator"`
	Gate     GateSection     `koanf:"gate"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures the listener and the advertised address
type ServerSection struct {
	// BindAddress is the interface the session listener binds to
	BindAddress string `koanf:"bind_address"`

	// BasePort is the first port probed on every regeneration
	BasePort int `koanf:"base_port"`

	// MaxPortAttempts bounds the ports probed from BasePort
	MaxPortAttempts int `koanf:"max_port_attempts"`

	// AdvertiseAddress overrides the detected LAN address put in pairing codes
	AdvertiseAddress string `koanf:"advertise_address"`

	// Metrics enables the /metrics endpoint
	Metrics bool `koanf:"metrics"`
}

// PairingSection configures the pairing code cipher
type PairingSection struct {
	// Key is a hex encoded 32 byte key shared with clients
	Key string `koanf:"key"`

	// Passphrase derives the key when Key is empty
	Passphrase string `koanf:"passphrase"`

	// Cipher is aes-256-cbc or xchacha20-poly1305
	Cipher string `koanf:"cipher"`

	// SecretBytes is the number of random bytes in a session secret
	SecretBytes int `koanf:"secret_bytes"`
}

// InputSection holds the gesture and modifier tunables applied to new
// connections
type InputSection struct {
	ModifierLockHold time.Duration `koanf:"modifier_lock_hold"`
	Gain             float64       `koanf:"gain"`
	Epsilon          float64       `koanf:"epsilon"`
	TapThreshold     time.Duration `koanf:"tap_threshold"`
	Lockout          time.Duration `koanf:"lockout"`
	HotZone          float64       `koanf:"hot_zone"`
}

// ActuatorSection selects the input injection back-end
type ActuatorSection struct {
	// Backend is auto, log, xdotool, coregraphics or sendinput
	Backend string `koanf:"backend"`
}

// GateSection configures the failed authentication limiter
type GateSection struct {
	// FailureRate is the sustained failed attempts per second per client IP
	FailureRate float64 `koanf:"failure_rate"`

	// FailureBurst is the number of failures allowed before limiting
	FailureBurst int `koanf:"failure_burst"`
}

// LogSection configures the root logger
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Color  string `koanf:"color"`
}

// Default returns a new Config with the reference defaults
func Default() *Config {
	so := session.DefaultOptions()
	gate := session.DefaultGateOptions()
	tc := translator.DefaultConfig()

	return &Config{
		Server: ServerSection{
			BindAddress:     so.BindAddress,
			BasePort:        so.BasePort,
			MaxPortAttempts: so.MaxPortAttempts,
			Metrics:         true,
		},
		Pairing: PairingSection{
			Cipher:      string(pairing.DefaultMode),
			SecretBytes: so.SecretBytes,
		},
		Input: InputSection{
			ModifierLockHold: tc.ModifierHold,
			Gain:             tc.Gesture.Gain,
			Epsilon:          tc.Gesture.Epsilon,
			TapThreshold:     tc.Gesture.TapThreshold,
			Lockout:          tc.Gesture.Lockout,
			HotZone:          tc.Gesture.HotZone,
		},
		Actuator: ActuatorSection{
			Backend: input.BackendAuto,
		},
		Gate: GateSection{
			FailureRate:  gate.FailureRate,
			FailureBurst: gate.FailureBurst,
		},
		Log: LogSection{
			Level:  "info",
			Format: "text",
			Color:  "auto",
		},
	}
}

// SessionOptions returns the session manager options described by c.
// advertise is used when no advertise address is configured.
func (c *Config) SessionOptions(advertise func() string) session.Options {
	opts := session.Options{
		BindAddress:     c.Server.BindAddress,
		BasePort:        c.Server.BasePort,
		MaxPortAttempts: c.Server.MaxPortAttempts,
		SecretBytes:     c.Pairing.SecretBytes,
		Advertise:       advertise,
	}
	if addr := c.Server.AdvertiseAddress; addr != "" {
		opts.Advertise = func() string { return addr }
	}
	return opts
}

// GateOptions returns the session gate options described by c
func (c *Config) GateOptions() session.GateOptions {
	return session.GateOptions{
		FailureRate:  c.Gate.FailureRate,
		FailureBurst: c.Gate.FailureBurst,
	}
}

// TranslatorConfig returns the per-connection input tunables described by c
func (c *Config) TranslatorConfig() translator.Config {
	return translator.Config{
		ModifierHold: c.Input.ModifierLockHold,
		Gesture: gesture.Config{
			Gain:         c.Input.Gain,
			Epsilon:      c.Input.Epsilon,
			TapThreshold: c.Input.TapThreshold,
			Lockout:      c.Input.Lockout,
			HotZone:      c.Input.HotZone,
		},
	}
}

// LoggingOptions returns the root logger options described by c
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		Color:  c.Log.Color,
	}
}

// Verify validates the configuration
func Verify(c *Config) error {
	if err := verifyServer(&c.Server); err != nil {
		return err
	}
	if err := verifyPairing(&c.Pairing); err != nil {
		return err
	}
	if err := verifyInput(&c.Input); err != nil {
		return err
	}
	if err := verifyGate(&c.Gate); err != nil {
		return err
	}
	switch c.Actuator.Backend {
	case input.BackendAuto, input.BackendLog, input.BackendXdotool,
		input.BackendCoreGraphics, input.BackendSendInput:
	default:
		return invalid("actuator.backend %q is not a known back-end", c.Actuator.Backend)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return invalid("log.format must be text or json")
	}
	return nil
}

func verifyServer(s *ServerSection) error {
	if s.BasePort < 1 || s.BasePort > 65535 {
		return invalid("server.base_port must be in 1..65535")
	}
	if s.MaxPortAttempts < 1 {
		return invalid("server.max_port_attempts must be at least 1")
	}
	if s.BasePort+s.MaxPortAttempts-1 > 65535 {
		return invalid("server.base_port + server.max_port_attempts exceeds 65535")
	}
	return nil
}

func verifyPairing(p *PairingSection) error {
	if _, err := pairing.ParseMode(p.Cipher); err != nil {
		return invalid("pairing.cipher: %v", err)
	}
	if p.Key != "" {
		if _, err := pairing.ParseKey(p.Key); err != nil {
			return invalid("pairing.key: %v", err)
		}
	}
	if p.SecretBytes < 16 {
		return invalid("pairing.secret_bytes must be at least 16")
	}
	return nil
}

func verifyInput(in *InputSection) error {
	if in.ModifierLockHold <= 0 {
		return invalid("input.modifier_lock_hold must be positive")
	}
	if in.Gain <= 0 {
		return invalid("input.gain must be positive")
	}
	if in.Epsilon < 0 {
		return invalid("input.epsilon must not be negative")
	}
	if in.TapThreshold <= 0 {
		return invalid("input.tap_threshold must be positive")
	}
	if in.Lockout < 0 {
		return invalid("input.lockout must not be negative")
	}
	if in.HotZone <= 0 || in.HotZone >= 1 {
		return invalid("input.hot_zone must be between 0 and 1")
	}
	return nil
}

func verifyGate(g *GateSection) error {
	if g.FailureRate <= 0 {
		return invalid("gate.failure_rate must be positive")
	}
	if g.FailureBurst < 1 {
		return invalid("gate.failure_burst must be at least 1")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
