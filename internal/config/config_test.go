package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"remotepad/internal/pairing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	m, err := NewManager(path, nil)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m, path
}

func TestDefaultVerifies(t *testing.T) {
	cfg := Default()
	if err := Verify(cfg); err != nil {
		t.Fatalf("Verify(Default()) error = %v", err)
	}
	if cfg.Server.BasePort != 3000 || cfg.Pairing.SecretBytes != 16 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Input.ModifierLockHold != 500*time.Millisecond || cfg.Input.TapThreshold != 250*time.Millisecond {
		t.Errorf("unexpected input defaults %+v", cfg.Input)
	}
	if cfg.Pairing.Cipher != string(pairing.ModeAESCBC) {
		t.Errorf("cipher = %q, want %q", cfg.Pairing.Cipher, pairing.ModeAESCBC)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	m, _ := newTestManager(t)
	if err := m.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := m.Get(); got.Server.BasePort != 3000 {
		t.Errorf("base_port = %d, want 3000", got.Server.BasePort)
	}
}

func TestLoadFileEnvAndOverrides(t *testing.T) {
	m, path := newTestManager(t)
	writeFile(t, path, `
server:
  base_port: 4100
  max_port_attempts: 10
input:
  tap_threshold: 200ms
  gain: 2
log:
  level: debug
`)
	t.Setenv("REMOTEPAD_SERVER_MAX_PORT_ATTEMPTS", "20")
	t.Setenv("REMOTEPAD_GATE_FAILURE_BURST", "9")
	m.SetOverrides(map[string]any{"server.base_port": 5000})

	if err := m.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg := m.Get()

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"server.base_port", cfg.Server.BasePort, 5000},
		{"server.max_port_attempts", cfg.Server.MaxPortAttempts, 20},
		{"gate.failure_burst", cfg.Gate.FailureBurst, 9},
		{"input.tap_threshold", cfg.Input.TapThreshold, 200 * time.Millisecond},
		{"input.gain", cfg.Input.Gain, 2.0},
		{"input.lockout", cfg.Input.Lockout, 200 * time.Millisecond},
		{"log.level", cfg.Log.Level, "debug"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadInvalidKeepsPrevious(t *testing.T) {
	m, path := newTestManager(t)
	writeFile(t, path, "server:\n  base_port: 4100\n")
	if err := m.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	writeFile(t, path, "input:\n  hot_zone: 1.5\n")
	if err := m.Load(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Load() error = %v, want ErrInvalid", err)
	}
	if got := m.Get().Server.BasePort; got != 4100 {
		t.Errorf("base_port = %d, want previous 4100", got)
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.BasePort = 0 }},
		{"port range overflow", func(c *Config) { c.Server.BasePort = 65500; c.Server.MaxPortAttempts = 100 }},
		{"no attempts", func(c *Config) { c.Server.MaxPortAttempts = 0 }},
		{"cipher", func(c *Config) { c.Pairing.Cipher = "rot13" }},
		{"short key", func(c *Config) { c.Pairing.Key = "abcd" }},
		{"short secret", func(c *Config) { c.Pairing.SecretBytes = 4 }},
		{"hold", func(c *Config) { c.Input.ModifierLockHold = 0 }},
		{"gain", func(c *Config) { c.Input.Gain = -1 }},
		{"hot zone", func(c *Config) { c.Input.HotZone = 0 }},
		{"gate rate", func(c *Config) { c.Gate.FailureRate = 0 }},
		{"backend", func(c *Config) { c.Actuator.Backend = "telepathy" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := Verify(cfg); !errors.Is(err, ErrInvalid) {
				t.Errorf("Verify() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestSetNotifiesCallbacks(t *testing.T) {
	m, _ := newTestManager(t)

	var got []*Config
	m.RegisterChangeCallback(func(c *Config) { got = append(got, c) })

	cfg := Default()
	cfg.Log.Level = "warn"
	if err := m.Set(cfg); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	bad := Default()
	bad.Gate.FailureBurst = 0
	if err := m.Set(bad); !errors.Is(err, ErrInvalid) {
		t.Errorf("Set() error = %v, want ErrInvalid", err)
	}

	if len(got) != 1 || got[0].Log.Level != "warn" {
		t.Fatalf("callbacks = %v, want one with level warn", got)
	}
	// Callbacks get their own copy.
	got[0].Log.Level = "error"
	if m.Get().Log.Level != "warn" {
		t.Error("callback mutation leaked into the manager")
	}
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Server.AdvertiseAddress = "192.168.1.20"
	cfg.Input.HotZone = 0.25

	so := cfg.SessionOptions(func() string { return "10.0.0.1" })
	if so.Advertise() != "192.168.1.20" || so.BasePort != 3000 {
		t.Errorf("unexpected session options %+v", so)
	}
	if so := Default().SessionOptions(func() string { return "10.0.0.1" }); so.Advertise() != "10.0.0.1" {
		t.Errorf("advertise = %q, want detected address", so.Advertise())
	}

	tc := cfg.TranslatorConfig()
	if tc.Gesture.HotZone != 0.25 || tc.ModifierHold != 500*time.Millisecond {
		t.Errorf("unexpected translator config %+v", tc)
	}
	if g := cfg.GateOptions(); g.FailureBurst != 5 {
		t.Errorf("unexpected gate options %+v", g)
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"REMOTEPAD_SERVER_BASE_PORT":         "server.base_port",
		"REMOTEPAD_INPUT_MODIFIER_LOCK_HOLD": "input.modifier_lock_hold",
		"REMOTEPAD_ACTUATOR_BACKEND":         "actuator.backend",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWatchReloads(t *testing.T) {
	m, path := newTestManager(t)
	writeFile(t, path, "log:\n  level: info\n")
	if err := m.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	changed := make(chan *Config, 16)
	m.RegisterChangeCallback(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})

	w, err := m.Watch()
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer w.Stop()

	writeFile(t, path, "log:\n  level: debug\n")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changed:
			if c.Log.Level == "debug" {
				return
			}
		case <-deadline:
			t.Fatal("configuration was not reloaded")
		}
	}
}
