package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load
const EnvPrefix = "REMOTEPAD_"

// Manager handles loading configuration and notifying about changes
type Manager struct {
	mu         sync.Mutex
	configPath string
	overrides  map[string]any
	config     *Config
	onChanged  []func(*Config)
	logger     hclog.Logger
}

// NewManager creates a new configuration manager for the file at path. An
// empty path selects DefaultPath.
func NewManager(path string, logger hclog.Logger) (*Manager, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	return &Manager{
		configPath: path,
		config:     Default(),
		logger:     logger.Named("config"),
	}, nil
}

// DefaultPath returns the per-user configuration file path
func DefaultPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "remotepad")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "remotepad")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "remotepad")
			break
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", "remotepad")
	}

	return filepath.Join(configDir, "config.yaml"), nil
}

// Path returns the configuration file path
func (m *Manager) Path() string {
	return m.configPath
}

// SetOverrides sets values that take precedence over every other source,
// keyed by dotted path such as "server.base_port". They apply from the next
// Load on.
func (m *Manager) SetOverrides(values map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides = values
}

// Load reads the configuration from all sources. A missing file is not an
// error. On failure the previous configuration stays in effect.
func (m *Manager) Load() error {
	m.mu.Lock()
	overrides := m.overrides
	m.mu.Unlock()

	k := koanf.New(".")

	if _, err := os.Stat(m.configPath); err == nil {
		if err := k.Load(file.Provider(m.configPath), yaml.Parser()); err != nil {
			return fmt.Errorf("load file %s: %w", m.configPath, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", m.configPath, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(mapProvider(overrides), nil); err != nil {
			return fmt.Errorf("load overrides: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := Verify(cfg); err != nil {
		return err
	}

	m.logger.Debug("configuration loaded", "path", m.configPath, "keys", len(k.Keys()))
	m.replace(cfg)
	return nil
}

// envKey maps REMOTEPAD_SERVER_BASE_PORT to server.base_port. Only the
// first underscore separates the section, so keys keep theirs.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg := *m.config
	return &cfg
}

// Set verifies and installs a configuration
func (m *Manager) Set(cfg *Config) error {
	if err := Verify(cfg); err != nil {
		return err
	}
	c := *cfg
	m.replace(&c)
	return nil
}

// RegisterChangeCallback registers a function to be called with the new
// configuration whenever it changes
func (m *Manager) RegisterChangeCallback(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = append(m.onChanged, fn)
}

func (m *Manager) replace(cfg *Config) {
	m.mu.Lock()
	m.config = cfg
	callbacks := append([]func(*Config){}, m.onChanged...)
	m.mu.Unlock()

	for _, fn := range callbacks {
		c := *cfg
		fn(&c)
	}
}

// mapProvider loads a flat map of dotted keys.
type mapProvider map[string]any

func (p mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("config: map provider does not support ReadBytes")
}

func (p mapProvider) Read() (map[string]any, error) {
	return maps.Unflatten(p, "."), nil
}

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}
