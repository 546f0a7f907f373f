// Package session issues the ephemeral port and secret a client must present
// to control the host, and authenticates connection attempts against them.
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"

	"remotepad/internal/pairing"
)

// Session is one issued set of connection parameters. It is immutable once
// published; regeneration replaces it wholesale.
type Session struct {
	Address  string
	Port     int
	Secret   string
	Epoch    uint64
	IssuedAt time.Time
}

// Payload returns the pairing payload advertised for s.
func (s *Session) Payload() pairing.Payload {
	return pairing.Payload{Address: s.Address, Port: s.Port, Secret: s.Secret}
}

// Options configures a Manager.
type Options struct {
	// BindAddress is the interface the listener binds to.
	BindAddress string
	// BasePort is the first port probed.
	BasePort int
	// MaxPortAttempts bounds the number of ports probed.
	MaxPortAttempts int
	// SecretBytes is the number of random bytes in a secret.
	SecretBytes int
	// Advertise returns the address clients should dial. It is called on
	// every regeneration so a changed LAN address is picked up.
	Advertise func() string
}

// DefaultOptions returns the options the host starts with.
func DefaultOptions() Options {
	return Options{
		BindAddress:     "0.0.0.0",
		BasePort:        3000,
		MaxPortAttempts: 100,
		SecretBytes:     16,
	}
}

type listenFunc func(ctx context.Context, network, address string) (net.Listener, error)

// Manager owns the current session. Readers load it lock free; Regenerate is
// the single writer.
type Manager struct {
	opts   Options
	logger hclog.Logger
	listen listenFunc

	mu      sync.Mutex
	epoch   uint64
	current atomic.Pointer[Session]
}

// NewManager creates a manager. No session exists until Regenerate is called.
func NewManager(opts Options, logger hclog.Logger) *Manager {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if opts.MaxPortAttempts <= 0 {
		opts.MaxPortAttempts = 1
	}
	if opts.SecretBytes <= 0 {
		opts.SecretBytes = DefaultOptions().SecretBytes
	}
	var lc net.ListenConfig
	return &Manager{
		opts:   opts,
		logger: logger.Named("session"),
		listen: lc.Listen,
	}
}

// Current returns the active session, or nil before the first regeneration.
func (m *Manager) Current() *Session {
	return m.current.Load()
}

// Epoch returns the epoch of the active session.
func (m *Manager) Epoch() uint64 {
	if s := m.current.Load(); s != nil {
		return s.Epoch
	}
	return 0
}

// Regenerate binds a fresh port, generates a new secret and publishes the new
// session. The returned listener is already bound; the caller serves on it
// and owns closing it. The previous session stops authenticating as soon as
// this returns.
func (m *Manager) Regenerate(ctx context.Context) (*Session, net.Listener, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ln, err := m.bind(ctx)
	if err != nil {
		return nil, nil, err
	}

	secret, err := m.newSecret()
	if err != nil {
		ln.Close()
		return nil, nil, err
	}

	port := ln.Addr().(*net.TCPAddr).Port
	address := m.opts.BindAddress
	if m.opts.Advertise != nil {
		if a := m.opts.Advertise(); a != "" {
			address = a
		}
	}

	m.epoch++
	s := &Session{
		Address:  address,
		Port:     port,
		Secret:   secret,
		Epoch:    m.epoch,
		IssuedAt: time.Now(),
	}
	m.current.Store(s)

	m.logger.Info("session issued", "address", address, "port", port, "epoch", s.Epoch)
	return s, ln, nil
}

// bind probes ports upward from BasePort and keeps the first one that binds.
func (m *Manager) bind(ctx context.Context) (net.Listener, error) {
	var lastErr error
	for i := 0; i < m.opts.MaxPortAttempts; i++ {
		port := m.opts.BasePort + i
		if port > 65535 {
			break
		}
		addr := net.JoinHostPort(m.opts.BindAddress, strconv.Itoa(port))
		ln, err := m.listen(ctx, "tcp4", addr)
		if err == nil {
			return ln, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		m.logger.Debug("port busy, trying next", "port", port, "error", err)
		lastErr = err
	}
	return nil, fmt.Errorf("%w: tried %d ports from %d: %v",
		ErrPortUnavailable, m.opts.MaxPortAttempts, m.opts.BasePort, lastErr)
}

func (m *Manager) newSecret() (string, error) {
	b := make([]byte, m.opts.SecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Authenticate reports whether secret matches the current session. The
// comparison is constant time.
func (m *Manager) Authenticate(secret string) bool {
	_, ok := m.AuthenticateSession(secret)
	return ok
}

// AuthenticateSession is Authenticate returning the session the secret was
// checked against, so callers can tie a connection to its epoch.
func (m *Manager) AuthenticateSession(secret string) (*Session, bool) {
	s := m.current.Load()
	if s == nil || secret == "" {
		return nil, false
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.Secret)) != 1 {
		return nil, false
	}
	return s, true
}
