package session

import (
	"net"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/time/rate"
)

// GateOptions configures the failed-attempt limiter of a Gate.
type GateOptions struct {
	// FailureRate is the sustained number of failed attempts per second
	// allowed from one IP.
	FailureRate float64
	// FailureBurst is the number of failed attempts allowed in a burst.
	FailureBurst int
}

// DefaultGateOptions allows a burst of five failures, then one every two
// seconds.
func DefaultGateOptions() GateOptions {
	return GateOptions{FailureRate: 0.5, FailureBurst: 5}
}

// maxTrackedClients bounds the limiter table before idle entries are pruned.
const maxTrackedClients = 1024

// Gate authenticates connection attempts. It keeps no state for successful
// clients; failed attempts draw from a per-IP token bucket.
type Gate struct {
	sessions *Manager
	opts     GateOptions
	logger   hclog.Logger
	now      func() time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewGate creates a gate in front of sessions.
func NewGate(sessions *Manager, opts GateOptions, logger hclog.Logger) *Gate {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if opts.FailureBurst <= 0 {
		opts = DefaultGateOptions()
	}
	return &Gate{
		sessions: sessions,
		opts:     opts,
		logger:   logger.Named("gate"),
		now:      time.Now,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Admit checks secret for a client connecting from remoteAddr. It returns
// the session the client is admitted to, ErrRateLimited when the client has
// exhausted its failure budget, or ErrAuthentication.
func (g *Gate) Admit(remoteAddr, secret string) (*Session, error) {
	ip := clientIP(remoteAddr)
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	lim := g.limiters[ip]
	if lim != nil && lim.TokensAt(now) < 1 {
		g.logger.Warn("rejecting rate limited client", "ip", ip)
		return nil, ErrRateLimited
	}

	s, ok := g.sessions.AuthenticateSession(secret)
	if ok {
		return s, nil
	}

	if lim == nil {
		g.prune(now)
		lim = rate.NewLimiter(rate.Limit(g.opts.FailureRate), g.opts.FailureBurst)
		g.limiters[ip] = lim
	}
	lim.AllowN(now, 1)
	g.logger.Warn("authentication failed", "ip", ip)
	return nil, ErrAuthentication
}

// prune drops limiters that have refilled completely once the table is full.
func (g *Gate) prune(now time.Time) {
	if len(g.limiters) < maxTrackedClients {
		return
	}
	for ip, lim := range g.limiters {
		if lim.TokensAt(now) >= float64(g.opts.FailureBurst) {
			delete(g.limiters, ip)
		}
	}
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
