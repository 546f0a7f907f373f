// Package ui serves the local pairing page: the pairing code as text plus
// regenerate and display-sleep actions. It binds to loopback only.
package ui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"remotepad/internal/osutils"
)

// Pairing is what the page shows about the current session
type Pairing struct {
	Code        string `json:"code"`
	Address     string `json:"address"`
	Port        int    `json:"port"`
	Epoch       uint64 `json:"epoch"`
	Cipher      string `json:"cipher"`
	Connections int    `json:"connections"`
}

// Host is the process the page reports on and controls
type Host interface {
	Pairing() (Pairing, error)
	Regenerate(ctx context.Context) error
}

// Server provides the web-based pairing page
type Server struct {
	host     Host
	logger   hclog.Logger
	sleep    func() error
	listener net.Listener
	url      string
}

// NewServer creates a new UI server
func NewServer(host Host, logger hclog.Logger) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Server{
		host:   host,
		logger: logger.Named("ui"),
		sleep:  osutils.TurnOffDisplay,
	}
}

// Start binds a loopback port and serves the page in the background
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	s.listener = listener
	s.url = fmt.Sprintf("http://127.0.0.1:%d", listener.Addr().(*net.TCPAddr).Port)
	s.logger.Info("pairing page available", "url", s.url)

	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Error("pairing page stopped", "error", err)
		}
	}()
	return nil
}

// URL returns the address of the page once started
func (s *Server) URL() string {
	return s.url
}

// Open shows the page in the default browser
func (s *Server) Open() {
	if s.url == "" {
		return
	}
	openBrowser(s.logger, s.url)
}

// Stop stops the UI server
func (s *Server) Stop() error {
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Handler returns the HTTP handler of the page
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/pairing", s.handlePairing)
	mux.HandleFunc("/api/regenerate", s.sameOrigin(s.handleRegenerate))
	mux.HandleFunc("/api/sleep-display", s.sameOrigin(s.handleSleepDisplay))
	return s.loopbackHost(mux)
}

func openBrowser(logger hclog.Logger, url string) {
	var err error
	switch runtime.GOOS {
	case "darwin":
		err = exec.Command("open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		err = exec.Command("xdg-open", url).Start()
	}
	if err != nil {
		logger.Warn("failed to open browser", "error", err)
	}
}

// sameOrigin rejects state changing requests that are not POSTs from the
// page itself, so other sites open in the browser cannot trigger them.
func (s *Server) sameOrigin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if origin := r.Header.Get("Origin"); origin != "" && origin != s.url {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// loopbackHost rejects requests addressed to any host but the page's own
// loopback address, so a rebound DNS name cannot read the pairing code.
func (s *Server) loopbackHost(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Host != strings.TrimPrefix(s.url, "http://") {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	p, err := s.host.Pairing()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := tmpl.Execute(w, p); err != nil {
		s.logger.Error("failed to render page", "error", err)
	}
}

func (s *Server) handlePairing(w http.ResponseWriter, r *http.Request) {
	p, err := s.host.Pairing()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	json.NewEncoder(w).Encode(p)
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("regeneration requested from pairing page")
	if err := s.host.Regenerate(r.Context()); err != nil {
		s.logger.Error("regeneration failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.handlePairing(w, r)
}

func (s *Server) handleSleepDisplay(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("display sleep requested")
	if err := s.sleep(); err != nil {
		s.logger.Warn("display sleep failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

var tmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>remotepad pairing</title>
    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: linear-gradient(135deg, #1a1a2e 0%, #16213e 100%);
            color: #e2e8f0;
            min-height: 100vh;
            padding: 2rem;
        }
        .container { max-width: 720px; margin: 0 auto; }
        h1 { font-size: 1.75rem; margin-bottom: 1.5rem; color: #a5b4fc; }
        .card {
            background: rgba(255,255,255,0.05);
            border: 1px solid rgba(255,255,255,0.1);
            border-radius: 16px;
            padding: 1.5rem;
            margin-bottom: 1.5rem;
        }
        .code {
            font-family: ui-monospace, Menlo, Consolas, monospace;
            word-break: break-all;
            background: rgba(0,0,0,0.3);
            padding: 1rem;
            border-radius: 8px;
            user-select: all;
        }
        dl { display: grid; grid-template-columns: max-content 1fr; gap: 0.5rem 1rem; }
        dt { color: #94a3b8; }
        button {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            border: none; color: white; padding: 0.6rem 1.2rem;
            border-radius: 8px; cursor: pointer; margin-right: 0.5rem;
        }
    </style>
</head>
<body>
<div class="container">
    <h1>Pair a controller</h1>
    <div class="card">
        <p style="margin-bottom: 0.75rem">Scan or paste this code on the controller:</p>
        <div class="code" id="code">{{.Code}}</div>
    </div>
    <div class="card">
        <dl>
            <dt>Address</dt><dd id="address">{{.Address}}:{{.Port}}</dd>
            <dt>Session</dt><dd id="epoch">{{.Epoch}}</dd>
            <dt>Cipher</dt><dd>{{.Cipher}}</dd>
            <dt>Controllers</dt><dd id="connections">{{.Connections}}</dd>
        </dl>
    </div>
    <button onclick="regenerate()">Regenerate session</button>
    <button onclick="fetch('/api/sleep-display', {method: 'POST'})">Sleep display</button>
</div>
<script>
function render(p) {
    document.getElementById('code').textContent = p.code;
    document.getElementById('address').textContent = p.address + ':' + p.port;
    document.getElementById('epoch').textContent = p.epoch;
    document.getElementById('connections').textContent = p.connections;
}
async function regenerate() {
    const resp = await fetch('/api/regenerate', {method: 'POST'});
    if (resp.ok) render(await resp.json());
}
setInterval(async () => {
    const resp = await fetch('/api/pairing');
    if (resp.ok) render(await resp.json());
}, 5000);
</script>
</body>
</html>
`))
