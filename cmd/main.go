// remotepad - LAN remote touchpad and keyboard host
// Issues a pairing code, accepts authenticated controllers and injects their
// input into the local desktop session.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"

	"remotepad/internal/api"
	"remotepad/internal/autostart"
	"remotepad/internal/config"
	"remotepad/internal/input"
	"remotepad/internal/logging"
	"remotepad/internal/metrics"
	"remotepad/internal/network"
	"remotepad/internal/osutils"
	"remotepad/internal/pairing"
	"remotepad/internal/session"
	"remotepad/internal/translator"
	"remotepad/internal/tray"
	"remotepad/internal/ui"
)

var (
	version    = "0.3.0"
	configPath = flag.String("config", "", "Path to the configuration file")
	logLevel   = flag.String("log-level", "", "Log level (trace, debug, info, warn, error)")
	backend    = flag.String("backend", "", "Input back-end (auto, log, xdotool, coregraphics, sendinput)")
	basePort   = flag.Int("port", 0, "First port probed for the session listener")
	dryRun     = flag.Bool("dry-run", false, "Log commands instead of injecting them")
	noTray     = flag.Bool("no-tray", false, "Run without the system tray")
	openPage   = flag.Bool("ui", false, "Open the pairing page on start")
	autoStart  = flag.String("autostart", "", "Manage login start: on, off or status")
	showVer    = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("remotepad version %s\n", version)
		return
	}

	if *autoStart != "" {
		if err := manageAutostart(*autoStart); err != nil {
			fmt.Fprintf(os.Stderr, "autostart: %v\n", err)
			os.Exit(1)
		}
		return
	}

	bootLogger := logging.New("remotepad", logging.Options{})

	cfgMgr, err := config.NewManager(*configPath, bootLogger)
	if err != nil {
		bootLogger.Error("failed to initialize config", "error", err)
		os.Exit(1)
	}
	cfgMgr.SetOverrides(overrides())
	if err := cfgMgr.Load(); err != nil {
		bootLogger.Error("failed to load config", "path", cfgMgr.Path(), "error", err)
		os.Exit(1)
	}

	cfg := cfgMgr.Get()
	logger := logging.New("remotepad", cfg.LoggingOptions())
	osutils.SetLogger(logger)

	cfgMgr.RegisterChangeCallback(func(c *config.Config) {
		logger.SetLevel(logging.ParseLevel(c.Log.Level))
	})
	if w, err := cfgMgr.Watch(); err != nil {
		logger.Warn("config file will not be watched", "path", cfgMgr.Path(), "error", err)
	} else {
		defer w.Stop()
	}

	if err := runService(cfgMgr, logger); err != nil {
		logger.Error("service failed", "error", err)
		os.Exit(1)
	}
}

func manageAutostart(action string) error {
	var args []string
	if *configPath != "" {
		args = append(args, "-config", *configPath)
	}
	l, err := autostart.Current(args...)
	if err != nil {
		return err
	}
	path, err := l.Path()
	if err != nil {
		return err
	}

	switch action {
	case "on":
		if err := l.Enable(); err != nil {
			return err
		}
		fmt.Printf("Autostart enabled: %s\n", path)
	case "off":
		if err := l.Disable(); err != nil {
			return err
		}
		fmt.Println("Autostart disabled")
	case "status":
		fmt.Printf("Autostart enabled: %v (%s)\n", l.IsEnabled(), path)
	default:
		return fmt.Errorf("unknown action %q, expected on, off or status", action)
	}
	return nil
}

// overrides collects the flags that were set explicitly, keyed by config path
func overrides() map[string]any {
	values := make(map[string]any)
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-level":
			values["log.level"] = *logLevel
		case "backend":
			values["actuator.backend"] = *backend
		case "port":
			values["server.base_port"] = *basePort
		case "dry-run":
			if *dryRun {
				values["actuator.backend"] = input.BackendLog
			}
		}
	})
	return values
}

func runService(cfgMgr *config.Manager, logger hclog.Logger) error {
	cfg := cfgMgr.Get()
	logger.Info("remotepad starting", "version", version, "config", cfgMgr.Path())

	key, ephemeral, err := pairing.ResolveKey(cfg.Pairing.Key, cfg.Pairing.Passphrase)
	if err != nil {
		return err
	}
	mode, err := pairing.ParseMode(cfg.Pairing.Cipher)
	if err != nil {
		return err
	}
	codec, err := pairing.NewCodec(key, mode)
	if err != nil {
		return err
	}
	if ephemeral {
		logger.Warn("no pairing key configured, using a key for this run only")
		fmt.Printf("Pairing key: %s\n", hex.EncodeToString(key))
	}

	actuator, err := input.New(cfg.Actuator.Backend, logger)
	if err != nil {
		return err
	}

	m := metrics.New()
	sessions := session.NewManager(cfg.SessionOptions(network.AdvertiseAddress), logger)
	gate := session.NewGate(sessions, cfg.GateOptions(), logger)

	server := api.NewServer(api.Config{
		Sessions:      sessions,
		Gate:          gate,
		Actuator:      actuator,
		Metrics:       m,
		Logger:        logger,
		Input:         func() translator.Config { return cfgMgr.Get().TranslatorConfig() },
		ExposeMetrics: cfg.Server.Metrics,
	})

	h := &host{
		server:   server,
		sessions: sessions,
		codec:    codec,
		metrics:  m,
		logger:   logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, err := server.Start(ctx)
	if err != nil {
		return err
	}
	h.announce(sess)

	page := ui.NewServer(h, logger)
	if err := page.Start(); err != nil {
		logger.Warn("pairing page unavailable", "error", err)
	} else {
		defer page.Stop()
		fmt.Printf("Pairing page: %s\n", page.URL())
		if *openPage {
			page.Open()
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if *noTray {
		logger.Info("remotepad running, press Ctrl+C to stop")
		<-sigCh
	} else {
		t := tray.New("remotepad - remote touchpad host")
		statusID := t.BuildHostMenu(h.status(), tray.Actions{
			ShowPairing: page.Open,
			Regenerate: func() {
				if err := h.Regenerate(ctx); err != nil {
					logger.Error("regeneration failed", "error", err)
				}
			},
			Quit: t.Stop,
		})
		h.setOnChange(func() { t.SetItemTitle(statusID, h.status()) })

		go func() {
			<-sigCh
			t.Stop()
		}()

		logger.Info("remotepad running, press Ctrl+C to stop")
		t.Run()
	}

	logger.Info("shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	return server.Shutdown(shutdownCtx)
}

// host ties the session server to the code issued for its current session
type host struct {
	server   *api.Server
	sessions *session.Manager
	codec    *pairing.Codec
	metrics  *metrics.Metrics
	logger   hclog.Logger
	onChange func()

	mu    sync.Mutex
	epoch uint64
	code  string
}

// issue returns the pairing code of sess, issuing one per epoch
func (h *host) issue(sess *session.Session) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.code != "" && h.epoch == sess.Epoch {
		return h.code, nil
	}
	code, err := h.codec.Issue(sess.Payload())
	if err != nil {
		return "", err
	}
	h.metrics.CodeIssued()
	h.epoch, h.code = sess.Epoch, code
	return code, nil
}

func (h *host) announce(sess *session.Session) {
	code, err := h.issue(sess)
	if err != nil {
		h.logger.Error("failed to issue pairing code", "error", err)
		return
	}
	h.logger.Info("session issued", "address", sess.Address, "port", sess.Port, "epoch", sess.Epoch)
	fmt.Printf("Pairing code: %s\n", code)

	h.mu.Lock()
	onChange := h.onChange
	h.mu.Unlock()
	if onChange != nil {
		onChange()
	}
}

func (h *host) setOnChange(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = fn
}

func (h *host) status() string {
	sess := h.sessions.Current()
	if sess == nil {
		return "No session"
	}
	return fmt.Sprintf("Session %d on %s:%d", sess.Epoch, sess.Address, sess.Port)
}

// Pairing implements ui.Host
func (h *host) Pairing() (ui.Pairing, error) {
	sess := h.sessions.Current()
	if sess == nil {
		return ui.Pairing{}, session.ErrNoSession
	}
	code, err := h.issue(sess)
	if err != nil {
		return ui.Pairing{}, err
	}
	return ui.Pairing{
		Code:        code,
		Address:     sess.Address,
		Port:        sess.Port,
		Epoch:       sess.Epoch,
		Cipher:      string(h.codec.Mode()),
		Connections: h.server.Connections(),
	}, nil
}

// Regenerate implements ui.Host
func (h *host) Regenerate(ctx context.Context) error {
	sess, err := h.server.Regenerate(ctx)
	if err != nil {
		return err
	}
	h.announce(sess)
	return nil
}
