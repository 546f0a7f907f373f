package api

import (
	"errors"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
	"github.com/oklog/ulid/v2"

	"remotepad/internal/metrics"
	"remotepad/internal/osutils"
	"remotepad/internal/protocol"
	"remotepad/internal/session"
	"remotepad/internal/translator"
)

const (
	maxFrameSize = 4096
	pongWait     = 60 * time.Second
	pingPeriod   = 50 * time.Second
	writeWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Controllers are browsers served from anywhere on the LAN; the secret
	// is the credential.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// hub tracks the live controller connections
type hub struct {
	logger    hclog.Logger
	clients   map[*conn]bool
	clientsMu sync.Mutex
}

func newHub(logger hclog.Logger) *hub {
	return &hub{
		logger:  logger,
		clients: make(map[*conn]bool),
	}
}

func (h *hub) register(c *conn) {
	h.clientsMu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.clientsMu.Unlock()
	c.logger.Info("controller connected", "remote", c.remote, "clients", n)
}

func (h *hub) unregister(c *conn) {
	h.clientsMu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.clientsMu.Unlock()
	c.logger.Info("controller disconnected", "clients", n)
}

func (h *hub) count() int {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	return len(h.clients)
}

// closeAll disconnects every controller and returns how many there were.
func (h *hub) closeAll(reason string) int {
	h.clientsMu.Lock()
	clients := make([]*conn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.Unlock()

	for _, c := range clients {
		c.close(reason)
	}
	return len(clients)
}

// conn is one authenticated controller. All input state is owned by the run
// goroutine.
type conn struct {
	id      string
	remote  string
	ws      *websocket.Conn
	session *session.Session
	handler *translator.Handler
	metrics *metrics.Metrics
	logger  hclog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, err := s.cfg.Gate.Admit(r.RemoteAddr, presentedSecret(r))
	switch {
	case errors.Is(err, session.ErrRateLimited):
		s.cfg.Metrics.AuthAttempt(metrics.AuthRateLimited)
		http.Error(w, "Too many failed attempts", http.StatusTooManyRequests)
		return
	case err != nil:
		s.cfg.Metrics.AuthAttempt(metrics.AuthRejected)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	s.cfg.Metrics.AuthAttempt(metrics.AuthOK)

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade connection", "remote", r.RemoteAddr, "error", err)
		return
	}

	id := ulid.Make().String()
	logger := s.cfg.Logger.Named("conn").With("conn_id", id, "epoch", sess.Epoch)
	c := &conn{
		id:      id,
		remote:  r.RemoteAddr,
		ws:      ws,
		session: sess,
		metrics: s.cfg.Metrics,
		logger:  logger,
		handler: translator.New(s.cfg.Actuator, s.cfg.Metrics, logger, s.cfg.Input()),
		send:    make(chan []byte, 64),
		done:    make(chan struct{}),
	}

	if !s.attach(c) {
		return
	}
	s.cfg.Metrics.ConnectionOpened()
	osutils.WakeUp()

	go c.writePump()
	go func() {
		defer func() {
			s.hub.unregister(c)
			s.cfg.Metrics.ConnectionClosed()
		}()
		c.run()
	}()
}

// attach registers c with the hub. A handshake admitted just before a
// regeneration would miss closeAll, so c is dropped when its epoch is no
// longer current.
func (s *Server) attach(c *conn) bool {
	s.hub.register(c)
	if c.session.Epoch != s.cfg.Sessions.Epoch() {
		c.close("session regenerated")
		s.hub.unregister(c)
		c.ws.Close()
		return false
	}
	return true
}

// run serializes decoded frames and modifier deadlines until the connection
// ends, then releases everything the handler still holds.
func (c *conn) run() {
	frames := make(chan []byte, 64)
	go c.readPump(frames)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer func() {
		timer.Stop()
		c.handler.Close()
		c.close("")
	}()

	c.write(protocol.EventReady, map[string]any{
		"epoch":    c.session.Epoch,
		"platform": runtime.GOOS,
	})

	for {
		var deadline <-chan time.Time
		if d, ok := c.handler.NextDeadline(); ok {
			timer.Reset(time.Until(d))
			deadline = timer.C
		} else {
			timer.Stop()
		}

		select {
		case msg, ok := <-frames:
			if !ok {
				return
			}
			c.handleFrame(msg, time.Now())
		case now := <-deadline:
			c.handler.Tick(now)
		case <-c.done:
			return
		}
	}
}

func (c *conn) handleFrame(msg []byte, now time.Time) {
	ev, err := protocol.Parse(msg)
	c.metrics.FrameReceived(err != nil)
	if err != nil {
		c.logger.Debug("dropping frame", "error", err)
		return
	}

	if ev.Type == protocol.EventPing {
		c.write(protocol.EventPong, nil)
		return
	}
	c.handler.Handle(ev, now)
}

// readPump pumps frames from the websocket connection to run.
func (c *conn) readPump(frames chan<- []byte) {
	defer close(frames)

	c.ws.SetReadLimit(maxFrameSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Debug("read error", "error", err)
			}
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(pongWait))

		select {
		case frames <- message:
		case <-c.done:
			return
		}
	}
}

// writePump pumps queued frames and keepalive pings to the websocket
// connection.
func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.close("")
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close("")
				return
			}

		case <-c.done:
			return
		}
	}
}

// write queues a frame. Frames are dropped when the client does not keep up.
func (c *conn) write(t protocol.EventType, data any) {
	b, err := protocol.Encode(t, data)
	if err != nil {
		c.logger.Error("failed to encode frame", "event", t, "error", err)
		return
	}
	select {
	case c.send <- b:
	case <-c.done:
	default:
		c.logger.Debug("send queue full, dropping frame", "event", t)
	}
}

// close ends the connection. A non-empty reason is sent to the client in a
// close frame.
func (c *conn) close(reason string) {
	c.closeOnce.Do(func() {
		if reason != "" {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
			c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		}
		close(c.done)
	})
}
