package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
	"github.com/tidwall/gjson"

	"remotepad/internal/pairing"
	"remotepad/internal/protocol"
)

var (
	// ErrUnauthorized is returned when the host refuses the secret
	ErrUnauthorized = errors.New("host refused the secret")

	// ErrRateLimited is returned when the host is limiting this client
	ErrRateLimited = errors.New("host is rate limiting this client")

	// ErrClosed is returned by Send after the connection ended
	ErrClosed = errors.New("connection closed")
)

// Client is a controller connection to a host
type Client struct {
	conn   *websocket.Conn
	logger hclog.Logger
	epoch  uint64

	send      chan []byte
	closing   chan struct{}
	closeReq  sync.Once
	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// Dial connects to the host described by a pairing payload and waits for
// its ready frame.
func Dial(ctx context.Context, p pairing.Payload, logger hclog.Logger) (*Client, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.Named("client")

	u := url.URL{Scheme: "ws", Host: net.JoinHostPort(p.Address, strconv.Itoa(p.Port)), Path: "/ws"}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+p.Secret)

	logger.Debug("connecting", "url", u.String())
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			switch resp.StatusCode {
			case http.StatusUnauthorized:
				return nil, ErrUnauthorized
			case http.StatusTooManyRequests:
				return nil, ErrRateLimited
			}
		}
		return nil, fmt.Errorf("dial %s: %w", u.Host, err)
	}

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("waiting for ready: %w", err)
	}
	ready := gjson.ParseBytes(msg)
	if ready.Get("event").String() != string(protocol.EventReady) {
		conn.Close()
		return nil, fmt.Errorf("unexpected first frame %q", ready.Get("event").String())
	}

	c := &Client{
		conn:    conn,
		logger:  logger,
		epoch:   ready.Get("data.epoch").Uint(),
		send:    make(chan []byte, 100),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	logger.Info("connected to host", "host", u.Host, "epoch", c.epoch)

	go c.writePump()
	go c.readPump()
	return c, nil
}

// Epoch returns the session epoch announced by the host
func (c *Client) Epoch() uint64 {
	return c.epoch
}

// Done is closed when the connection ends
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns why the connection ended, or nil while it is open
func (c *Client) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Send queues an event frame
func (c *Client) Send(t protocol.EventType, data any) error {
	b, err := protocol.Encode(t, data)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- b:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Close flushes queued frames and ends the connection with a normal close
// frame
func (c *Client) Close() error {
	c.closeReq.Do(func() { close(c.closing) })
	select {
	case <-c.done:
	case <-time.After(time.Second):
		c.finish(nil)
	}
	return nil
}

func (c *Client) finish(err error) {
	c.closeOnce.Do(func() {
		c.err = err
		close(c.done)
		c.conn.Close()
	})
}

func (c *Client) readPump() {
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				var ce *websocket.CloseError
				errors.As(err, &ce)
				c.logger.Info("host closed the connection", "reason", ce.Text)
				c.finish(fmt.Errorf("%w: %s", ErrClosed, ce.Text))
				return
			}
			c.finish(err)
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		c.logger.Trace("frame", "event", gjson.GetBytes(data, "event").String())
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second) // Ping ticker
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("write error", "error", err)
				c.finish(err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.finish(err)
				return
			}

		case <-c.closing:
			c.flush()
			return

		case <-c.done:
			return
		}
	}
}

// flush writes what is still queued followed by the close frame
func (c *Client) flush() {
	c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.finish(err)
				return
			}
		default:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			c.conn.WriteMessage(websocket.CloseMessage, msg)
			c.finish(nil)
			return
		}
	}
}
