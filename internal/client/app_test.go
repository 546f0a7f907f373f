package client

import (
	"bytes"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v2"

	"remotepad/internal/pairing"
	"remotepad/internal/protocol"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func issue(t *testing.T, p pairing.Payload) string {
	t.Helper()
	codec, err := codecFromFlags(testKey, "", string(pairing.DefaultMode))
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	code, err := codec.Issue(p)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return code
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"padctl"}, args...))
	return out.String(), err
}

func TestDecode(t *testing.T) {
	code := issue(t, pairing.Payload{Address: "192.168.1.5", Port: 3001, Secret: "abc"})

	out, err := run(t, "--key", testKey, "decode", code)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, want := range []string{"Address: 192.168.1.5", "Port:    3001", "Secret:  abc"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	code := issue(t, pairing.Payload{Address: "192.168.1.5", Port: 3001, Secret: "abc"})

	if _, err := run(t, "decode", code); !errors.Is(err, ErrNoKey) {
		t.Errorf("Expected ErrNoKey, got %v", err)
	}
	if _, err := run(t, "--passphrase", "wrong", "decode", code); !errors.Is(err, pairing.ErrInvalidCode) {
		t.Errorf("Expected ErrInvalidCode for the wrong key, got %v", err)
	}
	if _, err := run(t, "--key", testKey, "decode"); err == nil {
		t.Error("Expected an error without a code")
	}
}

func TestEventData(t *testing.T) {
	v, err := eventData(`{"dx":10,"dy":-2}`)
	if err != nil {
		t.Fatalf("eventData: %v", err)
	}
	m, ok := v.(map[string]interface{})
	if !ok || m["dx"] != float64(10) || m["dy"] != float64(-2) {
		t.Errorf("Unexpected data %#v", v)
	}
	if v, err := eventData(""); v != nil || err != nil {
		t.Errorf("Expected no data, got %v %v", v, err)
	}
	if _, err := eventData("{nope"); err == nil {
		t.Error("Expected invalid JSON to fail")
	}
}

type recordingSender struct {
	frames []string
}

func (s *recordingSender) Send(t protocol.EventType, data any) error {
	b, err := protocol.Encode(t, data)
	s.frames = append(s.frames, string(b))
	return err
}

func TestForwardKeys(t *testing.T) {
	s := &recordingSender{}
	if err := forwardKeys(strings.NewReader("hI\x1d"), s); err != nil {
		t.Fatalf("forwardKeys: %v", err)
	}
	want := []string{
		`{"event":"keyTap","data":{"key":"h"}}`,
		`{"event":"keyTap","data":{"key":"i","modifiers":["shift"]}}`,
		`{"event":"blur"}`,
	}
	if strings.Join(s.frames, "\n") != strings.Join(want, "\n") {
		t.Errorf("Expected frames\n%s\ngot\n%s", strings.Join(want, "\n"), strings.Join(s.frames, "\n"))
	}
}

func TestTypeCommand(t *testing.T) {
	frames := make(chan string, 4)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer abc" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"ready","data":{"epoch":1}}`))
		for {
			_, msg, err := ws.ReadMessage()
			if err != nil {
				return
			}
			frames <- string(msg)
		}
	}))
	defer srv.Close()

	host, port, _ := net.SplitHostPort(srv.Listener.Addr().String())
	p, _ := strconv.Atoi(port)
	code := issue(t, pairing.Payload{Address: host, Port: p, Secret: "abc"})

	if _, err := run(t, "--key", testKey, "type", code, "hello"); err != nil {
		t.Fatalf("type: %v", err)
	}
	select {
	case f := <-frames:
		if f != `{"event":"type","data":{"text":"hello"}}` {
			t.Errorf("Unexpected frame %s", f)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a type frame")
	}
}
