package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// value reads the current value of a counter or gauge.
func value(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	switch {
	case pb.Counter != nil:
		return pb.Counter.GetValue()
	case pb.Gauge != nil:
		return pb.Gauge.GetValue()
	}
	t.Fatalf("metric is neither counter nor gauge")
	return 0
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.CodeIssued()
	m.SessionRegenerated(3)
	m.AuthAttempt(AuthOK)
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.FrameReceived(true)
	m.CommandExecuted("click", errors.New("boom"))
}

func TestRecording(t *testing.T) {
	m := New()

	m.CodeIssued()
	m.CodeIssued()
	m.SessionRegenerated(7)
	m.AuthAttempt(AuthRejected)
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.FrameReceived(false)
	m.FrameReceived(true)
	m.CommandExecuted("click", nil)
	m.CommandExecuted("click", errors.New("boom"))

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"codes issued", value(t, m.codesIssued), 2},
		{"epoch", value(t, m.sessionEpoch), 7},
		{"rejected", value(t, m.authAttempts.WithLabelValues(AuthRejected)), 1},
		{"active", value(t, m.activeConnections), 1},
		{"frames", value(t, m.framesReceived), 2},
		{"malformed", value(t, m.framesMalformed), 1},
		{"click commands", value(t, m.commands.WithLabelValues("click")), 2},
		{"click failures", value(t, m.actuatorFailures.WithLabelValues("click")), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.CodeIssued()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, name := range []string{"remotepad_pairing_codes_issued_total", "go_goroutines"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("exposition missing %s", name)
		}
	}
}
