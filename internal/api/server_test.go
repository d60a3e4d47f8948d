package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bryanchriswhite/grab/internal/config"
	"github.com/bryanchriswhite/grab/internal/loop"
	"github.com/gorilla/websocket"
)

type fakeController struct {
	mu     sync.Mutex
	queued []loop.Command
	full   bool
	state  loop.State
}

func (c *fakeController) Enqueue(cmd loop.Command) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return false
	}
	c.queued = append(c.queued, cmd)
	return true
}

func (c *fakeController) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queued)
}

func (c *fakeController) State() loop.State {
	return c.state
}

type staticConfig struct{ cfg *config.Config }

func (s staticConfig) Get() *config.Config { return s.cfg }

func newTestServer(ctrl *fakeController) (*Server, *httptest.Server) {
	s := NewServer(ctrl, staticConfig{config.Defaults()})
	return s, httptest.NewServer(s.Handler())
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(&fakeController{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || body["status"] != "healthy" {
		t.Errorf("status %d body %v", resp.StatusCode, body)
	}
}

func TestStateReturnsSnapshot(t *testing.T) {
	ctrl := &fakeController{state: loop.State{Source: "camera 0", Kind: "device", Recording: true, Steps: 7}}
	_, ts := newTestServer(ctrl)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var st loop.State
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Source != "camera 0" || !st.Recording || st.Steps != 7 {
		t.Errorf("state = %+v", st)
	}
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name   string
		full   bool
		status int
		queued int
	}{
		{"flip-h", false, http.StatusAccepted, 1},
		{"record", false, http.StatusAccepted, 1},
		{"explode", false, http.StatusNotFound, 0},
		{"quit", true, http.StatusServiceUnavailable, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &fakeController{full: tt.full}
			_, ts := newTestServer(ctrl)
			defer ts.Close()

			resp, err := http.Post(ts.URL+"/api/commands/"+tt.name, "application/json", nil)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if got := ctrl.count(); got != tt.queued {
				t.Errorf("queued %d commands, want %d", got, tt.queued)
			}
		})
	}
}

func TestCommandRequiresPost(t *testing.T) {
	_, ts := newTestServer(&fakeController{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/commands/quit")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestEventsStreamMessages(t *testing.T) {
	s, ts := newTestServer(&fakeController{})
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.hub.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	s.Publish("Saved a snapshot as 20240131235958.bmp.")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if string(msg) != "Saved a snapshot as 20240131235958.bmp." {
		t.Errorf("message = %q", msg)
	}
}

func TestEventsRejectForeignOrigin(t *testing.T) {
	_, ts := newTestServer(&fakeController{})
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	header := http.Header{"Origin": {"http://example.com"}}
	if _, _, err := websocket.DefaultDialer.Dial(wsURL, header); err == nil {
		t.Error("foreign origin accepted")
	}
}

func TestStartRefusesNonLoopback(t *testing.T) {
	s := NewServer(&fakeController{}, nil)
	err := s.Start(context.Background(), "0.0.0.0", 0)
	if !errors.Is(err, ErrNotLoopback) {
		t.Errorf("Start() = %v, want ErrNotLoopback", err)
	}
}

func TestHubDropsForSlowSubscribers(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	for i := 0; i < messageBuffer+5; i++ {
		h.Publish("x")
	}
	if len(ch) != messageBuffer {
		t.Errorf("buffered %d, want %d", len(ch), messageBuffer)
	}
	h.Unsubscribe(ch)
	if _, ok := <-drain(ch); ok {
		t.Error("channel not closed")
	}
}

// drain empties a closed channel and returns it
func drain(ch chan string) chan string {
	for len(ch) > 0 {
		<-ch
	}
	return ch
}
