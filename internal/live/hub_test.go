package live

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PancyStudios/PancyDash/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

func mockClient(hub *Hub, u *session.User) *Client {
	return &Client{hub: hub, user: u, send: make(chan []byte, sendBufferSize)}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(nil)
	c1 := mockClient(hub, &session.User{ID: "1"})
	c2 := mockClient(hub, &session.User{ID: "2"})

	hub.Register(c1)
	hub.Register(c2)
	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("ClientCount() = %v, want %v", got, 2)
	}

	hub.Unregister(c1)
	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("ClientCount() = %v, want %v", got, 1)
	}
}

func TestPublishAudience(t *testing.T) {
	hub := NewHub(nil)
	admin := mockClient(hub, &session.User{ID: "admin", IsAdmin: true})
	owner := mockClient(hub, &session.User{ID: "owner"})
	other := mockClient(hub, &session.User{ID: "other"})
	for _, c := range []*Client{admin, owner, other} {
		hub.Register(c)
	}

	hub.Publish(Event{Type: EventCommandResult, UserID: "owner"})
	hub.Publish(Event{Type: EventPremium, AdminOnly: true})
	hub.Publish(Event{Type: EventDevMode})

	tests := []struct {
		name string
		c    *Client
		want int
	}{
		{"admin sees everything", admin, 3},
		{"owner sees own and public", owner, 2},
		{"other sees public only", other, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(tt.c.send); got != tt.want {
				t.Errorf("queued = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(nil)
	c := mockClient(hub, &session.User{ID: "1"})
	hub.Register(c)

	for i := 0; i < sendBufferSize+5; i++ {
		hub.Publish(Event{Type: EventDevMode})
	}
	if got := len(c.send); got != sendBufferSize {
		t.Errorf("queued = %v, want %v", got, sendBufferSize)
	}
}

func TestHandlerDeliversEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil)

	r := gin.New()
	r.GET("/api/live", func(c *gin.Context) {
		session.Set(c, &session.User{ID: "42"})
		c.Next()
	}, hub.Handler())

	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	hub.Publish(Event{Type: EventCommandResult, UserID: "42", Data: map[string]string{"status": "completed"}})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error: %v", err)
	}

	var got struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if got.Type != EventCommandResult || got.Data["status"] != "completed" {
		t.Errorf("event = %+v, want command_result/completed", got)
	}
}

func TestHandlerRequiresSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil)
	r := gin.New()
	r.GET("/api/live", hub.Handler())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/live", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %v, want %v", w.Code, http.StatusUnauthorized)
	}
}
