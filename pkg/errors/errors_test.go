package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

var errSentinel = stderrors.New("limit reached")

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"client error", BadRequest("Invalid enabled value"), http.StatusBadRequest, "Invalid enabled value"},
		{"wrapped client error", fmt.Errorf("creating: %w", Forbidden("nope")), http.StatusForbidden, "nope"},
		{"internal error", stderrors.New("connection refused"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := StatusOf(tt.err)
			if status != tt.wantStatus {
				t.Errorf("StatusOf() status = %v, want %v", status, tt.wantStatus)
			}
			if msg != tt.wantMsg {
				t.Errorf("StatusOf() message = %v, want %v", msg, tt.wantMsg)
			}
		})
	}
}

func TestWrapMatchesSentinel(t *testing.T) {
	err := Wrap(http.StatusBadRequest, "Standard users can only create 1 custom command.", errSentinel)
	if !stderrors.Is(err, errSentinel) {
		t.Error("errors.Is should match the wrapped sentinel")
	}
}

func TestGinRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinRecovery())
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %v, want %v", w.Code, http.StatusInternalServerError)
	}
}

func TestShutdownOnExcessiveErrors(t *testing.T) {
	var mu sync.Mutex
	shutdownCalled := false
	exitCode := -1

	h := &ErrorHandler{
		stopChan:      make(chan struct{}),
		shutdownFunc:  func() { mu.Lock(); shutdownCalled = true; mu.Unlock() },
		exitFunc:      func(code int) { mu.Lock(); exitCode = code; mu.Unlock() },
		maxErrors:     2,
		resetInterval: time.Hour,
		checkInterval: 10 * time.Millisecond,
	}
	h.start()
	defer h.Stop()

	for i := 0; i < 3; i++ {
		h.IncrementError()
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := shutdownCalled && exitCode == 1
		mu.Unlock()
		if done {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("expected shutdown and exit(1) after exceeding the error budget")
}
