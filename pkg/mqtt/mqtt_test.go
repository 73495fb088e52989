package mqtt

import (
	"testing"
	"time"
)

func TestTopicMatch(t *testing.T) {
	tests := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"pancy/dashboard/commands/abc/status", "pancy/dashboard/commands/abc/status", true},
		{"pancy/dashboard/+/abc/status", "pancy/dashboard/process/abc/status", true},
		{"pancy/dashboard/#", "pancy/dashboard/commands/abc/status", true},
		{"pancy/dashboard/#", "pancy/dashboard", true},
		{"pancy/dashboard/+", "pancy/dashboard/commands/new", false},
		{"pancy/dashboard/commands/abc/status", "pancy/dashboard/commands/xyz/status", false},
		{"pancy/dashboard/commands", "pancy/dashboard", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.topic, func(t *testing.T) {
			if got := topicMatch(tt.pattern, tt.topic); got != tt.want {
				t.Errorf("topicMatch(%q, %q) = %v, want %v", tt.pattern, tt.topic, got, tt.want)
			}
		})
	}
}

func TestStatusTopic(t *testing.T) {
	if got := StatusTopic("commands", "42"); got != "pancy/dashboard/commands/42/status" {
		t.Errorf("StatusTopic() = %v, want %v", got, "pancy/dashboard/commands/42/status")
	}
	if got := RequestTopic("process"); got != "pancy/dashboard/process/new" {
		t.Errorf("RequestTopic() = %v, want %v", got, "pancy/dashboard/process/new")
	}
}

func TestWatchReceivesOnlyItsRequest(t *testing.T) {
	mc := newRouter("test")

	signal, cancel := mc.Watch("commands", "abc")
	defer cancel()

	mc.dispatch(StatusTopic("commands", "other"), []byte(`{}`))
	select {
	case <-signal:
		t.Fatal("watch fired for a different request")
	default:
	}

	mc.dispatch(StatusTopic("commands", "abc"), []byte(`{}`))
	mc.dispatch(StatusTopic("commands", "abc"), []byte(`{}`))
	select {
	case <-signal:
	case <-time.After(time.Second):
		t.Fatal("watch did not fire for its request")
	}
}

func TestRouteCancel(t *testing.T) {
	mc := newRouter("test")
	calls := 0
	cancel := mc.Route(TopicRoot+"/#", func(string, []byte) { calls++ })

	mc.dispatch(RequestTopic("commands"), nil)
	cancel()
	mc.dispatch(RequestTopic("commands"), nil)

	if calls != 1 {
		t.Errorf("calls = %v, want %v", calls, 1)
	}
}

func TestPublishWithoutBroker(t *testing.T) {
	mc := newRouter("test")
	if err := mc.Publish("pancy/dashboard/x", map[string]string{"a": "b"}); err == nil {
		t.Error("Publish() should fail without a connected client")
	}
	// Announce must swallow the error
	mc.Announce("commands", "abc")
}
