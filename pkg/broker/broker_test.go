package broker

import (
	"context"
	"testing"
	"time"
)

func TestMatchTopic(t *testing.T) {
	tests := []struct {
		filter string
		topic  string
		want   bool
	}{
		{"devices/dev-1/messages/events", "devices/dev-1/messages/events", true},
		{"devices/+/messages/events", "devices/dev-2/messages/events", true},
		{"devices/#", "devices/dev-1/messages/events", true},
		{"#", "anything/at/all", true},
		{"devices/+/messages/events", "devices/dev-1/messages/other", false},
		{"devices/dev-1", "devices/dev-1/messages", false},
		{"devices/+/messages", "devices/dev-1", false},
		{"devices/dev-1/messages", "devices/dev-2/messages", false},
	}

	for _, tt := range tests {
		t.Run(tt.filter+" vs "+tt.topic, func(t *testing.T) {
			if got := MatchTopic(tt.filter, tt.topic); got != tt.want {
				t.Errorf("MatchTopic(%q, %q) = %v, want %v", tt.filter, tt.topic, got, tt.want)
			}
		})
	}
}

func TestBrokerDefaults(t *testing.T) {
	b, err := New(0, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if b.Port() != DefaultPort {
		t.Errorf("Port() = %d, want %d", b.Port(), DefaultPort)
	}
	if b.URL() != "tcp://localhost:1883" {
		t.Errorf("URL() = %s", b.URL())
	}
	if b.IsRunning() {
		t.Error("IsRunning() = true before Start")
	}
}

func TestBrokerStartPublishStop(t *testing.T) {
	b, err := New(18831, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := b.Publish("t", []byte("x"), 0, false); err == nil {
		t.Error("Publish before Start succeeded")
	}

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := b.Start(context.Background()); err == nil {
		t.Error("second Start succeeded, want error")
	}

	received := make(chan string, 1)
	b.Subscribe("devices/+/messages/events", func(topic string, payload []byte) {
		received <- topic
	})

	if err := b.Publish("devices/dev-1/messages/events", []byte(`{"v":1}`), 0, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case topic := <-received:
		if topic != "devices/dev-1/messages/events" {
			t.Errorf("received topic = %s", topic)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("internal subscriber not notified")
	}

	stats := b.Stats()
	if !stats.Running || stats.MessageCount < 1 {
		t.Errorf("stats = %+v, want running with messages", stats)
	}

	if err := b.Stop(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if b.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
	// Stopping again is a no-op.
	if err := b.Stop(context.Background(), time.Second); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}
