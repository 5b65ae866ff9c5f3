package display

import (
	"testing"
	"time"

	"secureentry/internal/models"
)

type fakeClock struct {
	now    time.Time
	offset time.Duration
	synced bool
}

func (f fakeClock) Now() time.Time                 { return f.now }
func (f fakeClock) Offset() (time.Duration, bool) { return f.offset, f.synced }
func (f fakeClock) Synced() bool                  { return f.synced }

func receive(t *testing.T, ch chan models.ServerMessage) models.ServerMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for message")
		return models.ServerMessage{}
	}
}

func expectNothing(t *testing.T, ch chan models.ServerMessage) {
	t.Helper()
	select {
	case msg := <-ch:
		t.Errorf("unexpected message %+v", msg)
	default:
	}
}

func TestHub_Lifecycle(t *testing.T) {
	h := NewHub(nil)

	// 1. Join before anything is published
	ch1 := h.Join("v1")
	ch2 := h.Join("v2")
	if ch1 == nil || ch2 == nil {
		t.Fatal("Join returned nil channel")
	}
	expectNothing(t, ch1)
	if h.Viewers() != 2 {
		t.Errorf("Expected 2 viewers, got %d", h.Viewers())
	}

	// 2. Publish fans out
	view := models.StateView{Kind: models.StateKindRotatingPDF417, Payload: "T::1", Image: []byte{1}}
	h.Publish(view)
	for _, ch := range []chan models.ServerMessage{ch1, ch2} {
		msg := receive(t, ch)
		if msg.Type != models.ServerMessageTypeState || msg.State == nil || msg.State.Payload != "T::1" {
			t.Errorf("unexpected message %+v", msg)
		}
	}

	// 3. Identical views are not repeated
	h.Publish(view)
	expectNothing(t, ch1)

	view.Parity = true
	h.Publish(view)
	if msg := receive(t, ch1); !msg.State.Parity {
		t.Errorf("expected parity change, got %+v", msg.State)
	}
	receive(t, ch2)

	// 4. Late joiner gets the last view
	ch3 := h.Join("v3")
	if msg := receive(t, ch3); msg.State == nil || !msg.State.Parity {
		t.Errorf("late joiner got %+v", msg)
	}

	// 5. Leave closes the channel
	h.Leave("v1")
	if _, ok := <-ch1; ok {
		t.Error("expected closed channel after Leave")
	}
	if h.Viewers() != 2 {
		t.Errorf("Expected 2 viewers, got %d", h.Viewers())
	}
	h.Leave("v1")

	last, ok := h.Last()
	if !ok || last.Payload != "T::1" {
		t.Errorf("unexpected last view %+v", last)
	}
}

func TestHub_Dispatch(t *testing.T) {
	clock := fakeClock{now: time.UnixMilli(1_700_000_000_123), offset: 1500 * time.Millisecond, synced: true}
	h := NewHub(clock)
	ch := h.Join("v1")

	// Nothing published yet
	h.Dispatch("v1", models.ClientMessage{Type: models.ClientMessageTypeRefresh})
	expectNothing(t, ch)

	h.Publish(models.StateView{Kind: models.StateKindQRCode, Payload: "123456789012"})
	receive(t, ch)

	h.Dispatch("v1", models.ClientMessage{Type: models.ClientMessageTypeRefresh})
	if msg := receive(t, ch); msg.State == nil || msg.State.Payload != "123456789012" {
		t.Errorf("unexpected refresh reply %+v", msg)
	}

	h.Dispatch("v1", models.ClientMessage{Type: models.ClientMessageTypeTime})
	msg := receive(t, ch)
	if msg.Type != models.ServerMessageTypeTime || msg.Time == nil {
		t.Fatalf("unexpected time reply %+v", msg)
	}
	if msg.Time.Now != 1_700_000_000_123 || msg.Time.Offset != 1500 || !msg.Time.Synced {
		t.Errorf("unexpected time view %+v", msg.Time)
	}

	// Unknown viewers and message types are ignored
	h.Dispatch("nobody", models.ClientMessage{Type: models.ClientMessageTypeRefresh})
	h.Dispatch("v1", models.ClientMessage{Type: "dance"})
	expectNothing(t, ch)
}

func TestHub_SlowViewerDoesNotBlock(t *testing.T) {
	h := NewHub(nil)
	h.Join("slow")

	done := make(chan struct{})
	go func() {
		for i := range 100 {
			h.Publish(models.StateView{Kind: models.StateKindRotatingPDF417, Payload: string(rune('a' + i%26)), Parity: i%2 == 0})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Publish blocked on a slow viewer")
	}
}
