package display

import (
	"bytes"
	"log/slog"
	"sync"
	"time"

	"secureentry/internal/models"
)

// TimeSource is the corrected clock shown to viewers.
type TimeSource interface {
	Now() time.Time
	Offset() (time.Duration, bool)
	Synced() bool
}

// Hub fans presentation states out to connected viewers.
type Hub struct {
	clock TimeSource

	// Map of viewerID -> Connection channel
	viewers map[string]chan models.ServerMessage

	// Last published view, sent to viewers on join
	last *models.StateView

	mu sync.RWMutex
}

func NewHub(clock TimeSource) *Hub {
	return &Hub{
		clock:   clock,
		viewers: make(map[string]chan models.ServerMessage),
	}
}

// Join registers a viewer and queues the current state for it.
func (h *Hub) Join(viewerID string) chan models.ServerMessage {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.viewers[viewerID]; ok {
		return ch
	}

	ch := make(chan models.ServerMessage, 16)
	h.viewers[viewerID] = ch

	if h.last != nil {
		view := *h.last
		ch <- models.ServerMessage{Type: models.ServerMessageTypeState, State: &view}
	}
	slog.Debug("display: viewer joined", "viewer", viewerID, "viewers", len(h.viewers))

	return ch
}

func (h *Hub) Leave(viewerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.viewers[viewerID]; ok {
		close(ch)
		delete(h.viewers, viewerID)
		slog.Debug("display: viewer left", "viewer", viewerID, "viewers", len(h.viewers))
	}
}

// Dispatch answers a viewer request.
func (h *Hub) Dispatch(viewerID string, msg models.ClientMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ch, ok := h.viewers[viewerID]
	if !ok {
		return
	}

	var reply models.ServerMessage
	switch msg.Type {
	case models.ClientMessageTypeRefresh:
		if h.last == nil {
			return
		}
		view := *h.last
		reply = models.ServerMessage{Type: models.ServerMessageTypeState, State: &view}
	case models.ClientMessageTypeTime:
		if h.clock == nil {
			return
		}
		tv := NewTimeView(h.clock)
		reply = models.ServerMessage{Type: models.ServerMessageTypeTime, Time: &tv}
	default:
		return
	}

	send(viewerID, ch, reply)
}

// Publish sends view to every viewer. A view equal to the last one is
// dropped.
func (h *Hub) Publish(view models.StateView) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.last != nil && sameView(*h.last, view) {
		return
	}
	h.last = &view

	for viewerID, ch := range h.viewers {
		v := view
		send(viewerID, ch, models.ServerMessage{Type: models.ServerMessageTypeState, State: &v})
	}
}

// Last returns the last published view.
func (h *Hub) Last() (models.StateView, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.last == nil {
		return models.StateView{}, false
	}
	return *h.last, true
}

// Viewers returns the number of connected viewers.
func (h *Hub) Viewers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// NewTimeView reports the corrected time of c.
func NewTimeView(c TimeSource) models.TimeView {
	offset, _ := c.Offset()
	return models.TimeView{
		Now:    c.Now().UnixMilli(),
		Offset: offset.Milliseconds(),
		Synced: c.Synced(),
	}
}

func send(viewerID string, ch chan models.ServerMessage, msg models.ServerMessage) {
	select {
	case ch <- msg:
	default:
		slog.Warn("display: viewer is not keeping up, dropping message", "viewer", viewerID, "type", msg.Type)
	}
}

func sameView(a, b models.StateView) bool {
	return a.Kind == b.Kind &&
		a.Format == b.Format &&
		a.Payload == b.Payload &&
		a.Parity == b.Parity &&
		a.Subtitle == b.Subtitle &&
		a.Message == b.Message &&
		a.Icon == b.Icon &&
		bytes.Equal(a.Image, b.Image)
}
