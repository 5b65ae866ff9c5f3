package display

import (
	"context"
	"errors"
	"sync"

	"secureentry/internal/models"
)

type wsConnection interface {
	Close() error
	WriteJSON(v any) error
	ReadJSON(v any) error
}

type messageHub interface {
	Join(viewerID string) chan models.ServerMessage
	Leave(viewerID string)
	Dispatch(viewerID string, msg models.ClientMessage)
}

// Connection pumps hub messages to one viewer and viewer requests to the hub.
type Connection struct {
	ws         wsConnection
	hub        messageHub
	viewerID   string
	requests chan models.ClientMessage
	updates chan models.ServerMessage
	errs    chan error
}

// NewConnection joins the hub as viewerID. The hub queues the last published
// view on the returned connection right away, so a display that connects
// mid-ticket sees the current state before Handle writes anything else.
func NewConnection(hub messageHub, ws wsConnection, viewerID string) *Connection {
	return &Connection{
		ws:         ws,
		hub:        hub,
		viewerID:   viewerID,
		requests: make(chan models.ClientMessage),
		updates: hub.Join(viewerID),
		errs:    make(chan error, 2),
	}
}

// Handle serves the viewer until ctx ends, the socket fails or the hub drops
// the viewer. Refresh and time requests go to the hub; state and time
// messages from the hub are written to the socket. It returns nil on a normal
// end and the socket error otherwise. On return the viewer has left the hub
// and the socket is closed.
func (c *Connection) Handle(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		close(c.requests)
		close(c.errs)
		c.hub.Leave(c.viewerID)
	}()

	var wg sync.WaitGroup
	wg.Go(func() {
		c.errs <- c.readRequests(ctx)
		cancel()
	})

	wg.Go(func() {
		c.errs <- c.relay(ctx)
		cancel()
	})

	var err error
	select {
	case err = <-c.errs:
	case <-ctx.Done():
		// The goroutine that cancelled may have left its error behind.
		select {
		case err = <-c.errs:
		default:
		}
	}
	_ = c.ws.Close()
	wg.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// readRequests decodes viewer requests until the socket fails.
func (c *Connection) readRequests(ctx context.Context) error {
	for {
		var msg models.ClientMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			return err
		}
		select {
		case c.requests <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// relay returns nil once the hub closes the viewer's channel.
func (c *Connection) relay(ctx context.Context) error {
	for {
		select {
		case msg := <-c.requests:
			c.hub.Dispatch(c.viewerID, msg)
		case msg, ok := <-c.updates:
			if !ok {
				return nil
			}
			if err := c.ws.WriteJSON(msg); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}
