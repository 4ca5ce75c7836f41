// internal/handlers/gateway.go
package handlers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/jason-s-yu/rolecast/internal/notify"
	"github.com/sirupsen/logrus"
)

var errOutboundFull = errors.New("outbound buffer full")

// playerConn is one player's live websocket.
type playerConn struct {
	UserID   int64
	Username string
	RoomID   int64
	OutChan  chan interface{}
	Cancel   context.CancelFunc
	replaced atomic.Bool
}

// Gateway tracks connected players and implements notify.Transport over their sockets.
// A player not connected is unreachable.
type Gateway struct {
	mu     sync.RWMutex
	conns  map[int64]*playerConn
	logger *logrus.Logger
}

// NewGateway returns an empty gateway.
func NewGateway(logger *logrus.Logger) *Gateway {
	return &Gateway{conns: make(map[int64]*playerConn), logger: logger}
}

// register makes c the player's active connection and returns the one it replaced.
func (g *Gateway) register(c *playerConn) *playerConn {
	g.mu.Lock()
	defer g.mu.Unlock()
	prev := g.conns[c.UserID]
	g.conns[c.UserID] = c
	if prev != nil {
		prev.replaced.Store(true)
	}
	return prev
}

// unregister removes c unless a newer connection already replaced it.
func (g *Gateway) unregister(c *playerConn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conns[c.UserID] == c {
		delete(g.conns, c.UserID)
	}
}

// Connected reports whether the player has a live socket.
func (g *Gateway) Connected(userID int64) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.conns[userID]
	return ok
}

func (g *Gateway) SendToUser(ctx context.Context, userID int64, msg notify.Message) error {
	g.mu.RLock()
	c, ok := g.conns[userID]
	g.mu.RUnlock()
	if !ok {
		return notify.ErrUndeliverable
	}
	return enqueue(ctx, c, msg)
}

// SendToRoom delivers to every player connected from the room. An empty room is not an error.
func (g *Gateway) SendToRoom(ctx context.Context, roomID int64, msg notify.Message) error {
	g.mu.RLock()
	var targets []*playerConn
	for _, c := range g.conns {
		if c.RoomID == roomID {
			targets = append(targets, c)
		}
	}
	g.mu.RUnlock()

	var errs []error
	for _, c := range targets {
		if err := enqueue(ctx, c, msg); err != nil {
			g.logger.WithField("user_id", c.UserID).Warnf("room message dropped: %v", err)
			errs = append(errs, err)
		}
	}
	if len(targets) > 0 && len(errs) == len(targets) {
		return errors.Join(errs...)
	}
	return nil
}

func enqueue(ctx context.Context, c *playerConn, v interface{}) error {
	select {
	case c.OutChan <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errOutboundFull
	}
}
