// internal/notify/notify.go
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ErrUndeliverable marks a permanent delivery failure: the recipient cannot be reached
// (not connected, blocked the bot). It is never retried.
var ErrUndeliverable = errors.New("recipient unreachable")

// Choice is a selectable option attached to a message.
type Choice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Message is the structured payload handed to the transport.
type Message struct {
	Type    string                 `json:"type"`
	Text    string                 `json:"text"`
	Choices []Choice               `json:"choices,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Transport delivers messages to players and rooms.
type Transport interface {
	SendToUser(ctx context.Context, userID int64, msg Message) error
	SendToRoom(ctx context.Context, roomID int64, msg Message) error
}

// Options tunes outbound pacing and retries.
type Options struct {
	Attempts int           // total tries per message
	Backoff  time.Duration // delay before the first retry, doubled each retry
	Rate     float64       // messages per second
	Burst    int
}

// DefaultOptions returns the production delivery settings.
func DefaultOptions() Options {
	return Options{Attempts: 3, Backoff: 2 * time.Second, Rate: 15, Burst: 20}
}

// Sender paces messages through a token bucket and retries transient failures.
type Sender struct {
	transport Transport
	limiter   *rate.Limiter
	attempts  int
	backoff   time.Duration
	logger    *logrus.Logger
}

// NewSender wraps a transport.
func NewSender(t Transport, opts Options, logger *logrus.Logger) *Sender {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	limit := rate.Limit(opts.Rate)
	if opts.Rate <= 0 {
		limit = rate.Inf
	}
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	return &Sender{
		transport: t,
		limiter:   rate.NewLimiter(limit, opts.Burst),
		attempts:  opts.Attempts,
		backoff:   opts.Backoff,
		logger:    logger,
	}
}

// Probe makes a single delivery attempt to a user. Lobby joins use it as a liveness check.
func (s *Sender) Probe(ctx context.Context, userID int64, msg Message) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.transport.SendToUser(ctx, userID, msg)
}

// ToUser delivers a private message with bounded retries.
func (s *Sender) ToUser(ctx context.Context, userID int64, msg Message) error {
	return s.retry(ctx, func() error { return s.transport.SendToUser(ctx, userID, msg) })
}

// ToRoom delivers a room message with bounded retries.
func (s *Sender) ToRoom(ctx context.Context, roomID int64, msg Message) error {
	return s.retry(ctx, func() error { return s.transport.SendToRoom(ctx, roomID, msg) })
}

// User sends a private message and only logs failures.
func (s *Sender) User(ctx context.Context, userID int64, msg Message) {
	if err := s.ToUser(ctx, userID, msg); err != nil {
		s.logger.WithFields(logrus.Fields{"user_id": userID, "type": msg.Type}).
			Warnf("private message dropped: %v", err)
	}
}

// Room sends a room message and only logs failures.
func (s *Sender) Room(ctx context.Context, roomID int64, msg Message) {
	if err := s.ToRoom(ctx, roomID, msg); err != nil {
		s.logger.WithFields(logrus.Fields{"room_id": roomID, "type": msg.Type}).
			Warnf("room message dropped: %v", err)
	}
}

func (s *Sender) retry(ctx context.Context, send func() error) error {
	delay := s.backoff
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if werr := s.limiter.Wait(ctx); werr != nil {
			return werr
		}
		err = send()
		if err == nil || errors.Is(err, ErrUndeliverable) {
			return err
		}
		if attempt == s.attempts {
			break
		}
		s.logger.Debugf("delivery attempt %d/%d failed: %v", attempt, s.attempts, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return fmt.Errorf("gave up after %d attempts: %w", s.attempts, err)
}
