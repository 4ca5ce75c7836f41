// internal/historian/historian.go
package historian

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/rolecast/internal/models"
	"github.com/sirupsen/logrus"
)

// Sink persists a batch of events.
type Sink interface {
	InsertGameEvents(ctx context.Context, events []models.GameEvent) error
}

// Config tunes batching and stall detection.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	PopTimeout    time.Duration
	Inactivity    time.Duration // a game with no events for this long is reported stalled
	CheckInterval time.Duration
}

// DefaultConfig mirrors the production settings.
func DefaultConfig() Config {
	return Config{
		BatchSize:     20,
		FlushInterval: 500 * time.Millisecond,
		PopTimeout:    3 * time.Second,
		Inactivity:    10 * time.Minute,
		CheckInterval: time.Minute,
	}
}

// Service drains the journal queue into the sink and watches running games for silence.
type Service struct {
	queue  Queue
	sink   Sink
	cfg    Config
	logger *logrus.Logger

	// OnStall is called once per stalled game.
	OnStall func(gameID uuid.UUID, idle time.Duration)

	lastActivity sync.Map // map[uuid.UUID]time.Time

	batchMu   sync.Mutex
	batch     []models.GameEvent
	lastFlush time.Time
}

// New builds a Service.
func New(queue Queue, sink Sink, cfg Config, logger *logrus.Logger) *Service {
	return &Service{
		queue:     queue,
		sink:      sink,
		cfg:       cfg,
		logger:    logger,
		batch:     make([]models.GameEvent, 0, cfg.BatchSize),
		lastFlush: time.Now(),
	}
}

// Run consumes until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.inactivityLoop(ctx)
	}()

	s.logger.Info("historian started")
	s.readLoop(ctx)
	wg.Wait()

	s.Flush(context.Background())
	s.logger.Info("historian stopped")
}

func (s *Service) readLoop(ctx context.Context) {
	for ctx.Err() == nil {
		payload, err := s.queue.Pop(ctx, s.cfg.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Errorf("queue pop: %v", err)
			// avoid spinning on a dead connection
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.cfg.PopTimeout):
			}
			continue
		}
		if payload != nil {
			s.handle(ctx, payload)
		}
		if s.flushDue() {
			s.Flush(ctx)
		}
	}
}

func (s *Service) handle(ctx context.Context, payload []byte) {
	var ev models.GameEvent
	if err := json.Unmarshal(payload, &ev); err != nil || ev.GameID == uuid.Nil {
		s.logger.Warnf("dropping invalid journal record: %v", err)
		return
	}

	switch ev.Type {
	case models.EventGameFinished, models.EventGameCancelled:
		s.lastActivity.Delete(ev.GameID)
	default:
		s.lastActivity.Store(ev.GameID, time.Now())
	}

	s.batchMu.Lock()
	s.batch = append(s.batch, ev)
	full := len(s.batch) >= s.cfg.BatchSize
	s.batchMu.Unlock()
	if full {
		s.Flush(ctx)
	}
}

func (s *Service) flushDue() bool {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch) > 0 && time.Since(s.lastFlush) >= s.cfg.FlushInterval
}

// Flush writes the pending batch. A failed batch is kept and retried on the next flush.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	s.lastFlush = time.Now()
	if len(s.batch) == 0 {
		return
	}
	pending := make([]models.GameEvent, len(s.batch))
	copy(pending, s.batch)

	if err := s.sink.InsertGameEvents(ctx, pending); err != nil {
		s.logger.Errorf("flush %d events: %v", len(pending), err)
		return
	}
	s.batch = s.batch[:0]
	s.logger.Debugf("flushed %d events", len(pending))
}

func (s *Service) inactivityLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkInactivity(time.Now())
		}
	}
}

func (s *Service) checkInactivity(now time.Time) {
	s.lastActivity.Range(func(key, val interface{}) bool {
		gameID, ok1 := key.(uuid.UUID)
		last, ok2 := val.(time.Time)
		if !ok1 || !ok2 {
			return true
		}
		if idle := now.Sub(last); idle > s.cfg.Inactivity {
			s.logger.WithFields(logrus.Fields{
				"game_id": gameID,
				"idle":    idle.Round(time.Second).String(),
			}).Warn("game stalled, no journal events")
			s.lastActivity.Delete(gameID)
			if s.OnStall != nil {
				s.OnStall(gameID, idle)
			}
		}
		return true
	})
}
