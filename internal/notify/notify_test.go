package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/rolecast/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyTransport struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    int
}

func (f *flakyTransport) SendToUser(_ context.Context, _ int64, _ Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	return nil
}

func (f *flakyTransport) SendToRoom(ctx context.Context, id int64, msg Message) error {
	return f.SendToUser(ctx, id, msg)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func fastOptions() Options {
	return Options{Attempts: 3, Backoff: time.Millisecond, Rate: 0, Burst: 1}
}

func TestRetryRecoversTransientFailure(t *testing.T) {
	tr := &flakyTransport{failures: 2, err: errors.New("timeout")}
	s := NewSender(tr, fastOptions(), quietLogger())
	require.NoError(t, s.ToUser(context.Background(), 1, Message{Type: "x"}))
	assert.Equal(t, 3, tr.calls)
}

func TestRetryGivesUp(t *testing.T) {
	tr := &flakyTransport{failures: 10, err: errors.New("timeout")}
	s := NewSender(tr, fastOptions(), quietLogger())
	err := s.ToRoom(context.Background(), 1, Message{Type: "x"})
	require.Error(t, err)
	assert.Equal(t, 3, tr.calls)
}

func TestUndeliverableIsNotRetried(t *testing.T) {
	tr := &flakyTransport{failures: 10, err: ErrUndeliverable}
	s := NewSender(tr, fastOptions(), quietLogger())
	err := s.ToUser(context.Background(), 1, Message{Type: "x"})
	assert.ErrorIs(t, err, ErrUndeliverable)
	assert.Equal(t, 1, tr.calls)
}

func TestProbeSingleAttempt(t *testing.T) {
	tr := &flakyTransport{failures: 1, err: errors.New("timeout")}
	s := NewSender(tr, fastOptions(), quietLogger())
	assert.Error(t, s.Probe(context.Background(), 1, Message{Type: "x"}))
	assert.Equal(t, 1, tr.calls)
}

func TestRetryHonoursContext(t *testing.T) {
	tr := &flakyTransport{failures: 10, err: errors.New("timeout")}
	s := NewSender(tr, Options{Attempts: 5, Backoff: time.Hour}, quietLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.ToUser(ctx, 1, Message{Type: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestVoteRequestChoices(t *testing.T) {
	msg := VoteRequest(2, 1, "General", []models.Character{{ID: 5, Name: "A"}, {ID: 9, Name: "B"}}, time.Minute)
	require.Len(t, msg.Choices, 3)
	assert.Equal(t, "5", msg.Choices[0].ID)
	assert.Equal(t, "9", msg.Choices[1].ID)
	assert.Equal(t, RandomChoiceID, msg.Choices[2].ID)
	assert.Contains(t, msg.Text, "General")
}

func TestRoundSummaryKeepsVoteOrder(t *testing.T) {
	chars := map[int64]models.Character{1: {ID: 1, Name: "A"}, 2: {ID: 2, Name: "B"}}
	names := map[int64]string{10: "ann", 11: "bob"}
	sel := chars[2]
	msg := RoundSummary(1, "King", &sel, []models.Vote{{UserID: 11, CharacterID: 2}, {UserID: 10, CharacterID: 1, Random: true}}, names, chars)
	assert.Contains(t, msg.Text, "chose B")
	assert.Less(t, strings.Index(msg.Text, "bob"), strings.Index(msg.Text, "ann"))
	assert.Contains(t, msg.Text, "A (dice)")

	msg = RoundSummary(1, "King", nil, nil, names, chars)
	assert.Contains(t, msg.Text, "did not vote")
}
