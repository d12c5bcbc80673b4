package notify

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	name string
	sent []string
	err  error
}

func (s *fakeSender) Send(ctx context.Context, title, message string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, title)
	return nil
}

func (s *fakeSender) Name() string { return s.name }

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestNotifyFansOutToAllSenders(t *testing.T) {
	t.Parallel()

	a := &fakeSender{name: "telegram"}
	b := &fakeSender{name: "discord"}
	n := NewNotifier([]Sender{a, b}, nil, testLogger())

	require.NoError(t, n.Notify(context.Background(), EventScanFailed, "Scan failed", "details"))
	assert.Equal(t, []string{"Scan failed"}, a.sent)
	assert.Equal(t, []string{"Scan failed"}, b.sent)
}

func TestNotifyFiltersEvents(t *testing.T) {
	t.Parallel()

	s := &fakeSender{name: "telegram"}
	n := NewNotifier([]Sender{s}, []string{EventCommandReverted}, testLogger())

	require.NoError(t, n.Notify(context.Background(), EventScanFailed, "dropped", "m"))
	assert.Empty(t, s.sent)

	require.NoError(t, n.Notify(context.Background(), EventCommandReverted, "delivered", "m"))
	assert.Equal(t, []string{"delivered"}, s.sent)
}

func TestNotifyCollectsSenderFailures(t *testing.T) {
	t.Parallel()

	broken := &fakeSender{name: "telegram", err: errors.New("api unreachable")}
	working := &fakeSender{name: "discord"}
	n := NewNotifier([]Sender{broken, working}, nil, testLogger())

	err := n.Notify(context.Background(), EventCommandConfirmed, "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")
	// The healthy channel still delivered.
	assert.Equal(t, []string{"t"}, working.sent)
}

func TestNotifyWithoutSendersIsANoop(t *testing.T) {
	t.Parallel()

	n := NewNotifier(nil, nil, testLogger())
	assert.NoError(t, n.Notify(context.Background(), EventScanFailed, "t", "m"))
}
