package background

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, Notification{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcher_DeliversQueuedNotifications(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewDispatcher(mailer, testLogger(), 2, 10)
	d.Start(context.Background())

	d.Send("alice@example.com", "Email Confirmation", "<p>123456</p>")
	d.Send("bob@example.com", "Password Reset", "<p>abc</p>")
	d.Send("carol@example.com", "Email Confirmation", "<p>654321</p>")
	d.Stop()

	assert.Equal(t, 3, mailer.count())
}

func TestDispatcher_MailerFailureIsSwallowed(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp unavailable")}
	d := NewDispatcher(mailer, testLogger(), 1, 10)
	d.Start(context.Background())

	assert.NotPanics(t, func() {
		d.Send("alice@example.com", "Email Confirmation", "body")
	})
	d.Stop()

	assert.Equal(t, 0, mailer.count())
}

func TestDispatcher_DropsWhenQueueFull(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewDispatcher(mailer, testLogger(), 1, 1)

	// Workers not started yet, so the second message has nowhere to go
	d.Send("alice@example.com", "first", "body")
	d.Send("bob@example.com", "second", "body")

	d.Start(context.Background())
	d.Stop()

	require.Equal(t, 1, mailer.count())
	assert.Equal(t, "first", mailer.sent[0].Subject)
}

func TestDispatcher_SendAfterStopIsDropped(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewDispatcher(mailer, testLogger(), 1, 5)
	d.Start(context.Background())
	d.Stop()

	assert.NotPanics(t, func() {
		d.Send("alice@example.com", "late", "body")
	})
	d.Stop()

	assert.Equal(t, 0, mailer.count())
}

func TestDispatcher_CancelledContextStillDrains(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewDispatcher(mailer, testLogger(), 1, 5)

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	d.Send("alice@example.com", "Email Confirmation", "body")
	cancel()
	d.Stop()

	assert.Equal(t, 1, mailer.count())
}
