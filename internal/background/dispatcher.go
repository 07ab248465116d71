package background

import (
	"context"
	"log/slog"
	"sync"
	"time"

	pkglogger "github.com/BradenHooton/gatekeeper/pkg/logger"
)

const defaultSendTimeout = 30 * time.Second

// Mailer delivers one rendered HTML message
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Notification is a queued outgoing email
type Notification struct {
	To      string
	Subject string
	Body    string
}

// Dispatcher delivers notifications on a pool of workers, detached from the
// request that queued them. Delivery failures are logged and dropped.
type Dispatcher struct {
	mailer      Mailer
	logger      *slog.Logger
	workers     int
	sendTimeout time.Duration
	queue       chan Notification

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher with a bounded queue
func NewDispatcher(mailer Mailer, logger *slog.Logger, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}

	return &Dispatcher{
		mailer:      mailer,
		logger:      logger,
		workers:     workers,
		sendTimeout: defaultSendTimeout,
		queue:       make(chan Notification, queueSize),
	}
}

// Start launches the workers. They exit once Stop has drained the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run(ctx, i)
	}
	d.logger.Info("notification dispatcher started", slog.Int("workers", d.workers))
}

// Send queues a notification without blocking. A full queue drops the message.
func (d *Dispatcher) Send(to, subject, body string) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn("notification dropped: dispatcher stopped",
			slog.String("to", pkglogger.SanitizedEmail(to)),
			slog.String("subject", subject))
		return
	}

	select {
	case d.queue <- Notification{To: to, Subject: subject, Body: body}:
	default:
		d.logger.Warn("notification dropped: queue full",
			slog.String("to", pkglogger.SanitizedEmail(to)),
			slog.String("subject", subject))
	}
}

// Stop refuses new notifications and waits for queued ones to be delivered
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("notification dispatcher stopped")
}

func (d *Dispatcher) run(ctx context.Context, id int) {
	defer d.wg.Done()

	for n := range d.queue {
		d.deliver(ctx, id, n)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, id int, n Notification) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.sendTimeout)
	defer cancel()

	if err := d.mailer.Send(sendCtx, n.To, n.Subject, n.Body); err != nil {
		d.logger.Error("failed to deliver notification",
			slog.Int("worker", id),
			slog.String("to", pkglogger.SanitizedEmail(n.To)),
			slog.String("subject", n.Subject),
			slog.Any("error", err))
	}
}
