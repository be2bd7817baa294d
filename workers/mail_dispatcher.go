// workers/mail_dispatcher.go
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"festival-ticketing/logger"
	"festival-ticketing/services"
)

// MailDispatcher delivers queued emails on a background goroutine so request
// handlers never wait on the mail relay.
type MailDispatcher struct {
	mailer       services.Mailer
	queue        chan services.Email
	sendTimeout  time.Duration
	drainTimeout time.Duration
	done         chan struct{}
	log          *slog.Logger
}

func NewMailDispatcher(mailer services.Mailer, size int) *MailDispatcher {
	if size < 1 {
		size = 1
	}
	return &MailDispatcher{
		mailer:       mailer,
		queue:        make(chan services.Email, size),
		sendTimeout:  30 * time.Second,
		drainTimeout: 20 * time.Second,
		done:         make(chan struct{}),
		log:          logger.WithComponent("mail_dispatcher"),
	}
}

// Enqueue never blocks. It returns false when the queue is full or the
// dispatcher has already stopped.
func (d *MailDispatcher) Enqueue(e services.Email) bool {
	select {
	case <-d.done:
		d.log.Warn("mail dispatcher stopped, email dropped", "recipient", e.Recipient, "subject", e.Subject)
		return false
	default:
	}
	select {
	case d.queue <- e:
		return true
	default:
		return false
	}
}

func (d *MailDispatcher) Start(ctx context.Context) {
	d.log.Info("starting mail dispatcher", "queue_size", cap(d.queue))
	go d.run(ctx)
}

// Done is closed once the dispatcher has stopped and drained its queue.
func (d *MailDispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *MailDispatcher) run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case e := <-d.queue:
			d.send(ctx, e)
		case <-ctx.Done():
			d.drain()
			d.log.Info("mail dispatcher stopped")
			return
		}
	}
}

// drain sends whatever is still queued, bounded by drainTimeout.
func (d *MailDispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), d.drainTimeout)
	defer cancel()
	for {
		select {
		case e := <-d.queue:
			d.send(ctx, e)
		case <-ctx.Done():
			d.log.Warn("mail queue drain timed out", "remaining", len(d.queue))
			return
		default:
			return
		}
	}
}

// send is not interrupted by shutdown; sendTimeout bounds each attempt.
func (d *MailDispatcher) send(ctx context.Context, e services.Email) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.sendTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("mailer panicked", "recipient", e.Recipient, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()
	if err := d.mailer.Send(ctx, e); err != nil {
		d.log.Warn("email delivery failed", "recipient", e.Recipient, "subject", e.Subject, "error", err)
		return
	}
	d.log.Debug("email sent", "recipient", e.Recipient, "subject", e.Subject)
}
