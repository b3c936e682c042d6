// Package deliver drains the durable outbound queue into the channel
// transport with at-least-once semantics: a message is marked sent only
// after the transport accepts it, and never skipped while rate-limited.
package deliver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"OutageNotifier/internal/domain"
	"OutageNotifier/internal/ports"
)

const drainBatchSize = 64

// Scheduler is the long-lived delivery drain loop.
type Scheduler struct {
	store      ports.MessageStore
	sender     ports.ChannelSender
	channels   map[domain.Language]string
	sendDelay  time.Duration
	idleDelay  time.Duration
	maxRetries int
	logger     *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewScheduler wires the queue with the channel transport. sendDelay is the
// fixed minimum pause between successive sends; maxRetries bounds the
// rate-limit retry loop for one message.
func NewScheduler(store ports.MessageStore, sender ports.ChannelSender, channels map[domain.Language]string,
	sendDelay, idleDelay time.Duration, maxRetries int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:      store,
		sender:     sender,
		channels:   channels,
		sendDelay:  sendDelay,
		idleDelay:  idleDelay,
		maxRetries: maxRetries,
		logger:     logger,
		sleep:      sleepCtx,
		now:        time.Now,
	}
}

// Run drains until the context is cancelled, idling while the queue is
// empty. Cancellation is honored between messages, never mid-send.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		sent, err := s.DrainOnce(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("drain interrupted, retrying next cycle", "error", err)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if sent == 0 {
			if err := s.sleep(ctx, s.idleDelay); err != nil {
				return err
			}
		}
	}
}

// DrainOnce sends pending messages FIFO until the batch is exhausted or a
// transient failure stops the cycle. Returns how many messages were sent.
func (s *Scheduler) DrainOnce(ctx context.Context) (int, error) {
	msgs, err := s.store.PendingMessages(ctx, drainBatchSize)
	if err != nil {
		return 0, fmt.Errorf("load pending messages: %w", err)
	}

	var sent, skipped int
	for _, m := range msgs {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		channel := s.channels[m.Language]
		if channel == "" {
			s.logger.Error("no channel configured, skipping message",
				"message", m.ID, "language", m.Language)
			skipped++
			continue
		}

		if err := s.deliver(ctx, channel, m.Text); err != nil {
			var transient *ports.TransientError
			if errors.As(err, &transient) || errors.Is(err, context.Canceled) {
				// Leave the message at the head of the queue for the
				// next cycle instead of busy-retrying.
				s.logger.Warn("transient delivery failure, stopping drain",
					"message", m.ID, "error", err)
				return sent, err
			}
			// Fatal for this message: quarantine it so it leaves the
			// pending scan instead of being re-sent every cycle and
			// starving everything behind it.
			s.logger.Error("delivery failed, quarantining message",
				"message", m.ID, "channel", channel, "error", err)
			if err := s.store.MarkFailed(ctx, m.ID, s.now()); err != nil {
				return sent, fmt.Errorf("mark message %d failed: %w", m.ID, err)
			}
			skipped++
			continue
		}

		if err := s.store.MarkSent(ctx, m.ID, s.now()); err != nil {
			// Ambiguous outcome: delivered but not marked. Stop here;
			// the restart may re-send, which at-least-once tolerates.
			return sent, fmt.Errorf("mark message %d sent: %w", m.ID, err)
		}
		sent++

		if err := s.sleep(ctx, s.sendDelay); err != nil {
			return sent, err
		}
	}

	if sent > 0 || skipped > 0 {
		s.logger.Info("delivery cycle done", "sent", sent, "skipped", skipped, "pending", len(msgs)-sent-skipped)
	}
	return sent, nil
}

// deliver attempts one message, honoring rate-limit signals with a bounded
// retry loop on the same message. Exhausting the retries surfaces as a
// transient failure so the message stays queued.
func (s *Scheduler) deliver(ctx context.Context, channel, text string) error {
	for attempt := 0; ; attempt++ {
		err := s.sender.Send(ctx, channel, text)
		if err == nil {
			return nil
		}

		var limited *ports.RateLimitedError
		if !errors.As(err, &limited) {
			return err
		}
		if attempt >= s.maxRetries {
			return &ports.TransientError{Err: fmt.Errorf("rate limit retries exhausted: %w", err)}
		}

		s.logger.Warn("rate limited, backing off",
			"retry_after", limited.RetryAfter, "attempt", attempt+1)
		if err := s.sleep(ctx, limited.RetryAfter); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
