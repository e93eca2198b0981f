package digest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shanchoynoor/choynews-bot/internal/core/domain"
	coreerrors "github.com/shanchoynoor/choynews-bot/internal/core/errors"
	"github.com/shanchoynoor/choynews-bot/internal/platform/observability"
	"github.com/shanchoynoor/choynews-bot/internal/platform/worker"
)

const (
	defaultTickInterval = time.Minute
	defaultParallelism  = 8
	defaultJobDeadline  = 45 * time.Second
	defaultRetention    = 7 * 24 * time.Hour

	purgeInterval = 24 * time.Hour

	localDateFormat = "2006-01-02"

	statusSent   = "sent"
	statusFailed = "failed"

	triggerScheduled = "scheduled"
)

// retryDelays are the waits before the second and third send attempts.
var retryDelays = []time.Duration{30 * time.Second, 120 * time.Second}

// SubscriberStore is the subscriber bookkeeping the scheduler needs.
type SubscriberStore interface {
	ListActiveSubscribers(ctx context.Context) ([]domain.Subscriber, error)
	MarkSlotSent(ctx context.Context, chatID int64, slot domain.Slot, localDate string) error
	SetSubscriberActive(ctx context.Context, chatID int64, active bool) error
}

// DeliveryLog records sent headlines and purges expired ones.
type DeliveryLog interface {
	MarkSent(ctx context.Context, chatID int64, records []domain.DeliveryRecord, sentAt time.Time) error
	PurgeDeliveryLogOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Transport delivers a composed digest to one chat.
type Transport interface {
	SendDigest(ctx context.Context, chatID int64, parts []string) error
}

// SchedulerOptions tunes the delivery loop.
type SchedulerOptions struct {
	TickInterval time.Duration
	Parallelism  int
	JobDeadline  time.Duration
	Retention    time.Duration
}

// Scheduler fires digests at each subscriber's local slot times. A bounded
// worker pool delivers jobs; per-chat locks keep sends to the same chat
// serialized.
type Scheduler struct {
	assembler *Assembler
	subs      SubscriberStore
	log       DeliveryLog
	transport Transport
	opts      SchedulerOptions
	logger    *zerolog.Logger

	now func() time.Time

	sem chan struct{}
	wg  sync.WaitGroup

	mu        sync.Mutex
	chatLocks map[int64]*sync.Mutex
}

func NewScheduler(
	assembler *Assembler,
	subs SubscriberStore,
	log DeliveryLog,
	transport Transport,
	opts SchedulerOptions,
	logger *zerolog.Logger,
) *Scheduler {
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}

	if opts.Parallelism <= 0 {
		opts.Parallelism = defaultParallelism
	}

	if opts.JobDeadline <= 0 {
		opts.JobDeadline = defaultJobDeadline
	}

	if opts.Retention <= 0 {
		opts.Retention = defaultRetention
	}

	return &Scheduler{
		assembler: assembler,
		subs:      subs,
		log:       log,
		transport: transport,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
		sem:       make(chan struct{}, opts.Parallelism),
		chatLocks: make(map[int64]*sync.Mutex),
	}
}

// Run blocks until the context is canceled, ticking every minute for due
// subscribers and purging the delivery log daily.
func (s *Scheduler) Run(ctx context.Context) error {
	return worker.SingleTickerLoop(ctx, worker.SingleTickerConfig{
		Name:              "digest-scheduler",
		Interval:          s.opts.TickInterval,
		OnTick:            s.tick,
		SecondaryInterval: purgeInterval,
		OnSecondaryTick:   s.purge,
		OnStop:            s.wg.Wait,
		Logger:            s.logger,
	})
}

// TickOnce runs a single scheduling pass and waits for the spawned
// deliveries, for cron-style one-shot runs.
func (s *Scheduler) TickOnce(ctx context.Context) {
	s.tick(ctx)
	s.wg.Wait()
}

// tick finds subscribers whose local time is inside a slot minute and hands
// each one to the worker pool.
func (s *Scheduler) tick(ctx context.Context) {
	defer worker.RecoverPanic(s.logger, "scheduler tick")

	subs, err := s.subs.ListActiveSubscribers(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("list subscribers failed")

		return
	}

	now := s.now().UTC()

	var due int

	for _, sub := range subs {
		slot, localDate, ok := dueSlot(sub, now)
		if !ok {
			continue
		}

		due++

		select {
		case s.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		s.wg.Add(1)

		go func(sub domain.Subscriber) {
			defer s.wg.Done()
			defer func() { <-s.sem }()
			defer worker.RecoverPanic(s.logger, "digest delivery")

			s.deliver(ctx, sub, slot, localDate)
		}(sub)
	}

	observability.SchedulerDueSubscribers.Set(float64(due))
}

// dueSlot reports whether the subscriber's local wall clock is inside a slot
// minute that has not been delivered today.
func dueSlot(sub domain.Subscriber, nowUTC time.Time) (domain.Slot, string, bool) {
	local := nowUTC.In(sub.Location())

	slot, ok := domain.SlotAt(local)
	if !ok {
		return "", "", false
	}

	localDate := local.Format(localDateFormat)
	if sub.LastSlotSent[slot] == localDate {
		return "", "", false
	}

	return slot, localDate, true
}

// deliver runs up to three delivery attempts, each under its own job
// deadline, with the retry waits spent outside the deadline. A rate limit
// pause requested by the transport extends the wait when it is longer.
func (s *Scheduler) deliver(ctx context.Context, sub domain.Subscriber, slot domain.Slot, localDate string) {
	lock := s.chatLock(sub.ChatID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()

	var err error

	for attempt := 0; ; attempt++ {
		err = s.attempt(ctx, sub, slot, localDate)
		if err == nil {
			break
		}

		if coreerrors.Is(err, coreerrors.ErrTransportPermanent) || attempt >= len(retryDelays) {
			break
		}

		observability.TransportRetries.WithLabelValues(fmt.Sprintf("%d", attempt+1)).Inc()

		if waitErr := worker.Wait(ctx, retryWait(attempt, err)); waitErr != nil {
			err = waitErr

			break
		}
	}

	observability.DigestDeliveryDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		observability.DigestsDelivered.WithLabelValues(triggerScheduled, statusFailed).Inc()
		s.logger.Error().Err(err).
			Int64("chat_id", sub.ChatID).
			Str("slot", string(slot)).
			Msg("digest delivery failed")

		if coreerrors.Is(err, coreerrors.ErrTransportPermanent) {
			s.deactivate(ctx, sub.ChatID)
		}

		return
	}

	observability.DigestsDelivered.WithLabelValues(triggerScheduled, statusSent).Inc()
	s.logger.Info().
		Int64("chat_id", sub.ChatID).
		Str("slot", string(slot)).
		Msg("digest delivered")
}

// attempt composes and sends one digest under the job deadline. Delivery
// records and the slot guard are only written after the transport
// acknowledged every part.
func (s *Scheduler) attempt(ctx context.Context, sub domain.Subscriber, slot domain.Slot, localDate string) error {
	return worker.RunWithTimeout(ctx, s.opts.JobDeadline, func(ctx context.Context) error {
		digest, err := s.assembler.Compose(ctx, sub, slot, s.now().UTC())
		if err != nil {
			return fmt.Errorf("compose: %w", err)
		}

		if err := s.transport.SendDigest(ctx, sub.ChatID, digest.Parts); err != nil {
			return fmt.Errorf("send: %w", err)
		}

		if len(digest.Records) > 0 {
			if err := s.log.MarkSent(ctx, sub.ChatID, digest.Records, s.now().UTC()); err != nil {
				return fmt.Errorf("mark sent: %w", err)
			}
		}

		if err := s.subs.MarkSlotSent(ctx, sub.ChatID, slot, localDate); err != nil {
			return fmt.Errorf("mark slot sent: %w", err)
		}

		return nil
	})
}

// retryWait picks the pause before the next attempt: the fixed delay, or the
// rate limit pause the transport requested when that is longer.
func retryWait(attempt int, err error) time.Duration {
	wait := retryDelays[attempt]
	if after := coreerrors.RetryAfter(err); after > wait {
		wait = after
	}

	return wait
}

func (s *Scheduler) deactivate(ctx context.Context, chatID int64) {
	if err := s.subs.SetSubscriberActive(ctx, chatID, false); err != nil {
		s.logger.Error().Err(err).Int64("chat_id", chatID).Msg("deactivate subscriber failed")

		return
	}

	s.logger.Info().Int64("chat_id", chatID).Msg("subscriber deactivated after permanent transport error")
}

// purge drops delivery log rows older than the dedup retention window.
func (s *Scheduler) purge(ctx context.Context) {
	defer worker.RecoverPanic(s.logger, "delivery log purge")

	cutoff := s.now().UTC().Add(-s.opts.Retention)

	rows, err := s.log.PurgeDeliveryLogOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("delivery log purge failed")

		return
	}

	observability.DedupPurgedRows.Add(float64(rows))
	s.logger.Info().Int64("rows", rows).Time("cutoff", cutoff).Msg("delivery log purged")
}

func (s *Scheduler) chatLock(chatID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.chatLocks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		s.chatLocks[chatID] = lock
	}

	return lock
}
