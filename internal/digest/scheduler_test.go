package digest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanchoynoor/choynews-bot/internal/core/domain"
	coreerrors "github.com/shanchoynoor/choynews-bot/internal/core/errors"
)

type fakeSubscriberStore struct {
	mu   sync.Mutex
	subs map[int64]domain.Subscriber

	slotMarks   int
	deactivated []int64
}

func newFakeSubscriberStore(subs ...domain.Subscriber) *fakeSubscriberStore {
	store := &fakeSubscriberStore{subs: make(map[int64]domain.Subscriber)}
	for _, sub := range subs {
		store.subs[sub.ChatID] = sub
	}

	return store
}

func (s *fakeSubscriberStore) ListActiveSubscribers(context.Context) ([]domain.Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Subscriber, 0, len(s.subs))

	for _, sub := range s.subs {
		if sub.Active {
			out = append(out, sub)
		}
	}

	return out, nil
}

func (s *fakeSubscriberStore) MarkSlotSent(_ context.Context, chatID int64, slot domain.Slot, localDate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := s.subs[chatID]
	if sub.LastSlotSent == nil {
		sub.LastSlotSent = make(map[domain.Slot]string)
	}

	sub.LastSlotSent[slot] = localDate
	s.subs[chatID] = sub
	s.slotMarks++

	return nil
}

func (s *fakeSubscriberStore) SetSubscriberActive(_ context.Context, chatID int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := s.subs[chatID]
	sub.Active = active
	s.subs[chatID] = sub

	if !active {
		s.deactivated = append(s.deactivated, chatID)
	}

	return nil
}

type fakeDeliveryLog struct {
	mu     sync.Mutex
	marked map[int64][]domain.DeliveryRecord
	purged int64
}

func (l *fakeDeliveryLog) MarkSent(_ context.Context, chatID int64, records []domain.DeliveryRecord, _ time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.marked == nil {
		l.marked = make(map[int64][]domain.DeliveryRecord)
	}

	l.marked[chatID] = append(l.marked[chatID], records...)

	return nil
}

func (l *fakeDeliveryLog) PurgeDeliveryLogOlderThan(context.Context, time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.purged++

	return 42, nil
}

type fakeTransport struct {
	mu       sync.Mutex
	sends    int
	failures int
	err      error
}

func (tr *fakeTransport) SendDigest(_ context.Context, _ int64, _ []string) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.sends++

	if tr.failures > 0 {
		tr.failures--

		return tr.err
	}

	return nil
}

func newTestScheduler(store *fakeSubscriberStore, log *fakeDeliveryLog, transport *fakeTransport, now time.Time) *Scheduler {
	nop := zerolog.Nop()

	assembler, _ := newTestAssembler(&fakeSelector{}, &fakeMarket{})

	s := NewScheduler(assembler, store, log, transport, SchedulerOptions{}, &nop)
	s.now = func() time.Time { return now }

	return s
}

func dhaka(t *testing.T) *time.Location {
	t.Helper()

	loc, err := time.LoadLocation("Asia/Dhaka")
	require.NoError(t, err)

	return loc
}

func TestDueSlot(t *testing.T) {
	sub := domain.Subscriber{ChatID: 1, Timezone: "Asia/Dhaka", Active: true}

	// 08:00 Dhaka is 02:00 UTC
	slot, localDate, ok := dueSlot(sub, time.Date(2026, 3, 2, 2, 0, 30, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, domain.SlotMorning, slot)
	assert.Equal(t, "2026-03-02", localDate)

	// one minute past the slot is not due
	_, _, ok = dueSlot(sub, time.Date(2026, 3, 2, 2, 1, 0, 0, time.UTC))
	assert.False(t, ok)

	// already sent today
	sub.LastSlotSent = map[domain.Slot]string{domain.SlotMorning: "2026-03-02"}
	_, _, ok = dueSlot(sub, time.Date(2026, 3, 2, 2, 0, 30, 0, time.UTC))
	assert.False(t, ok)

	// a new day makes the slot due again
	_, _, ok = dueSlot(sub, time.Date(2026, 3, 3, 2, 0, 30, 0, time.UTC))
	assert.True(t, ok)
}

func TestDueSlot_DSTSpringForward(t *testing.T) {
	// 2026-03-08 America/Los_Angeles: clocks jump 02:00 -> 03:00. The morning
	// slot still occurs exactly once, at 08:00 PST+1 = 15:00 UTC.
	sub := domain.Subscriber{ChatID: 1, Timezone: "America/Los_Angeles", Active: true}

	slot, localDate, ok := dueSlot(sub, time.Date(2026, 3, 8, 15, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, domain.SlotMorning, slot)
	assert.Equal(t, "2026-03-08", localDate)

	// the pre-shift UTC instant that would have been 08:00 is now 09:00 local
	_, _, ok = dueSlot(sub, time.Date(2026, 3, 8, 16, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestScheduler_DeliversOncePerSlotPerDay(t *testing.T) {
	now := time.Date(2026, 3, 2, 2, 0, 10, 0, time.UTC)

	store := newFakeSubscriberStore(domain.Subscriber{ChatID: 7, Timezone: "Asia/Dhaka", Active: true})
	log := &fakeDeliveryLog{}
	transport := &fakeTransport{}

	s := newTestScheduler(store, log, transport, now)

	s.tick(context.Background())
	s.wg.Wait()

	require.Equal(t, 1, transport.sends)
	assert.Equal(t, 1, store.slotMarks)
	assert.Len(t, log.marked[7], 20)

	// second tick within the same minute: slot guard suppresses the send
	s.tick(context.Background())
	s.wg.Wait()

	assert.Equal(t, 1, transport.sends)
}

func TestScheduler_NoMarkingWhenTransportFails(t *testing.T) {
	now := time.Date(2026, 3, 2, 2, 0, 10, 0, time.UTC)

	store := newFakeSubscriberStore(domain.Subscriber{ChatID: 7, Timezone: "Asia/Dhaka", Active: true})
	log := &fakeDeliveryLog{}
	transport := &fakeTransport{failures: 3, err: fmt.Errorf("flaky: %w", coreerrors.ErrUpstreamTransient)}

	s := newTestScheduler(store, log, transport, now)

	restore := retryDelays
	retryDelays = []time.Duration{time.Millisecond, time.Millisecond}
	defer func() { retryDelays = restore }()

	s.tick(context.Background())
	s.wg.Wait()

	// initial attempt plus two retries, all failed
	assert.Equal(t, 3, transport.sends)
	assert.Equal(t, 0, store.slotMarks)
	assert.Empty(t, log.marked)
}

func TestScheduler_RetriesThenSucceeds(t *testing.T) {
	now := time.Date(2026, 3, 2, 2, 0, 10, 0, time.UTC)

	store := newFakeSubscriberStore(domain.Subscriber{ChatID: 7, Timezone: "Asia/Dhaka", Active: true})
	log := &fakeDeliveryLog{}
	transport := &fakeTransport{failures: 2, err: fmt.Errorf("flaky: %w", coreerrors.ErrUpstreamTransient)}

	s := newTestScheduler(store, log, transport, now)

	restore := retryDelays
	retryDelays = []time.Duration{time.Millisecond, time.Millisecond}
	defer func() { retryDelays = restore }()

	s.tick(context.Background())
	s.wg.Wait()

	assert.Equal(t, 3, transport.sends)
	assert.Equal(t, 1, store.slotMarks)
	assert.Len(t, log.marked[7], 20)
}

func TestRetryWait(t *testing.T) {
	// fixed delay when the error carries no rate limit pause
	assert.Equal(t, retryDelays[0], retryWait(0, coreerrors.ErrUpstreamTransient))

	// a longer requested pause wins over the fixed delay
	long := &coreerrors.RateLimitError{RetryAfter: retryDelays[0] + time.Minute}
	assert.Equal(t, retryDelays[0]+time.Minute, retryWait(0, fmt.Errorf("send: %w", long)))

	// a shorter requested pause does not shrink the fixed delay
	short := &coreerrors.RateLimitError{RetryAfter: time.Millisecond}
	assert.Equal(t, retryDelays[1], retryWait(1, short))
}

func TestScheduler_RetriesOutlastJobDeadline(t *testing.T) {
	now := time.Date(2026, 3, 2, 2, 0, 10, 0, time.UTC)

	store := newFakeSubscriberStore(domain.Subscriber{ChatID: 7, Timezone: "Asia/Dhaka", Active: true})
	log := &fakeDeliveryLog{}
	transport := &fakeTransport{failures: 2, err: fmt.Errorf("flaky: %w", coreerrors.ErrUpstreamTransient)}

	s := newTestScheduler(store, log, transport, now)
	// deadline far shorter than the combined retry waits: each attempt gets
	// its own budget, so the third attempt still runs and succeeds
	s.opts.JobDeadline = 500 * time.Millisecond

	restore := retryDelays
	retryDelays = []time.Duration{5 * time.Millisecond, 700 * time.Millisecond}
	defer func() { retryDelays = restore }()

	s.tick(context.Background())
	s.wg.Wait()

	assert.Equal(t, 3, transport.sends)
	assert.Equal(t, 1, store.slotMarks)
}

func TestScheduler_PermanentErrorDeactivates(t *testing.T) {
	now := time.Date(2026, 3, 2, 2, 0, 10, 0, time.UTC)

	store := newFakeSubscriberStore(domain.Subscriber{ChatID: 7, Timezone: "Asia/Dhaka", Active: true})
	log := &fakeDeliveryLog{}
	transport := &fakeTransport{failures: 1, err: fmt.Errorf("blocked: %w", coreerrors.ErrTransportPermanent)}

	s := newTestScheduler(store, log, transport, now)

	s.tick(context.Background())
	s.wg.Wait()

	// no retries on permanent failure
	assert.Equal(t, 1, transport.sends)
	assert.Equal(t, []int64{7}, store.deactivated)
	assert.Equal(t, 0, store.slotMarks)
}

func TestScheduler_Purge(t *testing.T) {
	store := newFakeSubscriberStore()
	log := &fakeDeliveryLog{}

	s := newTestScheduler(store, log, &fakeTransport{}, time.Now())

	s.purge(context.Background())

	assert.Equal(t, int64(1), log.purged)
}
