package staging

import (
	"context"
	"sync"
	"time"

	"github.com/abdulahad-2/Sage-video-downloader/internal/metrics"
	"github.com/abdulahad-2/Sage-video-downloader/pkg/logger"
	"github.com/robfig/cron/v3"
)

var evictorLog = logger.Get("Evictor")

const (
	evictedScheduled = "scheduled"
	evictedSweep     = "sweep"
)

// Evictor owns the deferred deletion of staged artifacts. Each schedule
// is a one-shot timer running off the request path; re-scheduling a
// name replaces its outstanding timer, and duplicate deletions are
// harmless because the store's Delete is idempotent.
//
// Deletion failures are logged here and swallowed. No request is
// waiting on an eviction, so there is no caller to propagate to.
type Evictor struct {
	*sync.Mutex
	store   *Store
	metrics metrics.Recorder

	ttl           time.Duration
	sweepSchedule string
	timers        map[string]*time.Timer
}

func NewEvictor(store *Store, config Config, recorder metrics.Recorder) *Evictor {
	schedule := config.SweepSchedule
	if schedule == "" {
		schedule = "@every 5m"
	}

	return &Evictor{
		Mutex:         &sync.Mutex{},
		store:         store,
		metrics:       recorder,
		ttl:           config.EvictionDelay(),
		sweepSchedule: schedule,
		timers:        make(map[string]*time.Timer),
	}
}

// Schedule arranges for the named artifact to be deleted once the delay
// elapses. It never blocks and never deletes synchronously: a zero or
// negative delay still defers the removal to the timer goroutine so a
// request handler is never stalled on filesystem latency.
//
// An existing schedule for the same name is replaced, which is how a
// forced retrieval shortens the grace window of an earlier schedule.
func (evictor *Evictor) Schedule(name string, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}

	evictor.Lock()
	defer evictor.Unlock()

	evictor.clearTimer(name)
	evictor.timers[name] = time.AfterFunc(delay, func() {
		evictor.evict(name)
	})
}

// Cancel stops any outstanding schedule for the named artifact without
// deleting it. Used when an acquisition fails after scheduling.
func (evictor *Evictor) Cancel(name string) {
	evictor.Lock()
	defer evictor.Unlock()

	evictor.clearTimer(name)
}

// Run performs the startup sweep and then keeps a periodic sweep going
// until the context is cancelled. Outstanding timers are cancelled on
// shutdown; anything lost that way is recovered by the next startup
// sweep, which is the same crash-recovery path.
func (evictor *Evictor) Run(ctx context.Context) error {
	if removed := evictor.store.SweepOlderThan(evictor.ttl); removed > 0 {
		evictorLog.Emit(logger.REMOVE, "Startup sweep removed %d orphaned artifact(s)\n", removed)
		evictor.recordSweep(removed)
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(evictor.sweepSchedule, func() {
		if removed := evictor.store.SweepOlderThan(evictor.ttl); removed > 0 {
			evictorLog.Emit(logger.REMOVE, "Periodic sweep removed %d expired artifact(s)\n", removed)
			evictor.recordSweep(removed)
		}
	}); err != nil {
		return err
	}

	scheduler.Start()
	<-ctx.Done()
	scheduler.Stop()

	evictor.clearAllTimers()
	return nil
}

func (evictor *Evictor) evict(name string) {
	evictor.Lock()
	delete(evictor.timers, name)
	evictor.Unlock()

	if err := evictor.store.Delete(name); err != nil {
		evictorLog.Emit(logger.WARNING, "Eviction of '%s' failed: %v\n", name, err)
		return
	}

	evictorLog.Emit(logger.REMOVE, "Evicted artifact '%s'\n", name)
	evictor.metrics.IncEviction(evictedScheduled)
}

func (evictor *Evictor) clearTimer(name string) {
	if timer, ok := evictor.timers[name]; ok {
		timer.Stop()
		delete(evictor.timers, name)
	}
}

func (evictor *Evictor) clearAllTimers() {
	evictor.Lock()
	defer evictor.Unlock()

	for name, timer := range evictor.timers {
		timer.Stop()
		delete(evictor.timers, name)
	}
}

func (evictor *Evictor) recordSweep(count int) {
	for i := 0; i < count; i++ {
		evictor.metrics.IncEviction(evictedSweep)
	}
}
