package task

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "github.com/example/kanban-tasks/domain/task"
	"github.com/go-monolith/mono/pkg/types"
)

// Publisher delivers one committed mutation event to subscribers.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// Notifier accepts committed events without blocking the caller.
type Notifier interface {
	Dispatch(ctx context.Context, ev domain.Event)
}

const (
	defaultPublishTimeout = 5 * time.Second
	defaultReorderWindow  = 50 * time.Millisecond
)

// Dispatcher fans events out asynchronously. Events for the same task are published one at a
// time in version order; different tasks are independent. Publish failures are logged only.
type Dispatcher struct {
	publisher      Publisher
	logger         types.Logger
	publishTimeout time.Duration
	reorderWindow  time.Duration

	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool
	wg     sync.WaitGroup
}

type pendingEvent struct {
	ctx context.Context
	ev  domain.Event
}

// lane is the queue for one task. The head is held back briefly when a lower version
// has not been seen yet.
type lane struct {
	pending     []pendingEvent
	wake        chan struct{}
	seen        bool
	lastVersion int64
}

var _ Notifier = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher. A non-positive timeout selects the default.
func NewDispatcher(publisher Publisher, logger types.Logger, publishTimeout time.Duration) *Dispatcher {
	if publishTimeout <= 0 {
		publishTimeout = defaultPublishTimeout
	}
	return &Dispatcher{
		publisher:      publisher,
		logger:         logger,
		publishTimeout: publishTimeout,
		reorderWindow:  defaultReorderWindow,
		lanes:          make(map[string]*lane),
	}
}

// Dispatch queues ev and returns immediately. Cancelling ctx does not cancel the publish.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.logger.Warn("Dropping event after shutdown", "task_id", ev.TaskID, "kind", string(ev.Kind))
		return
	}

	l, ok := d.lanes[ev.TaskID]
	if !ok {
		l = &lane{wake: make(chan struct{}, 1)}
		d.lanes[ev.TaskID] = l
		d.wg.Add(1)
		go d.drain(ev.TaskID, l)
	}

	l.pending = append(l.pending, pendingEvent{ctx: context.WithoutCancel(ctx), ev: ev})
	sort.SliceStable(l.pending, func(i, j int) bool {
		return eventSeq(l.pending[i].ev) < eventSeq(l.pending[j].ev)
	})

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Close stops accepting events and waits for queued ones to be published or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.logger.Warn("Timeout waiting for event fan-out to drain")
		return ctx.Err()
	}
}

func (d *Dispatcher) drain(taskID string, l *lane) {
	defer d.wg.Done()

	// deadline bounds how long the current head may wait for a missing lower version
	var deadline time.Time
	for {
		d.mu.Lock()
		if len(l.pending) == 0 {
			delete(d.lanes, taskID)
			d.mu.Unlock()
			return
		}

		head := l.pending[0]
		if l.hasGapBefore(head.ev) {
			if deadline.IsZero() {
				deadline = time.Now().Add(d.reorderWindow)
			}
			if wait := time.Until(deadline); wait > 0 {
				d.mu.Unlock()
				timer := time.NewTimer(wait)
				select {
				case <-l.wake:
				case <-timer.C:
				}
				timer.Stop()
				continue
			}
		}

		l.pending = l.pending[1:]
		l.seen = true
		l.lastVersion = head.ev.Version
		deadline = time.Time{}
		d.mu.Unlock()

		d.publish(head)
	}
}

func (d *Dispatcher) publish(p pendingEvent) {
	ctx, cancel := context.WithTimeout(p.ctx, d.publishTimeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, p.ev); err != nil {
		d.logger.Warn("Failed to publish task event",
			"task_id", p.ev.TaskID,
			"kind", string(p.ev.Kind),
			"version", p.ev.Version,
			"error", err)
		return
	}
	d.logger.Debug("Published task event", "task_id", p.ev.TaskID, "kind", string(p.ev.Kind), "version", p.ev.Version)
}

// hasGapBefore reports whether a commit between the last published event and ev has not
// been dispatched yet.
func (l *lane) hasGapBefore(ev domain.Event) bool {
	if !l.seen {
		return false
	}
	if ev.Kind == domain.EventDeleted {
		return ev.Version > l.lastVersion
	}
	return ev.Version > l.lastVersion+1
}

// eventSeq orders events of one task: by version, with a delete after the update that
// produced the same version.
func eventSeq(ev domain.Event) int64 {
	seq := ev.Version * 2
	if ev.Kind == domain.EventDeleted {
		seq++
	}
	return seq
}
