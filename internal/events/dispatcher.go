package events

import (
	"context"
	"sync"
	"time"

	"github.com/NateWesth/aleph-order-tracker/internal/metrics"
	"github.com/NateWesth/aleph-order-tracker/internal/models"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// BindingState tracks the dispatcher-bus binding lifecycle
type BindingState string

const (
	StateUnsubscribed BindingState = "unsubscribed"
	StateSubscribing  BindingState = "subscribing"
	StateSubscribed   BindingState = "subscribed"
	StateReconnecting BindingState = "reconnecting"
)

// Dispatcher decouples per-row change volume from view refresh cost. Each
// registered view gets a trailing debounce: a refresh fires once the event
// stream has been quiet for the full quiet period, measured from the last
// event of a burst. One timer per view; rescheduling cancels the prior
// pending timer, so at most one refresh is pending per view at a time.
type Dispatcher struct {
	bus    *Bus
	quiet  time.Duration
	logger *zap.Logger

	mu    sync.Mutex
	subs  map[string]*subscription
	state BindingState
	unsub func()
}

type subscription struct {
	name    string
	refresh func(context.Context)
	timer   *time.Timer
	gen     uint64 // invalidates timers that expired during a reschedule
	stopped bool
}

// NewDispatcher creates new Dispatcher instance
func NewDispatcher(bus *Bus, quiet time.Duration, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		bus:    bus,
		quiet:  quiet,
		logger: logger,
		subs:   make(map[string]*subscription),
		state:  StateUnsubscribed,
	}
}

// Start binds the dispatcher to the bus, retrying with exponential backoff
// until ctx is cancelled. A failed subscription is never silently abandoned.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.setState(StateSubscribing)

	attempt := func() error {
		unsub, err := d.bus.Subscribe(d.handle)
		if err != nil {
			d.setState(StateReconnecting)
			d.logger.Warn("bus subscription failed, retrying", zap.Error(err))
			return err
		}
		d.mu.Lock()
		d.unsub = unsub
		d.mu.Unlock()
		return nil
	}

	if err := backoff.Retry(attempt, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		d.setState(StateUnsubscribed)
		return err
	}

	d.setState(StateSubscribed)
	d.logger.Debug("dispatcher subscribed", zap.Duration("quiet", d.quiet))
	return nil
}

// State returns the current binding state
func (d *Dispatcher) State() BindingState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Dispatcher) setState(s BindingState) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// Register adds a named view refresh callback. Registering an existing name
// replaces the callback and cancels its pending timer.
func (d *Dispatcher) Register(name string, refresh func(context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.subs[name]; ok {
		if prev.timer != nil {
			prev.timer.Stop()
		}
		prev.stopped = true
	}

	d.subs[name] = &subscription{name: name, refresh: refresh}
}

// Unregister removes the named view and cancels any pending timer. No
// refresh fires for the view after Unregister returns.
func (d *Dispatcher) Unregister(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sub, ok := d.subs[name]
	if !ok {
		return
	}
	if sub.timer != nil {
		sub.timer.Stop()
	}
	sub.stopped = true
	delete(d.subs, name)
}

// handle receives every change event and (re)schedules one refresh per view.
// Any event postpones every pending refresh: views re-derive whole lists, so
// there is nothing to gain from routing events to individual views here.
func (d *Dispatcher) handle(evt models.ChangeEvent) {
	d.logger.Debug("change event",
		zap.String("entity", string(evt.Entity)),
		zap.String("op", string(evt.Op)),
		zap.Bool("status_changed", evt.StatusChanged))
	d.scheduleAll()
}

func (d *Dispatcher) scheduleAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, sub := range d.subs {
		if sub.timer != nil {
			sub.timer.Stop()
		}
		s := sub
		s.gen++
		gen := s.gen
		s.timer = time.AfterFunc(d.quiet, func() { d.fire(s, gen) })
	}
}

func (d *Dispatcher) fire(s *subscription, gen uint64) {
	d.mu.Lock()
	if s.stopped || s.gen != gen {
		d.mu.Unlock()
		return
	}
	s.timer = nil
	d.mu.Unlock()

	metrics.RefreshesFired.WithLabelValues(s.name).Inc()
	s.refresh(context.Background())
}

// RefreshAll fires every registered view immediately, bypassing debounce.
// Used by the periodic sweep worker as a safety net for missed events.
func (d *Dispatcher) RefreshAll(ctx context.Context) {
	d.mu.Lock()
	subs := make([]*subscription, 0, len(d.subs))
	for _, s := range d.subs {
		subs = append(subs, s)
	}
	d.mu.Unlock()

	for _, s := range subs {
		s.refresh(ctx)
	}
}

// Stop unbinds from the bus and cancels all pending timers
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.unsub != nil {
		d.unsub()
		d.unsub = nil
	}
	for _, sub := range d.subs {
		if sub.timer != nil {
			sub.timer.Stop()
		}
		sub.stopped = true
	}
	d.state = StateUnsubscribed
	d.mu.Unlock()
}
