package results

import (
	"net/netip"
	"sync"
	"time"

	"github.com/anstrom/kibanahunt/internal/logging"
)

const defaultBuffer = 256

type eventKind int

const (
	kindHost eventKind = iota
	kindMatch
	kindInterrupted
)

type event struct {
	kind  eventKind
	addr  netip.Addr
	err   error
	match ServiceMatch
}

// Option customises an Aggregator.
type Option func(*Aggregator)

// WithObserver registers fn to receive every applied event. Calls are made
// from the aggregator goroutine one at a time, so fn must not block for long.
func WithObserver(fn func(Event)) Option {
	return func(a *Aggregator) {
		a.observer = fn
	}
}

// WithHostsExpected records the enumerated host count in the summary.
func WithHostsExpected(n uint64) Option {
	return func(a *Aggregator) {
		a.summary.HostsExpected = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *Aggregator) {
		a.logger = l
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// WithBuffer sets the capacity of the intake channel.
func WithBuffer(n int) Option {
	return func(a *Aggregator) {
		if n >= 0 {
			a.buffer = n
		}
	}
}

// Aggregator accumulates scan results. Record methods are safe to call from
// any goroutine; the counters and the match list are only ever touched by
// the aggregator's own goroutine.
type Aggregator struct {
	events chan event
	done   chan struct{}

	// intake guards the closed flag so no send races with close(events).
	intake sync.RWMutex
	closed bool

	summary  Summary
	observer func(Event)
	logger   *logging.Logger
	now      func() time.Time
	buffer   int

	closeOnce sync.Once
	frozen    chan struct{}
	final     Summary
}

// NewAggregator starts an aggregator for the scan identified by scanID.
func NewAggregator(scanID string, opts ...Option) *Aggregator {
	a := &Aggregator{
		done:   make(chan struct{}),
		frozen: make(chan struct{}),
		logger: logging.Default(),
		now:    time.Now,
		buffer: defaultBuffer,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logging.NewDiscard()
	}

	a.summary.ScanID = scanID
	a.summary.StartTime = a.now()
	a.summary.Matches = []ServiceMatch{}
	a.events = make(chan event, a.buffer)

	go a.consume()
	return a
}

// RecordHostScanned counts one completed address. err is the address
// handler's error, if any; the address is counted either way.
func (a *Aggregator) RecordHostScanned(addr netip.Addr, err error) {
	a.send(event{kind: kindHost, addr: addr, err: err})
}

// RecordServiceMatch appends a confirmed service. A zero ConfirmedAt is
// stamped with the aggregator clock.
func (a *Aggregator) RecordServiceMatch(match ServiceMatch) {
	a.send(event{kind: kindMatch, addr: match.Address, match: match})
}

// MarkInterrupted flags the summary as covering a partial run.
func (a *Aggregator) MarkInterrupted() {
	a.send(event{kind: kindInterrupted})
}

func (a *Aggregator) send(ev event) {
	a.intake.RLock()
	defer a.intake.RUnlock()
	if a.closed {
		a.logger.Debug("Dropping result recorded after close", "target", ev.addr.String())
		return
	}
	a.events <- ev
}

func (a *Aggregator) consume() {
	defer close(a.done)

	for ev := range a.events {
		switch ev.kind {
		case kindHost:
			a.summary.TotalHostsScanned++
			if ev.err != nil {
				a.summary.HostsWithErrors++
			}
			a.notify(Event{Kind: EventHostScanned, Address: ev.addr, Err: ev.err})

		case kindMatch:
			m := ev.match
			if m.ConfirmedAt.IsZero() {
				m.ConfirmedAt = a.now()
			}
			a.summary.Matches = append(a.summary.Matches, m)
			a.summary.TotalServicesFound = uint64(len(a.summary.Matches))
			a.notify(Event{Kind: EventServiceMatch, Address: m.Address, Match: &m})

		case kindInterrupted:
			a.summary.Interrupted = true
		}
	}
}

func (a *Aggregator) notify(ev Event) {
	if a.observer == nil {
		return
	}
	ev.HostsScanned = a.summary.TotalHostsScanned
	ev.HostsExpected = a.summary.HostsExpected
	ev.ServicesFound = a.summary.TotalServicesFound
	a.observer(ev)
}

// Close stops intake, waits for every pending event to be applied and
// returns the frozen summary. Later calls return the same summary.
func (a *Aggregator) Close() Summary {
	a.closeOnce.Do(func() {
		a.intake.Lock()
		a.closed = true
		close(a.events)
		a.intake.Unlock()

		<-a.done

		s := a.summary
		s.EndTime = a.now()
		s.Duration = s.EndTime.Sub(s.StartTime)
		s.Matches = append([]ServiceMatch{}, a.summary.Matches...)
		a.final = s
		close(a.frozen)
	})
	return a.Snapshot()
}

// Snapshot returns a copy of the frozen summary. Before Close it returns a
// summary with only the scan ID and start time set.
func (a *Aggregator) Snapshot() Summary {
	select {
	case <-a.frozen:
	default:
		return Summary{
			ScanID:        a.summary.ScanID,
			HostsExpected: a.summary.HostsExpected,
			StartTime:     a.summary.StartTime,
			Matches:       []ServiceMatch{},
		}
	}

	s := a.final
	s.Matches = append([]ServiceMatch{}, a.final.Matches...)
	return s
}
