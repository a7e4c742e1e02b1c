package targets

import (
	"context"
	"net/netip"
)

// Enumerator walks the host addresses of a list of ranges in configuration
// order, ascending within each range. It is single-use and not safe for
// concurrent calls to Next; use Stream to hand addresses to several workers.
type Enumerator struct {
	ranges []Range
	idx    int
	next   uint64
	total  uint64
}

// NewEnumerator creates an enumerator over ranges. Overlapping ranges are
// walked independently, so a shared address is produced once per range.
func NewEnumerator(ranges []Range) *Enumerator {
	e := &Enumerator{ranges: append([]Range(nil), ranges...)}
	for _, r := range e.ranges {
		e.total += r.Count()
	}
	return e
}

// Total returns the number of addresses the enumerator yields in all.
func (e *Enumerator) Total() uint64 {
	return e.total
}

// Next returns the next address and true, or false once every range is exhausted.
func (e *Enumerator) Next() (netip.Addr, bool) {
	for e.idx < len(e.ranges) {
		if addr, ok := e.ranges[e.idx].Host(e.next); ok {
			e.next++
			return addr, true
		}
		e.idx++
		e.next = 0
	}
	return netip.Addr{}, false
}

// Stream feeds the remaining addresses into a channel with the given buffer
// size. The channel is closed when enumeration finishes or ctx is done.
func (e *Enumerator) Stream(ctx context.Context, buffer int) <-chan netip.Addr {
	if buffer < 0 {
		buffer = 0
	}
	out := make(chan netip.Addr, buffer)

	go func() {
		defer close(out)
		for {
			addr, ok := e.Next()
			if !ok {
				return
			}
			select {
			case out <- addr:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// TotalHosts sums the usable host counts of ranges.
func TotalHosts(ranges []Range) uint64 {
	var total uint64
	for _, r := range ranges {
		total += r.Count()
	}
	return total
}
