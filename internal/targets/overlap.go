package targets

import (
	"fmt"
	"net"

	"github.com/censys/cidranger"
)

// Overlap names two configured ranges that share addresses. Earlier is the
// range that appears first in the configuration.
type Overlap struct {
	Earlier Range
	Later   Range
}

func (o Overlap) String() string {
	return fmt.Sprintf("%s overlaps %s", o.Later, o.Earlier)
}

type rangeEntry struct {
	network net.IPNet
	index   int
}

func (e rangeEntry) Network() net.IPNet {
	return e.network
}

func toIPNet(r Range) net.IPNet {
	addr := r.prefix.Addr()
	return net.IPNet{
		IP:   net.IP(addr.AsSlice()),
		Mask: net.CIDRMask(r.prefix.Bits(), addr.BitLen()),
	}
}

// Overlaps reports every pair of ranges that share at least one address.
// Two CIDR blocks overlap only when one contains the other, so each range is
// checked against the trie for containing and covered networks before it is
// inserted. Scanning is not affected; callers use this to warn operators.
func Overlaps(ranges []Range) ([]Overlap, error) {
	ranger := cidranger.NewPCTrieRanger()
	seen := make(map[[2]int]bool)
	var overlaps []Overlap

	record := func(earlier, later int) {
		key := [2]int{earlier, later}
		if seen[key] {
			return
		}
		seen[key] = true
		overlaps = append(overlaps, Overlap{Earlier: ranges[earlier], Later: ranges[later]})
	}

	for i, r := range ranges {
		network := toIPNet(r)

		containing, err := ranger.ContainingNetworks(network.IP)
		if err != nil {
			return nil, fmt.Errorf("failed to query containing networks for %s: %w", r, err)
		}
		for _, entry := range containing {
			if e, ok := entry.(rangeEntry); ok {
				record(e.index, i)
			}
		}

		covered, err := ranger.CoveredNetworks(network)
		if err != nil {
			return nil, fmt.Errorf("failed to query covered networks for %s: %w", r, err)
		}
		for _, entry := range covered {
			if e, ok := entry.(rangeEntry); ok {
				record(e.index, i)
			}
		}

		if err := ranger.Insert(rangeEntry{network: network, index: i}); err != nil {
			return nil, fmt.Errorf("failed to index range %s: %w", r, err)
		}
	}

	return overlaps, nil
}
