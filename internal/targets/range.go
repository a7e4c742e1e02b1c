// Package targets turns configured network ranges into the host addresses a
// scan visits. Enumeration is lazy and host counts are computed arithmetically,
// so large ranges never have to be materialised in memory.
package targets

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"strings"

	"github.com/anstrom/kibanahunt/internal/errors"
)

// MaxHostBits bounds the size of a single range. Anything wider than a /0 IPv4
// block's worth of hosts cannot be scanned to completion in practice.
const MaxHostBits = 32

// Range is a contiguous block of addresses expressed as a masked prefix.
type Range struct {
	prefix netip.Prefix
}

// ParseRange parses a CIDR block or a bare address. Host bits in a CIDR are
// masked off, so "10.0.0.7/24" is the same range as "10.0.0.0/24".
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Range{}, errors.ErrInvalidRange(s, fmt.Errorf("empty range"))
	}

	var prefix netip.Prefix
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return Range{}, errors.ErrInvalidRange(s, err)
		}
		prefix = p
	} else {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return Range{}, errors.ErrInvalidRange(s, err)
		}
		if addr.Zone() != "" {
			return Range{}, errors.ErrInvalidRange(s, fmt.Errorf("zoned addresses are not supported"))
		}
		prefix = netip.PrefixFrom(addr, addr.BitLen())
	}

	prefix = prefix.Masked()
	if hostBits := prefix.Addr().BitLen() - prefix.Bits(); hostBits > MaxHostBits {
		return Range{}, errors.ErrInvalidRange(s,
			fmt.Errorf("range has %d host bits, at most %d are supported", hostBits, MaxHostBits))
	}

	return Range{prefix: prefix}, nil
}

// ParseRanges parses every entry, failing on the first invalid one.
func ParseRanges(specs []string) ([]Range, error) {
	ranges := make([]Range, 0, len(specs))
	for _, spec := range specs {
		r, err := ParseRange(spec)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

// MustParseRange is like ParseRange but panics on error.
func MustParseRange(s string) Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Prefix returns the masked prefix of the range.
func (r Range) Prefix() netip.Prefix {
	return r.prefix
}

// String returns the CIDR notation of the range.
func (r Range) String() string {
	return r.prefix.String()
}

// IsIPv4 reports whether the range is an IPv4 block.
func (r Range) IsIPv4() bool {
	return r.prefix.Addr().Is4()
}

func (r Range) hostBits() int {
	return r.prefix.Addr().BitLen() - r.prefix.Bits()
}

// firstOffset is the offset of the first usable host from the network address.
// Blocks with two or fewer addresses use every address; larger IPv4 blocks
// skip the network address and IPv6 blocks skip the Subnet-Router anycast address.
func (r Range) firstOffset() uint64 {
	if r.hostBits() < 2 {
		return 0
	}
	return 1
}

// Count returns the number of usable host addresses in the range.
// IPv4 blocks larger than /31 exclude network and broadcast addresses,
// IPv6 blocks larger than /127 exclude the Subnet-Router anycast address.
func (r Range) Count() uint64 {
	h := r.hostBits()
	switch {
	case h == 0:
		return 1
	case h == 1:
		return 2
	case r.IsIPv4():
		return (uint64(1) << h) - 2
	default:
		return (uint64(1) << h) - 1
	}
}

// Host returns the i-th usable host address, counting from zero.
func (r Range) Host(i uint64) (netip.Addr, bool) {
	if i >= r.Count() {
		return netip.Addr{}, false
	}
	return addOffset(r.prefix.Addr(), r.firstOffset()+i), true
}

// First returns the first usable host address of the range.
func (r Range) First() netip.Addr {
	addr, _ := r.Host(0)
	return addr
}

// Contains reports whether addr is a usable host of the range.
func (r Range) Contains(addr netip.Addr) bool {
	if !r.prefix.Contains(addr) {
		return false
	}
	off := offsetOf(r.prefix.Addr(), addr)
	return off >= r.firstOffset() && off < r.firstOffset()+r.Count()
}

// addOffset adds off to the low 64 bits of base. Callers guarantee that off
// fits within the host part of a masked prefix, so no carry is needed.
func addOffset(base netip.Addr, off uint64) netip.Addr {
	if base.Is4() {
		b := base.As4()
		v := binary.BigEndian.Uint32(b[:]) + uint32(off)
		binary.BigEndian.PutUint32(b[:], v)
		return netip.AddrFrom4(b)
	}
	b := base.As16()
	v := binary.BigEndian.Uint64(b[8:]) + off
	binary.BigEndian.PutUint64(b[8:], v)
	return netip.AddrFrom16(b)
}

func offsetOf(base, addr netip.Addr) uint64 {
	if base.Is4() {
		b, a := base.As4(), addr.As4()
		return uint64(binary.BigEndian.Uint32(a[:]) - binary.BigEndian.Uint32(b[:]))
	}
	b, a := base.As16(), addr.As16()
	return binary.BigEndian.Uint64(a[8:]) - binary.BigEndian.Uint64(b[8:])
}
