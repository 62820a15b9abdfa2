// Package identity derives the canonical client identity used for rate
// limiting and per-client quotas: a full IPv4 address, or the /64 prefix of
// an IPv6 address so a client rotating through its subnet still maps to one
// key.
package identity

import (
	"encoding/hex"
	"fmt"
	"net/netip"
	"strings"
)

// Prefix is either a full IPv4 address or the top 64 bits of an IPv6 address.
// It is comparable and intended for use as a map key; equality is defined
// over the tagged bytes, not the string encoding.
type Prefix struct {
	v6 bool
	b  [8]byte // IPv4 uses the first 4 bytes, the rest stay zero
}

// FromAddr converts an IP address to its Prefix. IPv4-mapped IPv6 addresses
// are unmapped first so they group with their IPv4 form.
func FromAddr(addr netip.Addr) Prefix {
	addr = addr.Unmap()
	if addr.Is4() {
		a4 := addr.As4()
		var p Prefix
		copy(p.b[:4], a4[:])
		return p
	}
	a16 := addr.As16()
	p := Prefix{v6: true}
	copy(p.b[:], a16[:8])
	return p
}

// IsV6 reports whether the prefix was derived from an IPv6 address.
func (p Prefix) IsV6() bool { return p.v6 }

// String returns the canonical fixed-width encoding, "v4_" or "v6_" followed
// by the lower-case hex of the tagged bytes. It is what gets persisted and
// logged, and ParsePrefix inverts it losslessly.
func (p Prefix) String() string {
	if p.v6 {
		return "v6_" + hex.EncodeToString(p.b[:])
	}
	return "v4_" + hex.EncodeToString(p.b[:4])
}

// Pretty renders the prefix in human-readable notation for log output and
// the admin overview.
func (p Prefix) Pretty() string {
	if p.v6 {
		return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x:%02x%02x::/64",
			p.b[0], p.b[1], p.b[2], p.b[3], p.b[4], p.b[5], p.b[6], p.b[7])
	}
	return fmt.Sprintf("%d.%d.%d.%d", p.b[0], p.b[1], p.b[2], p.b[3])
}

// ParsePrefix parses the canonical encoding produced by String.
func ParsePrefix(s string) (Prefix, error) {
	tag, rest, ok := strings.Cut(s, "_")
	if !ok {
		return Prefix{}, fmt.Errorf("malformed identity %q", s)
	}
	octets, err := hex.DecodeString(rest)
	if err != nil {
		return Prefix{}, fmt.Errorf("malformed identity %q", s)
	}
	switch {
	case tag == "v4" && len(octets) == 4:
		var p Prefix
		copy(p.b[:4], octets)
		return p, nil
	case tag == "v6" && len(octets) == 8:
		p := Prefix{v6: true}
		copy(p.b[:], octets)
		return p, nil
	default:
		return Prefix{}, fmt.Errorf("malformed identity %q", s)
	}
}
