package identity

import (
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/dmitrijs2005/cryptshare/internal/common"
)

// Resolve determines the client's Prefix for one request.
//
// With proxyDepth <= 0 the transport-layer peer address (remoteAddr, typically
// "host:port") is authoritative. With proxyDepth N >= 1 the forwardedFor
// header is treated as a space- or comma-separated chain with the nearest
// proxy last, and the entry N hops from the trusted end is selected.
//
// A missing or malformed source for the configured depth is an operator
// fault: the reverse proxy is not injecting what the configuration promises.
// Those failures wrap common.ErrProxyMisconfigured and must surface as
// server errors, never as client errors.
func Resolve(remoteAddr, forwardedFor string, proxyDepth int) (Prefix, error) {
	if proxyDepth <= 0 {
		host, _, err := net.SplitHostPort(remoteAddr)
		if err != nil {
			// Some listeners hand us a bare address without a port.
			host = remoteAddr
		}
		addr, err := netip.ParseAddr(host)
		if err != nil {
			return Prefix{}, fmt.Errorf("%w: cannot parse peer address %q", common.ErrProxyMisconfigured, remoteAddr)
		}
		return FromAddr(addr), nil
	}

	hops := strings.FieldsFunc(forwardedFor, func(r rune) bool {
		return r == ' ' || r == ','
	})
	if len(hops) < proxyDepth {
		return Prefix{}, fmt.Errorf("%w: forwarded header has %d entries, need at least %d",
			common.ErrProxyMisconfigured, len(hops), proxyDepth)
	}

	addr, err := netip.ParseAddr(hops[len(hops)-proxyDepth])
	if err != nil {
		return Prefix{}, fmt.Errorf("%w: cannot parse forwarded address at depth %d",
			common.ErrProxyMisconfigured, proxyDepth)
	}
	return FromAddr(addr), nil
}
