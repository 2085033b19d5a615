// Package origdst recovers the port a connection was addressed to before a
// transparent-proxy redirect (iptables REDIRECT/DNAT). Only Linux supports
// the lookup; everywhere else, and on any failure, callers get the fallback.
package origdst

import (
	"context"
	"errors"
	"net"
)

// ErrUnsupported is returned when the platform has no SO_ORIGINAL_DST
var ErrUnsupported = errors.New("original destination lookup not supported")

type connKey struct{}

// WithConn stores the accepted connection in ctx. It matches the signature
// of http.Server.ConnContext.
func WithConn(ctx context.Context, c net.Conn) context.Context {
	return context.WithValue(ctx, connKey{}, c)
}

// ConnFrom returns the connection stored by WithConn
func ConnFrom(ctx context.Context) (net.Conn, bool) {
	c, ok := ctx.Value(connKey{}).(net.Conn)
	return c, ok
}

// Resolver answers the original destination port of a request
type Resolver struct {
	Enabled  bool
	Fallback int
}

// Port returns the original destination port for the connection in ctx, or
// the fallback when the lookup is disabled or fails
func (r Resolver) Port(ctx context.Context) int {
	if !r.Enabled {
		return r.Fallback
	}
	c, ok := ConnFrom(ctx)
	if !ok {
		return r.Fallback
	}
	port, err := Lookup(c)
	if err != nil || port == 0 {
		return r.Fallback
	}
	return port
}
