//go:build !linux

package origdst

import "net"

// Lookup is not available on this platform
func Lookup(net.Conn) (int, error) {
	return 0, ErrUnsupported
}
