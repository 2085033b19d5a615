//go:build linux

package origdst

import (
	"encoding/binary"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// soOriginalDst is SO_ORIGINAL_DST from linux/netfilter_ipv4.h
const soOriginalDst = 80

// Lookup asks the kernel for the pre-NAT destination of an IPv4 TCP
// connection
func Lookup(c net.Conn) (int, error) {
	tcp, ok := c.(*net.TCPConn)
	if !ok {
		return 0, fmt.Errorf("looking up original destination: %T is not a TCP connection", c)
	}
	raw, err := tcp.SyscallConn()
	if err != nil {
		return 0, fmt.Errorf("looking up original destination: %w", err)
	}

	var port int
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		// the sockaddr_in comes back in the IPv6Mreq buffer: family, port, addr
		mreq, err := unix.GetsockoptIPv6Mreq(int(fd), unix.SOL_IP, soOriginalDst)
		if err != nil {
			sockErr = err
			return
		}
		port = int(binary.BigEndian.Uint16(mreq.Multiaddr[2:4]))
	})
	if err != nil {
		return 0, fmt.Errorf("looking up original destination: %w", err)
	}
	if sockErr != nil {
		return 0, fmt.Errorf("looking up original destination: %w", sockErr)
	}
	return port, nil
}
