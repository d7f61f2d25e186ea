package app

import (
	"net"
	"strconv"

	"github.com/abdul-hamid-achik/microtest/packages/response"
)

// DeterminePort returns the TCP port h is bound to. Servers without an
// address and servers on unix sockets or pipes are rejected with a
// *response.UsageError.
func DeterminePort(h Handle) (int, error) {
	if h == nil {
		return 0, response.Usage("server address returned nil")
	}
	addr := h.Addr()
	if addr == nil {
		return 0, response.Usage("server address returned nil")
	}

	switch a := addr.(type) {
	case *net.TCPAddr:
		if a == nil {
			return 0, response.Usage("server address returned nil")
		}
		return a.Port, nil
	case *net.UnixAddr:
		return 0, response.Usage("servers that listen on a unix domain socket or pipe are not supported")
	}

	switch addr.Network() {
	case "unix", "unixgram", "unixpacket", "pipe":
		return 0, response.Usage("servers that listen on a unix domain socket or pipe are not supported")
	}

	_, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return 0, response.Usage("cannot determine port from %q: %v", addr.String(), err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, response.Usage("cannot determine port from %q: %v", addr.String(), err)
	}
	return port, nil
}
