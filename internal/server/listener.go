package server

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// Listener is a non-blocking TCP listening socket. It is an Acceptor:
// the Server polls its descriptor alongside the connections.
type Listener struct {
	fd     int
	addr   *net.TCPAddr
	closed bool
}

// Listen binds addr ("host:port", host optional) with SO_REUSEADDR.
func Listen(addr string) (*Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}

	family, sa := toSockaddr(tcpAddr)

	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	unix.CloseOnExec(fd)

	fail := func(op string, err error) (*Listener, error) {
		unix.Close(fd)
		return nil, fmt.Errorf("%s %s: %w", op, addr, err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fail("setsockopt SO_REUSEADDR", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		return fail("bind", err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		return fail("listen", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return fail("set non-blocking", err)
	}

	local, err := unix.Getsockname(fd)
	if err != nil {
		return fail("getsockname", err)
	}

	return &Listener{fd: fd, addr: fromSockaddr(local)}, nil
}

func toSockaddr(addr *net.TCPAddr) (int, unix.Sockaddr) {
	if addr.IP == nil || addr.IP.To4() != nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		if addr.IP != nil {
			copy(sa.Addr[:], addr.IP.To4())
		}
		return unix.AF_INET, sa
	}
	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To16())
	return unix.AF_INET6, sa
}

func fromSockaddr(sa unix.Sockaddr) *net.TCPAddr {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(v.Addr[:]).To16(), Port: v.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(v.Addr[:]), Port: v.Port}
	default:
		return &net.TCPAddr{}
	}
}

func (l *Listener) Fd() int {
	return l.fd
}

// Addr is the bound address, with the real port when ":0" was asked.
func (l *Listener) Addr() *net.TCPAddr {
	return l.addr
}

// Accept takes one pending connection. It returns unix.EAGAIN when
// there is none.
func (l *Listener) Accept() (Socket, error) {
	nfd, _, err := unix.Accept(l.fd)
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(nfd)

	sock, err := NewFdSocket(nfd)
	if err != nil {
		unix.Close(nfd)
		return nil, fmt.Errorf("accept: %w", err)
	}
	return sock, nil
}

func (l *Listener) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	return unix.Close(l.fd)
}
