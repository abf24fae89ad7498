// package nettools peeks at connection sockets below the net.Conn
// abstraction.
package nettools

import (
	"net"
	"syscall"
)

// Readable reports whether c has pending input or a pending EOF without
// consuming it. A connection that sits idle in a pool and becomes
// readable was either closed by the peer or received bytes nobody asked
// for; both mean it must not be reused. Connections whose descriptor can't
// be reached report false.
func Readable(c net.Conn) bool {
	rc := connToFD(c)
	if rc == nil {
		return false
	}
	readable := false
	// It's annoying that golang docs didn't specify whether the
	// control action will be executed if error occurrs
	// however according to the source code errors would only
	// happen before the control action, here's an example on *[net.conn]:
	//
	//  if err := fd.incref(); err != nil {
	//  	return err
	//  }
	//  defer fd.decref()
	//  f(uintptr(fd.Sysfd))
	//  return nil
	if err := rc.Control(func(fd uintptr) {
		readable = pollReadable(int(fd))
	}); err != nil {
		return true // descriptor already closed
	}
	return readable
}

func connToFD(raw net.Conn) syscall.RawConn {
	if t, ok := raw.(interface{ NetConn() net.Conn }); ok {
		// is *tls.Conn
		raw = t.NetConn()
	}
	if c, ok := raw.(syscall.Conn); ok {
		if c, err := c.SyscallConn(); err == nil {
			return c
		}
	}
	return nil
}
