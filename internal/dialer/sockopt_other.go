//go:build !linux

package dialer

import (
	"syscall"
	"time"
)

func sockopts(time.Duration) func(network, address string, c syscall.RawConn) error {
	return nil
}
