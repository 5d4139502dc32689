// Package dblock serializes test packages that share the local Postgres
// database. Holding a loopback listener works as a cross-process mutex
// without any files to clean up.
package dblock

import (
	"net"
	"time"
)

const lockAddr = "127.0.0.1:45987"

// Acquire blocks until the lock is free and returns its release func.
// Call it first in TestMain and release after m.Run.
func Acquire() func() {
	for {
		ln, err := net.Listen("tcp", lockAddr)
		if err == nil {
			return func() { ln.Close() }
		}
		time.Sleep(50 * time.Millisecond)
	}
}
