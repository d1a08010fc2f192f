package netutil

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCheckPortAvailableOnFreePort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	require.NoError(t, CheckPortAvailable(addr))
}

func TestCheckPortAvailableFailsWhenBound(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	require.Error(t, CheckPortAvailable(ln.Addr().String()))
}

func TestWaitForPortTimesOutWhenStillBound(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	err = WaitForPort(ln.Addr().String(), 150*time.Millisecond)
	require.Error(t, err)
}

func TestWaitForPortSucceedsOnceFreed(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	go func() {
		time.Sleep(50 * time.Millisecond)
		ln.Close()
	}()

	require.NoError(t, WaitForPort(addr, 2*time.Second))
}
