package modbuspool

import (
	"net"
	"testing"
	"time"

	"github.com/ptindo/fleet-worker/models"
)

// fakeGateway accepts TCP connections without speaking Modbus, enough to
// exercise the pool's connect/reconnect bookkeeping.
func fakeGateway(t *testing.T) (models.GatewayEndpoint, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				// keep the connection open and idle
				buf := make([]byte, 256)
				for {
					if _, err := c.Read(buf); err != nil {
						c.Close()
						return
					}
				}
			}(conn)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	ep := models.GatewayEndpoint{IP: "127.0.0.1", Port: uint16(addr.Port)}
	return ep, func() { ln.Close() }
}

func TestAcquireReturnsSameClientPerEndpoint(t *testing.T) {
	ep, stop := fakeGateway(t)
	defer stop()

	pool := New()

	c1, err := pool.Acquire(ep)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	c2, err := pool.Acquire(ep)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if c1 != c2 {
		t.Fatalf("expected at most one client per endpoint, got distinct instances")
	}
}

func TestMarkDisconnectedForcesReconnect(t *testing.T) {
	ep, stop := fakeGateway(t)
	defer stop()

	pool := New()

	c1, err := pool.Acquire(ep)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	pool.MarkDisconnected(ep)

	c2, err := pool.Acquire(ep)
	if err != nil {
		t.Fatalf("re-acquire: %v", err)
	}

	// Same *Client identity is kept (it's the connection state that's
	// refreshed), but it must be reconnected.
	if c1 != c2 {
		t.Fatalf("expected pool to keep the same Client instance keyed by endpoint")
	}
	c2.mu.Lock()
	connected := c2.connected
	c2.mu.Unlock()
	if !connected {
		t.Fatalf("expected client to be reconnected after MarkDisconnected+Acquire")
	}
}

func TestAcquireUnreachableGatewaySurfacesError(t *testing.T) {
	// Port 1 is privileged/unused in test sandboxes; use a closed listener
	// to guarantee a refused connection instead.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	ep := models.GatewayEndpoint{IP: "127.0.0.1", Port: uint16(addr.Port)}
	pool := New()

	start := time.Now()
	_, err = pool.Acquire(ep)
	if err == nil {
		t.Fatalf("expected error for unreachable gateway")
	}
	if time.Since(start) < connectBackoff {
		t.Fatalf("expected at least one retry backoff before giving up")
	}
}

func TestCloseAllMarksDisconnected(t *testing.T) {
	ep, stop := fakeGateway(t)
	defer stop()

	pool := New()
	c, err := pool.Acquire(ep)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	pool.CloseAll()

	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if connected {
		t.Fatalf("expected client disconnected after CloseAll")
	}
}
