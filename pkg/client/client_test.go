package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/synnergy-rpc/synnergy-rpc/internal/rpc/reactor"
	"github.com/synnergy-rpc/synnergy-rpc/internal/rpc/registry"
	"github.com/synnergy-rpc/synnergy-rpc/internal/rpc/rpcerr"
	"github.com/synnergy-rpc/synnergy-rpc/internal/wire"
)

func startServer(t *testing.T) (addr string, shutdown func()) {
	t.Helper()
	reg := registry.New()
	reg.Register("", "multiply", registry.NewFuncProcedure(func(a, b int) int { return a * b }))
	reg.Register("", "fault", registry.NewFuncProcedure(func() (int, error) {
		return 0, rpcerr.Remote(7, "Fault")
	}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	re := reactor.New(reg, nil, reactor.Config{MinWorkers: 2, MaxWorkers: 4})
	go re.Serve(ln)

	return ln.Addr().String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		re.Shutdown(ctx)
	}
}

func TestClientCallRoundTrip(t *testing.T) {
	addr, shutdown := startServer(t)
	defer shutdown()

	c, err := Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	var result int
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Call(ctx, "multiply", []any{2, 3}, &result); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result != 6 {
		t.Fatalf("result = %d, want 6", result)
	}
}

func TestClientCallReusesPooledConnection(t *testing.T) {
	addr, shutdown := startServer(t)
	defer shutdown()

	c, err := Dial("tcp", addr, WithMaxIdle(4))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		var result int
		if err := c.Call(ctx, "multiply", []any{i, 2}, &result); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if result != i*2 {
			t.Fatalf("call %d: result = %d, want %d", i, result, i*2)
		}
	}
	c.mu.Lock()
	idle := len(c.idle)
	c.mu.Unlock()
	if idle != 1 {
		t.Fatalf("idle pool size = %d, want 1 (single connection reused)", idle)
	}
}

func TestClientCallRemoteException(t *testing.T) {
	addr, shutdown := startServer(t)
	defer shutdown()

	c, err := Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = c.CallRaw(ctx, "fault", nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	remote, ok := err.(*wire.RemoteError)
	if !ok {
		t.Fatalf("got %T, want *wire.RemoteError", err)
	}
	if remote.Code != 7 || remote.Message != "Fault" {
		t.Fatalf("got code=%d message=%q, want code=7 message=%q", remote.Code, remote.Message, "Fault")
	}
}

func TestClientCallUnknownMethod(t *testing.T) {
	addr, shutdown := startServer(t)
	defer shutdown()

	c, err := Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = c.CallRaw(ctx, "no-such-method", nil)
	if err == nil {
		t.Fatal("expected an error for an unknown method")
	}
}
