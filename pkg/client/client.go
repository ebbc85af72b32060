// Package client implements a binary-protocol RPC client: it dials a
// synnergy-rpc listener, frames requests with the same wire codec the
// server speaks, and blocks for the reply. spec.md's distillation dropped
// the client side entirely; it is supplemented here from
// original_source/cxxtools/src/bin/* (which pairs rpcserver with a client
// using the identical frame format) because a wire-compatible server with
// no client is untestable as a protocol (see SPEC_FULL.md §4.7).
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/synnergy-rpc/synnergy-rpc/internal/si"
	"github.com/synnergy-rpc/synnergy-rpc/internal/wire"
)

// Option configures a Client at construction time.
type Option func(*Client)

// WithDialTimeout bounds how long Dial waits to establish the TCP
// connection.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) { c.dialTimeout = d }
}

// WithCallTimeout bounds how long a single Call waits for its reply,
// mirroring the server's configurable read/write timeouts (§5).
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) { c.callTimeout = d }
}

// WithDomain scopes every call this Client makes to a domain, emitted as
// the 0xC3 domain-prefixed request frame (§4.1).
func WithDomain(domain string) Option {
	return func(c *Client) { c.domain = domain }
}

// WithMaxIdle bounds how many idle connections the Client keeps pooled per
// address, adapted from the teacher's core.ConnPool idiom.
func WithMaxIdle(n int) Option {
	return func(c *Client) { c.maxIdle = n }
}

// WithIdleTTL bounds how long a pooled connection may sit idle before the
// background reaper closes it.
func WithIdleTTL(d time.Duration) Option {
	return func(c *Client) { c.idleTTL = d }
}

// Client is a connection-pooled binary-RPC client. One Client may issue
// concurrent Call requests: unlike the server side, a single logical
// connection serves one in-flight request at a time (§5 ordering
// guarantee), so concurrency comes from the pool growing, not from
// multiplexing requests onto one socket.
type Client struct {
	network string
	addr    string
	domain  string

	dialTimeout time.Duration
	callTimeout time.Duration
	maxIdle     int
	idleTTL     time.Duration

	mu      sync.Mutex
	idle    []*pooledConn
	closing chan struct{}
	once    sync.Once
}

type pooledConn struct {
	conn     net.Conn
	enc      *wire.Encoder
	dec      *wire.Decoder
	lastUsed time.Time
}

// Dial connects to addr over network ("tcp" in the common case) and
// returns a ready Client. The TCP connection itself is established lazily,
// on the first Call, the way the teacher's Dialer-backed ConnPool defers
// connection setup to Acquire.
func Dial(network, addr string, opts ...Option) (*Client, error) {
	c := &Client{
		network:     network,
		addr:        addr,
		dialTimeout: 10 * time.Second,
		callTimeout: 30 * time.Second,
		maxIdle:     8,
		idleTTL:     60 * time.Second,
		closing:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.reaper()
	return c, nil
}

// Call invokes method with args (each converted via si.Serialize) and
// decodes the reply into result (via si.Deserialize), the way a composer/
// decomposer pair would on the server side. result may be nil to discard
// the reply value.
func (c *Client) Call(ctx context.Context, method string, args []any, result any) error {
	reply, err := c.CallRaw(ctx, method, args)
	if err != nil {
		return err
	}
	if result == nil || reply == nil {
		return nil
	}
	return si.Deserialize(reply, result)
}

// CallRaw invokes method and returns the raw si.Info reply, for callers
// that want the reflective tree rather than a concrete Go type.
func (c *Client) CallRaw(ctx context.Context, method string, args []any) (*si.Info, error) {
	pc, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]*si.Info, len(args))
	for i, a := range args {
		n := si.New()
		if err := si.Serialize(n, a); err != nil {
			c.discard(pc)
			return nil, fmt.Errorf("client: encoding argument %d: %w", i, err)
		}
		infos[i] = n
	}

	if deadline, ok := ctx.Deadline(); ok {
		pc.conn.SetDeadline(deadline)
	} else if c.callTimeout > 0 {
		pc.conn.SetDeadline(time.Now().Add(c.callTimeout))
	}

	if err := pc.enc.EncodeRequest(c.domain, method, infos); err != nil {
		c.discard(pc)
		return nil, fmt.Errorf("client: writing request: %w", err)
	}

	result, callErr := pc.dec.DecodeReply()
	pc.conn.SetDeadline(time.Time{})
	if callErr != nil {
		var remote *wire.RemoteError
		if errors.As(callErr, &remote) {
			c.release(pc) // the connection itself is still healthy
			return nil, remote
		}
		c.discard(pc)
		return nil, fmt.Errorf("client: reading reply: %w", callErr)
	}
	c.release(pc)
	return result, nil
}

func (c *Client) acquire(ctx context.Context) (*pooledConn, error) {
	c.mu.Lock()
	n := len(c.idle)
	if n > 0 {
		pc := c.idle[n-1]
		c.idle = c.idle[:n-1]
		c.mu.Unlock()
		return pc, nil
	}
	c.mu.Unlock()

	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, c.network, c.addr)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", c.addr, err)
	}
	return &pooledConn{
		conn: conn,
		enc:  wire.NewEncoder(conn),
		dec:  wire.NewDecoder(conn),
	}, nil
}

// release returns pc to the idle pool (per §4.1, the name dictionary
// survives across pipelined requests on the same connection, so reusing
// the connection's Encoder/Decoder as-is is correct and keeps the
// dictionary's compression benefit across calls).
func (c *Client) release(pc *pooledConn) {
	pc.lastUsed = time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.closing:
		pc.conn.Close()
		return
	default:
	}
	if c.maxIdle > 0 && len(c.idle) >= c.maxIdle {
		pc.conn.Close()
		return
	}
	c.idle = append(c.idle, pc)
}

func (c *Client) discard(pc *pooledConn) {
	pc.conn.Close()
}

// reaper closes pooled connections that have sat idle past idleTTL,
// adapted from the teacher's core.ConnPool.reaper ticker-driven sweep.
func (c *Client) reaper() {
	if c.idleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(c.idleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-c.idleTTL)
			c.mu.Lock()
			kept := c.idle[:0]
			for _, pc := range c.idle {
				if pc.lastUsed.Before(cutoff) {
					pc.conn.Close()
					continue
				}
				kept = append(kept, pc)
			}
			c.idle = kept
			c.mu.Unlock()
		case <-c.closing:
			return
		}
	}
}

// Close closes every pooled connection and stops the background reaper.
func (c *Client) Close() error {
	c.once.Do(func() {
		close(c.closing)
	})
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, pc := range c.idle {
		pc.conn.Close()
	}
	c.idle = nil
	return nil
}
