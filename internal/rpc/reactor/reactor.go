// Package reactor implements the server's accept loop and the elastic
// worker pool that drains it (§4.4): a single accept goroutine posts
// connections onto a bounded job queue; a small pool of long-lived
// "base" workers and a larger pool of short-lived "extra" workers (spun
// up under backpressure, retired when idle) drain that queue by running
// one responder.Responder.Serve per connection.
package reactor

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/synnergy-rpc/synnergy-rpc/internal/rpc/registry"
	"github.com/synnergy-rpc/synnergy-rpc/internal/rpc/responder"
)

// State is the reactor's termination state machine:
// Stopped -> Starting -> Running -> Terminating -> Stopped, with Failed
// reached if Shutdown's context expires before every worker has exited.
type State int32

const (
	Stopped State = iota
	Starting
	Running
	Terminating
	Failed
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Terminating:
		return "terminating"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is posted to the reactor's single coordinator goroutine, which is
// the only place pool-size decisions are made, keeping the scaling logic
// free of the races a multi-writer scheme would invite.
type Event int

const (
	EvNoWaitingThreads Event = iota
	EvThreadTerminated
	EvIdleSocket
	EvKeepAliveTimeout
	EvActiveSocket
	EvStart
)

// Config bounds the worker pool and the per-connection idle policy.
type Config struct {
	MinWorkers      int
	MaxWorkers      int
	QueueCapacity   int
	IdleWorkerTTL   time.Duration // how long an "extra" worker waits idle before retiring
	KeepAlive       time.Duration // per-connection read deadline between requests
}

func (c Config) withDefaults() Config {
	if c.MinWorkers <= 0 {
		c.MinWorkers = 2
	}
	if c.MaxWorkers < c.MinWorkers {
		c.MaxWorkers = c.MinWorkers * 4
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 64
	}
	if c.IdleWorkerTTL <= 0 {
		c.IdleWorkerTTL = 30 * time.Second
	}
	return c
}

// Reactor owns the listener, the job queue, and the worker pool.
type Reactor struct {
	cfg      Config
	registry *registry.Registry
	log      *logrus.Entry

	state atomic.Int32

	queue  chan net.Conn
	events chan Event

	extraWorkers atomic.Int32
	wg           sync.WaitGroup

	listener  net.Listener
	stopOnce  sync.Once
	stopped   chan struct{}
}

func New(reg *registry.Registry, log *logrus.Entry, cfg Config) *Reactor {
	cfg = cfg.withDefaults()
	return &Reactor{
		cfg:      cfg,
		registry: reg,
		log:      log,
		queue:    make(chan net.Conn, cfg.QueueCapacity),
		events:   make(chan Event, 256),
		stopped:  make(chan struct{}),
	}
}

func (r *Reactor) State() State { return State(r.state.Load()) }

func (r *Reactor) setState(s State) { r.state.Store(int32(s)) }

func (r *Reactor) postEvent(e Event) {
	select {
	case r.events <- e:
	default:
		// Event channel is deep enough that this should never happen in
		// practice; dropping an advisory scaling signal is safe.
	}
}

// Serve accepts connections on ln until Shutdown is called or Accept
// fails. It blocks until the accept loop exits.
func (r *Reactor) Serve(ln net.Listener) error {
	r.listener = ln
	r.setState(Starting)
	for i := 0; i < r.cfg.MinWorkers; i++ {
		r.spawnBaseWorker()
	}
	r.setState(Running)
	r.postEvent(EvStart)
	go r.coordinate()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if r.State() == Terminating || r.State() == Stopped {
				return nil
			}
			return err
		}
		r.postEvent(EvActiveSocket)
		select {
		case r.queue <- conn:
		default:
			r.postEvent(EvNoWaitingThreads)
			r.queue <- conn // apply backpressure rather than drop work
		}
	}
}

// Shutdown stops accepting new connections, drains the queue, and waits
// for in-flight workers to finish (or ctx to expire).
func (r *Reactor) Shutdown(ctx context.Context) error {
	r.stopOnce.Do(func() {
		r.setState(Terminating)
		if r.listener != nil {
			r.listener.Close()
		}
		close(r.queue)
		close(r.stopped)
		close(r.events)
	})

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.setState(Stopped)
		return nil
	case <-ctx.Done():
		r.setState(Failed)
		return ctx.Err()
	}
}

// spawnBaseWorker starts a worker that runs for the reactor's entire
// lifetime, draining the queue until it is closed at shutdown.
func (r *Reactor) spawnBaseWorker() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for conn := range r.queue {
			r.handle(conn)
		}
	}()
}

// spawnExtraWorker starts a worker that retires itself after IdleWorkerTTL
// with nothing to do, posting EvThreadTerminated so the coordinator's
// count of live extra workers stays accurate.
func (r *Reactor) spawnExtraWorker() {
	r.extraWorkers.Add(1)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.extraWorkers.Add(-1)
		timer := time.NewTimer(r.cfg.IdleWorkerTTL)
		defer timer.Stop()
		for {
			select {
			case conn, ok := <-r.queue:
				if !ok {
					return
				}
				r.handle(conn)
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(r.cfg.IdleWorkerTTL)
			case <-timer.C:
				r.postEvent(EvThreadTerminated)
				return
			}
		}
	}()
}

func (r *Reactor) handle(conn net.Conn) {
	defer conn.Close()
	resp := responder.New(conn, r.registry, r.log)
	resp.KeepAliveTimeout = r.cfg.KeepAlive
	if err := resp.Serve(); err != nil {
		if r.log != nil && !errors.Is(err, net.ErrClosed) {
			r.log.WithError(err).Debug("connection closed")
		}
	}
}

// coordinate is the reactor's single scaling decision-maker: it grows the
// extra-worker pool under backpressure (bounded by MaxWorkers) and simply
// observes retirements and keep-alive signals otherwise.
func (r *Reactor) coordinate() {
	for ev := range r.events {
		switch ev {
		case EvNoWaitingThreads:
			if r.cfg.MinWorkers+int(r.extraWorkers.Load()) < r.cfg.MaxWorkers {
				r.spawnExtraWorker()
			}
		case EvThreadTerminated, EvIdleSocket, EvKeepAliveTimeout, EvActiveSocket, EvStart:
			// Advisory only in this implementation; logged at trace level
			// for operators tuning pool sizing.
			if r.log != nil {
				r.log.WithField("event", ev).Trace("reactor event")
			}
		}
		select {
		case <-r.stopped:
			return
		default:
		}
	}
}
