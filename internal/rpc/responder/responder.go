// Package responder drives the per-connection request/reply cycle: parse
// a request frame, dispatch it through a registry.Registry, and write back
// a reply frame (§4.2).
//
// The original state machine (header -> method -> params -> param, with
// params_skip/param_skip resync states entered on UnknownMethod or
// ArgumentMismatch so a parser that already committed to a method's
// Composer could keep consuming bytes in the right shape) does not need a
// distinct resync state here: every si.Info value is self-describing on
// the wire (its tag carries its own shape), so wire.Decoder.DecodeRequest
// always finishes consuming exactly one request regardless of whether the
// method name turns out to be registered. Unknown-method and
// argument-mismatch are therefore detected only after the full request is
// already off the wire, and resync is simply "read the next request."
package responder

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/synnergy-rpc/synnergy-rpc/internal/rpc/registry"
	"github.com/synnergy-rpc/synnergy-rpc/internal/rpc/rpcerr"
	"github.com/synnergy-rpc/synnergy-rpc/internal/si"
	"github.com/synnergy-rpc/synnergy-rpc/internal/wire"

	"github.com/sirupsen/logrus"
)

// Responder serves one connection's worth of request/reply traffic.
type Responder struct {
	conn     net.Conn
	registry *registry.Registry
	log      *logrus.Entry

	// KeepAliveTimeout bounds how long the responder waits for the next
	// request before giving up and returning an IOTimeout error; the
	// reactor then closes the connection.
	KeepAliveTimeout time.Duration
}

func New(conn net.Conn, reg *registry.Registry, log *logrus.Entry) *Responder {
	return &Responder{conn: conn, registry: reg, log: log}
}

// Serve runs the request/reply loop until the connection is closed, a
// transport error occurs, or a malformed frame is encountered. It returns
// nil on a clean peer-initiated close, and a non-nil error otherwise.
func (r *Responder) Serve() error {
	enc := wire.NewEncoder(r.conn)
	dec := wire.NewDecoder(r.conn)

	for {
		if r.KeepAliveTimeout > 0 {
			r.conn.SetReadDeadline(time.Now().Add(r.KeepAliveTimeout))
		}

		domain, method, args, err := dec.DecodeRequest()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return rpcerr.New(rpcerr.IOTimeout, "keep-alive timeout")
			}
			if _, ok := err.(*wire.MalformedFrameError); ok {
				return rpcerr.Wrap(rpcerr.MalformedFrame, "decoding request", err)
			}
			return rpcerr.Wrap(rpcerr.IOError, "reading request", err)
		}

		result, callErr := r.dispatch(domain, method, args)
		if callErr != nil {
			if err := r.writeError(enc, callErr); err != nil {
				return err
			}
			if r.log != nil {
				r.log.WithFields(logrus.Fields{"method": method, "domain": domain}).
					WithError(callErr).Warn("rpc call failed")
			}
			continue
		}
		if err := enc.EncodeReplyOK(result); err != nil {
			return rpcerr.Wrap(rpcerr.IOError, "writing reply", err)
		}
	}
}

func (r *Responder) dispatch(domain, method string, args []*si.Info) (*si.Info, error) {
	proc, err := r.registry.Acquire(domain, method)
	if err != nil {
		return nil, err
	}
	defer r.registry.Release(proc)
	return proc.Call(args)
}

func (r *Responder) writeError(enc *wire.Encoder, err error) error {
	var re *rpcerr.Error
	if errors.As(err, &re) {
		return enc.EncodeReplyError(re.Code, re.Message)
	}
	return enc.EncodeReplyError(-1, err.Error())
}
