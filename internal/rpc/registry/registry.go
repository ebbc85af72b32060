// Package registry implements the method table every responder dispatches
// through (§4.3): a string-keyed map from method name to a Procedure
// prototype, acquired as a fresh clone per call so concurrent invocations
// of the same method never alias mutable state.
package registry

import (
	"fmt"
	"sync"

	"github.com/synnergy-rpc/synnergy-rpc/internal/rpc/rpcerr"
	"github.com/synnergy-rpc/synnergy-rpc/internal/si"
)

// Procedure is one callable RPC method. Implementations decode their
// arguments from the si.Info tree passed to Call, run, and compose their
// result back into the returned Info (or return an *rpcerr.Error).
type Procedure interface {
	// Clone returns a fresh instance ready to accept one call, isolated
	// from any other in-flight clone of the same registered prototype.
	Clone() Procedure
	// Call decodes args, executes, and returns the result to serialize
	// back to the caller.
	Call(args []*si.Info) (*si.Info, error)
}

// domainKey joins a domain and a method name the way §4.2's domain-scoped
// request frame (0xC3) addresses it.
func domainKey(domain, method string) string {
	if domain == "" {
		return method
	}
	return domain + "\x00" + method
}

// Registry is the per-server method table. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	procs map[string]Procedure
}

func New() *Registry {
	return &Registry{procs: make(map[string]Procedure)}
}

// Register installs proto under name (and, if domain is non-empty, scoped
// to that domain). Re-registering the same key replaces the prototype.
func (r *Registry) Register(domain, method string, proto Procedure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.procs[domainKey(domain, method)] = proto
}

// Unregister removes a method, if present.
func (r *Registry) Unregister(domain, method string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.procs, domainKey(domain, method))
}

// Acquire looks up method and returns a private Clone of its prototype,
// ready for one call. The caller must Release it when done (Release is
// advisory for implementations that pool clone resources; the default
// Clone implementations need no explicit teardown, but the contract is
// kept so pooled procedures can reclaim buffers).
func (r *Registry) Acquire(domain, method string) (Procedure, error) {
	r.mu.RLock()
	proto, ok := r.procs[domainKey(domain, method)]
	r.mu.RUnlock()
	if !ok {
		return nil, rpcerr.New(rpcerr.UnknownMethod, fmt.Sprintf("no such method: %s", domainKey(domain, method)))
	}
	return proto.Clone(), nil
}

// Release discards a clone acquired via Acquire. It is a no-op unless the
// clone implements io.Closer-like cleanup via Releaser.
func (r *Registry) Release(p Procedure) {
	if rel, ok := p.(Releaser); ok {
		rel.ReleaseClone()
	}
}

// Releaser is implemented by procedures that hold resources (e.g. pooled
// buffers) needing explicit teardown after a call completes.
type Releaser interface {
	ReleaseClone()
}

// Methods returns the currently registered method keys in no particular
// order, mainly for the "procedures list" CLI subcommand (which sorts them)
// and introspection.
func (r *Registry) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.procs))
	for k := range r.procs {
		out = append(out, k)
	}
	return out
}
