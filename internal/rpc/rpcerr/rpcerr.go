// Package rpcerr defines the error-kind taxonomy shared by the responder,
// reactor, and HTTP adapters (§7). Each kind carries its own recovery and
// propagation policy, documented on the constant itself.
package rpcerr

import "fmt"

// Kind classifies an RPC-layer failure.
type Kind int

const (
	// MalformedFrame: the wire bytes did not parse. The connection is
	// unrecoverable and must be closed after, if possible, an error reply.
	MalformedFrame Kind = iota
	// UnknownMethod: the request named a method absent from the registry.
	// Recoverable: the responder resyncs to the next request on the same
	// connection.
	UnknownMethod
	// ArgumentMismatch: the method was found but the argument list didn't
	// match its Composer. Recoverable like UnknownMethod.
	ArgumentMismatch
	// RemoteException: the method body ran and raised a domain error. Code
	// carries an application-defined status code.
	RemoteException
	// LocalException: a non-domain error local to this process (encoding
	// failure, resource exhaustion) while handling an otherwise
	// well-formed request.
	LocalException
	// ConversionError: an si accessor could not convert a value (wraps
	// si.ConversionError).
	ConversionError
	// IOTimeout: a read or write exceeded its deadline. The connection is
	// closed; in-flight work is abandoned.
	IOTimeout
	// IOError: a lower-level transport failure (reset, broken pipe).
	IOError
	// Shutdown: the server is terminating; the request was not dispatched.
	Shutdown
)

func (k Kind) String() string {
	switch k {
	case MalformedFrame:
		return "malformed_frame"
	case UnknownMethod:
		return "unknown_method"
	case ArgumentMismatch:
		return "argument_mismatch"
	case RemoteException:
		return "remote_exception"
	case LocalException:
		return "local_exception"
	case ConversionError:
		return "conversion_error"
	case IOTimeout:
		return "io_timeout"
	case IOError:
		return "io_error"
	case Shutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the concrete error type carried through the responder and
// surfaced to clients as an 0xC2 reply.
type Error struct {
	Kind    Kind
	Code    int32 // application status code, meaningful for RemoteException
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rpc: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("rpc: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Recoverable reports whether the responder should resync and continue
// serving the connection rather than closing it.
func (e *Error) Recoverable() bool {
	switch e.Kind {
	case UnknownMethod, ArgumentMismatch, RemoteException, LocalException, ConversionError:
		return true
	default:
		return false
	}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Remote(code int32, message string) *Error {
	return &Error{Kind: RemoteException, Code: code, Message: message}
}
