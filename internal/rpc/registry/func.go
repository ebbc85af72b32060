package registry

import (
	"errors"
	"reflect"

	"github.com/synnergy-rpc/synnergy-rpc/internal/rpc/rpcerr"
	"github.com/synnergy-rpc/synnergy-rpc/internal/si"
)

// FuncProcedure adapts a plain Go function to the Procedure interface,
// using si.Serialize/si.Deserialize (reflection over the function's
// parameter and return types) as the Composer/Decomposer pair instead of
// requiring every method author to hand-write one. fn must have the shape
// func(p1, p2, ...) (R, error) or func(p1, p2, ...) R.
type FuncProcedure struct {
	fn reflect.Value
	ft reflect.Type
}

// NewFuncProcedure builds a Procedure prototype around fn. It panics if fn
// is not a function, which is a registration-time programming error, not
// a runtime condition.
func NewFuncProcedure(fn any) *FuncProcedure {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		panic("registry: NewFuncProcedure requires a function")
	}
	return &FuncProcedure{fn: v, ft: v.Type()}
}

func (p *FuncProcedure) Clone() Procedure {
	return &FuncProcedure{fn: p.fn, ft: p.ft}
}

func (p *FuncProcedure) Call(args []*si.Info) (*si.Info, error) {
	numIn := p.ft.NumIn()
	if len(args) != numIn {
		return nil, rpcerr.New(rpcerr.ArgumentMismatch,
			argCountMessage(numIn, len(args)))
	}
	in := make([]reflect.Value, numIn)
	for idx := 0; idx < numIn; idx++ {
		pv := reflect.New(p.ft.In(idx))
		if err := si.Deserialize(args[idx], pv.Interface()); err != nil {
			return nil, rpcerr.Wrap(rpcerr.ArgumentMismatch, "decoding argument", err)
		}
		in[idx] = pv.Elem()
	}

	out := p.fn.Call(in)

	// Recognize a trailing `error` return.
	if n := len(out); n > 0 && p.ft.Out(n-1) == reflect.TypeOf((*error)(nil)).Elem() {
		if !out[n-1].IsNil() {
			callErr := out[n-1].Interface().(error)
			// A procedure that already raised a typed *rpcerr.Error (e.g.
			// rpcerr.Remote with an application status code) propagates
			// verbatim, the way the original's RemoteException carries its
			// rc straight to the wire (§7); anything else is an ordinary
			// Go error local to this call.
			var re *rpcerr.Error
			if errors.As(callErr, &re) {
				return nil, re
			}
			return nil, rpcerr.Wrap(rpcerr.LocalException, "procedure returned an error", callErr)
		}
		out = out[:n-1]
	}

	switch len(out) {
	case 0:
		return si.New(), nil
	case 1:
		result := si.New()
		if err := si.Serialize(result, out[0].Interface()); err != nil {
			return nil, rpcerr.Wrap(rpcerr.LocalException, "encoding result", err)
		}
		return result, nil
	default:
		result := si.New()
		result.SetArray()
		for _, v := range out {
			if err := si.Serialize(result.AddElement(), v.Interface()); err != nil {
				return nil, rpcerr.Wrap(rpcerr.LocalException, "encoding result", err)
			}
		}
		return result, nil
	}
}

func argCountMessage(want, got int) string {
	if got < want {
		return "too few arguments"
	}
	return "too many arguments"
}
