// Package jsonrpc implements the JSON-RPC 2.0 HTTP adapter (§4.6): each
// POST body is a JSON-RPC request object, translated to an si.Info tree,
// dispatched through the same registry.Registry the binary responder
// uses, and translated back to a JSON-RPC response object.
package jsonrpc

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/synnergy-rpc/synnergy-rpc/internal/rpc/registry"
	"github.com/synnergy-rpc/synnergy-rpc/internal/rpc/rpcerr"
	"github.com/synnergy-rpc/synnergy-rpc/internal/si"
)

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

type rpcError struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

// Handler builds an http.Handler dispatching JSON-RPC calls against reg.
func Handler(reg *registry.Registry, log *logrus.Entry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, nil, rpcerr.New(rpcerr.MalformedFrame, "invalid json-rpc body: "+err.Error()))
			return
		}

		args, err := paramsToArgs(req.Params)
		if err != nil {
			writeError(w, req.ID, rpcerr.Wrap(rpcerr.MalformedFrame, "decoding params", err))
			return
		}

		proc, err := reg.Acquire("", req.Method)
		if err != nil {
			writeError(w, req.ID, err)
			return
		}
		defer reg.Release(proc)

		result, err := proc.Call(args)
		if err != nil {
			if log != nil {
				log.WithField("method", req.Method).WithError(err).Warn("json-rpc call failed")
			}
			writeError(w, req.ID, err)
			return
		}
		writeResult(w, req.ID, result)
	})
}

// paramsToArgs accepts either a JSON array (positional args, the common
// case) or a single JSON object (treated as one struct-shaped argument).
func paramsToArgs(raw json.RawMessage) ([]*si.Info, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	if arr, ok := generic.([]any); ok {
		args := make([]*si.Info, len(arr))
		for idx, v := range arr {
			args[idx] = fromJSONValue(v)
		}
		return args, nil
	}
	return []*si.Info{fromJSONValue(generic)}, nil
}

func fromJSONValue(v any) *si.Info {
	n := si.New()
	switch t := v.(type) {
	case nil:
		// stays Void
	case bool:
		n.SetBool(t)
	case float64:
		n.SetDouble(t)
	case string:
		n.SetString(t)
	case []any:
		n.SetArray()
		for _, elem := range t {
			n.AdoptChild(fromJSONValue(elem))
		}
	case map[string]any:
		n.SetObject()
		for k, elem := range t {
			child := fromJSONValue(elem)
			child.SetName(k)
			n.AdoptChild(child)
		}
	}
	return n
}

func toJSONValue(n *si.Info) any {
	switch n.Category() {
	case si.Void:
		return nil
	case si.Value:
		switch n.ValueKind() {
		case si.KindNone:
			return nil
		case si.KindBool:
			return n.RawBool()
		case si.KindString:
			return n.RawString()
		case si.KindChar:
			return string(rune(n.RawChar()))
		case si.KindInt:
			return n.RawInt()
		case si.KindUint:
			return n.RawUint()
		case si.KindFloat, si.KindDouble:
			return n.RawFloat()
		default:
			s, _ := n.AsString()
			return s
		}
	case si.Array:
		out := make([]any, 0, n.Len())
		for _, c := range n.Children() {
			out = append(out, toJSONValue(c))
		}
		return out
	case si.Object:
		out := make(map[string]any, n.Len())
		for _, c := range n.Children() {
			out[c.Name()] = toJSONValue(c)
		}
		return out
	default:
		return nil
	}
}

func writeResult(w http.ResponseWriter, id json.RawMessage, result *si.Info) {
	resultJSON, _ := json.Marshal(toJSONValue(result))
	resp := response{JSONRPC: "2.0", Result: resultJSON, ID: id}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, id json.RawMessage, err error) {
	code := int32(-32603) // JSON-RPC "internal error" by default
	msg := err.Error()
	if re, ok := err.(*rpcerr.Error); ok {
		msg = re.Message
		switch re.Kind {
		case rpcerr.UnknownMethod:
			code = -32601
		case rpcerr.ArgumentMismatch, rpcerr.MalformedFrame, rpcerr.ConversionError:
			code = -32602
		case rpcerr.RemoteException:
			code = re.Code
		}
	}
	resp := response{JSONRPC: "2.0", Error: &rpcError{Code: code, Message: msg}, ID: id}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
