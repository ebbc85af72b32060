package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/synnergy-rpc/synnergy-rpc/internal/rpc/registry"
	"github.com/synnergy-rpc/synnergy-rpc/internal/si"
)

func TestHandlerDispatchesCall(t *testing.T) {
	reg := registry.New()
	reg.Register("", "add", registry.NewFuncProcedure(func(a, b int) int { return a + b }))

	srv := httptest.NewServer(Handler(reg, nil))
	defer srv.Close()

	body := []byte(`{"jsonrpc":"2.0","method":"add","params":[2,3],"id":1}`)
	resp, err := http.Post(srv.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	defer resp.Body.Close()

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Error != nil {
		t.Fatalf("unexpected error: %+v", out.Error)
	}
	var result float64
	if err := json.Unmarshal(out.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result != 5 {
		t.Fatalf("result = %v, want 5", result)
	}
}

func TestHandlerUnknownMethod(t *testing.T) {
	reg := registry.New()
	srv := httptest.NewServer(Handler(reg, nil))
	defer srv.Close()

	body := []byte(`{"jsonrpc":"2.0","method":"missing","params":[],"id":1}`)
	resp, err := http.Post(srv.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	defer resp.Body.Close()

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Error == nil || out.Error.Code != -32601 {
		t.Fatalf("expected method-not-found error, got %+v", out.Error)
	}
}

func TestClientCallRoundTrip(t *testing.T) {
	reg := registry.New()
	reg.Register("", "add", registry.NewFuncProcedure(func(a, b int) int { return a + b }))

	srv := httptest.NewServer(Handler(reg, nil))
	defer srv.Close()

	cli := NewClient(srv.URL, nil)
	a := si.New()
	a.SetInt(2)
	b := si.New()
	b.SetInt(3)
	result, err := cli.Call(context.Background(), "add", []*si.Info{a, b})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	got, err := result.AsInt64()
	if err != nil || got != 5 {
		t.Fatalf("result = %v, %v, want 5", got, err)
	}
}

func TestClientCallRejectsNonJSONContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"jsonrpc":"2.0","result":1,"id":1}`))
	}))
	defer srv.Close()

	cli := NewClient(srv.URL, nil)
	_, err := cli.Call(context.Background(), "add", nil)
	if err == nil || !strings.Contains(err.Error(), "content-type") {
		t.Fatalf("expected content-type validation error, got %v", err)
	}
}

func TestClientCallRejectsNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cli := NewClient(srv.URL, nil)
	_, err := cli.Call(context.Background(), "add", nil)
	if err == nil || !strings.Contains(err.Error(), "status") {
		t.Fatalf("expected status validation error, got %v", err)
	}
}
