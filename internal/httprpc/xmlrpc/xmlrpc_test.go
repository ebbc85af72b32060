package xmlrpc

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/synnergy-rpc/synnergy-rpc/internal/rpc/registry"
)

func TestHandlerDispatchesCall(t *testing.T) {
	reg := registry.New()
	reg.Register("", "multiply", registry.NewFuncProcedure(func(a, b int) int { return a * b }))

	srv := httptest.NewServer(Handler(reg, nil))
	defer srv.Close()

	body := `<?xml version="1.0"?>
<methodCall>
  <methodName>multiply</methodName>
  <params>
    <param><value><int>6</int></value></param>
    <param><value><int>7</int></value></param>
  </params>
</methodCall>`

	resp, err := http.Post(srv.URL, "text/xml", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	defer resp.Body.Close()

	buf := make([]byte, 4096)
	n, _ := resp.Body.Read(buf)
	got := string(buf[:n])
	if !strings.Contains(got, "<int>42</int>") {
		t.Fatalf("response = %s, want it to contain <int>42</int>", got)
	}
}

func TestHandlerFaultOnUnknownMethod(t *testing.T) {
	reg := registry.New()
	srv := httptest.NewServer(Handler(reg, nil))
	defer srv.Close()

	body := `<?xml version="1.0"?><methodCall><methodName>missing</methodName><params/></methodCall>`
	resp, err := http.Post(srv.URL, "text/xml", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	defer resp.Body.Close()

	buf := make([]byte, 4096)
	n, _ := resp.Body.Read(buf)
	got := string(buf[:n])
	if !strings.Contains(got, "<fault>") {
		t.Fatalf("response = %s, want a <fault>", got)
	}
}
