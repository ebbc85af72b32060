package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/synnergy-rpc/synnergy-rpc/internal/rpc/rpcerr"
	"github.com/synnergy-rpc/synnergy-rpc/internal/si"
)

// Client issues JSON-RPC 2.0 calls over HTTP POST against a Handler,
// grounded on jcall's HTTP round tripper (other_examples'
// creachadair/jrpc2 cmd/jcall): the response is only decoded once its
// status and Content-Type have been validated, never before.
type Client struct {
	httpClient *http.Client
	url        string
	nextID     int64
}

// NewClient builds a Client posting JSON-RPC requests to url. A nil
// httpClient gets a default with a generous timeout.
func NewClient(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{httpClient: httpClient, url: url}
}

// Call sends method with args and returns the decoded result.
func (c *Client) Call(ctx context.Context, method string, args []*si.Info) (*si.Info, error) {
	id, err := json.Marshal(atomic.AddInt64(&c.nextID, 1))
	if err != nil {
		return nil, fmt.Errorf("jsonrpc: encode id: %w", err)
	}

	params := make([]any, len(args))
	for i, a := range args {
		params[i] = toJSONValue(a)
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("jsonrpc: encode params: %w", err)
	}

	reqBody, err := json.Marshal(request{JSONRPC: "2.0", Method: method, Params: paramsJSON, ID: id})
	if err != nil {
		return nil, fmt.Errorf("jsonrpc: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("jsonrpc: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("jsonrpc: http post: %w", err)
	}
	defer httpResp.Body.Close()

	// Validate status and Content-Type before touching the body: a
	// misrouted or proxy-mangled response must never reach json.Unmarshal.
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jsonrpc: unexpected http status %s", httpResp.Status)
	}
	if ct := httpResp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		return nil, fmt.Errorf("jsonrpc: unexpected content-type %q", ct)
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("jsonrpc: read body: %w", err)
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("jsonrpc: decode response: %w", err)
	}
	if resp.Error != nil {
		return nil, &rpcerr.Error{Kind: rpcerr.RemoteException, Code: resp.Error.Code, Message: resp.Error.Message}
	}

	var result any
	if len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			return nil, fmt.Errorf("jsonrpc: decode result: %w", err)
		}
	}
	return fromJSONValue(result), nil
}
