package odoo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kolo/xmlrpc"
)

const (
	ServiceCommon = "common"
	ServiceObject = "object"
)

// Caller performs one positional RPC call against a remote service.
type Caller interface {
	Call(ctx context.Context, service, method string, args []any) (any, error)
}

// XMLRPCCaller speaks XML-RPC to an Odoo instance over HTTP.
type XMLRPCCaller struct {
	BaseURL    string
	HTTPClient *http.Client
	// Timeout bounds each call; it is the only cancellation primitive.
	Timeout time.Duration
}

// NewXMLRPCCaller returns a caller for base URLs like "https://erp.example.com".
func NewXMLRPCCaller(baseURL string, timeout time.Duration) *XMLRPCCaller {
	return &XMLRPCCaller{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
		Timeout:    timeout,
	}
}

func (x *XMLRPCCaller) Call(ctx context.Context, service, method string, args []any) (any, error) {
	if x.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.Timeout)
		defer cancel()
	}

	payload, err := xmlrpc.EncodeMethodCall(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}

	endpoint := x.BaseURL + "/xmlrpc/2/" + service
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml")

	httpClient := x.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	res, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", endpoint, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", res.StatusCode, endpoint)
	}

	resp := xmlrpc.Response(body)
	if err := resp.Err(); err != nil {
		var fault xmlrpc.FaultError
		if errors.As(err, &fault) {
			return nil, &Fault{Code: fault.Code, String: fault.String}
		}
		return nil, fmt.Errorf("decode fault: %w", err)
	}

	var result any
	if err := resp.Unmarshal(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return result, nil
}
