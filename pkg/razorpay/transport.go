package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// callHeader tags SDK requests so the transport can attach the caller's
// context and report what happened on the wire. It is stripped before send.
const callHeader = "X-Storefront-Gateway-Call"

const errorBodyReadLimit int64 = 64 * 1024

// Option configures optional client behavior.
type Option func(*clientSettings)

type clientSettings struct {
	client  *http.Client
	baseURL string
}

// WithHTTPClient routes gateway traffic through the given client's transport.
func WithHTTPClient(client *http.Client) Option {
	return func(s *clientSettings) {
		if client != nil {
			s.client = client
		}
	}
}

// WithBaseURL points the client at another gateway host, such as a sandbox stub.
func WithBaseURL(baseURL string) Option {
	return func(s *clientSettings) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			s.baseURL = trimmed
		}
	}
}

func (s clientSettings) next() http.RoundTripper {
	if s.client != nil && s.client.Transport != nil {
		return s.client.Transport
	}
	return http.DefaultTransport
}

func (s clientSettings) httpClient(transport http.RoundTripper) *http.Client {
	client := &http.Client{Transport: transport}
	if s.client != nil {
		client.Jar = s.client.Jar
	}
	return client
}

type observation struct {
	ctx    context.Context
	status int
	code   string
	desc   string
	err    error
}

type observingTransport struct {
	next  http.RoundTripper
	base  *url.URL
	mu    sync.Mutex
	calls map[string]*observation
}

func newObservingTransport(next http.RoundTripper, baseURL string) *observingTransport {
	t := &observingTransport{next: next, calls: make(map[string]*observation)}
	if baseURL != "" {
		if parsed, err := url.Parse(baseURL); err == nil && parsed.Host != "" {
			t.base = parsed
		}
	}
	return t
}

func (t *observingTransport) begin(ctx context.Context, callID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls[callID] = &observation{ctx: ctx}
}

func (t *observingTransport) end(callID string) observation {
	t.mu.Lock()
	defer t.mu.Unlock()
	obs := t.calls[callID]
	delete(t.calls, callID)
	if obs == nil {
		return observation{}
	}
	return *obs
}

func (t *observingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	callID := req.Header.Get(callHeader)

	t.mu.Lock()
	obs := t.calls[callID]
	t.mu.Unlock()

	ctx := req.Context()
	if obs != nil && obs.ctx != nil {
		ctx = obs.ctx
	}
	out := req.Clone(ctx)
	out.Header.Del(callHeader)
	if t.base != nil {
		out.URL.Scheme = t.base.Scheme
		out.URL.Host = t.base.Host
		out.URL.Path = strings.TrimRight(t.base.Path, "/") + req.URL.Path
		out.Host = ""
	}

	resp, err := t.next.RoundTrip(out)
	if obs == nil {
		return resp, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		obs.err = err
		return nil, err
	}
	obs.status = resp.StatusCode
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		_ = resp.Body.Close()
		obs.code, obs.desc = decodeErrorBody(body)
		resp.Body = io.NopCloser(bytes.NewReader(body))
	}
	return resp, nil
}

func decodeErrorBody(body []byte) (string, string) {
	var payload struct {
		Error struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)
	desc := payload.Error.Description
	if desc == "" {
		desc = strings.TrimSpace(string(body))
	}
	return payload.Error.Code, desc
}

// classify maps what the transport saw onto the sentinels. A request that
// never produced a response is unavailable only when it provably never left
// the process.
func classify(obs observation, sdkErr error) error {
	switch {
	case obs.err != nil:
		return classifyTransportError(obs.err)
	case obs.status >= 500:
		return &APIError{StatusCode: obs.status, Code: obs.code, Description: obs.desc, kind: ErrOutcomeUnknown}
	case obs.status >= 300:
		return &APIError{StatusCode: obs.status, Code: obs.code, Description: obs.desc, kind: ErrRejected}
	case obs.status == 0:
		return fmt.Errorf("%w: request not sent: %v", ErrUnavailable, sdkErr)
	default:
		return fmt.Errorf("%w: decode response: %v", ErrOutcomeUnknown, sdkErr)
	}
}

func classifyTransportError(err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrOutcomeUnknown, err)
}
