package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// staticKeys is a KeySource backed by a plain map.
type staticKeys map[string]string

func (s staticKeys) Key(_ context.Context, provider string) (string, error) {
	return s[provider], nil
}

type responseStub struct {
	status int
	body   []byte
}

func (s responseStub) toResponse() *http.Response {
	status := s.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(s.body)),
	}
}

// captureTransport stubs vendor endpoints by URL path and records what was
// sent. Paths can be registered with a queue of responses so polling
// sequences can be scripted.
type captureTransport struct {
	responses map[string][]responseStub
	requests  []*http.Request
	bodies    [][]byte
}

func newCaptureTransport() *captureTransport {
	return &captureTransport{responses: map[string][]responseStub{}}
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		body = b
	}
	c.requests = append(c.requests, req)
	c.bodies = append(c.bodies, body)

	queue, ok := c.responses[req.URL.Path]
	if !ok || len(queue) == 0 {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader("not found")),
		}, nil
	}
	stub := queue[0]
	if len(queue) > 1 {
		c.responses[req.URL.Path] = queue[1:]
	}
	return stub.toResponse(), nil
}

func (c *captureTransport) setJSONResponse(path string, payload any) {
	body, _ := json.Marshal(payload)
	c.responses[path] = []responseStub{{body: body}}
}

func (c *captureTransport) pushJSONResponse(path string, payload any) {
	body, _ := json.Marshal(payload)
	c.responses[path] = append(c.responses[path], responseStub{body: body})
}

func (c *captureTransport) setErrorResponse(path string, status int, payload any) {
	body, _ := json.Marshal(payload)
	c.responses[path] = []responseStub{{status: status, body: body}}
}

func (c *captureTransport) setRawResponse(path string, body []byte) {
	c.responses[path] = []responseStub{{body: body}}
}

func (c *captureTransport) calls(path string) int {
	n := 0
	for _, req := range c.requests {
		if req.URL.Path == path {
			n++
		}
	}
	return n
}

func (c *captureTransport) lastBody() []byte {
	if len(c.bodies) == 0 {
		return nil
	}
	return c.bodies[len(c.bodies)-1]
}

func testClient(transport *captureTransport) *http.Client {
	return &http.Client{Transport: transport}
}
