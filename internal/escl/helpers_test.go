package escl

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
)

// fakeTransport answers requests from a handler and records every call.
type fakeTransport struct {
	mu       sync.Mutex
	calls    []string
	bodies   []string
	headers  []http.Header
	respond  func(req *http.Request, n int) (*http.Response, error)
	perRoute map[string]int
}

func newFakeTransport(respond func(req *http.Request, n int) (*http.Response, error)) *fakeTransport {
	return &fakeTransport{respond: respond, perRoute: make(map[string]int)}
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	route := req.Method + " " + req.URL.String()

	var body string
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		body = string(data)
	}

	f.mu.Lock()
	f.calls = append(f.calls, route)
	f.bodies = append(f.bodies, body)
	f.headers = append(f.headers, req.Header.Clone())
	f.perRoute[route]++
	n := f.perRoute[route]
	f.mu.Unlock()

	if f.respond == nil {
		return nil, errors.New("no responder configured")
	}
	resp, err := f.respond(req, n)
	if resp != nil {
		resp.Request = req
	}
	return resp, err
}

func (f *fakeTransport) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeTransport) client() *http.Client {
	return &http.Client{Transport: f}
}

func response(status int, body []byte, headers map[string]string) *http.Response {
	h := make(http.Header)
	for k, v := range headers {
		h.Set(k, v)
	}
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     h,
		Body:       io.NopCloser(bytes.NewReader(body)),
	}
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func hasPrefixCall(calls []string, prefix string) bool {
	for _, c := range calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}
