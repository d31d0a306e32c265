// package testing contains shared testing utilities
package testing

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// ErrInjected is returned by the failing doubles below.
var ErrInjected = errors.New("injected failure")

// FWriter fails every write, like a closed terminal.
type FWriter struct{}

func (*FWriter) Write([]byte) (int, error) { return 0, ErrInjected }

// LimitedWriter passes the first n writes through to target and fails the rest.
type LimitedWriter struct {
	left   int
	target io.Writer
}

func NewLimitedWriter(n int, target io.Writer) *LimitedWriter {
	return &LimitedWriter{left: n, target: target}
}

func (l *LimitedWriter) Write(p []byte) (int, error) {
	if l.left <= 0 {
		return 0, ErrInjected
	}
	l.left--
	return l.target.Write(p)
}

// MockRoundTripper answers every request with the same response or error and keeps the requests it saw.
type MockRoundTripper struct {
	mu       sync.Mutex
	response *http.Response
	err      error
	requests []*http.Request
}

func NewMockRoundTripper(r *http.Response, err error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: err}
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return m.response, m.err
}

// Requests returns the requests seen so far.
func (m *MockRoundTripper) Requests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*http.Request(nil), m.requests...)
}

// FCloser is a response body whose reads fail, for exercising body read errors.
type FCloser struct{}

func (*FCloser) Read([]byte) (int, error) { return 0, ErrInjected }
func (*FCloser) Close() error             { return nil }

// WriteFile creates dir/name (and its parents) with data and returns the path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(content)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		t.Errorf("expected file at %s (%v)", path, err)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		t.Errorf("expected directory at %s (%v)", path, err)
	}
}
