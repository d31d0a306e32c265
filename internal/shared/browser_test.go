package shared

import (
	"errors"
	"testing"
)

func TestOpenTarget(t *testing.T) {
	original := getRuntime
	defer func() { getRuntime = original }()

	getRuntime = func() string { return "plan9" }
	if err := OpenTarget("http://127.0.0.1:3000"); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("expected ErrNotImplemented for unsupported platform, got %v", err)
	}
}
