package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// Setting nil installs a no-op logger rather than leaving Logf nil.
	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestCategoryPrefix(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})

	aiqLog := Category("aiq")
	aiqLog("frame %d dropped", 12)
	if got != "[aiq] frame 12 dropped" {
		t.Errorf("unexpected log line: %q", got)
	}

	// Category loggers follow a later SetLogger swap.
	SetLogger(nil)
	got = ""
	aiqLog("should be muted")
	if got != "" {
		t.Errorf("muted logger still produced output: %q", got)
	}
}

func TestLogfDefault(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
}
