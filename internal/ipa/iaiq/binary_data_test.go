package iaiq

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gmykhailiuta/libcamera/internal/monitoring"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func TestBinaryDataLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sensor.aiqb")
	contents := []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x42}
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	var b BinaryData
	if err := b.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if b.Size() != len(contents) {
		t.Errorf("Size = %d, want %d", b.Size(), len(contents))
	}
	for i, want := range contents {
		if b.Bytes()[i] != want {
			t.Fatalf("byte %d = %#x, want %#x", i, b.Bytes()[i], want)
		}
	}

	// The view must be stable: no reallocation after load.
	first := &b.Bytes()[0]
	if first != &b.Bytes()[0] {
		t.Error("Bytes view is not stable across calls")
	}
}

func TestBinaryDataLoadMissing(t *testing.T) {
	var b BinaryData
	err := b.Load(filepath.Join(t.TempDir(), "does-not-exist.aiqb"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load error = %v, want ErrNotFound", err)
	}
	if b.Size() != 0 || b.Bytes() != nil {
		t.Error("failed Load should leave the blob absent")
	}
}

func TestBinaryDataLoadDirectory(t *testing.T) {
	// A directory has no determinable blob size.
	var b BinaryData
	err := b.Load(t.TempDir())
	if !errors.Is(err, ErrIndeterminate) {
		t.Errorf("Load error = %v, want ErrIndeterminate", err)
	}
}

func TestBinaryDataLoadUnreadable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	path := filepath.Join(t.TempDir(), "secret.aiqb")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0o000); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	var b BinaryData
	err := b.Load(path)
	if !errors.Is(err, ErrAccessDenied) {
		t.Errorf("Load error = %v, want ErrAccessDenied", err)
	}
}

func TestBinaryDataEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.aiqd")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	// Zero bytes is a successful load of an absent blob, not an error.
	var b BinaryData
	if err := b.Load(path); err != nil {
		t.Fatalf("Load of empty file failed: %v", err)
	}
	if b.Size() != 0 {
		t.Errorf("Size = %d, want 0", b.Size())
	}
}
