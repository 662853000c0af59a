package iaiq

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/gmykhailiuta/libcamera/internal/monitoring"
)

var logBlob = monitoring.Category("aiq")

// Calibration blob load failures. All of them are recoverable by policy:
// a session may be brought up with an absent blob and the engine runs with
// degraded defaults instead. Callers log and continue rather than aborting.
var (
	ErrNotFound      = errors.New("calibration blob not found")
	ErrAccessDenied  = errors.New("calibration blob not readable")
	ErrIndeterminate = errors.New("calibration blob size indeterminate")
	ErrTruncated     = errors.New("calibration blob short read")
)

// BinaryData wraps a loaded calibration blob.
//
// Load fills the owned buffer from a file; the Bytes view stays stable for
// the lifetime of the BinaryData (no reallocation after load). A zero-size
// BinaryData is the valid "absent" state: engines accept it and fall back to
// built-in defaults.
//
// Ownership is scoped: a BinaryData is created inside session init and dies
// when init returns. An engine that needs blob contents beyond creation must
// copy them.
type BinaryData struct {
	data []byte
}

// Bytes returns the raw blob view. Nil when no blob is loaded.
func (b *BinaryData) Bytes() []byte { return b.data }

// Size returns the loaded byte count, 0 when absent.
func (b *BinaryData) Size() int { return len(b.data) }

// Load reads the named calibration file into the owned buffer.
//
// Errors wrap one of the sentinel values above so callers can classify them
// with errors.Is. A failed Load leaves b in the absent state.
func (b *BinaryData) Load(path string) error {
	b.data = nil

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %s", ErrAccessDenied, path)
		}
		return fmt.Errorf("%w: %s: %v", ErrIndeterminate, path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s: not a regular file", ErrIndeterminate, path)
	}
	size := info.Size()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %s", ErrAccessDenied, path)
		}
		return fmt.Errorf("%w: %s: %v", ErrAccessDenied, path, err)
	}
	defer f.Close()

	data := make([]byte, size)
	n, err := io.ReadFull(f, data)
	if err != nil || int64(n) != size {
		return fmt.Errorf("%w: %s: read %d of %d bytes", ErrTruncated, path, n, size)
	}

	b.data = data
	logBlob("loaded calibration blob %s: %d bytes, xxh64=%016x", path, len(data), xxhash.Sum64(data))
	return nil
}
