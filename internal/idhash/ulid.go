package idhash

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a lexically sortable ULID for run and request identifiers.
// IDs generated within the same millisecond are strictly increasing.
func NewID() string {
	return NewIDAt(time.Now())
}

// NewIDAt returns a ULID with the timestamp part set to t.
func NewIDAt(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
