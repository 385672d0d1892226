// Package idx generates the sortable identifiers used for users and role
// change requests.
package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID is a ULID in its canonical 26 character form.
type ID string

// Zero is the empty ID.
const Zero ID = ""

// ErrInvalid reports a string that is not a canonical ULID.
var ErrInvalid = errors.New("idx: invalid ulid")

var (
	mu      sync.Mutex
	once    sync.Once
	entropy *ulid.MonotonicEntropy
)

// New returns an ID stamped with the current UTC time. IDs created within the
// same millisecond still sort in creation order.
func New() ID {
	return NewAt(time.Now().UTC())
}

// NewAt returns an ID stamped with t.
func NewAt(t time.Time) ID {
	once.Do(func() {
		entropy = ulid.Monotonic(rand.Reader, 0)
	})

	mu.Lock()
	defer mu.Unlock()
	return ID(ulid.MustNew(ulid.Timestamp(t), entropy).String())
}

// Parse validates s and returns it as an ID.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalid
	}
	if _, err := ulid.ParseStrict(s); err != nil {
		return Zero, ErrInvalid
	}
	return ID(s), nil
}

// Valid reports whether s is a canonical ULID. Path parameters are checked
// with this before they reach the store.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

func (id ID) IsZero() bool   { return id == Zero }
func (id ID) String() string { return string(id) }

// Time is the creation instant embedded in the ID, or the zero time when the
// ID does not parse.
func (id ID) Time() time.Time {
	u, err := ulid.ParseStrict(string(id))
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time()).UTC()
}
