package services

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

func newULID(t time.Time) ulid.ULID {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy)
}

// newOrderID returns a time-sortable order number.
func newOrderID(t time.Time) string {
	return "ORD-" + newULID(t).String()
}

// newReferralCode takes the random tail of a ULID: 8 upper-case Crockford chars.
func newReferralCode(t time.Time) string {
	s := newULID(t).String()
	return strings.ToUpper(s[len(s)-8:])
}
