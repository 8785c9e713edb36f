package analytics

import (
	"crypto/rand"
	"io"
	"strconv"
	"time"

	"github.com/chapter-verse/bookfront/internal/clientstate"
)

// SessionKey is where the session id lives in browser-session state.
const SessionKey = "analytics_session_id"

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// SessionID returns the session id stored in state, creating one on first
// use. Ids look like "<unix-millis>-<9 base36 chars>".
func SessionID(state clientstate.Store, now time.Time) string {
	if id, ok := state.Get(SessionKey); ok && id != "" {
		return id
	}
	id := NewSessionID(now)
	state.Set(SessionKey, id)
	return id
}

// NewSessionID returns a fresh id for a session starting at now.
func NewSessionID(now time.Time) string {
	suffix, err := randomSuffix(rand.Reader, 9)
	if err != nil {
		// crypto/rand does not fail on supported platforms; fall back to
		// the clock so the id is still usable.
		return strconv.FormatInt(now.UnixNano(), 36)
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix
}

// randomSuffix draws n base36 characters from r. Bytes at or above 252,
// the largest multiple of 36 that fits in a byte, are discarded so every
// character is equally likely.
func randomSuffix(r io.Reader, n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= 252 {
				continue
			}
			out = append(out, base36[b%36])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
