package chat

import (
	"crypto/rand"
	"fmt"
	"time"
)

// SessionID is an opaque conversation handle. A session is not a stored
// entity; it exists only as the grouping value of its messages. The wire
// format below is kept for client compatibility and is never parsed back.
type SessionID string

const (
	suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	suffixLength   = 9
)

// NewSessionID mints an identifier for an implicitly created conversation.
func NewSessionID() SessionID {
	buf := make([]byte, suffixLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand is documented never to fail on supported platforms.
		panic(fmt.Sprintf("session id entropy unavailable: %v", err))
	}
	for i, b := range buf {
		buf[i] = suffixAlphabet[int(b)%len(suffixAlphabet)]
	}
	return SessionID(fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), buf))
}
