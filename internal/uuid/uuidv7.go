// Package uuid generates time-ordered identifiers for local records and
// in-memory sessions (upload sessions, quick-add forms).
package uuid

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	googleuuid "github.com/google/uuid"
)

// New generates a UUIDv7: a 48-bit millisecond timestamp followed by random
// bits, with the version nibble set to 7 and the RFC 4122 variant.
func New() string {
	return newAt(time.Now())
}

func newAt(now time.Time) string {
	var id [16]byte

	binary.BigEndian.PutUint64(id[0:8], uint64(now.UnixMilli())<<16)

	if _, err := rand.Read(id[6:]); err != nil {
		return googleuuid.New().String()
	}

	id[6] = (id[6] & 0x0f) | 0x70
	id[8] = (id[8] & 0x3f) | 0x80

	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		binary.BigEndian.Uint32(id[0:4]),
		binary.BigEndian.Uint16(id[4:6]),
		binary.BigEndian.Uint16(id[6:8]),
		binary.BigEndian.Uint16(id[8:10]),
		id[10:16],
	)
}

// IsValid checks if a string is a valid UUID
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}
