package utils

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewHuskyID generates an external identifier of the form
// PREFIX-XXXXXXXX-NNNNN, where XXXXXXXX is the first 8 hex chars of a
// fresh uuid (uppercased) and NNNNN is a random 5-digit number.
func NewHuskyID(prefix string) string {
	magic := rand.Intn(90000) + 10000
	return fmt.Sprintf("%s-%s-%d", prefix, strings.ToUpper(uuid.New().String()[:8]), magic)
}

// ContentHuskyID generates the same id format deterministically from the
// given parts. Rows materialized from identical content get identical ids,
// so a re-run upserts instead of duplicating.
func ContentHuskyID(prefix string, parts ...string) string {
	sum := sha1.Sum([]byte(strings.Join(parts, "\x1f")))
	hexPart := strings.ToUpper(fmt.Sprintf("%x", sum[:4]))
	magic := binary.BigEndian.Uint32(sum[4:8])%90000 + 10000
	return fmt.Sprintf("%s-%s-%d", prefix, hexPart, magic)
}

// NewRequireID generates a requirement id of the form REQ-YYYYMMDDHHMMSS-NNN.
func NewRequireID() string {
	digit := rand.Intn(900) + 100
	return fmt.Sprintf("REQ-%s-%d", time.Now().Format("20060102150405"), digit)
}
