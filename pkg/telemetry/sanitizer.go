package telemetry

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// PIILevel defines how personal data is rendered in logs and spans.
type PIILevel string

const (
	// PIILevelNone redacts personal data entirely
	PIILevelNone PIILevel = "none"
	// PIILevelHashed replaces personal data with a salted hash prefix
	PIILevelHashed PIILevel = "hashed"
	// PIILevelFull performs no sanitization
	PIILevelFull PIILevel = "full"
)

const redacted = "[REDACTED]"

// Sanitizer renders user identifiers safely for log fields.
type Sanitizer struct {
	level PIILevel
	salt  string
}

// NewSanitizer creates a sanitizer. Unknown levels behave like PIILevelHashed.
func NewSanitizer(level PIILevel, salt string) *Sanitizer {
	switch level {
	case PIILevelNone, PIILevelHashed, PIILevelFull:
	default:
		level = PIILevelHashed
	}
	return &Sanitizer{level: level, salt: salt}
}

// Email sanitizes a single email address. The address is lower-cased first so
// the same mailbox always hashes to the same value.
func (s *Sanitizer) Email(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.value("email", email)
}

// IP sanitizes a client address.
func (s *Sanitizer) IP(ip string) string {
	return s.value("ip", strings.TrimSpace(ip))
}

func (s *Sanitizer) value(kind, v string) string {
	if v == "" {
		return ""
	}
	switch s.level {
	case PIILevelFull:
		return v
	case PIILevelNone:
		return redacted
	default:
		return kind + ":" + s.hash(v)
	}
}

// hash returns the first 8 hex chars of HMAC-SHA256(salt, data).
func (s *Sanitizer) hash(data string) string {
	mac := hmac.New(sha256.New, []byte(s.salt))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))[:8]
}

// EphemeralSalt returns a random salt. Hashes made with it only correlate
// within the current process.
func EphemeralSalt() string {
	return rand.Text()
}
