// Package idgen produces prefixed, time-ordered identifiers such as pst_01hv....
package idgen

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	PrefixUser  = "usr"
	PrefixPost  = "pst"
	PrefixMedia = "med"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// ErrInvalidID is returned by Parse for values that are not prefix_<ulid>.
var ErrInvalidID = errors.New("invalid id")

// New returns "<prefix>_<lower-case ulid>".
func New(prefix string) string {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	entropyMu.Unlock()
	return prefix + "_" + strings.ToLower(id.String())
}

// Parse strips the expected prefix and returns the ULID.
func Parse(prefix, value string) (ulid.ULID, error) {
	value = strings.TrimSpace(value)
	rest, ok := strings.CutPrefix(strings.ToLower(value), prefix+"_")
	if !ok || len(rest) != ulid.EncodedSize {
		return ulid.ULID{}, ErrInvalidID
	}
	id, err := ulid.ParseStrict(strings.ToUpper(rest))
	if err != nil {
		return ulid.ULID{}, ErrInvalidID
	}
	return id, nil
}

// IsValid reports whether value is a well-formed id with the given prefix.
func IsValid(prefix, value string) bool {
	_, err := Parse(prefix, value)
	return err == nil
}
