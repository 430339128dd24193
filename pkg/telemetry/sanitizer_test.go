package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSanitizer_UnknownLevelFallsBackToHashed(t *testing.T) {
	s := NewSanitizer(PIILevel("bogus"), "salt")
	require.NotNil(t, s)
	assert.Equal(t, PIILevelHashed, s.level)
}

func TestEmail(t *testing.T) {
	tests := []struct {
		name  string
		level PIILevel
		input string
		want  func(t *testing.T, got string)
	}{
		{"full keeps value", PIILevelFull, "a@x.com", func(t *testing.T, got string) {
			assert.Equal(t, "a@x.com", got)
		}},
		{"none redacts", PIILevelNone, "a@x.com", func(t *testing.T, got string) {
			assert.Equal(t, "[REDACTED]", got)
		}},
		{"hashed hides address", PIILevelHashed, "a@x.com", func(t *testing.T, got string) {
			assert.NotContains(t, got, "a@x.com")
			assert.Regexp(t, `^email:[0-9a-f]{8}$`, got)
		}},
		{"empty stays empty", PIILevelHashed, "", func(t *testing.T, got string) {
			assert.Empty(t, got)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.want(t, NewSanitizer(tt.level, "salt").Email(tt.input))
		})
	}
}

func TestEmail_CaseInsensitiveHash(t *testing.T) {
	s := NewSanitizer(PIILevelHashed, "salt")
	assert.Equal(t, s.Email("Alice@Example.com"), s.Email(" alice@example.com "))
}

func TestEmail_SaltChangesHash(t *testing.T) {
	a := NewSanitizer(PIILevelHashed, "one").Email("a@x.com")
	b := NewSanitizer(PIILevelHashed, "two").Email("a@x.com")
	assert.NotEqual(t, a, b)
}

func TestIP(t *testing.T) {
	s := NewSanitizer(PIILevelHashed, "salt")
	got := s.IP("10.0.0.1")
	assert.Regexp(t, `^ip:[0-9a-f]{8}$`, got)
	assert.Equal(t, got, s.IP("10.0.0.1"))
}

func TestEphemeralSalt(t *testing.T) {
	a, b := EphemeralSalt(), EphemeralSalt()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, NewSanitizer(PIILevelHashed, a).IP("10.0.0.1"), NewSanitizer(PIILevelHashed, b).IP("10.0.0.1"))
}
