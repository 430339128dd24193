package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cheapParams = PasswordParams{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestHashPassword_PHCFormat(t *testing.T) {
	hash, err := HashPassword("secret123", cheapParams)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$"), hash)
	assert.Len(t, strings.Split(hash, "$"), 6)

	other, err := HashPassword("secret123", cheapParams)
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salt must differ")
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("secret123", cheapParams)
	require.NoError(t, err)

	ok, err := VerifyPassword("secret123", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("secret124", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPassword_Malformed(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$a2V5",
	} {
		_, err := VerifyPassword("pw", encoded)
		assert.ErrorIs(t, err, ErrMalformedHash, encoded)
	}
}
