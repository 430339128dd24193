package idgen

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
	}{
		{"user id", PrefixUser},
		{"post id", PrefixPost},
		{"media id", PrefixMedia},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := New(tt.prefix)
			assert.True(t, strings.HasPrefix(id, tt.prefix+"_"))
			assert.Len(t, id, len(tt.prefix)+1+26)
			assert.Equal(t, strings.ToLower(id), id)
			assert.True(t, IsValid(tt.prefix, id))
		})
	}
}

func TestNew_MonotonicAndUniqueUnderConcurrency(t *testing.T) {
	const n = 500
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- New(PrefixPost)
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{}, n)
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestParse(t *testing.T) {
	valid := New(PrefixMedia)

	tests := []struct {
		name    string
		prefix  string
		value   string
		wantErr bool
	}{
		{"valid", PrefixMedia, valid, false},
		{"upper case accepted", PrefixMedia, strings.ToUpper(valid), false},
		{"wrong prefix", PrefixPost, valid, true},
		{"mongo style id", PrefixMedia, "65f1c2a9b4d3e2f1a0b9c8d7", true},
		{"truncated", PrefixMedia, valid[:len(valid)-1], true},
		{"empty", PrefixMedia, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.prefix, tt.value)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidID)
				return
			}
			assert.NoError(t, err)
		})
	}
}
