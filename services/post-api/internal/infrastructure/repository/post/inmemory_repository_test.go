package post

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/murmurhq/murmur-server/services/post-api/internal/domain/post"
)

func TestInMemoryRepository_ListBounds(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"pst_a", "pst_b", "pst_c"} {
		require.NoError(t, repo.Create(ctx, &domain.Post{ID: id, UserID: "usr_1", CreatedAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	tests := []struct {
		name          string
		offset, limit int
		want          []string
	}{
		{"first page", 0, 2, []string{"pst_c", "pst_b"}},
		{"tail", 2, 2, []string{"pst_a"}},
		{"past end", 3, 2, nil},
		{"negative offset", -10, 2, nil},
		{"huge limit", 1, int(^uint(0) >> 1), []string{"pst_b", "pst_a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts, total, err := repo.List(ctx, tt.offset, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, int64(3), total)
			var ids []string
			for _, p := range posts {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}
