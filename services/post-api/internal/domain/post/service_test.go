package post_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murmurhq/murmur-server/pkg/cache"
	"github.com/murmurhq/murmur-server/pkg/eventbus"
	"github.com/murmurhq/murmur-server/pkg/idgen"
	"github.com/murmurhq/murmur-server/pkg/platformerrors"
	"github.com/murmurhq/murmur-server/services/post-api/internal/config"
	"github.com/murmurhq/murmur-server/services/post-api/internal/domain/post"
	postrepo "github.com/murmurhq/murmur-server/services/post-api/internal/infrastructure/repository/post"
)

type recordingPublisher struct {
	mu     sync.Mutex
	err    error
	events []*eventbus.PostDeleted
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, evt eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if deleted, ok := evt.(*eventbus.PostDeleted); ok && topic == eventbus.TopicPostDeleted {
		p.events = append(p.events, deleted)
	}
	return nil
}

type fixture struct {
	svc       *post.Service
	repo      *postrepo.InMemoryRepository
	publisher *recordingPublisher
	redis     *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := cache.NewFromClient(client, cache.Options{OpTimeout: 200 * time.Millisecond}, zerolog.Nop())
	t.Cleanup(func() { _ = c.Close() })

	repo := postrepo.NewInMemoryRepository()
	pub := &recordingPublisher{}
	svc := post.NewService(&config.Config{CacheTTL: 300 * time.Second}, repo, c, pub, zerolog.Nop())
	return &fixture{svc: svc, repo: repo, publisher: pub, redis: mr}
}

func TestCreate_ValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, post.CreateInput{UserID: "usr_1", Content: "no"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	_, err = f.svc.Create(ctx, post.CreateInput{UserID: "usr_1", Content: "hello", MediaIDs: []string{"bogus"}})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	_, err = f.svc.Create(ctx, post.CreateInput{Content: "hello"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeUnauthorized))
}

func TestGet_ReadsThroughCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, post.CreateInput{UserID: "usr_1", Content: "hello world"})
	require.NoError(t, err)
	assert.True(t, len(created.ID) > 4 && created.ID[:4] == "pst_")

	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got.Content)
	assert.True(t, f.redis.Exists("item:"+created.ID))

	ttl := f.redis.TTL("item:" + created.ID)
	assert.Equal(t, 300*time.Second, ttl)
}

func TestGet_UndecodableEntryIsReplaced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, post.CreateInput{UserID: "usr_1", Content: "hello world"})
	require.NoError(t, err)
	require.NoError(t, f.redis.Set("item:"+created.ID, "{not json"))

	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got.Content)

	raw, err := f.redis.Get("item:" + created.ID)
	require.NoError(t, err)
	assert.Contains(t, raw, created.ID)

	again, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Get(context.Background(), "pst_missing")
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
	assert.Equal(t, "Post not found", platformerrors.GetPlatformError(err).Message)
}

func TestGet_CacheDownFallsBackToStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, post.CreateInput{UserID: "usr_1", Content: "hello world"})
	require.NoError(t, err)

	f.redis.Close()
	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestDeleteThenGet_NotFoundDespiteCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mediaID := idgen.New(idgen.PrefixMedia)
	created, err := f.svc.Create(ctx, post.CreateInput{UserID: "usr_1", Content: "hello world", MediaIDs: []string{mediaID}})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, f.redis.Exists("item:"+created.ID))

	require.NoError(t, f.svc.Delete(ctx, created.ID, "usr_1"))
	assert.False(t, f.redis.Exists("item:"+created.ID))

	_, err = f.svc.Get(ctx, created.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	require.Len(t, f.publisher.events, 1)
	evt := f.publisher.events[0]
	assert.Equal(t, created.ID, evt.PostID)
	assert.Equal(t, "usr_1", evt.UserID)
	assert.Equal(t, []string{mediaID}, evt.MediaIDs)
}

func TestDelete_OwnershipAndMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, post.CreateInput{UserID: "usr_owner", Content: "hello world"})
	require.NoError(t, err)

	err = f.svc.Delete(ctx, created.ID, "usr_other")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))

	err = f.svc.Delete(ctx, "pst_missing", "usr_owner")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	assert.Empty(t, f.publisher.events)
	_, err = f.svc.Get(ctx, created.ID)
	assert.NoError(t, err)
}

func TestDelete_PublishFailureKeepsDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.publisher.err = errors.New("broker down")

	created, err := f.svc.Create(ctx, post.CreateInput{UserID: "usr_1", Content: "hello world"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, created.ID, "usr_1"))

	_, err = f.svc.Get(ctx, created.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestListCreateList_ShowsNewTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, content := range []string{"first post", "second post"} {
		_, err := f.svc.Create(ctx, post.CreateInput{UserID: "usr_1", Content: content})
		require.NoError(t, err)
	}

	page, err := f.svc.List(ctx, post.Paging{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalPosts)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 1, page.TotalPages)
	require.True(t, f.redis.Exists("list:1:10"))

	_, err = f.svc.Create(ctx, post.CreateInput{UserID: "usr_2", Content: "third post"})
	require.NoError(t, err)
	assert.False(t, f.redis.Exists("list:1:10"))

	page, err = f.svc.List(ctx, post.Paging{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalPosts)
	require.Len(t, page.Posts, 3)
	assert.Equal(t, "third post", page.Posts[0].Content)
}

func TestList_Paging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.svc.Create(ctx, post.CreateInput{UserID: "usr_1", Content: "post number"})
		require.NoError(t, err)
	}

	page, err := f.svc.List(ctx, post.Paging{Page: 3, Size: 2})
	require.NoError(t, err)
	assert.Len(t, page.Posts, 1)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 3, page.CurrentPage)

	empty, err := f.svc.List(ctx, post.Paging{Page: 9, Size: 2})
	require.NoError(t, err)
	assert.Empty(t, empty.Posts)
	assert.NotNil(t, empty.Posts)
}

func TestList_HugePageIsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, post.CreateInput{UserID: "usr_1", Content: "only post"})
	require.NoError(t, err)

	page, err := f.svc.List(ctx, post.Paging{Page: math.MaxInt64/10 + 2, Size: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Posts)
	assert.Equal(t, post.MaxPage, page.CurrentPage)
	assert.Equal(t, int64(1), page.TotalPosts)
	assert.True(t, f.redis.Exists("list:10000000:10"))
}
