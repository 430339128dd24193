package media_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murmurhq/murmur-server/pkg/cache"
	"github.com/murmurhq/murmur-server/pkg/eventbus"
	"github.com/murmurhq/murmur-server/pkg/platformerrors"
	"github.com/murmurhq/murmur-server/services/media-api/internal/config"
	"github.com/murmurhq/murmur-server/services/media-api/internal/domain/media"
	mediarepo "github.com/murmurhq/murmur-server/services/media-api/internal/infrastructure/repository/media"
	"github.com/murmurhq/murmur-server/services/media-api/internal/infrastructure/storage"
)

// 1x1 transparent PNG.
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

type flakyStorage struct {
	*storage.LocalStorage
	failKey string
}

func (f *flakyStorage) Delete(ctx context.Context, key string) error {
	if key == f.failKey {
		return errors.New("storage unavailable")
	}
	return f.LocalStorage.Delete(ctx, key)
}

type fixture struct {
	svc   *media.Service
	repo  *mediarepo.InMemoryRepository
	store *flakyStorage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		LocalStoragePath:    t.TempDir(),
		LocalStorageBaseURL: "http://localhost:3003/files",
		MaxMediaBytes:       5 * 1024 * 1024,
		AllowedMIMEPrefixes: []string{"image/", "video/"},
		StorageTimeout:      time.Second,
		CascadeLockTTL:      5 * time.Second,
	}
	local, err := storage.NewLocalStorage(cfg, zerolog.Nop())
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	locker := cache.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), cache.Options{}, zerolog.Nop())
	t.Cleanup(func() { _ = locker.Close() })

	repo := mediarepo.NewInMemoryRepository()
	store := &flakyStorage{LocalStorage: local}
	return &fixture{
		svc:   media.NewService(cfg, repo, store, locker, zerolog.Nop()),
		repo:  repo,
		store: store,
	}
}

func (f *fixture) upload(t *testing.T, userID string) *media.MediaObject {
	t.Helper()
	obj, err := f.svc.Upload(context.Background(), media.UploadInput{UserID: userID, OriginalName: "pixel.png", Data: pngBytes})
	require.NoError(t, err)
	return obj
}

func TestUpload_StoresBlobAndRecord(t *testing.T) {
	f := newFixture(t)

	obj := f.upload(t, "usr_alice")
	assert.Contains(t, obj.ID, "med_")
	assert.Equal(t, "image/png", obj.MimeType)
	assert.Equal(t, int64(len(pngBytes)), obj.Bytes)
	assert.Equal(t, "pixel.png", obj.OriginalName)
	assert.Equal(t, "http://localhost:3003/files/"+obj.PublicID, obj.URL)
	assert.True(t, f.store.Exists(obj.PublicID))

	items, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, obj.ID, items[0].ID)
}

func TestUpload_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, media.UploadInput{UserID: "usr_alice"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	_, err = f.svc.Upload(ctx, media.UploadInput{UserID: "usr_alice", Data: []byte("plain text is not media")})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	big := append(bytes.Clone(pngBytes), make([]byte, 5*1024*1024)...)
	_, err = f.svc.Upload(ctx, media.UploadInput{UserID: "usr_alice", Data: big})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypePayloadTooLarge))
}

func TestCascade_MissingIdAndRedelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.upload(t, "usr_alice")
	evt := &eventbus.PostDeleted{PostID: "pst_1", UserID: "usr_alice", MediaIDs: []string{a.ID, "med_01hzzzzzzzzzzzzzzzzzzzzzzz"}}

	result := f.svc.Cascade(ctx, evt)
	assert.Equal(t, media.CascadeResult{Deleted: 1, Missing: 1}, result)
	assert.False(t, f.store.Exists(a.PublicID))
	found, err := f.repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	again := f.svc.Cascade(ctx, evt)
	assert.Equal(t, media.CascadeResult{Missing: 2}, again)
}

func TestCascade_SkipsMediaOwnedByOthers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mine := f.upload(t, "usr_alice")
	theirs := f.upload(t, "usr_bob")

	result := f.svc.Cascade(ctx, &eventbus.PostDeleted{PostID: "pst_1", UserID: "usr_alice", MediaIDs: []string{mine.ID, theirs.ID}})
	assert.Equal(t, media.CascadeResult{Deleted: 1, Skipped: 1}, result)

	kept, err := f.repo.FindByID(ctx, theirs.ID)
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.True(t, f.store.Exists(theirs.PublicID))
}

func TestCascade_FailureDoesNotStopRemainingIds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	broken := f.upload(t, "usr_alice")
	ok := f.upload(t, "usr_alice")
	f.store.failKey = broken.PublicID

	result := f.svc.Cascade(ctx, &eventbus.PostDeleted{PostID: "pst_1", UserID: "usr_alice", MediaIDs: []string{broken.ID, ok.ID}})
	assert.Equal(t, media.CascadeResult{Deleted: 1, Failed: 1}, result)

	kept, err := f.repo.FindByID(ctx, broken.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestCascade_DuplicateIdsCountedOnce(t *testing.T) {
	f := newFixture(t)

	a := f.upload(t, "usr_alice")
	result := f.svc.Cascade(context.Background(), &eventbus.PostDeleted{PostID: "pst_1", UserID: "usr_alice", MediaIDs: []string{a.ID, a.ID}})
	assert.Equal(t, 1, result.Total())
	assert.Equal(t, 1, result.Deleted)
}
