package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/chattyapp/chatty-server/internal/domain"
)

func testPost(t *testing.T, userID string) *domain.Post {
	t.Helper()
	return &domain.Post{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		Username:    "Jest1",
		Email:       "jest1@test.com",
		AvatarColor: "#9c27b0",
		Post:        "hello world",
		BgColor:     "#f44336",
		Privacy:     "Public",
		Feelings:    "happy",
		GifURL:      "https://giphy.com/abc",
		Reactions:   domain.Reactions{Like: 2},
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestPostCacheSaveAndGet(t *testing.T) {
	rdb := newTestRedis(t)
	posts := NewPostCache(rdb, zap.NewNop())
	users := NewUserCache(rdb, zap.NewNop())
	ctx := context.Background()

	user := testUser(t)
	userKey := user.ID.Hex()
	require.NoError(t, users.SaveUser(ctx, userKey, user.UID, user))

	post := testPost(t, userKey)
	require.NoError(t, posts.SavePost(ctx, post.ID.Hex(), userKey, user.UID, post))

	got, err := posts.GetPost(ctx, post.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, post.ID, got.ID)
	assert.Equal(t, "hello world", got.Post)
	assert.Equal(t, 2, got.Reactions.Like)
	assert.True(t, post.CreatedAt.Equal(got.CreatedAt))

	// owner's cached postsCount rides along with the save
	cachedUser, err := users.GetUser(ctx, userKey)
	require.NoError(t, err)
	assert.Equal(t, 1, cachedUser.PostsCount)
}

func TestPostCacheUpdateMergesPatch(t *testing.T) {
	rdb := newTestRedis(t)
	posts := NewPostCache(rdb, zap.NewNop())
	ctx := context.Background()

	post := testPost(t, primitive.NewObjectID().Hex())
	key := post.ID.Hex()
	require.NoError(t, posts.SavePost(ctx, key, post.UserID, "123456789012", post))

	merged, err := posts.UpdatePost(ctx, key, &domain.Post{Post: "edited", BgColor: "#ffffff"})
	require.NoError(t, err)
	assert.Equal(t, "edited", merged.Post)
	assert.Equal(t, "#ffffff", merged.BgColor)

	// fields absent from the patch keep their values
	assert.Equal(t, "happy", merged.Feelings)
	assert.Equal(t, "https://giphy.com/abc", merged.GifURL)

	got, err := posts.GetPost(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Post)
	assert.Equal(t, "https://giphy.com/abc", got.GifURL)
}

func TestPostCacheUpdateEmptyGifURLDoesNotClear(t *testing.T) {
	rdb := newTestRedis(t)
	posts := NewPostCache(rdb, zap.NewNop())
	ctx := context.Background()

	post := testPost(t, primitive.NewObjectID().Hex())
	key := post.ID.Hex()
	require.NoError(t, posts.SavePost(ctx, key, post.UserID, "123456789012", post))

	merged, err := posts.UpdatePost(ctx, key, &domain.Post{Post: "edited", GifURL: ""})
	require.NoError(t, err)
	assert.Equal(t, "https://giphy.com/abc", merged.GifURL)
}

func TestPostCacheUpdateMissingPost(t *testing.T) {
	posts := NewPostCache(newTestRedis(t), zap.NewNop())

	_, err := posts.UpdatePost(context.Background(), primitive.NewObjectID().Hex(), &domain.Post{Post: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostCacheDelete(t *testing.T) {
	rdb := newTestRedis(t)
	posts := NewPostCache(rdb, zap.NewNop())
	users := NewUserCache(rdb, zap.NewNop())
	ctx := context.Background()

	user := testUser(t)
	userKey := user.ID.Hex()
	require.NoError(t, users.SaveUser(ctx, userKey, user.UID, user))

	post := testPost(t, userKey)
	key := post.ID.Hex()
	require.NoError(t, posts.SavePost(ctx, key, userKey, user.UID, post))
	require.NoError(t, posts.DeletePost(ctx, key, userKey))

	got, err := posts.GetPost(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	total, err := posts.GetTotalPosts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)

	cachedUser, err := users.GetUser(ctx, userKey)
	require.NoError(t, err)
	assert.Equal(t, 0, cachedUser.PostsCount)
}

func TestPostCacheGetPostsRange(t *testing.T) {
	rdb := newTestRedis(t)
	posts := NewPostCache(rdb, zap.NewNop())
	ctx := context.Background()
	userKey := primitive.NewObjectID().Hex()

	for i := 0; i < 15; i++ {
		p := testPost(t, userKey)
		p.Post = fmt.Sprintf("post %d", i)
		uid := fmt.Sprintf("%012d", i)
		require.NoError(t, posts.SavePost(ctx, p.ID.Hex(), userKey, uid, p))
	}

	// first page of the zero-based cache convention
	page, err := posts.GetPosts(ctx, 0, 9)
	require.NoError(t, err)
	assert.Len(t, page, 10)
	// highest score first
	assert.Equal(t, "post 14", page[0].Post)

	total, err := posts.GetTotalPosts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 15, total)
}

func TestPostCacheGetPostsWithImages(t *testing.T) {
	rdb := newTestRedis(t)
	posts := NewPostCache(rdb, zap.NewNop())
	ctx := context.Background()
	userKey := primitive.NewObjectID().Hex()

	plain := testPost(t, userKey)
	plain.GifURL = ""
	require.NoError(t, posts.SavePost(ctx, plain.ID.Hex(), userKey, "000000000001", plain))

	withImg := testPost(t, userKey)
	withImg.GifURL = ""
	withImg.ImgID = "img-1"
	withImg.ImgVersion = "1234"
	require.NoError(t, posts.SavePost(ctx, withImg.ID.Hex(), userKey, "000000000002", withImg))

	got, err := posts.GetPostsWithImages(ctx, 0, 9)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "img-1", got[0].ImgID)
}

// Profile edits must not rewrite the author snapshot on already-cached posts.
func TestPostCacheSnapshotNotRetroactive(t *testing.T) {
	rdb := newTestRedis(t)
	posts := NewPostCache(rdb, zap.NewNop())
	users := NewUserCache(rdb, zap.NewNop())
	ctx := context.Background()

	user := testUser(t)
	userKey := user.ID.Hex()
	require.NoError(t, users.SaveUser(ctx, userKey, user.UID, user))

	post := testPost(t, userKey)
	require.NoError(t, posts.SavePost(ctx, post.ID.Hex(), userKey, user.UID, post))

	user.Username = "Renamed"
	require.NoError(t, users.SaveUser(ctx, userKey, user.UID, user))

	got, err := posts.GetPost(ctx, post.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Jest1", got.Username)
}
