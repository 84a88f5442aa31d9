package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chattyapp/chatty-server/internal/domain"
	"github.com/chattyapp/chatty-server/internal/realtime"
)

func testClaims() domain.AuthPayload {
	return domain.AuthPayload{
		UserID:      primitive.NewObjectID().Hex(),
		UID:         "123456789012",
		Username:    "Jest1",
		Email:       "jest1@test.com",
		AvatarColor: "#9c27b0",
	}
}

func TestCreatePostSideEffects(t *testing.T) {
	ts := newTestServer(t)
	claims := testClaims()
	token := signTestToken(t, claims)

	rec := ts.request(t, http.MethodPost, "/api/v1/post", token, map[string]string{
		"post":     "hello world",
		"bgColor":  "#f44336",
		"privacy":  "Public",
		"feelings": "happy",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// exactly one cached record, one broadcast, one durable job
	posts, err := ts.postCache.GetPosts(context.Background(), 0, 9)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "hello world", posts[0].Post)
	assert.Equal(t, claims.UserID, posts[0].UserID)

	// author snapshot copied from the token claims at creation
	assert.Equal(t, "Jest1", posts[0].Username)
	assert.Equal(t, "#9c27b0", posts[0].AvatarColor)

	assert.Equal(t, []string{realtime.EventAddPost}, ts.emitter.Events())
	assert.EqualValues(t, 1, ts.queueLen(t, "post"))
}

// Killing the cache Redis must fail the request with no broadcast and no
// enqueued job: no partial side effects.
func TestCreatePostCacheFailureStopsPipeline(t *testing.T) {
	ts := newTestServer(t)
	token := signTestToken(t, testClaims())
	ts.cacheMR.Close()

	rec := ts.request(t, http.MethodPost, "/api/v1/post", token, map[string]string{"post": "hello"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")

	assert.Empty(t, ts.emitter.Events())
	assert.EqualValues(t, 0, ts.queueLen(t, "post"))
}

func TestCreatePostValidation(t *testing.T) {
	ts := newTestServer(t)
	token := signTestToken(t, testClaims())

	rec := ts.request(t, http.MethodPost, "/api/v1/post", token, map[string]string{"bgColor": "#fff"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, ts.emitter.Events())
}

func TestCreatePostWithImageUploadsFirst(t *testing.T) {
	ts := newTestServer(t)
	token := signTestToken(t, testClaims())

	rec := ts.request(t, http.MethodPost, "/api/v1/post/image", token, map[string]string{
		"post":  "look at this",
		"image": "data:image/png;base64,xyz",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 1, ts.uploader.calls)

	posts, err := ts.postCache.GetPosts(context.Background(), 0, 9)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "uploaded-img", posts[0].ImgID)
	assert.Equal(t, "1234", posts[0].ImgVersion)
}

func TestCreatePostWithImageUploadFailureHasNoSideEffects(t *testing.T) {
	ts := newTestServer(t)
	token := signTestToken(t, testClaims())
	ts.uploader.Err = assert.AnError

	rec := ts.request(t, http.MethodPost, "/api/v1/post/image", token, map[string]string{
		"post":  "look at this",
		"image": "data:image/png;base64,xyz",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, ts.emitter.Events())
	assert.EqualValues(t, 0, ts.queueLen(t, "post"))
}

func createCachedPost(t *testing.T, ts *testServer, claims domain.AuthPayload) *domain.Post {
	t.Helper()
	post := &domain.Post{
		ID:          primitive.NewObjectID(),
		UserID:      claims.UserID,
		Username:    claims.Username,
		Email:       claims.Email,
		AvatarColor: claims.AvatarColor,
		Post:        "original",
		GifURL:      "https://giphy.com/abc",
		Privacy:     "Public",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, ts.postCache.SavePost(context.Background(), post.ID.Hex(), claims.UserID, claims.UID, post))
	return post
}

// A patch that omits gifUrl (or sends it empty) must leave the cached value
// alone.
func TestUpdatePostPreservesOmittedGifURL(t *testing.T) {
	ts := newTestServer(t)
	claims := testClaims()
	token := signTestToken(t, claims)
	post := createCachedPost(t, ts, claims)

	rec := ts.request(t, http.MethodPut, "/api/v1/post/"+post.ID.Hex(), token, map[string]string{
		"post":   "edited",
		"gifUrl": "",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, err := ts.postCache.GetPost(context.Background(), post.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Post)
	assert.Equal(t, "https://giphy.com/abc", got.GifURL)

	assert.Equal(t, []string{realtime.EventUpdatePost}, ts.emitter.Events())
	assert.EqualValues(t, 1, ts.queueLen(t, "post"))
}

func TestUpdatePostNotFound(t *testing.T) {
	ts := newTestServer(t)
	token := signTestToken(t, testClaims())

	rec := ts.request(t, http.MethodPut, "/api/v1/post/"+primitive.NewObjectID().Hex(), token, map[string]string{"post": "edited"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, ts.emitter.Events())
	assert.EqualValues(t, 0, ts.queueLen(t, "post"))
}

// Supplying an existing image reference reuses it verbatim without touching
// the uploader.
func TestUpdatePostWithExistingImageSkipsUpload(t *testing.T) {
	ts := newTestServer(t)
	claims := testClaims()
	token := signTestToken(t, claims)
	post := createCachedPost(t, ts, claims)

	rec := ts.request(t, http.MethodPut, "/api/v1/post/image/"+post.ID.Hex(), token, map[string]string{
		"post":       "edited",
		"image":      "data:image/png;base64,xyz",
		"imgId":      "existing-img",
		"imgVersion": "42",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Zero(t, ts.uploader.calls)

	got, err := ts.postCache.GetPost(context.Background(), post.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "existing-img", got.ImgID)
	assert.Equal(t, "42", got.ImgVersion)
}

func TestUpdatePostWithNewImageUploads(t *testing.T) {
	ts := newTestServer(t)
	claims := testClaims()
	token := signTestToken(t, claims)
	post := createCachedPost(t, ts, claims)

	rec := ts.request(t, http.MethodPut, "/api/v1/post/image/"+post.ID.Hex(), token, map[string]string{
		"post":  "edited",
		"image": "data:image/png;base64,xyz",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, ts.uploader.calls)

	got, err := ts.postCache.GetPost(context.Background(), post.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "uploaded-img", got.ImgID)
}

// Deletion removes the cached record immediately; the durable deletion job
// may run much later.
func TestDeletePostRemovesCacheBeforeDurableDelete(t *testing.T) {
	ts := newTestServer(t)
	claims := testClaims()
	token := signTestToken(t, claims)
	post := createCachedPost(t, ts, claims)

	rec := ts.request(t, http.MethodDelete, "/api/v1/post/"+post.ID.Hex(), token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, err := ts.postCache.GetPost(context.Background(), post.ID.Hex())
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Equal(t, []string{realtime.EventDeletePost}, ts.emitter.Events())
	assert.EqualValues(t, 1, ts.queueLen(t, "post"))
}

func seedCachedPosts(t *testing.T, ts *testServer, n int) {
	t.Helper()
	userID := primitive.NewObjectID().Hex()
	for i := 0; i < n; i++ {
		p := &domain.Post{
			ID:        primitive.NewObjectID(),
			UserID:    userID,
			Username:  "Jest1",
			Post:      fmt.Sprintf("post %d", i),
			CreatedAt: time.Now().UTC(),
		}
		uid := fmt.Sprintf("%012d", i)
		require.NoError(t, ts.postCache.SavePost(context.Background(), p.ID.Hex(), userID, uid, p))
	}
}

func TestGetPostsFirstPage(t *testing.T) {
	ts := newTestServer(t)
	token := signTestToken(t, testClaims())
	seedCachedPosts(t, ts, 15)

	rec := ts.request(t, http.MethodGet, "/api/v1/post/all/1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[postsResponse](t, rec)
	assert.Len(t, resp.Posts, 10)
	assert.EqualValues(t, 15, resp.TotalPosts)
	assert.Equal(t, "post 14", resp.Posts[0].Post)
}

// Page 2 applies the cache-skip convention: zero-based first page, offset by
// one thereafter.
func TestGetPostsSecondPageCacheSkip(t *testing.T) {
	ts := newTestServer(t)
	token := signTestToken(t, testClaims())
	seedCachedPosts(t, ts, 15)

	rec := ts.request(t, http.MethodGet, "/api/v1/post/all/2", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[postsResponse](t, rec)
	// ranks 11..14 of 15 cached posts
	assert.Len(t, resp.Posts, 4)
	assert.Equal(t, "post 3", resp.Posts[0].Post)
}

func TestGetPostsFallsBackToDurableStore(t *testing.T) {
	ts := newTestServer(t)
	token := signTestToken(t, testClaims())
	ts.postStore.posts = []*domain.Post{{ID: primitive.NewObjectID(), Post: "stored"}}

	rec := ts.request(t, http.MethodGet, "/api/v1/post/all/1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[postsResponse](t, rec)
	require.Len(t, resp.Posts, 1)
	assert.Equal(t, "stored", resp.Posts[0].Post)
	assert.EqualValues(t, 1, resp.TotalPosts)

	// durable skip is zero-based
	assert.EqualValues(t, 0, ts.postStore.lastSkip)
	assert.EqualValues(t, 10, ts.postStore.lastLimit)
}

func TestGetPostsInvalidPage(t *testing.T) {
	ts := newTestServer(t)
	token := signTestToken(t, testClaims())

	rec := ts.request(t, http.MethodGet, "/api/v1/post/all/0", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPostsWithImagesFiltersCache(t *testing.T) {
	ts := newTestServer(t)
	claims := testClaims()
	token := signTestToken(t, claims)

	plain := &domain.Post{ID: primitive.NewObjectID(), UserID: claims.UserID, Post: "plain", CreatedAt: time.Now().UTC()}
	require.NoError(t, ts.postCache.SavePost(context.Background(), plain.ID.Hex(), claims.UserID, "000000000001", plain))
	pic := &domain.Post{ID: primitive.NewObjectID(), UserID: claims.UserID, Post: "pic", ImgID: "img-1", ImgVersion: "7", CreatedAt: time.Now().UTC()}
	require.NoError(t, ts.postCache.SavePost(context.Background(), pic.ID.Hex(), claims.UserID, "000000000002", pic))

	rec := ts.request(t, http.MethodGet, "/api/v1/post/images/1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[postsResponse](t, rec)
	require.Len(t, resp.Posts, 1)
	assert.Equal(t, "pic", resp.Posts[0].Post)
}
