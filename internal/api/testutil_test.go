package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/chattyapp/chatty-server/internal/auth"
	"github.com/chattyapp/chatty-server/internal/cache"
	"github.com/chattyapp/chatty-server/internal/config"
	"github.com/chattyapp/chatty-server/internal/domain"
	"github.com/chattyapp/chatty-server/internal/images"
	"github.com/chattyapp/chatty-server/internal/queue"
)

const testJWTSecret = "test-secret"

// recordingEmitter captures every broadcast for assertions.
type recordingEmitter struct {
	mu     sync.Mutex
	events []string
}

func (e *recordingEmitter) Emit(event string, payload any) {
	e.mu.Lock()
	e.events = append(e.events, event)
	e.mu.Unlock()
}

func (e *recordingEmitter) Events() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.events...)
}

// stubUploader returns a fixed reference, or fails when Err is set.
type stubUploader struct {
	Err   error
	calls int
}

func (u *stubUploader) Upload(ctx context.Context, image, publicID string) (images.UploadResult, error) {
	u.calls++
	if u.Err != nil {
		return images.UploadResult{}, u.Err
	}
	return images.UploadResult{PublicID: "uploaded-img", Version: "1234"}, nil
}

type fakeAuthStore struct {
	mu    sync.Mutex
	auths map[string]*domain.Auth // by auth id hex
}

func newFakeAuthStore() *fakeAuthStore {
	return &fakeAuthStore{auths: make(map[string]*domain.Auth)}
}

func (s *fakeAuthStore) add(a *domain.Auth) {
	s.mu.Lock()
	s.auths[a.ID.Hex()] = a
	s.mu.Unlock()
}

func (s *fakeAuthStore) find(match func(*domain.Auth) bool) *domain.Auth {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.auths {
		if match(a) {
			copied := *a
			return &copied
		}
	}
	return nil
}

func (s *fakeAuthStore) GetByUsernameOrEmail(_ context.Context, username, email string) (*domain.Auth, error) {
	return s.find(func(a *domain.Auth) bool { return a.Username == username || a.Email == email }), nil
}

func (s *fakeAuthStore) GetByUsername(_ context.Context, username string) (*domain.Auth, error) {
	return s.find(func(a *domain.Auth) bool { return a.Username == username }), nil
}

func (s *fakeAuthStore) GetByEmail(_ context.Context, email string) (*domain.Auth, error) {
	return s.find(func(a *domain.Auth) bool { return a.Email == email }), nil
}

func (s *fakeAuthStore) GetByPasswordToken(_ context.Context, token string) (*domain.Auth, error) {
	return s.find(func(a *domain.Auth) bool {
		return a.PasswordResetToken == token && a.PasswordResetExpires.After(time.Now())
	}), nil
}

func (s *fakeAuthStore) UpdatePasswordToken(_ context.Context, authID, token string, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.auths[authID]; ok {
		a.PasswordResetToken = token
		a.PasswordResetExpires = expires
	}
	return nil
}

func (s *fakeAuthStore) UpdatePassword(_ context.Context, authID, hashed string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.auths[authID]; ok {
		a.Password = hashed
		a.PasswordResetToken = ""
	}
	return nil
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*domain.User // by user id hex
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*domain.User)}
}

func (s *fakeUserStore) add(u *domain.User) {
	s.mu.Lock()
	s.users[u.ID.Hex()] = u
	s.mu.Unlock()
}

func (s *fakeUserStore) GetUserByID(_ context.Context, userID string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (s *fakeUserStore) GetUserByAuthID(_ context.Context, authID string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.AuthID.Hex() == authID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

type fakePostStore struct {
	mu    sync.Mutex
	posts []*domain.Post

	lastSkip, lastLimit int64
}

func (s *fakePostStore) GetPosts(_ context.Context, filter bson.M, skip, limit int64, sort bson.D) ([]*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSkip, s.lastLimit = skip, limit
	return append([]*domain.Post(nil), s.posts...), nil
}

func (s *fakePostStore) CountPosts(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.posts)), nil
}

type testServer struct {
	router    chi.Router
	cacheMR   *miniredis.Miniredis
	queueRDB  *redis.Client
	userCache *cache.UserCache
	postCache *cache.PostCache
	emitter   *recordingEmitter
	uploader  *stubUploader
	authStore *fakeAuthStore
	userStore *fakeUserStore
	postStore *fakePostStore
}

// newTestServer wires the server against miniredis-backed caches and queues,
// in-memory store fakes, a recording emitter and a stub uploader. Cache and
// queue run on separate Redis instances so tests can fail one independently.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()

	cacheMR := miniredis.RunT(t)
	cacheRDB := redis.NewClient(&redis.Options{Addr: cacheMR.Addr()})
	queueMR := miniredis.RunT(t)
	queueRDB := redis.NewClient(&redis.Options{Addr: queueMR.Addr()})

	ts := &testServer{
		cacheMR:   cacheMR,
		queueRDB:  queueRDB,
		userCache: cache.NewUserCache(cacheRDB, log),
		postCache: cache.NewPostCache(cacheRDB, log),
		emitter:   &recordingEmitter{},
		uploader:  &stubUploader{},
		authStore: newFakeAuthStore(),
		userStore: newFakeUserStore(),
		postStore: &fakePostStore{},
	}

	cfg := config.Config{
		JWTSecret: testJWTSecret,
		ClientURL: "http://localhost:3000",
		CloudName: "testcloud",
	}
	server := NewServer(cfg, log, Deps{
		UserCache:  ts.userCache,
		PostCache:  ts.postCache,
		AuthStore:  ts.authStore,
		UserStore:  ts.userStore,
		PostStore:  ts.postStore,
		AuthQueue:  queue.New("auth", queueRDB, log),
		UserQueue:  queue.New("user", queueRDB, log),
		PostQueue:  queue.New("post", queueRDB, log),
		EmailQueue: queue.New("email", queueRDB, log),
		Emitter:    ts.emitter,
		Uploader:   ts.uploader,
	})
	ts.router = server.Router()
	return ts
}

func (ts *testServer) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

// queueLen reads a queue's work-list length.
func (ts *testServer) queueLen(t *testing.T, name string) int64 {
	t.Helper()
	n, err := ts.queueRDB.LLen(context.Background(), "queue:"+name).Result()
	require.NoError(t, err)
	return n
}

// signToken issues a valid token without going through signup.
func signTestToken(t *testing.T, payload domain.AuthPayload) string {
	t.Helper()
	token, err := auth.SignToken(payload, testJWTSecret)
	require.NoError(t, err)
	return token
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}
