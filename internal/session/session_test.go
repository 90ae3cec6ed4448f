package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, time.Hour), mr
}

func TestSession_SetMarksModified(t *testing.T) {
	s := New("abc")
	assert.False(t, s.Modified())
	assert.True(t, s.IsNew())

	s.Set("k", []byte("v"))
	assert.True(t, s.Modified())

	v, ok := s.Get("k")
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	s.Delete("k")
	_, ok = s.Get("k")
	assert.False(t, ok)
}

func TestRedisStore_LoadMissingReturnsNotFound(t *testing.T) {
	store, _ := setupTestRedis(t)

	s, err := store.Load(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, s)
}

func TestRedisStore_SaveAndLoad(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	s := New("sid-1")
	s.Set("CART-ID", []byte(`{"default":{"items":[],"metadata":{}}}`))
	require.NoError(t, store.Save(ctx, s))

	assert.True(t, mr.Exists(sessionKey("sid-1")))
	ttl := mr.TTL(sessionKey("sid-1"))
	assert.Equal(t, time.Hour, ttl)

	loaded, err := store.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.False(t, loaded.IsNew())
	assert.False(t, loaded.Modified())
	v, ok := loaded.Get("CART-ID")
	assert.True(t, ok)
	assert.JSONEq(t, `{"default":{"items":[],"metadata":{}}}`, string(v))
}

func TestRedisStore_LoadInvalidJSON(t *testing.T) {
	store, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(sessionKey("broken"), "{not json"))

	_, err := store.Load(context.Background(), "broken")
	require.ErrorContains(t, err, "unmarshal session failed")
}

func TestRedisStore_Delete(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, New("gone")))
	require.NoError(t, store.Delete(ctx, "gone"))
	assert.False(t, mr.Exists(sessionKey("gone")))
}

func TestMiddleware_IssuesCookieAndSavesModifiedSession(t *testing.T) {
	store, mr := setupTestRedis(t)

	h := Middleware(store, "sessionid", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		require.NotNil(t, s)
		s.Set("seen", []byte("1"))
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sessionid", cookies[0].Name)
	assert.True(t, mr.Exists(sessionKey(cookies[0].Value)))
}

func TestMiddleware_ReusesCookieAndSkipsUnmodifiedSave(t *testing.T) {
	store, mr := setupTestRedis(t)
	require.NoError(t, store.Save(context.Background(), New("known")))
	mr.SetTTL(sessionKey("known"), 5*time.Minute)

	var seenID string
	h := Middleware(store, "sessionid", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = FromContext(r.Context()).ID()
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: "known"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "known", seenID)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, 5*time.Minute, mr.TTL(sessionKey("known")))
}

func TestMiddleware_UnknownCookieGetsNewSession(t *testing.T) {
	store, mr := setupTestRedis(t)

	var seenID string
	h := Middleware(store, "sessionid", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		seenID = s.ID()
		assert.True(t, s.IsNew())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: "planted"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.NotEqual(t, "planted", seenID)
	assert.False(t, mr.Exists(sessionKey("planted")))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, seenID, cookies[0].Value)
	assert.True(t, mr.Exists(sessionKey(seenID)))
}

func TestMiddleware_HoldsResponseUntilSaved(t *testing.T) {
	store, _ := setupTestRedis(t)

	h := Middleware(store, "sessionid", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Set("k", []byte("v"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	require.Len(t, rec.Result().Cookies(), 1)
}

type failingStore struct {
	*RedisStore
}

func (failingStore) Save(context.Context, *Session) error {
	return errors.New("redis down")
}

func TestMiddleware_SaveFailureReturnsServerError(t *testing.T) {
	store, _ := setupTestRedis(t)

	h := Middleware(failingStore{store}, "sessionid", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Set("k", []byte("v"))
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}
