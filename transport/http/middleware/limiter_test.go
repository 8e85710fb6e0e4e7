package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"roombook/config"
	"roombook/shared/cache"
	cacheMocks "roombook/shared/cache/mocks"
	"roombook/shared/constant"
)

func newLimiter(t *testing.T, maxRequests int) (*appMiddleware, *cacheMocks.MockRedisCache) {
	t.Helper()

	store := cacheMocks.NewMockRedisCache(gomock.NewController(t))

	cfg := &config.Config{}
	cfg.App.RateLimiter.Enable = true
	cfg.App.RateLimiter.MaxRequests = maxRequests
	cfg.App.RateLimiter.WindowSeconds = 60

	return &appMiddleware{config: cfg, cache: store}, store
}

func storedCount(count int) func(context.Context, string, any) error {
	return func(_ context.Context, _ string, value any) error {
		*value.(*int) = count

		return nil
	}
}

func serveLimited(a *appMiddleware, r *http.Request) (*httptest.ResponseRecorder, bool) {
	reached := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { reached = true })

	rec := httptest.NewRecorder()
	a.RateLimit()(next).ServeHTTP(rec, r)

	return rec, reached
}

func withUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), constant.ContextKeyUserID, userID))
}

func TestRateLimitKey(t *testing.T) {
	tests := []struct {
		name  string
		build func() *http.Request
		want  string
	}{
		{
			name: "signed in user",
			build: func() *http.Request {
				return withUser(httptest.NewRequest(http.MethodGet, "/v1/reservations", nil), "user-1")
			},
			want: "limiter:user:user-1",
		},
		{
			name: "anonymous client",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
				r.RemoteAddr = "203.0.113.7:52100"
				r.Header.Set(constant.RequestHeaderUserAgent, "curl/8.0")

				return r
			},
			want: "limiter:client:203.0.113.7:curl/8.0",
		},
		{
			name: "anonymous client without agent",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
				r.RemoteAddr = "203.0.113.7"

				return r
			},
			want: "limiter:client:203.0.113.7:unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rateLimitKey(tt.build()))
		})
	}
}

func TestRateLimit(t *testing.T) {
	t.Run("first request starts the window", func(t *testing.T) {
		a, store := newLimiter(t, 2)
		store.EXPECT().Get(gomock.Any(), "limiter:user:user-1", gomock.Any()).Return(fmt.Errorf("get: %w", cache.Nil))
		store.EXPECT().Save(gomock.Any(), "limiter:user:user-1", 1, 60).Return(nil)

		rec, reached := serveLimited(a, withUser(httptest.NewRequest(http.MethodGet, "/", nil), "user-1"))

		assert.True(t, reached)
		assert.Equal(t, "2", rec.Header().Get(constant.RequestHeaderRateLimit))
		assert.Equal(t, "1", rec.Header().Get(constant.RequestHeaderRateLimitRemaining))
	})

	t.Run("same user from another address shares the budget", func(t *testing.T) {
		a, store := newLimiter(t, 2)
		store.EXPECT().Get(gomock.Any(), "limiter:user:user-1", gomock.Any()).DoAndReturn(storedCount(2))
		store.EXPECT().Save(gomock.Any(), "limiter:user:user-1", 3, 60).Return(nil)

		r := withUser(httptest.NewRequest(http.MethodGet, "/", nil), "user-1")
		r.RemoteAddr = "198.51.100.20:4000"

		rec, reached := serveLimited(a, r)

		assert.False(t, reached)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "0", rec.Header().Get(constant.RequestHeaderRateLimitRemaining))
		assert.Equal(t, "60", rec.Header().Get(constant.RequestHeaderRetryAfter))
	})

	t.Run("counter outage lets the request through", func(t *testing.T) {
		a, store := newLimiter(t, 2)
		store.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))

		rec, reached := serveLimited(a, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.True(t, reached)
		assert.Empty(t, rec.Header().Get(constant.RequestHeaderRateLimit))
	})

	t.Run("internal calls are not counted", func(t *testing.T) {
		a, _ := newLimiter(t, 2)

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(context.WithValue(r.Context(), SkipAuthKey("skip"), true))

		_, reached := serveLimited(a, r)

		assert.True(t, reached)
	})

	t.Run("disabled", func(t *testing.T) {
		a, _ := newLimiter(t, 2)
		a.config.App.RateLimiter.Enable = false

		_, reached := serveLimited(a, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.True(t, reached)
	})
}
