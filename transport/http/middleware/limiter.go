package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"roombook/shared"
	"roombook/shared/cache"
	"roombook/shared/constant"
	"roombook/transport/http/response"

	"github.com/rs/zerolog/log"
)

const (
	cacheKeyRateLimit = "limiter"

	subjectUser   = "user"
	subjectClient = "client"
	unknownAgent  = "unknown"
)

// RateLimit counts requests per subject in a fixed window. It must run after Auth so signed-in users
// share one budget across devices; anonymous callers are counted per address and user agent.
func (a *appMiddleware) RateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limit := a.config.App.RateLimiter

			if !limit.Enable || limit.MaxRequests <= 0 || internalCall(r.Context()) {
				next.ServeHTTP(w, r)

				return
			}

			count, ok := a.countRequest(r.Context(), rateLimitKey(r), limit.WindowSeconds)
			if !ok {
				next.ServeHTTP(w, r)

				return
			}

			w.Header().Set(constant.RequestHeaderRateLimit, strconv.Itoa(limit.MaxRequests))
			w.Header().Set(constant.RequestHeaderRateLimitRemaining, strconv.Itoa(max(0, limit.MaxRequests-count)))
			w.Header().Set(constant.RequestHeaderRateLimitWindow, strconv.Itoa(limit.WindowSeconds))

			if count > limit.MaxRequests {
				w.Header().Set(constant.RequestHeaderRetryAfter, strconv.Itoa(limit.WindowSeconds))
				response.WithRequestLimitExceeded(w)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// countRequest returns false when the counter is unavailable, in which case the request is let through.
func (a *appMiddleware) countRequest(ctx context.Context, key string, windowSeconds int) (int, bool) {
	var count int

	err := a.cache.Get(ctx, key, &count)

	switch {
	case errors.Is(err, cache.Nil):
		count = 1
	case err != nil:
		log.Warn().Err(err).Str("key", key).Msg("rate limiter counter unavailable")

		return 0, false
	default:
		count++
	}

	if err = a.cache.Save(ctx, key, count, windowSeconds); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("rate limiter counter not saved")

		return 0, false
	}

	return count, true
}

func rateLimitKey(r *http.Request) string {
	if userID, _ := r.Context().Value(constant.ContextKeyUserID).(string); userID != "" {
		return shared.BuildCacheKey(cacheKeyRateLimit, subjectUser, userID)
	}

	return shared.BuildCacheKey(cacheKeyRateLimit, subjectClient, clientIP(r), userAgent(r))
}

func internalCall(ctx context.Context) bool {
	skip, _ := ctx.Value(SkipAuthKey("skip")).(bool)

	return skip
}

func userAgent(r *http.Request) string {
	if ua := r.Header.Get(constant.RequestHeaderUserAgent); ua != "" {
		return ua
	}

	return unknownAgent
}

// clientIP reads RemoteAddr, which chi's RealIP has already replaced with the forwarded address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
