package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/wassup/internal/pkg/response"
)

const rateLimitKeys = 10000

type rateLimiter struct {
	window time.Duration
	last   *expirable.LRU[string, time.Time]
	now    func() time.Time
}

// RateLimit allows one request per client ip, user and route within
// window. A non-positive window disables the limit.
func RateLimit(window time.Duration) gin.HandlerFunc {
	return newRateLimiter(window).handle
}

func newRateLimiter(window time.Duration) *rateLimiter {
	l := &rateLimiter{window: window, now: time.Now}
	if window > 0 {
		l.last = expirable.NewLRU[string, time.Time](rateLimitKeys, nil, window)
	}
	return l
}

func (l *rateLimiter) handle(c *gin.Context) {
	if l.window <= 0 {
		c.Next()
		return
	}
	ip := c.ClientIP()
	uid := "0"
	if v, ok := c.Get(ContextUserIDKey); ok {
		if id, ok := v.(string); ok && id != "" {
			uid = id
		}
	}
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	key := strings.Join([]string{ip, uid, path}, "|")

	now := l.now()
	if last, ok := l.last.Get(key); ok && now.Sub(last) < l.window {
		logutil.GetLogger(c.Request.Context()).Warn("rate limit hit",
			zap.String("ip", ip),
			zap.String("user_id", uid),
			zap.String("path", path),
		)
		response.Abort(c, http.StatusTooManyRequests, "too many requests, try again later")
		return
	}
	l.last.Add(key, now)
	c.Next()
}
