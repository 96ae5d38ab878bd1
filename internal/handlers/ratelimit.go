package handlers

import (
	"sync"

	"golang.org/x/time/rate"
)

// userLimiter hands out one token-bucket limiter per user id.
type userLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newUserLimiter(limit rate.Limit, burst int) *userLimiter {
	return &userLimiter{limit: limit, burst: burst, limiters: map[string]*rate.Limiter{}}
}

func (u *userLimiter) Allow(key string) bool {
	u.mu.Lock()
	l, ok := u.limiters[key]
	if !ok {
		l = rate.NewLimiter(u.limit, u.burst)
		u.limiters[key] = l
	}
	u.mu.Unlock()
	return l.Allow()
}
