package bot

import (
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter decides whether a chat may ask another question now.
type RateLimiter interface {
	Allow(chatID int64) bool
}

type chatEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ChatLimiter keeps one token bucket per chat and forgets chats idle for
// longer than ttl.
type ChatLimiter struct {
	mu    sync.Mutex
	chats map[string]*chatEntry
	limit rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time

	lastSweep time.Time
}

// NewChatLimiter allows perMinute questions per chat with the given burst.
// It returns nil when perMinute <= 0, which disables limiting.
func NewChatLimiter(perMinute, burst int, ttl time.Duration) *ChatLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ChatLimiter{
		chats: make(map[string]*chatEntry),
		limit: rate.Every(time.Minute / time.Duration(perMinute)),
		burst: burst,
		ttl:   ttl,
		now:   time.Now,
	}
}

func (l *ChatLimiter) Allow(chatID int64) bool {
	if l == nil {
		return true
	}
	key := strconv.FormatInt(chatID, 10)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.chats[key]
	if !ok {
		entry = &chatEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.chats[key] = entry
	}
	entry.lastSeen = now
	if now.Sub(l.lastSweep) >= l.ttl {
		l.sweep(now)
	}
	return entry.limiter.AllowN(now, 1)
}

// sweep drops idle chats. It runs at most once per ttl; callers hold mu.
func (l *ChatLimiter) sweep(now time.Time) {
	for key, e := range l.chats {
		if now.Sub(e.lastSeen) > l.ttl {
			delete(l.chats, key)
		}
	}
	l.lastSweep = now
}
