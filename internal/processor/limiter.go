package processor

import (
	"sync"
	"time"
)

// DailyLimiter caps confirmed responses per chat over a sliding 24h window.
type DailyLimiter struct {
	mu   sync.Mutex
	max  int
	sent map[string][]time.Time
}

func NewDailyLimiter(maxPerDay int) *DailyLimiter {
	return &DailyLimiter{
		max:  maxPerDay,
		sent: make(map[string][]time.Time),
	}
}

// Allow reports whether the chat still has budget at now.
func (l *DailyLimiter) Allow(chatID string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-24 * time.Hour)
	var kept []time.Time
	for _, t := range l.sent[chatID] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.sent[chatID] = kept

	return len(kept) < l.max
}

// Record consumes one unit of budget. Call only after a confirmed send.
func (l *DailyLimiter) Record(chatID string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent[chatID] = append(l.sent[chatID], now)
}
