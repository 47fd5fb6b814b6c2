package engine

import (
	"sort"
	"time"
)

// TopicCount pairs a topic with its occurrence count inside the window.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// Summary is a point-in-time snapshot of the context window, handed to the
// analysis logger and to response-prompt formatting.
type Summary struct {
	CurrentTopic     string       `json:"current_context"`
	MessageCount     int          `json:"message_count"`
	TopTopics        []TopicCount `json:"top_topics"`
	WindowAgeMinutes float64      `json:"context_age_minutes"`
}

// Tracker is the bounded, time-windowed buffer of recent messages for one
// chat. Not safe for concurrent use; each chat owns one Tracker and the
// caller serializes access (one pipeline invocation in flight per chat).
type Tracker struct {
	maxMessages int
	timeframe   time.Duration
	trendMin    int

	messages     []Message
	topicFreq    map[string]int
	topicOrder   []string // first-seen order, for a stable dominant-topic max
	currentTopic string
	windowStart  time.Time

	now func() time.Time
}

// NewTracker creates an empty tracker for one chat.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{
		maxMessages: cfg.MaxContextMessages,
		timeframe:   cfg.ContextTimeframe,
		trendMin:    cfg.TrendMinimum,
		topicFreq:   make(map[string]int),
		windowStart: time.Now(),
		now:         time.Now,
	}
}

// Add appends a message, evicts stale entries, updates topic frequencies and
// recomputes the dominant topic.
//
// Frequency counts are cleared wholesale when the window's age exceeds the
// timeframe; individual evictions do not decrement them, so counts can
// overstate window membership between resets. The trending tests pin this
// down.
func (t *Tracker) Add(msg Message) {
	now := t.now()

	t.messages = append(t.messages, msg)
	if len(t.messages) > t.maxMessages {
		t.messages = t.messages[len(t.messages)-t.maxMessages:]
	}

	cutoff := now.Add(-t.timeframe)
	for len(t.messages) > 0 && t.messages[0].Timestamp.Before(cutoff) {
		t.messages = t.messages[1:]
	}

	if now.Sub(t.windowStart) > t.timeframe {
		t.topicFreq = make(map[string]int)
		t.topicOrder = nil
		t.windowStart = now
	}

	for _, keyword := range msg.Keywords {
		if _, seen := t.topicFreq[keyword]; !seen {
			t.topicOrder = append(t.topicOrder, keyword)
		}
		t.topicFreq[keyword]++
	}

	if len(t.messages) >= t.trendMin {
		if topic, ok := t.dominantTopic(); ok {
			t.currentTopic = topic
		}
	}
}

// dominantTopic returns the highest-frequency topic, ties broken by
// first-seen order so the result is reproducible.
func (t *Tracker) dominantTopic() (string, bool) {
	best := ""
	bestCount := 0
	for _, topic := range t.topicOrder {
		if c := t.topicFreq[topic]; c > bestCount {
			best, bestCount = topic, c
		}
	}
	return best, bestCount > 0
}

// Summary reports the current window state.
func (t *Tracker) Summary() Summary {
	top := make([]TopicCount, 0, len(t.topicOrder))
	for _, topic := range t.topicOrder {
		top = append(top, TopicCount{Topic: topic, Count: t.topicFreq[topic]})
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Count > top[j].Count })
	if len(top) > 5 {
		top = top[:5]
	}
	return Summary{
		CurrentTopic:     t.currentTopic,
		MessageCount:     len(t.messages),
		TopTopics:        top,
		WindowAgeMinutes: t.now().Sub(t.windowStart).Minutes(),
	}
}

// IsTrending reports whether keyword appears in strictly more than 20% of the
// windowed messages. An empty window is never trending.
func (t *Tracker) IsTrending(keyword string) bool {
	freq, ok := t.topicFreq[keyword]
	if !ok || len(t.messages) == 0 {
		return false
	}
	return float64(freq)/float64(len(t.messages)) > 0.2
}

// LastMessageAt returns the newest message timestamp, or false when empty.
func (t *Tracker) LastMessageAt() (time.Time, bool) {
	if len(t.messages) == 0 {
		return time.Time{}, false
	}
	return t.messages[len(t.messages)-1].Timestamp, true
}

// MessageCount returns the number of messages currently in the window.
func (t *Tracker) MessageCount() int {
	return len(t.messages)
}
