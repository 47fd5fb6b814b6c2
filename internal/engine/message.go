package engine

import "time"

// Message is a single group-chat message under analysis. The adapter constructs
// it; Analyze and Detect write the sentiment and keyword fields back onto it
// during Process. After that it is read-only.
type Message struct {
	ID           string    `json:"id"`
	Content      string    `json:"content"`
	AuthorID     string    `json:"user_id"`
	Timestamp    time.Time `json:"timestamp"`
	Polarity     float64   `json:"sentiment_score"`
	Subjectivity float64   `json:"sentiment_subjectivity"`
	Keywords     []string  `json:"keywords"`
	ContextID    string    `json:"context_id,omitempty"`
}

// Excerpt returns the first n runes of the content for logging, with an
// ellipsis when truncated.
func (m *Message) Excerpt(n int) string {
	r := []rune(m.Content)
	if len(r) <= n {
		return m.Content
	}
	return string(r[:n]) + "..."
}
