// Package analysis persists one append-only JSON-lines record per processed
// message, in a per-day directory, and aggregates those records into daily
// summaries for offline review.
package analysis

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"chengbot/internal/engine"
)

const (
	analysisFileName = "analysis.jsonl"
	summaryFileName  = "daily_summary.json"
	statsFileName    = "daily_stats.json"

	// Analysis records can carry long message content; give the scanner room.
	maxRecordBytes = 1 << 20
)

// Entry is one analysis record: the full trace of a single message through
// the pipeline, response included when one was sent.
type Entry struct {
	Timestamp string         `json:"timestamp"`
	ChatID    string         `json:"chat_id"`
	Message   EntryMessage   `json:"message"`
	Sentiment engine.Result  `json:"sentiment_analysis"`
	Decision  EntryDecision  `json:"decision_engine"`
	Context   engine.Summary `json:"context"`
	Response  string         `json:"bot_response,omitempty"`
}

// EntryMessage is the logged slice of the message.
type EntryMessage struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	AuthorID string   `json:"user_id"`
	Keywords []string `json:"keywords"`
}

// EntryDecision is the logged decision outcome plus its debug snapshot.
type EntryDecision struct {
	ShouldRespond bool         `json:"should_respond"`
	Reason        string       `json:"decision_reason"`
	Debug         engine.Debug `json:"debug_info"`
}

// Summary aggregates one day of analysis records.
type Summary struct {
	TotalMessages int            `json:"total_messages"`
	ResponsesSent int            `json:"responses_sent"`
	Sentiment     SentimentDist  `json:"sentiment_distribution"`
	Reasons       map[string]int `json:"decision_reasons"`
	Keywords      map[string]int `json:"most_common_keywords"`
}

// SentimentDist buckets polarity at the +-0.1 breakpoints.
type SentimentDist struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// Logger writes analysis records under baseDir/YYYY-MM-DD/. Safe for
// concurrent use; writes are serialized.
type Logger struct {
	baseDir string
	mu      sync.Mutex
	now     func() time.Time
}

// New creates the base directory and returns a Logger.
func New(baseDir string) (*Logger, error) {
	if baseDir == "" {
		baseDir = "analysis_logs"
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create analysis dir: %w", err)
	}
	return &Logger{baseDir: baseDir, now: time.Now}, nil
}

// dayDir returns (and creates) the directory for the current day. Resolved
// per call so records land in the right day across midnight.
func (l *Logger) dayDir() (string, error) {
	dir := filepath.Join(l.baseDir, l.now().Format("2006-01-02"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create day dir: %w", err)
	}
	return dir, nil
}

// Log appends one analysis record. botResponse is empty when no response was
// generated.
func (l *Logger) Log(chatID string, msg *engine.Message, decision engine.Decision, ctx engine.Summary, botResponse string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{
		Timestamp: l.now().Format("2006-01-02 15:04:05.000"),
		ChatID:    chatID,
		Message: EntryMessage{
			ID:       msg.ID,
			Content:  msg.Content,
			AuthorID: msg.AuthorID,
			Keywords: msg.Keywords,
		},
		Sentiment: decision.Sentiment,
		Decision: EntryDecision{
			ShouldRespond: decision.Respond,
			Reason:        decision.ReasonText(),
			Debug:         decision.Debug,
		},
		Context:  ctx,
		Response: botResponse,
	}

	dir, err := l.dayDir()
	if err != nil {
		return err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal analysis entry: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, analysisFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open analysis file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write analysis entry: %w", err)
	}
	return nil
}

// DailySummary aggregates today's records and writes daily_summary.json next
// to them.
func (l *Logger) DailySummary() (*Summary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	dir, err := l.dayDir()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(dir, analysisFileName))
	if err != nil {
		return nil, fmt.Errorf("no analysis records for today: %w", err)
	}
	defer f.Close()

	summary := &Summary{
		Reasons:  make(map[string]int),
		Keywords: make(map[string]int),
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue // skip corrupt lines, keep aggregating
		}
		summary.TotalMessages++
		if entry.Response != "" {
			summary.ResponsesSent++
		}

		switch polarity := entry.Sentiment.Polarity; {
		case polarity > 0.1:
			summary.Sentiment.Positive++
		case polarity < -0.1:
			summary.Sentiment.Negative++
		default:
			summary.Sentiment.Neutral++
		}

		summary.Reasons[entry.Decision.Reason]++
		for _, keyword := range entry.Message.Keywords {
			summary.Keywords[keyword]++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan analysis file: %w", err)
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, summaryFileName), data, 0644); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}
	return summary, nil
}

// LogAggregateStats merges stats into today's daily_stats.json, keeping any
// keys a previous run wrote.
func (l *Logger) LogAggregateStats(stats map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	dir, err := l.dayDir()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, statsFileName)

	merged := make(map[string]any)
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &merged)
	}
	for k, v := range stats {
		merged[k] = v
	}

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	return nil
}
