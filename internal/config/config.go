// Package config loads bot settings from the environment, with .env support
// for local runs.
package config

import (
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"chengbot/internal/engine"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, falling back to system environment variables")
	}
}

// Settings is the full runtime configuration. Engine thresholds and
// vocabularies keep their stock defaults unless overridden.
type Settings struct {
	DiscordToken string `env:"DISCORD_TOKEN"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	AssistantID  string `env:"ASSISTANT_ID"`

	StoragePath string `env:"STORAGE_PATH" envDefault:"datastore.json"`
	AnalysisDir string `env:"ANALYSIS_DIR" envDefault:"analysis_logs"`

	// AllowedChats is a comma-separated channel allow list. Empty means all
	// channels are allowed.
	AllowedChats []string `env:"ALLOWED_CHATS" envSeparator:","`

	ResponseThreshold         float64       `env:"SENTIMENT_THRESHOLD_RESPONSE" envDefault:"0.3"`
	AlertThreshold            float64       `env:"SENTIMENT_THRESHOLD_ALERT" envDefault:"-0.3"`
	MinResponseInterval       time.Duration `env:"MIN_RESPONSE_INTERVAL" envDefault:"15s"`
	MaxDailyResponses         int           `env:"MAX_DAILY_RESPONSES" envDefault:"100"`
	RandomResponseProbability float64       `env:"RANDOM_RESPONSE_PROBABILITY" envDefault:"0.1"`
	MaxContextMessages        int           `env:"MAX_CONTEXT_MESSAGES" envDefault:"50"`
	ContextTimeframe          time.Duration `env:"CONTEXT_TIMEFRAME" envDefault:"30m"`
	DeadChatAfter             time.Duration `env:"DEAD_CHAT_AFTER" envDefault:"2m"`
}

// New parses the environment and exits on missing credentials.
func New() *Settings {
	s, err := Parse()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if s.DiscordToken == "" {
		log.Fatal("DISCORD_TOKEN is not set")
	}
	if s.OpenAIAPIKey == "" {
		log.Fatal("OPENAI_API_KEY is not set")
	}
	if s.AssistantID == "" {
		log.Fatal("ASSISTANT_ID is not set")
	}
	return s
}

// Parse reads the environment without the fatal credential checks. Used by
// tools that only need the storage path.
func Parse() (*Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return nil, err
	}
	for i, chat := range s.AllowedChats {
		s.AllowedChats[i] = strings.TrimSpace(chat)
	}
	return &s, nil
}

// ChatAllowed reports whether a channel passes the allow list.
func (s *Settings) ChatAllowed(chatID string) bool {
	if len(s.AllowedChats) == 0 {
		return true
	}
	for _, allowed := range s.AllowedChats {
		if allowed == chatID {
			return true
		}
	}
	return false
}

// Engine merges the overridable knobs into the stock engine configuration.
func (s *Settings) Engine() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.ResponseThreshold = s.ResponseThreshold
	cfg.AlertThreshold = s.AlertThreshold
	cfg.MinResponseInterval = s.MinResponseInterval
	cfg.RandomResponseProbability = s.RandomResponseProbability
	cfg.MaxContextMessages = s.MaxContextMessages
	cfg.ContextTimeframe = s.ContextTimeframe
	cfg.DeadChatAfter = s.DeadChatAfter
	return cfg
}
