package engine

import "time"

// Config holds thresholds and vocabularies for the decision pipeline.
// Immutable after construction; validated once.
type Config struct {
	// ResponseThreshold triggers a response when polarity >= it.
	ResponseThreshold float64
	// AlertThreshold triggers a response when polarity <= it.
	AlertThreshold float64

	// ProjectTerms are matched as substrings of lowercased content.
	ProjectTerms []string
	// TechnicalKeywords are matched whole-word only.
	TechnicalKeywords []string
	// TriggerSymbols are single glyphs (emoji) scanned rune by rune.
	TriggerSymbols []string
	// QuestionIndicators are matched whole-word against the split content.
	QuestionIndicators []string

	MaxContextMessages int
	ContextTimeframe   time.Duration
	TrendMinimum       int
	DeadChatAfter      time.Duration

	MinResponseInterval       time.Duration
	RandomResponseProbability float64
}

// DefaultConfig returns the stock configuration: gigacheng project vocabulary,
// 30 minute context window, 15 second response cooldown.
func DefaultConfig() Config {
	return Config{
		ResponseThreshold: 0.3,
		AlertThreshold:    -0.3,

		ProjectTerms: []string{
			"gigacheng", "giga", "cheng",
			"alephium", "alph", "ayin",
			"candyswap", "chengverse", "chenginator",
		},

		TechnicalKeywords: []string{
			// project/token criticism
			"shitcoin", "rugpull", "rug", "rugged", "honeypot", "scam", "ponzi",
			"pyramid", "exit scam", "dead project", "ghost chain", "vaporware",
			"abandoned", "inactive", "no devs", "copy paste", "fake", "fud",
			"fuding", "fudder", "larpy", "larper", "shit coin", "dead coin",
			"joke project", "meme coin",

			// price/trading
			"dump", "dumping", "dumped", "rekt", "ngmi", "going to zero",
			"bagholder", "bagholding", "exit liquidity", "panic sell",
			"paper hands", "paperhanded", "down bad", "dumpcoin", "dip",
			"mcap too high", "overvalued", "expensive", "priced in",
			"no volume", "illiquid", "bleeding",

			// common criticism
			"trash", "garbage", "useless", "worthless", "joke", "stupid",
			"cringe", "cope", "copium", "hopium", "clown",

			// community/team criticism
			"no community", "dead chat", "bot activity", "paid shills",
			"anon team", "anonymous devs", "no docs", "no whitepaper",
			"no roadmap", "missed deadline", "delayed", "no updates",
			"empty promises",
		},

		TriggerSymbols: []string{
			"🚀", "📈", "💎", "🔥", "⚡", "🦁", "💪",
			"🤝", "✅", "🎉", "🤑", "👑", "🏆", "❤", "👍",
			"📉", "😢", "😭", "💀",
		},

		QuestionIndicators: []string{
			"what", "how", "when", "where", "why", "who",
			"which", "whose", "whom",
			"wen", "ser",
			"can", "could", "would", "should", "will",
			"do", "does", "did", "has", "have",
			"is", "are", "was", "were",
		},

		MaxContextMessages: 50,
		ContextTimeframe:   30 * time.Minute,
		TrendMinimum:       5,
		DeadChatAfter:      2 * time.Minute,

		MinResponseInterval:       15 * time.Second,
		RandomResponseProbability: 0.1,
	}
}
