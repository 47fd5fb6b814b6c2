package engine

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"
)

// Reason is the closed set of decision outcomes.
type Reason int

const (
	ReasonRateLimited Reason = iota
	ReasonProjectMention
	ReasonNegativeSentiment
	ReasonPositiveSentiment
	ReasonProjectQuestion
	ReasonTechnicalDiscussion
	ReasonRandomEngagement
	ReasonNoTriggers
	ReasonError
)

var reasonNames = map[Reason]string{
	ReasonRateLimited:         "Rate limited",
	ReasonProjectMention:      "Project mention",
	ReasonNegativeSentiment:   "Negative sentiment",
	ReasonPositiveSentiment:   "Positive sentiment",
	ReasonProjectQuestion:     "Project question",
	ReasonTechnicalDiscussion: "Technical discussion",
	ReasonRandomEngagement:    "Random engagement",
	ReasonNoTriggers:          "No triggers met",
	ReasonError:               "Error",
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

// Debug is the structured snapshot attached to every decision, consumed by
// the analysis logger.
type Debug struct {
	MessageID    string   `json:"message_id"`
	Excerpt      string   `json:"content"`
	Polarity     float64  `json:"sentiment_score"`
	Subjectivity float64  `json:"sentiment_subjectivity"`
	HasKeywords  bool     `json:"has_keywords"`
	Keywords     []string `json:"keywords"`
	Reason       string   `json:"decision_reason"`
	Respond      bool     `json:"should_respond"`
}

// Decision is the outcome of one Process call.
type Decision struct {
	Respond   bool
	Reason    Reason
	ErrDetail string // set only with ReasonError
	Sentiment Result
	Debug     Debug
}

// ReasonText renders the reason for logs, with the error detail appended for
// the Error variant.
func (d Decision) ReasonText() string {
	if d.Reason == ReasonError {
		return "Error: " + d.ErrDetail
	}
	return d.Reason.String()
}

// Policy runs the full decision pipeline for ONE chat: sentiment, keywords,
// context tracking, then the priority-ordered response rules. One Policy per
// chat; callers serialize Process invocations (no internal locking).
type Policy struct {
	cfg      Config
	scorer   *Scorer
	detector *Detector
	tracker  *Tracker

	lastResponseAt time.Time
	everResponded  bool

	now       func() time.Time
	randFloat func() float64
}

// NewPolicy builds a Policy with its own tracker. The estimator is the
// external base-polarity capability.
func NewPolicy(cfg Config, estimator Estimator) *Policy {
	return &Policy{
		cfg:       cfg,
		scorer:    NewScorer(estimator, cfg),
		detector:  NewDetector(cfg),
		tracker:   NewTracker(cfg),
		now:       time.Now,
		randFloat: rand.Float64,
	}
}

// Tracker exposes the chat's context tracker (summaries, trend checks).
func (p *Policy) Tracker() *Tracker { return p.tracker }

// Process runs the pipeline and decides whether to respond. It never panics
// past its boundary: estimator failures and panics below it are absorbed into
// a no-response decision with the Error reason. The message is annotated in
// place with sentiment and keywords even on the partial-failure path.
func (p *Policy) Process(msg *Message, isReplyToBot bool) (decision Decision) {
	decision = Decision{
		Reason: ReasonNoTriggers,
		Debug: Debug{
			MessageID: msg.ID,
			Excerpt:   msg.Excerpt(50),
			Reason:    "Not processed",
		},
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ENGINE] action=process message=%s panic: %v", msg.ID, r)
			decision.Respond = false
			decision.Reason = ReasonError
			decision.ErrDetail = fmt.Sprintf("%v", r)
			decision.Debug.Respond = false
			decision.Debug.Reason = decision.ReasonText()
		}
	}()

	result, err := p.scorer.Analyze(msg)
	if err != nil {
		log.Printf("[ENGINE] action=process message=%s analyze failed: %v", msg.ID, err)
		decision.Reason = ReasonError
		decision.ErrDetail = err.Error()
		decision.Debug.Reason = decision.ReasonText()
		return decision
	}
	msg.Polarity = result.Polarity
	msg.Subjectivity = result.Subjectivity
	decision.Sentiment = result
	decision.Debug.Polarity = result.Polarity
	decision.Debug.Subjectivity = result.Subjectivity

	msg.Keywords = p.detector.Detect(msg)
	decision.Debug.HasKeywords = len(msg.Keywords) > 0
	decision.Debug.Keywords = msg.Keywords

	p.tracker.Add(*msg)

	respond, reason := p.shouldRespond(msg)
	decision.Respond = respond
	decision.Reason = reason
	decision.Debug.Respond = respond
	decision.Debug.Reason = decision.ReasonText()
	return decision
}

// shouldRespond evaluates the response rules in strict priority order; the
// first match wins. Rate limiting short-circuits everything, project
// mentions included.
func (p *Policy) shouldRespond(msg *Message) (bool, Reason) {
	now := p.now()

	if !p.lastResponseAt.IsZero() {
		elapsed := now.Sub(p.lastResponseAt)
		if elapsed < p.cfg.MinResponseInterval {
			log.Printf("[ENGINE] action=decide message=%s rate limited elapsed=%s", msg.ID, elapsed.Round(time.Second))
			return false, ReasonRateLimited
		}
	}

	textLower := strings.ToLower(msg.Content)

	if p.mentionsProject(textLower) {
		return true, ReasonProjectMention
	}

	if msg.Polarity <= p.cfg.AlertThreshold {
		return true, ReasonNegativeSentiment
	} else if msg.Polarity >= p.cfg.ResponseThreshold {
		return true, ReasonPositiveSentiment
	}

	if p.isProjectQuestion(msg, textLower) {
		return true, ReasonProjectQuestion
	}

	if len(msg.Keywords) > 0 && (msg.Polarity > 0.3 || msg.Polarity < -0.3) {
		return true, ReasonTechnicalDiscussion
	}

	if p.randFloat() < p.cfg.RandomResponseProbability {
		return true, ReasonRandomEngagement
	}

	return false, ReasonNoTriggers
}

func (p *Policy) mentionsProject(textLower string) bool {
	for _, term := range p.cfg.ProjectTerms {
		if strings.Contains(textLower, term) {
			return true
		}
	}
	return false
}

func (p *Policy) isProjectQuestion(msg *Message, textLower string) bool {
	if !p.mentionsProject(textLower) {
		return false
	}
	if strings.Contains(msg.Content, "?") {
		return true
	}
	for _, word := range strings.Fields(textLower) {
		for _, indicator := range p.cfg.QuestionIndicators {
			if word == indicator {
				return true
			}
		}
	}
	return false
}

// ConfirmResponded moves the rate-limit window. Callers invoke it exactly once
// per responded message, after the send is confirmed, so a failed generation
// does not consume the window.
func (p *Policy) ConfirmResponded(t time.Time) {
	p.lastResponseAt = t
	p.everResponded = true
}

// ShouldGenerateSpontaneous reports whether the chat is dead enough to start
// a conversation unprompted: true when nothing was ever sent, or when the
// newest tracked message is older than the dead-chat duration. An empty
// window after a previous response falls back to a one-hour silence estimate.
func (p *Policy) ShouldGenerateSpontaneous() bool {
	if !p.everResponded {
		return true
	}
	sinceLast := time.Hour
	if last, ok := p.tracker.LastMessageAt(); ok {
		sinceLast = p.now().Sub(last)
	}
	return sinceLast > p.cfg.DeadChatAfter
}
