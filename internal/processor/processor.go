// Package processor orchestrates the per-message pipeline: decision engine,
// response generation, sending, and analysis logging. It owns one decision
// policy per chat and the cross-chat response budget.
package processor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"chengbot/internal/ai"
	"chengbot/internal/analysis"
	"chengbot/internal/engine"
)

const watcherInterval = time.Minute

// deadChatPrompt is the synthetic message fed to the assistant when a chat
// has gone quiet.
const deadChatPrompt = "The chat has been quiet for a while. Start a conversation to re-engage the community."

// Sender delivers a generated response to the platform. replyToID is empty
// for unprompted messages.
type Sender interface {
	Send(chatID, replyToID, text string) error
}

// Store is the slice of persistent state the processor needs.
type Store interface {
	LastResponseAt(chatID string) (time.Time, error)
	SetLastResponseAt(chatID string, at time.Time) error
}

type chatState struct {
	mu     sync.Mutex
	policy *engine.Policy
}

// Processor routes messages through their chat's decision policy and carries
// confirmed responses back into the rate-limit state.
type Processor struct {
	cfg       engine.Config
	estimator engine.Estimator
	responder ai.Responder
	sender    Sender
	store     Store
	alog      *analysis.Logger
	limiter   *DailyLimiter

	mu    sync.Mutex
	chats map[string]*chatState

	now func() time.Time
}

func New(cfg engine.Config, estimator engine.Estimator, responder ai.Responder, sender Sender, store Store, alog *analysis.Logger, maxDailyResponses int) *Processor {
	return &Processor{
		cfg:       cfg,
		estimator: estimator,
		responder: responder,
		sender:    sender,
		store:     store,
		alog:      alog,
		limiter:   NewDailyLimiter(maxDailyResponses),
		chats:     make(map[string]*chatState),
		now:       time.Now,
	}
}

func (p *Processor) chatFor(chatID string) *chatState {
	p.mu.Lock()
	defer p.mu.Unlock()
	state, ok := p.chats[chatID]
	if !ok {
		state = &chatState{policy: engine.NewPolicy(p.cfg, p.estimator)}
		p.chats[chatID] = state
	}
	return state
}

// Handle runs one message through the pipeline. Errors inside the pipeline
// are logged and absorbed; a chat message must never take the bot down.
func (p *Processor) Handle(ctx context.Context, chatID string, msg *engine.Message, username string, isReplyToBot bool) {
	state := p.chatFor(chatID)
	state.mu.Lock()
	defer state.mu.Unlock()

	log.Printf("[PROC] action=receive chat=%s user=%s message=%q", chatID, username, msg.Excerpt(50))

	// Persisted cooldown survives restarts; the in-memory policy only knows
	// responses confirmed this process. Replies to the bot bypass it and skip
	// logging, same as the decision pipeline never seeing the message.
	if !isReplyToBot {
		if last, err := p.store.LastResponseAt(chatID); err == nil && !last.IsZero() {
			if elapsed := p.now().Sub(last); elapsed < p.cfg.MinResponseInterval {
				log.Printf("[PROC] action=skip chat=%s reason=cooldown elapsed=%s", chatID, elapsed.Round(time.Second))
				return
			}
		}
	}

	decision := state.policy.Process(msg, isReplyToBot)
	summary := state.policy.Tracker().Summary()

	respond := decision.Respond || isReplyToBot
	log.Printf("[PROC] action=decide chat=%s respond=%v reason=%q polarity=%.2f keywords=%d",
		chatID, respond, decision.ReasonText(), decision.Sentiment.Polarity, len(msg.Keywords))

	var response string
	if respond {
		response = p.respond(ctx, chatID, state, ai.Request{
			Message:   msg,
			Sentiment: decision.Sentiment,
			Context:   summary,
			Username:  username,
			IsReply:   isReplyToBot,
		}, msg.ID)
	}

	if err := p.alog.Log(chatID, msg, decision, summary, response); err != nil {
		log.Printf("[ERR] analysis log failed for chat %s: %v", chatID, err)
	}
}

// respond generates, sends, and on confirmed delivery arms the rate-limit
// state. Returns "" when any step fails or the daily budget is spent.
// Caller holds the chat lock.
func (p *Processor) respond(ctx context.Context, chatID string, state *chatState, req ai.Request, replyToID string) string {
	if !p.limiter.Allow(chatID, p.now()) {
		log.Printf("[PROC] action=skip chat=%s reason=daily_cap", chatID)
		return ""
	}

	response, err := p.responder.Respond(ctx, chatID, req)
	if err != nil {
		log.Printf("[ERR] response generation failed for chat %s: %v", chatID, err)
		return ""
	}

	if err := p.sender.Send(chatID, replyToID, response); err != nil {
		log.Printf("[ERR] send failed for chat %s: %v", chatID, err)
		return ""
	}

	now := p.now()
	state.policy.ConfirmResponded(now)
	p.limiter.Record(chatID, now)
	if err := p.store.SetLastResponseAt(chatID, now); err != nil {
		log.Printf("[ERR] persisting response time for chat %s: %v", chatID, err)
	}
	return response
}

// RunDeadChatWatcher periodically revives chats that have gone quiet. Blocks
// until the context ends.
func (p *Processor) RunDeadChatWatcher(ctx context.Context) {
	ticker := time.NewTicker(watcherInterval)
	defer ticker.Stop()

	log.Printf("[INFO] Dead chat watcher started, interval %s", watcherInterval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[INFO] Dead chat watcher stopped")
			return
		case <-ticker.C:
			p.sweepDeadChats(ctx)
		}
	}
}

func (p *Processor) sweepDeadChats(ctx context.Context) {
	p.mu.Lock()
	ids := make([]string, 0, len(p.chats))
	for id := range p.chats {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, chatID := range ids {
		// One revival per dead-chat period, even if nobody answers the
		// previous one.
		if last, err := p.store.LastResponseAt(chatID); err == nil && !last.IsZero() {
			if p.now().Sub(last) < p.cfg.DeadChatAfter {
				continue
			}
		}

		state := p.chatFor(chatID)
		state.mu.Lock()
		if state.policy.ShouldGenerateSpontaneous() {
			p.reviveChat(ctx, chatID, state)
		}
		state.mu.Unlock()
	}
}

// reviveChat sends an unprompted message into a dead chat. Caller holds the
// chat lock.
func (p *Processor) reviveChat(ctx context.Context, chatID string, state *chatState) {
	log.Printf("[PROC] action=revive chat=%s", chatID)

	msg := &engine.Message{
		ID:        uuid.NewString(),
		Content:   deadChatPrompt,
		AuthorID:  "system",
		Timestamp: p.now(),
		ContextID: chatID,
	}

	response := p.respond(ctx, chatID, state, ai.Request{
		Message:   msg,
		Sentiment: engine.Result{Category: engine.CategoryNeutral},
		Context:   state.policy.Tracker().Summary(),
		Username:  "system",
	}, "")
	if response == "" {
		return
	}
	log.Printf("[PROC] action=revived chat=%s", chatID)
}

// LogDailySummary writes the aggregated view of today's records. Meant to be
// called once at end of day or on shutdown.
func (p *Processor) LogDailySummary() {
	summary, err := p.alog.DailySummary()
	if err != nil {
		log.Printf("[ERR] daily summary failed: %v", err)
		return
	}
	if err := p.alog.LogAggregateStats(map[string]any{
		"date":    p.now().Format("2006-01-02"),
		"summary": summary,
	}); err != nil {
		log.Printf("[ERR] aggregate stats failed: %v", err)
	}
}
