package processor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chengbot/internal/ai"
	"chengbot/internal/analysis"
	"chengbot/internal/engine"
)

type fixedEstimator struct {
	polarity float64
}

func (f fixedEstimator) Estimate(string) (float64, float64, error) {
	return f.polarity, 0.5, nil
}

type fakeResponder struct {
	reply string
	err   error
	calls int
	last  ai.Request
}

func (f *fakeResponder) Respond(_ context.Context, _ string, req ai.Request) (string, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type sentMessage struct {
	chatID    string
	replyToID string
	text      string
}

type fakeSender struct {
	err  error
	sent []sentMessage
}

func (f *fakeSender) Send(chatID, replyToID, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{chatID, replyToID, text})
	return nil
}

type fakeStore struct {
	times map[string]time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{times: make(map[string]time.Time)}
}

func (f *fakeStore) LastResponseAt(chatID string) (time.Time, error) {
	return f.times[chatID], nil
}

func (f *fakeStore) SetLastResponseAt(chatID string, at time.Time) error {
	f.times[chatID] = at
	return nil
}

type fixture struct {
	proc      *Processor
	responder *fakeResponder
	sender    *fakeSender
	store     *fakeStore
	dir       string
}

func newFixture(t *testing.T, cfg engine.Config, polarity float64) *fixture {
	t.Helper()
	cfg.RandomResponseProbability = 0 // keep decisions deterministic
	dir := t.TempDir()
	alog, err := analysis.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	responder := &fakeResponder{reply: "gm ser"}
	sender := &fakeSender{}
	store := newFakeStore()
	proc := New(cfg, fixedEstimator{polarity: polarity}, responder, sender, store, alog, 100)
	return &fixture{proc: proc, responder: responder, sender: sender, store: store, dir: dir}
}

func testMessage(id, content string) *engine.Message {
	return &engine.Message{
		ID:        id,
		Content:   content,
		AuthorID:  "u1",
		Timestamp: time.Now(),
	}
}

func analysisLines(t *testing.T, dir string) []string {
	t.Helper()
	path := filepath.Join(dir, time.Now().Format("2006-01-02"), "analysis.jsonl")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestHandle_RespondsAndConfirms(t *testing.T) {
	fx := newFixture(t, engine.DefaultConfig(), 0.0)

	fx.proc.Handle(context.Background(), "c1", testMessage("m1", "any gigacheng news"), "anon", false)

	if fx.responder.calls != 1 {
		t.Fatalf("expected 1 responder call, got %d", fx.responder.calls)
	}
	if len(fx.sender.sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(fx.sender.sent))
	}
	sent := fx.sender.sent[0]
	if sent.chatID != "c1" || sent.replyToID != "m1" || sent.text != "gm ser" {
		t.Errorf("unexpected send %+v", sent)
	}
	if fx.store.times["c1"].IsZero() {
		t.Error("confirmed send must persist the response time")
	}

	lines := analysisLines(t, fx.dir)
	if len(lines) != 1 {
		t.Fatalf("expected 1 analysis record, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"bot_response":"gm ser"`) {
		t.Errorf("record missing response: %s", lines[0])
	}
}

func TestHandle_NoTriggersStillLogged(t *testing.T) {
	fx := newFixture(t, engine.DefaultConfig(), 0.0)

	fx.proc.Handle(context.Background(), "c1", testMessage("m1", "nothing interesting here"), "anon", false)

	if fx.responder.calls != 0 {
		t.Error("no triggers must not reach the responder")
	}
	if len(analysisLines(t, fx.dir)) != 1 {
		t.Error("unanswered messages are still logged")
	}
}

func TestHandle_ReplyToBotOverridesDecision(t *testing.T) {
	fx := newFixture(t, engine.DefaultConfig(), 0.0)

	fx.proc.Handle(context.Background(), "c1", testMessage("m1", "nothing interesting here"), "anon", true)

	if fx.responder.calls != 1 {
		t.Fatal("replies to the bot always get a response")
	}
	if !fx.responder.last.IsReply {
		t.Error("reply flag must reach the prompt")
	}
}

func TestHandle_PersistedCooldownSkips(t *testing.T) {
	fx := newFixture(t, engine.DefaultConfig(), 0.0)
	fx.store.times["c1"] = time.Now().Add(-5 * time.Second) // inside 15s interval

	fx.proc.Handle(context.Background(), "c1", testMessage("m1", "gigacheng?"), "anon", false)

	if fx.responder.calls != 0 {
		t.Error("cooldown skip must not generate")
	}
	if lines := analysisLines(t, fx.dir); len(lines) != 0 {
		t.Errorf("cooldown skip happens before logging, got %d records", len(lines))
	}
}

func TestHandle_ReplyBypassesPersistedCooldown(t *testing.T) {
	fx := newFixture(t, engine.DefaultConfig(), 0.0)
	fx.store.times["c1"] = time.Now().Add(-5 * time.Second)

	fx.proc.Handle(context.Background(), "c1", testMessage("m1", "talking to you"), "anon", true)

	if fx.responder.calls != 1 {
		t.Error("replies to the bot bypass the persisted cooldown")
	}
}

func TestHandle_ResponderFailureLogsEmptyResponse(t *testing.T) {
	fx := newFixture(t, engine.DefaultConfig(), 0.0)
	fx.responder.err = errors.New("assistant down")

	fx.proc.Handle(context.Background(), "c1", testMessage("m1", "gigacheng status"), "anon", false)

	if len(fx.sender.sent) != 0 {
		t.Error("failed generation must not send")
	}
	if !fx.store.times["c1"].IsZero() {
		t.Error("failed generation must not arm the cooldown")
	}
	lines := analysisLines(t, fx.dir)
	if len(lines) != 1 {
		t.Fatalf("expected 1 record, got %d", len(lines))
	}
	if strings.Contains(lines[0], "bot_response") {
		t.Errorf("record must omit the empty response: %s", lines[0])
	}
}

func TestHandle_SendFailureLeavesWindowUnarmed(t *testing.T) {
	fx := newFixture(t, engine.DefaultConfig(), 0.0)
	fx.sender.err = errors.New("network down")

	fx.proc.Handle(context.Background(), "c1", testMessage("m1", "gigacheng status"), "anon", false)
	if !fx.store.times["c1"].IsZero() {
		t.Fatal("failed send must not arm the cooldown")
	}

	// Next mention goes straight through: neither cooldown nor policy window
	// was armed by the failed attempt.
	fx.sender.err = nil
	fx.proc.Handle(context.Background(), "c1", testMessage("m2", "gigacheng again"), "anon", false)
	if len(fx.sender.sent) != 1 {
		t.Errorf("expected the retry to send, got %d", len(fx.sender.sent))
	}
}

func TestHandle_DailyCap(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.MinResponseInterval = 0
	fx := newFixture(t, cfg, 0.0)
	fx.proc.limiter = NewDailyLimiter(1)

	fx.proc.Handle(context.Background(), "c1", testMessage("m1", "gigacheng one"), "anon", false)
	fx.proc.Handle(context.Background(), "c1", testMessage("m2", "gigacheng two"), "anon", false)

	if len(fx.sender.sent) != 1 {
		t.Errorf("daily cap of 1 must stop the second send, got %d", len(fx.sender.sent))
	}
	if fx.responder.calls != 1 {
		t.Errorf("capped chats must not burn assistant calls, got %d", fx.responder.calls)
	}
}

func TestSweepDeadChats_RevivesQuietChat(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.MinResponseInterval = 0
	fx := newFixture(t, cfg, 0.0)

	// Seed a chat that never got a response.
	fx.proc.Handle(context.Background(), "c1", testMessage("m1", "quiet talk"), "anon", false)
	if len(fx.sender.sent) != 0 {
		t.Fatal("seed message should not trigger a response")
	}

	fx.proc.sweepDeadChats(context.Background())

	if len(fx.sender.sent) != 1 {
		t.Fatalf("expected a revival message, got %d sends", len(fx.sender.sent))
	}
	if fx.sender.sent[0].replyToID != "" {
		t.Error("unprompted messages must not be replies")
	}

	// Confirmed revival arms the policy; an immediate second sweep with a
	// fresh tracker window stays quiet only once the chat is alive again.
	fx.proc.Handle(context.Background(), "c1", testMessage("m2", "someone woke up"), "anon", false)
	fx.proc.sweepDeadChats(context.Background())
	if len(fx.sender.sent) != 1 {
		t.Errorf("alive chat must not be revived, got %d sends", len(fx.sender.sent))
	}
}
