package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sylvia-tgbot-go/internal/chatcontext"
	"github.com/sylvia-tgbot-go/internal/config"
	"github.com/sylvia-tgbot-go/internal/middleware"
	"github.com/sylvia-tgbot-go/internal/models"
	"github.com/sylvia-tgbot-go/internal/mood"
	"github.com/sylvia-tgbot-go/internal/persona"
	"github.com/sylvia-tgbot-go/internal/policy"
	"github.com/sylvia-tgbot-go/internal/sentiment"
	"github.com/sylvia-tgbot-go/internal/services/generation"
	"github.com/sylvia-tgbot-go/internal/services/storage"
)

type fakeGen struct {
	reply string
	err   error
	calls int
	last  generation.Request
}

func (f *fakeGen) Generate(ctx context.Context, req generation.Request) (string, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig() *config.Config {
	return &config.Config{
		Bot: config.BotConfig{AllowedGroups: []string{"testfield"}},
		Engine: config.EngineConfig{
			ReplyProbability:   0.4,
			ContextMsgLimit:    15,
			MaxPromptMsgs:      10,
			MaxResponseTokens:  200,
			MaxReplyLength:     200,
			MinResponseDelay:   time.Second,
			MaxResponseDelay:   4 * time.Second,
			TypingDelayPerWord: 150 * time.Millisecond,
		},
		Moods: config.MoodConfig{
			Morning:   config.HourRange{Start: 6, End: 12},
			Afternoon: config.HourRange{Start: 12, End: 18},
			Evening:   config.HourRange{Start: 18, End: 24},
		},
		Storage: config.StorageConfig{Type: "memory"},
		Persona: config.PersonaConfig{ReferenceTextLimit: 8000},
	}
}

func newTestPlanner(t *testing.T, cfg *config.Config, gen generation.Service, seed int64) (*Planner, *storage.Manager) {
	t.Helper()

	log := quietLogger()
	history, err := storage.NewManager(cfg, log)
	if err != nil {
		t.Fatalf("storage.NewManager: %v", err)
	}
	contexts := chatcontext.NewStore(0, 0, log)
	clock := mood.NewClockAt(cfg.Moods, func() time.Time {
		return time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC) // afternoon
	})
	decision := policy.NewReplyDecision(cfg, rand.New(rand.NewSource(seed)), log)
	pers := &persona.Persona{Personality: "you are a test persona"}

	planner := NewPlanner(cfg, contexts, history, clock, decision, gen, pers,
		rand.New(rand.NewSource(seed)), middleware.NewMetrics(), log)
	return planner, history
}

func privateMsg(text string) models.Incoming {
	return models.Incoming{
		ChatID:   "12345",
		UserID:   "u1",
		Username: "alice",
		Text:     text,
		Kind:     models.ChatPrivate,
	}
}

func TestRespondMathFastPath(t *testing.T) {
	gen := &fakeGen{reply: "should not be used"}
	p, history := newTestPlanner(t, testConfig(), gen, 1)

	reply, err := p.Respond(context.Background(), privateMsg("calculate 2+2"))
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if reply != "4" {
		t.Errorf("reply = %q, want 4", reply)
	}
	if gen.calls != 0 {
		t.Errorf("generation called %d times for a fast path", gen.calls)
	}

	msgs, _ := history.Load(context.Background(), "12345")
	if len(msgs) != 2 {
		t.Fatalf("history has %d turns, want 2", len(msgs))
	}
	if msgs[0].Role != models.RoleUser || msgs[1].Role != models.RoleAssistant {
		t.Errorf("turn roles = %v, %v", msgs[0].Role, msgs[1].Role)
	}
	if msgs[1].Content != "4" {
		t.Errorf("persisted reply = %q", msgs[1].Content)
	}
}

func TestRespondMathRefusesInjection(t *testing.T) {
	gen := &fakeGen{}
	p, _ := newTestPlanner(t, testConfig(), gen, 1)

	reply, err := p.Respond(context.Background(), privateMsg("calculate 2+2; rm -rf /"))
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if reply != mathRefusal {
		t.Errorf("reply = %q, want refusal", reply)
	}
	if gen.calls != 0 {
		t.Error("injection attempt reached the generation call")
	}
}

func TestRespondCoinFlip(t *testing.T) {
	gen := &fakeGen{}
	p, history := newTestPlanner(t, testConfig(), gen, 3)

	reply, err := p.Respond(context.Background(), privateMsg("flip a coin"))
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if reply != "heads" && reply != "tails" {
		t.Errorf("reply = %q, want heads or tails", reply)
	}

	msgs, _ := history.Load(context.Background(), "12345")
	if len(msgs) != 2 {
		t.Errorf("history has %d turns, want 2", len(msgs))
	}
}

func TestRespondGreetingFastPath(t *testing.T) {
	gen := &fakeGen{}
	p, history := newTestPlanner(t, testConfig(), gen, 5)

	reply, err := p.Respond(context.Background(), privateMsg("hi"))
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}

	matched := false
	for _, g := range greetings {
		if strings.HasPrefix(reply, g) {
			matched = true
			break
		}
	}
	if !matched {
		t.Errorf("reply %q is not one of the canned greetings", reply)
	}
	if gen.calls != 0 {
		t.Error("greeting reached the generation call")
	}
	if topic := p.contexts.Peek("12345").CurrentTopic; topic != models.TopicNone {
		t.Errorf("greeting changed the topic to %v", topic)
	}
	if msgs, _ := history.Load(context.Background(), "12345"); len(msgs) != 2 {
		t.Errorf("history has %d turns, want 2", len(msgs))
	}
}

func TestObserveRecordsContextOnly(t *testing.T) {
	p, history := newTestPlanner(t, testConfig(), &fakeGen{}, 1)

	msg := models.Incoming{
		ChatID:   "othergroup",
		UserID:   "u1",
		Username: "alice",
		Text:     "anyone up for some valorant",
		Kind:     models.ChatGroup,
	}
	if p.ShouldReply(msg) {
		t.Fatal("disallowed group should not reply")
	}
	p.Observe(msg)

	snap := p.contexts.Peek("othergroup")
	if len(snap.MentionedGames) != 1 || snap.MentionedGames[0] != "Valorant" {
		t.Errorf("observed message not recorded: %v", snap.MentionedGames)
	}
	if len(snap.RecentMessages) != 1 {
		t.Errorf("recent messages = %d, want 1", len(snap.RecentMessages))
	}

	msgs, _ := history.Load(context.Background(), "othergroup")
	if len(msgs) != 0 {
		t.Errorf("observation persisted %d history turns", len(msgs))
	}
}

func TestRespondGenerationSuccess(t *testing.T) {
	gen := &fakeGen{reply: "The universe is big and weird."}
	p, history := newTestPlanner(t, testConfig(), gen, 1)

	msg := privateMsg("tell me about the universe")
	reply, err := p.Respond(context.Background(), msg)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if reply == "" {
		t.Fatal("empty reply")
	}
	if gen.calls != 1 {
		t.Fatalf("generation called %d times, want 1", gen.calls)
	}

	if !strings.Contains(gen.last.SystemPrompt, "you are a test persona") {
		t.Error("system prompt missing the personality")
	}
	if gen.last.MaxTokens != 200 {
		t.Errorf("MaxTokens = %d, want 200", gen.last.MaxTokens)
	}
	// Neutral message in the afternoon.
	if gen.last.Temperature != temperatureTable[models.SentimentNeutral][models.MoodAfternoon] {
		t.Errorf("Temperature = %v", gen.last.Temperature)
	}
	if len(gen.last.Turns) == 0 || gen.last.Turns[len(gen.last.Turns)-1].Content != msg.Text {
		t.Error("prompt turns do not end with the incoming message")
	}

	msgs, _ := history.Load(context.Background(), "12345")
	if len(msgs) != 2 {
		t.Fatalf("history has %d turns, want 2", len(msgs))
	}
	if msgs[1].Content != reply {
		t.Errorf("persisted reply %q differs from returned reply %q", msgs[1].Content, reply)
	}
}

func TestRespondGenerationFailureFallsBack(t *testing.T) {
	gen := &fakeGen{err: &generation.Error{Cause: errors.New("connection refused")}}
	p, history := newTestPlanner(t, testConfig(), gen, 1)

	text := "tell me about the universe"
	reply, err := p.Respond(context.Background(), privateMsg(text))
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}

	sent := sentiment.Classify(text)
	found := false
	for _, f := range fallbacks[sent] {
		if reply == f {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("reply %q is not a canned fallback for %v", reply, sent)
	}

	// The user turn is kept; the fallback is never stored as if the
	// model had said it.
	msgs, _ := history.Load(context.Background(), "12345")
	if len(msgs) != 1 {
		t.Fatalf("history has %d turns, want only the user turn", len(msgs))
	}
	if msgs[0].Role != models.RoleUser || msgs[0].Content != text {
		t.Errorf("persisted turn = %+v", msgs[0])
	}
}

func TestRespondCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &fakeGen{err: &generation.Error{Cause: context.Canceled}}
	p, history := newTestPlanner(t, testConfig(), gen, 1)

	_, err := p.Respond(ctx, privateMsg("tell me about the universe"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	msgs, _ := history.Load(context.Background(), "12345")
	if len(msgs) != 0 {
		t.Errorf("abandoned turn persisted %d messages", len(msgs))
	}
}

func TestRespondChaos(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.ChaosProbability = 1

	gen := &fakeGen{}
	p, history := newTestPlanner(t, cfg, gen, 1)

	reply, err := p.Respond(context.Background(), privateMsg("tell me about the universe"))
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}

	found := false
	for _, line := range chaoticLines {
		if reply == line {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("reply %q is not a chaotic line", reply)
	}
	if gen.calls != 0 {
		t.Error("chaos turn reached the generation call")
	}

	msgs, _ := history.Load(context.Background(), "12345")
	if len(msgs) != 2 {
		t.Errorf("history has %d turns, want 2", len(msgs))
	}
}

func TestRespondHistoryTruncation(t *testing.T) {
	gen := &fakeGen{reply: "sounds wild honestly"}
	p, history := newTestPlanner(t, testConfig(), gen, 1)

	for i := 0; i < 10; i++ {
		text := fmt.Sprintf("thought number %d about the universe", i)
		if _, err := p.Respond(context.Background(), privateMsg(text)); err != nil {
			t.Fatalf("Respond %d: %v", i, err)
		}
	}

	msgs, _ := history.Load(context.Background(), "12345")
	if len(msgs) != 15 {
		t.Errorf("history has %d turns, want the configured limit of 15", len(msgs))
	}
}

func TestRespondPromptWindow(t *testing.T) {
	gen := &fakeGen{reply: "sounds wild honestly"}
	p, _ := newTestPlanner(t, testConfig(), gen, 1)

	for i := 0; i < 10; i++ {
		text := fmt.Sprintf("thought number %d about the universe", i)
		if _, err := p.Respond(context.Background(), privateMsg(text)); err != nil {
			t.Fatalf("Respond %d: %v", i, err)
		}
	}

	if len(gen.last.Turns) > 10 {
		t.Errorf("prompt carried %d turns, want at most 10", len(gen.last.Turns))
	}
}

func TestRespondSimilarityReminder(t *testing.T) {
	gen := &fakeGen{reply: "called it"}
	p, history := newTestPlanner(t, testConfig(), gen, 1)

	if err := history.Append(context.Background(), "12345", models.ChatMessage{
		ChatID:    "12345",
		Role:      models.RoleUser,
		Content:   "I love BG3",
		Timestamp: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := p.Respond(context.Background(), privateMsg("i really love bg3 too")); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	if !strings.Contains(gen.last.SystemPrompt, "I love BG3") {
		t.Error("system prompt missing the similar-message reminder")
	}
}

func TestShouldReplyDelegation(t *testing.T) {
	p, _ := newTestPlanner(t, testConfig(), &fakeGen{}, 1)

	if !p.ShouldReply(privateMsg("anything")) {
		t.Error("private chat should reply")
	}

	outsider := models.Incoming{ChatID: "othergroup", UserID: "u1", Text: "hey", Kind: models.ChatGroup}
	if p.ShouldReply(outsider) {
		t.Error("disallowed group should not reply")
	}
}

func TestTypingDelayBounds(t *testing.T) {
	p, _ := newTestPlanner(t, testConfig(), &fakeGen{}, 1)

	for i := 0; i < 20; i++ {
		d := p.TypingDelay("ok")
		if d < time.Second || d > 4*time.Second {
			t.Fatalf("delay %v outside [1s, 4s]", d)
		}
	}

	long := strings.Repeat("word ", 100)
	if d := p.TypingDelay(long); d != 4*time.Second {
		t.Errorf("long reply delay = %v, want the 4s cap", d)
	}
}

func TestTypingDelayDegenerateConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.MinResponseDelay = 2 * time.Second
	cfg.Engine.MaxResponseDelay = 2 * time.Second
	p, _ := newTestPlanner(t, cfg, &fakeGen{}, 1)

	if d := p.TypingDelay("hello there friend"); d != 2*time.Second {
		t.Errorf("delay = %v, want the fixed 2s", d)
	}
}
