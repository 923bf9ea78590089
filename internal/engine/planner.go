package engine

import (
	"context"
	"math/rand"
	"sync"
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

// fallbacks keyed by the computed sentiment of the incoming message.
// Used when the generation call fails; fallback text is never written
// to durable history as if the model had said it.
var fallbacks = map[models.Sentiment][]string{
	models.SentimentPositive: {
		"yalla, I'm having a brain glitch rn but I love the energy",
		"my brain.exe stopped but the vibes are noted 🔥",
		"plot twist: I forgot how to English for a sec, keep going",
	},
	models.SentimentNegative: {
		"bestie my brain just lagged, but I'm here for you",
		"technical difficulties, but I'm still in your corner, wallah",
		"gimme a sec, rebooting... ok no, just know I got you",
	},
	models.SentimentNeutral: {
		"bro my brain just lagged 💀",
		"error 404: witty response not found",
		"oops, my caffeine levels are too low for this",
		"brb, rebooting my chaos engine",
	},
}

// temperatureTable keys sampling temperature on (sentiment, mood):
// hotter for positive high-energy moments, cooler when someone is
// upset and the reply should stay grounded.
var temperatureTable = map[models.Sentiment]map[models.Mood]float64{
	models.SentimentPositive: {
		models.MoodMorning:   0.8,
		models.MoodAfternoon: 0.9,
		models.MoodEvening:   0.95,
		models.MoodNight:     0.75,
	},
	models.SentimentNegative: {
		models.MoodMorning:   0.5,
		models.MoodAfternoon: 0.5,
		models.MoodEvening:   0.55,
		models.MoodNight:     0.45,
	},
	models.SentimentNeutral: {
		models.MoodMorning:   0.7,
		models.MoodAfternoon: 0.75,
		models.MoodEvening:   0.8,
		models.MoodNight:     0.65,
	},
}

// lockedRand makes a rand.Rand safe for the planner's concurrent
// per-chat goroutines while staying seedable for tests.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (r *lockedRand) float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

func (r *lockedRand) intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

func (r *lockedRand) pick(choices []string) string {
	return choices[r.intn(len(choices))]
}

// Planner orchestrates a single conversational turn: context
// analysis, the reply decision, fast paths, prompt assembly, the
// generation call, and post-processing.
type Planner struct {
	cfg      *config.Config
	contexts *chatcontext.Store
	history  *storage.Manager
	clock    *mood.Clock
	decision *policy.ReplyDecision
	gen      generation.Service
	persona  *persona.Persona
	rng      *lockedRand
	metrics  *middleware.Metrics
	logger   *logrus.Logger
}

// NewPlanner wires a planner. The rand source is injectable so both
// decisions and canned-text selection are reproducible under test.
func NewPlanner(
	cfg *config.Config,
	contexts *chatcontext.Store,
	history *storage.Manager,
	clock *mood.Clock,
	decision *policy.ReplyDecision,
	gen generation.Service,
	pers *persona.Persona,
	rng *rand.Rand,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *Planner {
	return &Planner{
		cfg:      cfg,
		contexts: contexts,
		history:  history,
		clock:    clock,
		decision: decision,
		gen:      gen,
		persona:  pers,
		rng:      &lockedRand{rng: rng},
		metrics:  metrics,
		logger:   logger,
	}
}

// ShouldReply runs the reply-decision policy for an incoming message.
func (p *Planner) ShouldReply(msg models.Incoming) bool {
	return p.decision.ShouldReply(msg, p.clock.Current())
}

// Observe records a message that gets no reply. Group chatter the bot
// stays silent on still shapes its conversational memory; durable
// history is untouched.
func (p *Planner) Observe(msg models.Incoming) {
	unlock := p.contexts.Lock(msg.ChatID)
	defer unlock()
	p.contexts.Analyze(msg.ChatID, msg.UserID, msg.Username, msg.Text)
}

// Respond produces the reply for one incoming message. Processing for
// a single chat id is serialized, so history order matches processing
// order; different chats run concurrently.
//
// The only error Respond returns is context cancellation. Every other
// failure is absorbed into an in-character reply.
func (p *Planner) Respond(ctx context.Context, msg models.Incoming) (string, error) {
	unlock := p.contexts.Lock(msg.ChatID)
	defer unlock()

	snap := p.contexts.Analyze(msg.ChatID, msg.UserID, msg.Username, msg.Text)

	sent := sentiment.Classify(msg.Text)
	currentMood := p.clock.Current()

	log := p.logger.WithFields(logrus.Fields{
		"chat_id":   msg.ChatID,
		"user_id":   msg.UserID,
		"sentiment": sent,
		"mood":      currentMood,
	})

	history, err := p.history.Load(ctx, msg.ChatID)
	if err != nil {
		// Unreadable history must not kill the turn.
		log.WithError(err).Warn("Failed to load history, continuing with empty")
		history = nil
	}

	userTurn := models.ChatMessage{
		ChatID:    msg.ChatID,
		Role:      models.RoleUser,
		Content:   msg.Text,
		Timestamp: time.Now(),
	}

	// Unprompted chaos, for flavor. Zero probability disables it.
	if p.cfg.Engine.ChaosProbability > 0 && p.rng.float64() < p.cfg.Engine.ChaosProbability {
		reply := p.rng.pick(chaoticLines)
		p.persistTurn(ctx, msg.ChatID, userTurn, reply, log)
		p.metrics.RecordFastPath("chaos")
		return reply, nil
	}

	lowered := loweredText(msg.Text)
	for _, rule := range fastPaths {
		if rule.matches(lowered) {
			reply := rule.respond(p, lowered)
			p.persistTurn(ctx, msg.ChatID, userTurn, reply, log)
			p.metrics.RecordFastPath(rule.name)
			log.WithField("rule", rule.name).Debug("Fast path matched")
			return reply, nil
		}
	}

	systemPrompt := p.buildSystemPrompt(snap, history, msg.Text, sent, currentMood)
	turns := promptTurns(append(history, userTurn), p.cfg.Engine.MaxPromptMsgs)

	start := time.Now()
	raw, err := p.gen.Generate(ctx, generation.Request{
		SystemPrompt: systemPrompt,
		Turns:        turns,
		Temperature:  temperatureTable[sent][currentMood],
		MaxTokens:    p.cfg.Engine.MaxResponseTokens,
	})
	if err != nil {
		if ctx.Err() != nil {
			// Transport cancelled the request; abandon the turn
			// without touching history.
			return "", ctx.Err()
		}
		p.metrics.RecordGeneration("error", time.Since(start))
		log.WithError(err).Error("Generation failed, using fallback")

		// Only the user turn is persisted: fallback text would
		// contaminate future prompt context if stored as a genuine
		// assistant reply.
		if err := p.history.Append(ctx, msg.ChatID, userTurn); err != nil {
			log.WithError(err).Warn("Failed to persist user turn")
		}
		return p.rng.pick(fallbacks[sent]), nil
	}
	p.metrics.RecordGeneration("success", time.Since(start))

	reply := p.postProcess(raw, sent, currentMood)
	p.persistTurn(ctx, msg.ChatID, userTurn, reply, log)
	return reply, nil
}

// persistTurn writes the user turn and the bot's reply in order.
func (p *Planner) persistTurn(ctx context.Context, chatID string, userTurn models.ChatMessage, reply string, log *logrus.Entry) {
	assistantTurn := models.ChatMessage{
		ChatID:    chatID,
		Role:      models.RoleAssistant,
		Content:   reply,
		Timestamp: time.Now(),
	}
	if err := p.history.Append(ctx, chatID, userTurn, assistantTurn); err != nil {
		log.WithError(err).Warn("Failed to persist turn")
	}
}

// TypingDelay sizes the simulated human pause for a reply: a random
// base in [min, max] plus a per-word increment, never above max.
func (p *Planner) TypingDelay(reply string) time.Duration {
	minD := p.cfg.Engine.MinResponseDelay
	maxD := p.cfg.Engine.MaxResponseDelay
	if maxD <= minD {
		return minD
	}

	base := minD + time.Duration(p.rng.float64()*float64(maxD-minD))
	words := len(splitWords(reply))
	delay := base + time.Duration(words)*p.cfg.Engine.TypingDelayPerWord
	if delay > maxD {
		delay = maxD
	}
	return delay
}
