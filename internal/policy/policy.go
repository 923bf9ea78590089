package policy

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/sylvia-tgbot-go/internal/config"
	"github.com/sylvia-tgbot-go/internal/models"
)

// interestKeywords are topics the persona jumps on, boosting the reply
// probability in allowed groups.
var interestKeywords = []string{
	"game", "gaming", "play", "raid", "boss", "level", "patch", "update",
	"tech", "code", "dev", "bug", "programming", "rpg", "strategy",
	"sylvia", "syl",
}

// ReplyDecision decides whether the bot answers a given message.
// Deterministic gates run first; everything else is a probability draw
// against an effective probability adjusted by mood and interest.
type ReplyDecision struct {
	base          float64
	allowedGroups map[string]struct{}
	rng           *rand.Rand
	mu            sync.Mutex
	logger        *logrus.Logger
}

// NewReplyDecision builds a policy from configuration. The random
// source is injectable so decisions are reproducible under test.
func NewReplyDecision(cfg *config.Config, rng *rand.Rand, logger *logrus.Logger) *ReplyDecision {
	allowed := make(map[string]struct{}, len(cfg.Bot.AllowedGroups))
	for _, g := range cfg.Bot.AllowedGroups {
		allowed[strings.ToLower(g)] = struct{}{}
	}
	return &ReplyDecision{
		base:          cfg.Engine.ReplyProbability,
		allowedGroups: allowed,
		rng:           rng,
		logger:        logger,
	}
}

// ShouldReply reports whether the bot should answer.
//
// Private chats always get a reply. Group chats outside the allow-list
// never do, before any probability is drawn. Mentions and replies to
// the bot short-circuit to true; the remainder is a uniform draw
// against the effective probability.
func (p *ReplyDecision) ShouldReply(msg models.Incoming, mood models.Mood) bool {
	if msg.Kind == models.ChatPrivate {
		return true
	}

	if _, ok := p.allowedGroups[strings.ToLower(msg.ChatID)]; !ok {
		return false
	}

	if msg.IsMentioned || msg.IsReplyToBot {
		return true
	}

	effective := p.EffectiveProbability(msg.Text, mood)

	p.mu.Lock()
	draw := p.rng.Float64()
	p.mu.Unlock()

	decided := draw < effective
	p.logger.WithFields(logrus.Fields{
		"chat_id":     msg.ChatID,
		"probability": effective,
		"draw":        draw,
		"reply":       decided,
	}).Debug("Reply probability draw")
	return decided
}

// EffectiveProbability computes the adjusted reply probability for a
// message in the given mood. Adjustments stack additively and the
// result is clamped to [0, 1] so an over-boosted probability reads as
// certain rather than silently overflowing.
func (p *ReplyDecision) EffectiveProbability(text string, mood models.Mood) float64 {
	effective := p.base

	switch mood {
	case models.MoodAfternoon, models.MoodEvening:
		effective += 0.1
	case models.MoodNight:
		effective -= 0.1
	}

	lowered := strings.ToLower(text)
	for _, kw := range interestKeywords {
		if strings.Contains(lowered, kw) {
			effective += 0.2
			break
		}
	}

	if effective < 0 {
		effective = 0
	}
	if effective > 1 {
		effective = 1
	}
	return effective
}
