package engine

import (
	"strings"
	"unicode"

	"github.com/sylvia-tgbot-go/internal/models"
)

// boring→exciting synonym table. Whole-word match only, and at most
// one substitution per reply so the voice stays subtle.
var synonymTable = []struct {
	boring   string
	exciting string
}{
	{"good", "fire"},
	{"great", "insane"},
	{"yes", "aywa"},
	{"okay", "bet"},
	{"friend", "habibi"},
	{"cool", "lit"},
	{"wow", "wallah wow"},
}

var energyBoosters = []string{"yalla,", "wallah,", "ok listen,", "bestie,"}

var slangTokens = []string{"lol", "fr", "bruh", "haha", "no cap"}

// knownEmojis is the set the bot itself appends; a reply already
// carrying one of these gets nothing extra.
var knownEmojis = []string{"🔥", "💀", "😂", "💅", "✨", "😴", "🎮", "☕", "🌙", "💯", "🤝", "😤"}

// contextualEmojis picks by (sentiment, mood). Missing combinations
// fall back to the sentiment row's neutral column.
var contextualEmojis = map[models.Sentiment]map[models.Mood][]string{
	models.SentimentPositive: {
		models.MoodMorning:   {"☕", "✨"},
		models.MoodAfternoon: {"🔥", "💯"},
		models.MoodEvening:   {"🎮", "🔥"},
		models.MoodNight:     {"🌙", "✨"},
	},
	models.SentimentNegative: {
		models.MoodMorning:   {"😤", "☕"},
		models.MoodAfternoon: {"💀", "😤"},
		models.MoodEvening:   {"💀", "🤝"},
		models.MoodNight:     {"😴", "💀"},
	},
	models.SentimentNeutral: {
		models.MoodMorning:   {"☕"},
		models.MoodAfternoon: {"💅"},
		models.MoodEvening:   {"🎮"},
		models.MoodNight:     {"🌙"},
	},
}

// postProcess normalizes a raw generated reply toward the persona's
// texting style and enforces the length cap.
func (p *Planner) postProcess(text string, sent models.Sentiment, mood models.Mood) string {
	reply := normalizeStyle(text)

	if p.rng.float64() < 0.4 {
		reply = substituteOneSynonym(reply)
	}

	if p.rng.float64() < 0.15 {
		reply = p.rng.pick(energyBoosters) + " " + reply
	}

	reply = capLength(reply, p.cfg.Engine.MaxReplyLength)

	reply = p.appendFlavor(reply, sent, mood)

	return reply
}

// normalizeStyle strips quoting and shouting; the persona types fast
// and lowercase-heavy.
func normalizeStyle(text string) string {
	reply := strings.TrimSpace(text)
	reply = strings.Trim(reply, `"`)
	reply = strings.Join(strings.Fields(reply), " ")

	// All-caps replies read as broken, not hype.
	if len(reply) > 3 && reply == strings.ToUpper(reply) && strings.ToUpper(reply) != strings.ToLower(reply) {
		reply = strings.ToLower(reply)
	}

	// Texting style: no capital opener unless it's the pronoun I.
	runes := []rune(reply)
	if len(runes) > 1 && unicode.IsUpper(runes[0]) && !(runes[0] == 'I' && (runes[1] == ' ' || runes[1] == '\'')) {
		runes[0] = unicode.ToLower(runes[0])
		reply = string(runes)
	}

	return reply
}

// substituteOneSynonym replaces the first boring word found, whole
// word only, then stops.
func substituteOneSynonym(reply string) string {
	words := strings.Fields(reply)
	for i, w := range words {
		trimmed := strings.TrimRight(w, ".,!?")
		for _, s := range synonymTable {
			if strings.ToLower(trimmed) == s.boring {
				words[i] = s.exciting + w[len(trimmed):]
				return strings.Join(words, " ")
			}
		}
	}
	return reply
}

// capLength truncates at a sentence boundary when one exists inside
// the cap, otherwise at a word boundary.
func capLength(reply string, limit int) string {
	if limit <= 0 || len(reply) <= limit {
		return reply
	}

	cut := reply[:limit]
	if idx := strings.LastIndexAny(cut, ".!?"); idx > limit/2 {
		return strings.TrimSpace(cut[:idx+1])
	}
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		return strings.TrimSpace(cut[:idx]) + "..."
	}
	return cut
}

// appendFlavor occasionally tacks on slang or a contextual emoji. An
// emoji is only added when the reply doesn't already contain one.
func (p *Planner) appendFlavor(reply string, sent models.Sentiment, mood models.Mood) string {
	roll := p.rng.float64()
	switch {
	case roll < 0.1:
		if !containsKnownEmoji(reply) {
			if choices := contextualEmojis[sent][mood]; len(choices) > 0 {
				return reply + " " + p.rng.pick(choices)
			}
		}
	case roll < 0.25:
		return reply + " " + p.rng.pick(slangTokens)
	}
	return reply
}

func containsKnownEmoji(reply string) bool {
	for _, e := range knownEmojis {
		if strings.Contains(reply, e) {
			return true
		}
	}
	return false
}
