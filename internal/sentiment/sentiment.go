package sentiment

import (
	"strings"

	"github.com/sylvia-tgbot-go/internal/models"
)

// Lexicon weights for polarity scoring. Scores are averaged over the
// number of tokens so long rants do not drown out the signal.
var positiveWords = map[string]float64{
	"love": 1, "awesome": 1, "amazing": 1, "great": 0.8, "good": 0.6,
	"nice": 0.6, "cool": 0.6, "fun": 0.6, "happy": 0.8, "excited": 0.9,
	"best": 0.9, "win": 0.7, "won": 0.7, "epic": 0.9, "perfect": 1,
	"thanks": 0.5, "thank": 0.5, "lit": 0.8, "fire": 0.8, "hype": 0.9,
	"yay": 0.8, "wow": 0.6, "sweet": 0.6, "beautiful": 0.8,
}

var negativeWords = map[string]float64{
	"hate": -1, "awful": -1, "terrible": -1, "bad": -0.6, "worst": -1,
	"sad": -0.7, "angry": -0.8, "annoying": -0.7, "broken": -0.6,
	"lost": -0.5, "lose": -0.5, "lag": -0.5, "laggy": -0.6, "crash": -0.7,
	"bug": -0.4, "frustrating": -0.9, "frustrated": -0.9, "ugh": -0.6,
	"boring": -0.6, "trash": -0.8, "garbage": -0.8, "cry": -0.6,
	"tired": -0.4, "stupid": -0.7,
}

// intensifiers scale the following sentiment word.
var intensifiers = map[string]float64{
	"very": 1.5, "really": 1.5, "so": 1.3, "super": 1.6, "totally": 1.4,
	"absolutely": 1.7, "extremely": 1.8,
}

const (
	positiveThreshold = 0.1
	negativeThreshold = -0.1
)

// Classify maps a message to a coarse polarity. It never fails; texts
// that cannot be scored come back neutral.
func Classify(text string) models.Sentiment {
	score := Score(text)
	switch {
	case score > positiveThreshold:
		return models.SentimentPositive
	case score < negativeThreshold:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// Score computes a polarity score in [-1, 1] for the text.
func Score(text string) float64 {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0
	}

	var total float64
	multiplier := 1.0
	for _, tok := range tokens {
		if m, ok := intensifiers[tok]; ok {
			multiplier = m
			continue
		}
		if w, ok := positiveWords[tok]; ok {
			total += w * multiplier
		} else if w, ok := negativeWords[tok]; ok {
			total += w * multiplier
		}
		multiplier = 1.0
	}

	// Exclamation marks amplify whatever polarity is already there.
	if bangs := strings.Count(text, "!"); bangs > 0 && total != 0 {
		boost := 1 + 0.1*float64(min(bangs, 3))
		total *= boost
	}

	score := total / float64(len(tokens))
	// A single strong word in a short message should still saturate.
	score *= 3
	if score > 1 {
		score = 1
	}
	if score < -1 {
		score = -1
	}
	return score
}

func tokenize(text string) []string {
	lowered := strings.ToLower(text)
	return strings.FieldsFunc(lowered, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '\''
	})
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
