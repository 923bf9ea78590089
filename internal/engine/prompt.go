package engine

import (
	"fmt"
	"strings"

	"github.com/sylvia-tgbot-go/internal/chatcontext"
	"github.com/sylvia-tgbot-go/internal/models"
	"github.com/sylvia-tgbot-go/internal/persona"
)

// similarityThreshold is the minimum token overlap for a past user
// message to be surfaced as a reminder in the prompt.
const similarityThreshold = 0.6

// buildSystemPrompt assembles the full instruction block: personality,
// reference text, conversational memory, a similar-past-message
// reminder when one clears the threshold, and sentiment/mood
// annotations.
func (p *Planner) buildSystemPrompt(
	snap chatcontext.ChatContext,
	history []models.ChatMessage,
	text string,
	sent models.Sentiment,
	mood models.Mood,
) string {
	var sb strings.Builder

	sb.WriteString(p.persona.Personality)
	sb.WriteString("\n\n")

	if p.persona.ReferenceText != "" {
		sb.WriteString("Here's some background you remember:\n")
		sb.WriteString(persona.Cap(p.persona.ReferenceText, p.cfg.Persona.ReferenceTextLimit))
		sb.WriteString("\n\n")
	}

	sb.WriteString("Conversation memory:\n")
	if snap.CurrentTopic != models.TopicNone {
		fmt.Fprintf(&sb, "- the chat has been talking about %s\n", snap.CurrentTopic)
	}
	if len(snap.MentionedGames) > 0 {
		fmt.Fprintf(&sb, "- games mentioned recently: %s\n", strings.Join(snap.MentionedGames, ", "))
	}
	fmt.Fprintf(&sb, "- the chat's vibe is %s\n", snap.ConversationMood)
	if len(snap.RecentMessages) > 0 {
		sb.WriteString("- last few lines:\n")
		for _, rm := range snap.RecentMessages {
			fmt.Fprintf(&sb, "  %s: %s\n", rm.Username, rm.Message)
		}
	}

	if match, score := FindSimilarUserMessage(history, text); match != "" {
		fmt.Fprintf(&sb, "\nSomeone said something similar before (%.0f%% match): %q. You can call back to it.\n", score*100, match)
	}

	fmt.Fprintf(&sb, "\nThe current message feels %s and it's %s for you right now; let that color your tone.\n", sent, mood)

	return sb.String()
}

// FindSimilarUserMessage scans the chat's historical user turns for
// the one most similar to the query, returning it with its score when
// the best match clears the threshold.
func FindSimilarUserMessage(history []models.ChatMessage, query string) (string, float64) {
	var best string
	var bestScore float64

	for _, msg := range history {
		if msg.Role != models.RoleUser {
			continue
		}
		score := TokenSimilarity(msg.Content, query)
		if score > bestScore {
			best = msg.Content
			bestScore = score
		}
	}

	if bestScore < similarityThreshold {
		return "", 0
	}
	return best, bestScore
}

// TokenSimilarity is the Jaccard similarity of the two texts' token
// sets, case-insensitive.
func TokenSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	}) {
		set[tok] = struct{}{}
	}
	return set
}

// promptTurns truncates history to the most recent cap entries before
// it is sent to the model.
func promptTurns(history []models.ChatMessage, cap int) []models.ChatMessage {
	if cap > 0 && len(history) > cap {
		return history[len(history)-cap:]
	}
	return history
}
