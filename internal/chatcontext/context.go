package chatcontext

import (
	"strings"
	"time"

	"github.com/sylvia-tgbot-go/internal/models"
)

const (
	// RecentMessagesLimit caps the per-chat ring of verbatim lines.
	RecentMessagesLimit = 10
	// MentionedGamesLimit caps the remembered game names to the most
	// recent unique mentions.
	MentionedGamesLimit = 20
)

// RecentMessage is one verbatim line kept for prompt context.
type RecentMessage struct {
	Username  string
	Message   string
	Timestamp time.Time
	UserID    string
}

// ChatContext is the rolling conversational state of a single chat.
// It lives in process memory only and is rebuilt from scratch after a
// restart. All mutation goes through AnalyzeMessage under the store's
// per-chat lock.
type ChatContext struct {
	ChatID           string
	CurrentTopic     models.Topic
	MentionedGames   []string
	ConversationMood models.ConversationMood
	RecentMessages   []RecentMessage
	UsersInChat      map[string]struct{}
}

func newChatContext(chatID string) *ChatContext {
	return &ChatContext{
		ChatID:           chatID,
		CurrentTopic:     models.TopicNone,
		ConversationMood: models.ConvMoodNeutral,
		UsersInChat:      make(map[string]struct{}),
	}
}

// Keyword tables are data, not control flow, so the detection policy
// can grow without touching AnalyzeMessage.
var topicKeywords = []struct {
	topic    models.Topic
	keywords []string
}{
	{models.TopicGaming, []string{"game", "gaming", "play", "raid", "boss", "level", "patch", "quest", "rpg", "fps", "loot", "speedrun", "console", "steam"}},
	{models.TopicTech, []string{"code", "coding", "tech", "programming", "dev", "bug", "software", "computer", "gpu", "server", "linux", "api"}},
	{models.TopicFood, []string{"food", "eat", "hungry", "pizza", "shawarma", "falafel", "dinner", "lunch", "breakfast", "snack", "cooking"}},
}

// gameAliases maps message keywords to canonical game names, checked
// in order so the table stays deterministic.
var gameAliases = []struct {
	alias     string
	canonical string
}{
	{"bg3", "Baldur's Gate 3"},
	{"baldur", "Baldur's Gate 3"},
	{"elden ring", "Elden Ring"},
	{"valorant", "Valorant"},
	{"league", "League of Legends"},
	{"lol ranked", "League of Legends"},
	{"minecraft", "Minecraft"},
	{"fortnite", "Fortnite"},
	{"overwatch", "Overwatch"},
	{"cs2", "Counter-Strike 2"},
	{"counter-strike", "Counter-Strike 2"},
	{"zelda", "Zelda"},
	{"stardew", "Stardew Valley"},
	{"witcher", "The Witcher 3"},
	{"cyberpunk", "Cyberpunk 2077"},
}

var conversationMoodKeywords = []struct {
	mood     models.ConversationMood
	keywords []string
}{
	{models.ConvMoodExcited, []string{"hype", "excited", "amazing", "insane", "let's go", "lets go", "omg", "pog"}},
	{models.ConvMoodFrustrated, []string{"ugh", "annoying", "frustrated", "broken", "hate", "lagging", "rage"}},
	{models.ConvMoodPlayful, []string{"lol", "lmao", "haha", "joke", "meme", "silly", "xd"}},
}

// analyze applies a message's side effects to the context. Empty or
// unusable text only records the user and the verbatim line.
func (c *ChatContext) analyze(userID, username, message string) {
	if username != "" {
		c.UsersInChat[username] = struct{}{}
	}

	c.RecentMessages = append(c.RecentMessages, RecentMessage{
		Username:  username,
		Message:   message,
		Timestamp: time.Now(),
		UserID:    userID,
	})
	if len(c.RecentMessages) > RecentMessagesLimit {
		c.RecentMessages = c.RecentMessages[len(c.RecentMessages)-RecentMessagesLimit:]
	}

	lowered := strings.ToLower(message)
	if strings.TrimSpace(lowered) == "" {
		return
	}

	// Last detected topic wins, no stacking.
	for _, entry := range topicKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lowered, kw) {
				c.CurrentTopic = entry.topic
				break
			}
		}
	}

	for _, g := range gameAliases {
		if strings.Contains(lowered, g.alias) {
			c.addGame(g.canonical)
		}
	}

	for _, entry := range conversationMoodKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lowered, kw) {
				c.ConversationMood = entry.mood
				break
			}
		}
	}
}

// addGame appends a canonical name if absent, evicting the oldest
// entry past the cap.
func (c *ChatContext) addGame(name string) {
	for _, existing := range c.MentionedGames {
		if existing == name {
			return
		}
	}
	c.MentionedGames = append(c.MentionedGames, name)
	if len(c.MentionedGames) > MentionedGamesLimit {
		c.MentionedGames = c.MentionedGames[len(c.MentionedGames)-MentionedGamesLimit:]
	}
}

// Snapshot returns a copy safe to read outside the store's lock.
func (c *ChatContext) Snapshot() ChatContext {
	cp := ChatContext{
		ChatID:           c.ChatID,
		CurrentTopic:     c.CurrentTopic,
		ConversationMood: c.ConversationMood,
		MentionedGames:   append([]string(nil), c.MentionedGames...),
		RecentMessages:   append([]RecentMessage(nil), c.RecentMessages...),
		UsersInChat:      make(map[string]struct{}, len(c.UsersInChat)),
	}
	for u := range c.UsersInChat {
		cp.UsersInChat[u] = struct{}{}
	}
	return cp
}
