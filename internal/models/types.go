package models

import (
	"time"
)

// Role identifies who produced a history turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatKind distinguishes private conversations from group chats.
type ChatKind string

const (
	ChatPrivate ChatKind = "private"
	ChatGroup   ChatKind = "group"
)

// Sentiment is the coarse polarity of a message.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Mood is the time-of-day bucket used to bias tone and reply probability.
type Mood string

const (
	MoodMorning   Mood = "morning"
	MoodAfternoon Mood = "afternoon"
	MoodEvening   Mood = "evening"
	MoodNight     Mood = "night"
)

// Topic is the lightweight conversation topic detected from keywords.
type Topic string

const (
	TopicGaming Topic = "gaming"
	TopicTech   Topic = "tech"
	TopicFood   Topic = "food"
	TopicNone   Topic = "none"
)

// ConversationMood is the aggregate emotional tone of a chat.
type ConversationMood string

const (
	ConvMoodNeutral    ConversationMood = "neutral"
	ConvMoodExcited    ConversationMood = "excited"
	ConvMoodFrustrated ConversationMood = "frustrated"
	ConvMoodPlayful    ConversationMood = "playful"
)

// ChatMessage is a single immutable turn in a chat's durable history.
type ChatMessage struct {
	ChatID    string    `json:"chat_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Incoming is the transport-independent shape of a received message.
// Whatever transport (polling client, webhook handler) adapts its
// native event into this before handing it to the engine.
type Incoming struct {
	ChatID       string
	UserID       string
	Username     string
	Text         string
	Kind         ChatKind
	IsMentioned  bool
	IsReplyToBot bool
}
