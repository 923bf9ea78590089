package telegram

import (
	"context"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"github.com/sylvia-tgbot-go/internal/config"
	"github.com/sylvia-tgbot-go/internal/engine"
	"github.com/sylvia-tgbot-go/internal/i18n"
	"github.com/sylvia-tgbot-go/internal/middleware"
	"github.com/sylvia-tgbot-go/internal/models"
	"github.com/sylvia-tgbot-go/pkg/logger"
	"github.com/sylvia-tgbot-go/pkg/markdown"
)

// Handler adapts Telegram updates into the engine's transport-neutral
// shape and delivers replies back.
type Handler struct {
	cfg         *config.Config
	bot         *tgbotapi.BotAPI
	planner     *engine.Planner
	rateLimiter middleware.RateLimiter
	localizer   *i18n.Localizer
	metrics     *middleware.Metrics
	logger      *logrus.Logger
}

// NewHandler creates a new message handler
func NewHandler(
	cfg *config.Config,
	bot *tgbotapi.BotAPI,
	planner *engine.Planner,
	rateLimiter middleware.RateLimiter,
	localizer *i18n.Localizer,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		cfg:         cfg,
		bot:         bot,
		planner:     planner,
		rateLimiter: rateLimiter,
		localizer:   localizer,
		metrics:     metrics,
		logger:      logger,
	}
}

// HandleUpdate processes one Telegram update.
func (h *Handler) HandleUpdate(ctx context.Context, update *tgbotapi.Update) error {
	msg := update.Message
	if msg == nil || msg.Text == "" || msg.IsCommand() {
		return nil
	}

	// Ignore the bot's own messages
	if msg.From != nil && msg.From.ID == h.bot.Self.ID {
		return nil
	}

	incoming := h.adapt(msg)
	h.metrics.RecordMessageReceived(string(incoming.Kind))

	shouldReply := h.planner.ShouldReply(incoming)
	h.metrics.RecordReplyDecision(shouldReply)
	if !shouldReply {
		// Stay quiet but keep listening.
		h.planner.Observe(incoming)
		return nil
	}

	if !h.rateLimiter.Allow(incoming.UserID) {
		h.metrics.RecordRateLimited()
		notice := h.localizer.Get(h.cfg.I18n.DefaultLanguage, i18n.MsgRateLimitExceeded, nil)
		reply := tgbotapi.NewMessage(msg.Chat.ID, notice)
		reply.ReplyToMessageID = msg.MessageID
		if _, err := h.bot.Send(reply); err != nil {
			h.logger.WithError(err).Error("Failed to send rate limit notice")
		}
		return nil
	}

	// Process in the background so slow generation never stalls the
	// update loop; per-chat ordering is the planner's job.
	go h.respond(ctx, msg, incoming)

	return nil
}

func (h *Handler) respond(ctx context.Context, msg *tgbotapi.Message, incoming models.Incoming) {
	log := logger.WithChat(h.logger, incoming.ChatID, incoming.UserID)

	reply, err := h.planner.Respond(ctx, incoming)
	if err != nil {
		// Only cancellation reaches here; the turn was abandoned.
		log.WithError(err).Debug("Turn abandoned")
		return
	}

	// Look busy for a human-sized moment before the reply lands.
	typing := tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping)
	if _, err := h.bot.Request(typing); err != nil {
		log.WithError(err).Debug("Failed to send typing action")
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(h.planner.TypingDelay(reply)):
	}

	h.Send(msg.Chat.ID, msg.MessageID, reply, incoming.Kind)
}

// Send delivers a reply, rendering markdown to Telegram HTML with a
// plain-text fallback when Telegram rejects the markup.
func (h *Handler) Send(chatID int64, replyTo int, text string, kind models.ChatKind) {
	out := tgbotapi.NewMessage(chatID, markdown.ToTelegramHTML(text))
	out.ParseMode = "HTML"
	if kind == models.ChatGroup {
		out.ReplyToMessageID = replyTo
	}

	if _, err := h.bot.Send(out); err != nil {
		h.logger.WithError(err).Warn("Failed to send HTML reply, trying plain text")
		out.ParseMode = ""
		out.Text = text
		if _, err := h.bot.Send(out); err != nil {
			h.logger.WithError(err).Error("Failed to send reply")
			h.metrics.RecordReplySent("error")
			return
		}
	}
	h.metrics.RecordReplySent("success")
}

// adapt converts a Telegram message into the transport-neutral shape.
// Public groups are identified by username so the allow-list can hold
// either numeric ids or @names.
func (h *Handler) adapt(msg *tgbotapi.Message) models.Incoming {
	kind := models.ChatPrivate
	if msg.Chat.IsGroup() || msg.Chat.IsSuperGroup() {
		kind = models.ChatGroup
	}

	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	if kind == models.ChatGroup && msg.Chat.UserName != "" {
		chatID = msg.Chat.UserName
	}

	username := ""
	userID := ""
	if msg.From != nil {
		userID = strconv.FormatInt(msg.From.ID, 10)
		username = msg.From.UserName
		if username == "" {
			username = msg.From.FirstName
		}
	}

	botMention := "@" + strings.ToLower(h.bot.Self.UserName)
	isMentioned := strings.Contains(strings.ToLower(msg.Text), botMention)

	isReplyToBot := msg.ReplyToMessage != nil &&
		msg.ReplyToMessage.From != nil &&
		msg.ReplyToMessage.From.ID == h.bot.Self.ID

	return models.Incoming{
		ChatID:       chatID,
		UserID:       userID,
		Username:     username,
		Text:         strings.TrimSpace(strings.ReplaceAll(msg.Text, "@"+h.bot.Self.UserName, "")),
		Kind:         kind,
		IsMentioned:  isMentioned,
		IsReplyToBot: isReplyToBot,
	}
}
