package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/sylvia-tgbot-go/internal/config"
	"github.com/sylvia-tgbot-go/internal/engine"
	"github.com/sylvia-tgbot-go/internal/i18n"
	"github.com/sylvia-tgbot-go/internal/middleware"
	"github.com/sylvia-tgbot-go/internal/models"
	"github.com/sylvia-tgbot-go/internal/mood"
)

// update mirrors the slice of the Telegram webhook payload the bot
// cares about.
type update struct {
	Message *struct {
		MessageID int    `json:"message_id"`
		Text      string `json:"text"`
		From      *struct {
			ID        int64  `json:"id"`
			Username  string `json:"username"`
			FirstName string `json:"first_name"`
		} `json:"from"`
		Chat struct {
			ID       int64  `json:"id"`
			Type     string `json:"type"`
			Username string `json:"username"`
		} `json:"chat"`
		ReplyToMessage *struct {
			From *struct {
				ID       int64  `json:"id"`
				Username string `json:"username"`
			} `json:"from"`
		} `json:"reply_to_message"`
	} `json:"message"`
}

// Server is the webhook-based transport: one HTTP handler per update,
// replies delivered through the Telegram HTTP API.
type Server struct {
	cfg         *config.Config
	planner     *engine.Planner
	clock       *mood.Clock
	rateLimiter middleware.RateLimiter
	localizer   *i18n.Localizer
	metrics     *middleware.Metrics
	httpClient  *http.Client
	botUsername string
	logger      *logrus.Logger
}

// NewServer creates a webhook server.
func NewServer(
	cfg *config.Config,
	planner *engine.Planner,
	clock *mood.Clock,
	rateLimiter middleware.RateLimiter,
	localizer *i18n.Localizer,
	metrics *middleware.Metrics,
	botUsername string,
	logger *logrus.Logger,
) *Server {
	return &Server{
		cfg:         cfg,
		planner:     planner,
		clock:       clock,
		rateLimiter: rateLimiter,
		localizer:   localizer,
		metrics:     metrics,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		botUsername: strings.ToLower(botUsername),
		logger:      logger,
	}
}

// Router builds the HTTP routes: POST / for updates, GET / for a
// liveness probe.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/", s.handleUpdate).Methods(http.MethodPost)
	router.HandleFunc("/", s.handleHealth).Methods(http.MethodGet)
	return router
}

// ListenAndServe runs the webhook server on the configured port.
func (s *Server) ListenAndServe() error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Bot.Webhook.Port),
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return server.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":    s.localizer.Get(s.cfg.I18n.DefaultLanguage, i18n.MsgHealthAlive, nil),
		"timestamp": time.Now().Format(time.RFC3339),
		"mood":      string(s.clock.Current()),
	})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if secret := s.cfg.Bot.Webhook.Secret; secret != "" {
		if r.Header.Get("X-Webhook-Secret") != secret {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	}

	var upd update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		s.logger.WithError(err).Warn("Malformed webhook payload")
		writeJSON(w, map[string]string{"status": "bad_payload"})
		return
	}

	if upd.Message == nil || upd.Message.Text == "" {
		writeJSON(w, map[string]string{"status": "no_message"})
		return
	}

	incoming := s.adapt(upd)
	s.metrics.RecordMessageReceived(string(incoming.Kind))

	shouldReply := s.planner.ShouldReply(incoming)
	s.metrics.RecordReplyDecision(shouldReply)
	if !shouldReply {
		// Stay quiet but keep listening.
		s.planner.Observe(incoming)
		writeJSON(w, map[string]string{"status": "no_reply"})
		return
	}

	if !s.rateLimiter.Allow(incoming.UserID) {
		s.metrics.RecordRateLimited()
		writeJSON(w, map[string]string{"status": "rate_limited"})
		return
	}

	reply, err := s.planner.Respond(r.Context(), incoming)
	if err != nil {
		// The platform cancelled the request; the turn was abandoned.
		writeJSON(w, map[string]string{"status": "cancelled"})
		return
	}

	status := "replied"
	if !s.sendMessage(r.Context(), upd.Message.Chat.ID, reply) {
		status = "send_failed"
		s.metrics.RecordReplySent("error")
	} else {
		s.metrics.RecordReplySent("success")
	}

	writeJSON(w, map[string]string{"status": status, "reply": reply})
}

// sendMessage delivers a reply through the Telegram HTTP API.
func (s *Server) sendMessage(ctx context.Context, chatID int64, text string) bool {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.cfg.Bot.Token)

	payload, err := json.Marshal(map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.WithError(err).Error("Failed to deliver reply")
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func (s *Server) adapt(upd update) models.Incoming {
	msg := upd.Message

	kind := models.ChatPrivate
	if msg.Chat.Type == "group" || msg.Chat.Type == "supergroup" {
		kind = models.ChatGroup
	}

	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	if kind == models.ChatGroup && msg.Chat.Username != "" {
		chatID = msg.Chat.Username
	}

	username := ""
	userID := ""
	if msg.From != nil {
		userID = strconv.FormatInt(msg.From.ID, 10)
		username = msg.From.Username
		if username == "" {
			username = msg.From.FirstName
		}
	}

	lowered := strings.ToLower(msg.Text)
	isMentioned := s.botUsername != "" && strings.Contains(lowered, "@"+s.botUsername)

	isReplyToBot := msg.ReplyToMessage != nil &&
		msg.ReplyToMessage.From != nil &&
		strings.EqualFold(msg.ReplyToMessage.From.Username, s.botUsername)

	return models.Incoming{
		ChatID:       chatID,
		UserID:       userID,
		Username:     username,
		Text:         strings.TrimSpace(msg.Text),
		Kind:         kind,
		IsMentioned:  isMentioned,
		IsReplyToBot: isReplyToBot,
	}
}

func writeJSON(w http.ResponseWriter, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}
