package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"github.com/sylvia-tgbot-go/internal/config"
	"github.com/sylvia-tgbot-go/internal/models"
)

// HistoryStore is the durable per-chat message log. Every persist
// truncates the log to the configured limit, so loaded history is
// never longer than that limit.
type HistoryStore interface {
	// Load returns the chat's history, oldest first. Unreadable or
	// malformed persisted data is treated as empty history, never as
	// an error that aborts the turn.
	Load(ctx context.Context, chatID string) ([]models.ChatMessage, error)

	// Append adds turns to the chat's history and truncates to the
	// most recent limit entries.
	Append(ctx context.Context, chatID string, msgs ...models.ChatMessage) error

	// Clear drops the chat's history.
	Clear(ctx context.Context, chatID string) error
}

// Manager selects and wraps the configured backend.
type Manager struct {
	store       HistoryStore
	logger      *logrus.Logger
	redisClient *redis.Client
}

// NewManager creates a history manager for the configured backend.
func NewManager(cfg *config.Config, logger *logrus.Logger) (*Manager, error) {
	manager := &Manager{logger: logger}

	switch cfg.Storage.Type {
	case "redis":
		redisStore, err := NewRedisHistory(cfg, logger)
		if err != nil {
			return nil, err
		}
		manager.store = redisStore
		manager.redisClient = redisStore.client
	case "memory":
		manager.store = NewMemoryHistory(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}

	return manager, nil
}

func (m *Manager) Load(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	return m.store.Load(ctx, chatID)
}

func (m *Manager) Append(ctx context.Context, chatID string, msgs ...models.ChatMessage) error {
	return m.store.Append(ctx, chatID, msgs...)
}

func (m *Manager) Clear(ctx context.Context, chatID string) error {
	return m.store.Clear(ctx, chatID)
}

// GetRedisClient returns the Redis client if available
func (m *Manager) GetRedisClient() *redis.Client {
	return m.redisClient
}

// RedisHistory persists history in Redis as one JSON list per chat.
type RedisHistory struct {
	client *redis.Client
	limit  int
	ttl    time.Duration
	logger *logrus.Logger
}

func NewRedisHistory(cfg *config.Config, logger *logrus.Logger) (*RedisHistory, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Addr,
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.Storage.Memory.DefaultExpiration
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisHistory{
		client: client,
		limit:  cfg.Engine.ContextMsgLimit,
		ttl:    ttl,
		logger: logger,
	}, nil
}

func (r *RedisHistory) Load(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	data, err := r.client.Get(ctx, historyKey(chatID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var msgs []models.ChatMessage
	if err := json.Unmarshal([]byte(data), &msgs); err != nil {
		// Corrupted history must not kill the turn; start over.
		r.logger.WithError(err).WithField("chat_id", chatID).Warn("Corrupted history, treating as empty")
		return nil, nil
	}
	return msgs, nil
}

func (r *RedisHistory) Append(ctx context.Context, chatID string, msgs ...models.ChatMessage) error {
	existing, err := r.Load(ctx, chatID)
	if err != nil {
		return err
	}

	combined := truncate(append(existing, msgs...), r.limit)
	data, err := json.Marshal(combined)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, historyKey(chatID), data, r.ttl).Err()
}

func (r *RedisHistory) Clear(ctx context.Context, chatID string) error {
	return r.client.Del(ctx, historyKey(chatID)).Err()
}

func historyKey(chatID string) string {
	return fmt.Sprintf("history:%s", chatID)
}

// MemoryHistory keeps history in an expiring in-process cache. The
// expiration bounds growth across many chat ids.
type MemoryHistory struct {
	entries *cache.Cache
	limit   int
	logger  *logrus.Logger
}

func NewMemoryHistory(cfg *config.Config, logger *logrus.Logger) *MemoryHistory {
	expiration := cfg.Storage.Memory.DefaultExpiration
	cleanup := cfg.Storage.Memory.CleanupInterval
	if expiration <= 0 {
		expiration = cache.NoExpiration
	}
	if cleanup <= 0 {
		cleanup = 30 * time.Minute
	}
	return &MemoryHistory{
		entries: cache.New(expiration, cleanup),
		limit:   cfg.Engine.ContextMsgLimit,
		logger:  logger,
	}
}

func (m *MemoryHistory) Load(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	if val, found := m.entries.Get(chatID); found {
		msgs := val.([]models.ChatMessage)
		return append([]models.ChatMessage(nil), msgs...), nil
	}
	return nil, nil
}

func (m *MemoryHistory) Append(ctx context.Context, chatID string, msgs ...models.ChatMessage) error {
	existing, _ := m.Load(ctx, chatID)
	combined := truncate(append(existing, msgs...), m.limit)
	m.entries.SetDefault(chatID, combined)
	return nil
}

func (m *MemoryHistory) Clear(ctx context.Context, chatID string) error {
	m.entries.Delete(chatID)
	return nil
}

func truncate(msgs []models.ChatMessage, limit int) []models.ChatMessage {
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs
}
