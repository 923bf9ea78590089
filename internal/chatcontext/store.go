package chatcontext

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Store owns every chat's rolling context. It is an explicit object
// rather than package-level state so tests get isolated instances, and
// it expires idle chats instead of growing without bound.
type Store struct {
	contexts *cache.Cache
	locks    map[string]*sync.Mutex
	mu       sync.Mutex
	logger   *logrus.Logger
}

// NewStore creates a context store. Idle chats are dropped after the
// given expiration; zero keeps them forever.
func NewStore(expiration, cleanupInterval time.Duration, logger *logrus.Logger) *Store {
	if expiration <= 0 {
		expiration = cache.NoExpiration
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 30 * time.Minute
	}
	return &Store{
		contexts: cache.New(expiration, cleanupInterval),
		locks:    make(map[string]*sync.Mutex),
		logger:   logger,
	}
}

// Lock serializes turn processing for a single chat. Different chats
// proceed concurrently. The returned func releases the lock.
func (s *Store) Lock(chatID string) func() {
	s.mu.Lock()
	l, ok := s.locks[chatID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[chatID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Analyze updates the chat's context with a new message and returns a
// snapshot of the state after the update. Callers must hold the
// chat's lock for the duration of the turn.
func (s *Store) Analyze(chatID, userID, username, message string) ChatContext {
	chatCtx := s.get(chatID)
	chatCtx.analyze(userID, username, message)
	// Refresh expiration on activity.
	s.contexts.SetDefault(chatID, chatCtx)
	return chatCtx.Snapshot()
}

// Peek returns the current snapshot without mutating anything.
func (s *Store) Peek(chatID string) ChatContext {
	return s.get(chatID).Snapshot()
}

func (s *Store) get(chatID string) *ChatContext {
	if val, found := s.contexts.Get(chatID); found {
		return val.(*ChatContext)
	}
	chatCtx := newChatContext(chatID)
	s.contexts.SetDefault(chatID, chatCtx)
	s.logger.WithField("chat_id", chatID).Debug("Created chat context")
	return chatCtx
}
