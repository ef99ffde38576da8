package memory

import (
	"context"
	"sync"

	"github.com/voximity/omegga-discord-lite/internal/model"
	"github.com/voximity/omegga-discord-lite/internal/storage"
)

// Storage is an in-memory implementation of the link store
type Storage struct {
	mu sync.RWMutex

	gameToChat map[string]string
	chatToGame map[string]string
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		gameToChat: make(map[string]string),
		chatToGame: make(map[string]string),
	}
}

// Ensure Storage implements the interface
var _ storage.LinkStore = (*Storage)(nil)

func (s *Storage) ChatID(ctx context.Context, gameID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chatID, ok := s.gameToChat[gameID]
	if !ok {
		return "", model.ErrLinkNotFound
	}
	return chatID, nil
}

func (s *Storage) GameID(ctx context.Context, chatID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	gameID, ok := s.chatToGame[chatID]
	if !ok {
		return "", model.ErrLinkNotFound
	}
	return gameID, nil
}

func (s *Storage) SaveLink(ctx context.Context, gameID, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gameToChat[gameID] = chatID
	s.chatToGame[chatID] = gameID
	return nil
}

func (s *Storage) Wipe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gameToChat = make(map[string]string)
	s.chatToGame = make(map[string]string)
	return nil
}
