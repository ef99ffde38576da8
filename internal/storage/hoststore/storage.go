// Package hoststore persists identity links in the game host's own
// key-value store, the default when running as a hosted plugin. Key names
// keep the historical g2d_/d2g_ scheme so existing stores stay readable.
package hoststore

import (
	"context"
	"encoding/json"

	"github.com/voximity/omegga-discord-lite/internal/model"
	"github.com/voximity/omegga-discord-lite/internal/storage"
)

// KV is the slice of the host client this store uses.
type KV interface {
	StoreGet(ctx context.Context, key string) (json.RawMessage, error)
	StoreSet(key string, value any)
	StoreWipe()
}

// Storage implements the link store over the host's key-value RPC.
type Storage struct {
	kv KV
}

// New creates a host-backed storage instance
func New(kv KV) *Storage {
	return &Storage{kv: kv}
}

// Ensure Storage implements the interface
var _ storage.LinkStore = (*Storage)(nil)

func gameToChatKey(gameID string) string { return "g2d_" + gameID }
func chatToGameKey(chatID string) string { return "d2g_" + chatID }

func (s *Storage) ChatID(ctx context.Context, gameID string) (string, error) {
	return s.get(ctx, gameToChatKey(gameID))
}

func (s *Storage) GameID(ctx context.Context, chatID string) (string, error) {
	return s.get(ctx, chatToGameKey(chatID))
}

func (s *Storage) get(ctx context.Context, key string) (string, error) {
	raw, err := s.kv.StoreGet(ctx, key)
	if err != nil {
		return "", err
	}
	if raw == nil {
		return "", model.ErrLinkNotFound
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		// A non-string value means the store was written by something
		// else entirely; treat it as absent.
		return "", model.ErrLinkNotFound
	}
	if id == "" {
		return "", model.ErrLinkNotFound
	}
	return id, nil
}

func (s *Storage) SaveLink(ctx context.Context, gameID, chatID string) error {
	s.kv.StoreSet(gameToChatKey(gameID), chatID)
	s.kv.StoreSet(chatToGameKey(chatID), gameID)
	return nil
}

func (s *Storage) Wipe(ctx context.Context) error {
	s.kv.StoreWipe()
	return nil
}
