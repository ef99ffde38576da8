package storage

import "context"

// LinkStore persists completed identity links between game players and chat
// users. Links are stored bidirectionally for O(1) lookup from either side.
// Implementations must tolerate the store being empty, partially populated,
// or wiped concurrently; the store, not the caller, is the source of truth.
type LinkStore interface {
	// ChatID resolves the chat identity linked to a game player.
	// Returns model.ErrLinkNotFound if no link exists.
	ChatID(ctx context.Context, gameID string) (string, error)

	// GameID resolves the game identity linked to a chat user.
	// Returns model.ErrLinkNotFound if no link exists.
	GameID(ctx context.Context, chatID string) (string, error)

	// SaveLink persists both directions of an identity pair.
	SaveLink(ctx context.Context, gameID, chatID string) error

	// Wipe removes every stored link.
	Wipe(ctx context.Context) error
}
