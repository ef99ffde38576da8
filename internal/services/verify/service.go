// Package verify owns the identity-verification state machine: a player
// requests a code in-game, submits it on the chat side, and the resulting
// link is persisted bidirectionally. Per game identity the states are
// unverified -> pending(code) -> verified, with pending dropping back to
// unverified if the player leaves before completing.
package verify

import (
	"context"
	"errors"
	"sync"

	"github.com/voximity/omegga-discord-lite/internal/dependencies/clock"
	"github.com/voximity/omegga-discord-lite/internal/dependencies/random"
	"github.com/voximity/omegga-discord-lite/internal/model"
	"github.com/voximity/omegga-discord-lite/internal/storage"
)

const (
	codeLength   = 6
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Service is the verification ledger. It exclusively owns the pending-entry
// map; the link store remains the source of truth for completed links.
// Both dispatcher loops call into it concurrently.
type Service struct {
	store  storage.LinkStore
	clock  clock.Clock
	random random.Random

	mu      sync.Mutex
	pending map[string]model.PendingVerification
	order   []string // game ids, insertion order; scanned first-to-last on submit
}

// New creates a new verification service
func New(store storage.LinkStore, clock clock.Clock, random random.Random) *Service {
	return &Service{
		store:   store,
		clock:   clock,
		random:  random,
		pending: make(map[string]model.PendingVerification),
	}
}

// Request starts verification for a game player. The link store is checked
// first; an already-linked player gets model.ErrAlreadyVerified. If a
// pending entry already exists its code is returned alongside a
// model.PendingError, so retries are idempotent. Otherwise a fresh code is
// minted, recorded, and returned.
func (s *Service) Request(ctx context.Context, gameID string) (string, error) {
	_, err := s.store.ChatID(ctx, gameID)
	if err == nil {
		return "", model.ErrAlreadyVerified
	}
	if !errors.Is(err, model.ErrLinkNotFound) {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.pending[gameID]; ok {
		return entry.Code, &model.PendingError{Code: entry.Code}
	}

	code := s.random.String(codeLength, codeAlphabet)
	s.pending[gameID] = model.PendingVerification{
		GameID:    gameID,
		Code:      code,
		CreatedAt: s.clock.Now(),
	}
	s.order = append(s.order, gameID)
	return code, nil
}

// Submit consumes a pending entry whose code matches and persists the link
// in both directions. The lookup and removal happen under one lock, so a
// given code can succeed at most once; concurrent duplicates get
// model.ErrNoSuchCode. If the same code was ever issued twice the earliest
// pending entry wins.
func (s *Service) Submit(ctx context.Context, code, chatID string) (string, error) {
	s.mu.Lock()
	gameID, ok := s.takeByCode(code)
	s.mu.Unlock()
	if !ok {
		return "", model.ErrNoSuchCode
	}

	if err := s.store.SaveLink(ctx, gameID, chatID); err != nil {
		// Reinstate the entry so the user can retry after a store fault.
		s.mu.Lock()
		if _, exists := s.pending[gameID]; !exists {
			s.pending[gameID] = model.PendingVerification{
				GameID:    gameID,
				Code:      code,
				CreatedAt: s.clock.Now(),
			}
			s.order = append(s.order, gameID)
		}
		s.mu.Unlock()
		return "", err
	}
	return gameID, nil
}

// takeByCode removes and returns the first pending entry carrying code.
// Caller holds s.mu.
func (s *Service) takeByCode(code string) (string, bool) {
	for i, gameID := range s.order {
		if entry, ok := s.pending[gameID]; ok && entry.Code == code {
			delete(s.pending, gameID)
			s.order = append(s.order[:i], s.order[i+1:]...)
			return gameID, true
		}
	}
	return "", false
}

// Sync resolves an existing link for a chat user without touching pending
// state. Returns model.ErrLinkNotFound if the user has never verified.
func (s *Service) Sync(ctx context.Context, chatID string) (string, error) {
	return s.store.GameID(ctx, chatID)
}

// Abandon drops any pending entry for a game player. Call when the player
// leaves the server. No-op if nothing is pending.
func (s *Service) Abandon(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[gameID]; !ok {
		return
	}
	delete(s.pending, gameID)
	for i, id := range s.order {
		if id == gameID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Wipe clears the persisted link store. In-flight pending entries are
// unaffected.
func (s *Service) Wipe(ctx context.Context) error {
	return s.store.Wipe(ctx)
}

// PendingCount reports how many verifications are in flight.
func (s *Service) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
