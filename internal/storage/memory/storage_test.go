package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/voximity/omegga-discord-lite/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

func (s *StorageSuite) TestLookupMissingLink() {
	_, err := s.storage.ChatID(s.ctx, "p1")
	s.ErrorIs(err, model.ErrLinkNotFound)

	_, err = s.storage.GameID(s.ctx, "d1")
	s.ErrorIs(err, model.ErrLinkNotFound)
}

func (s *StorageSuite) TestSaveLinkStoresBothDirections() {
	s.Require().NoError(s.storage.SaveLink(s.ctx, "p1", "d1"))

	chatID, err := s.storage.ChatID(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal("d1", chatID)

	gameID, err := s.storage.GameID(s.ctx, "d1")
	s.Require().NoError(err)
	s.Equal("p1", gameID)
}

func (s *StorageSuite) TestWipeClearsEverything() {
	s.Require().NoError(s.storage.SaveLink(s.ctx, "p1", "d1"))
	s.Require().NoError(s.storage.SaveLink(s.ctx, "p2", "d2"))

	s.Require().NoError(s.storage.Wipe(s.ctx))

	_, err := s.storage.ChatID(s.ctx, "p1")
	s.ErrorIs(err, model.ErrLinkNotFound)
	_, err = s.storage.GameID(s.ctx, "d2")
	s.ErrorIs(err, model.ErrLinkNotFound)
}
