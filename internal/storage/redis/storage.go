package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voximity/omegga-discord-lite/internal/model"
	"github.com/voximity/omegga-discord-lite/internal/storage"
)

// Storage is a Redis-backed implementation of the link store, for running
// the bridge detached from the host's own key-value store.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.LinkStore = (*Storage)(nil)

func (s *Storage) ChatID(ctx context.Context, gameID string) (string, error) {
	chatID, err := s.client.Get(ctx, gameToChatKey(gameID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", model.ErrLinkNotFound
		}
		return "", err
	}
	return chatID, nil
}

func (s *Storage) GameID(ctx context.Context, chatID string) (string, error) {
	gameID, err := s.client.Get(ctx, chatToGameKey(chatID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", model.ErrLinkNotFound
		}
		return "", err
	}
	return gameID, nil
}

func (s *Storage) SaveLink(ctx context.Context, gameID, chatID string) error {
	// Both directions written in one round trip so a crash between them
	// cannot leave a half-link behind.
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, gameToChatKey(gameID), chatID, 0)
		pipe.Set(ctx, chatToGameKey(chatID), gameID, 0)
		return nil
	})
	return err
}

func (s *Storage) Wipe(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, keyPrefix+":*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}
