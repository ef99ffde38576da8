// Package factory wires the application together from configuration.
package factory

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/voximity/omegga-discord-lite/internal/chat"
	"github.com/voximity/omegga-discord-lite/internal/config"
	"github.com/voximity/omegga-discord-lite/internal/dependencies/clock"
	"github.com/voximity/omegga-discord-lite/internal/dependencies/random"
	"github.com/voximity/omegga-discord-lite/internal/host"
	"github.com/voximity/omegga-discord-lite/internal/services/relay"
	"github.com/voximity/omegga-discord-lite/internal/services/verify"
	"github.com/voximity/omegga-discord-lite/internal/status"
	"github.com/voximity/omegga-discord-lite/internal/storage"
	"github.com/voximity/omegga-discord-lite/internal/storage/hoststore"
	"github.com/voximity/omegga-discord-lite/internal/storage/memory"
	redisstorage "github.com/voximity/omegga-discord-lite/internal/storage/redis"
)

// App contains all wired application components
type App struct {
	Config *config.Config
	Logger *slog.Logger

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Collaborators
	Host  *host.Client
	Chat  chat.Session
	Store storage.LinkStore

	// Services
	Verify *verify.Service
	Relay  *relay.Controller
	Status *status.Handler
}

// Config holds configuration for the application factory
type Config struct {
	// Config is the validated bridge configuration (required)
	Config *config.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// HostIn and HostOut carry the host RPC stream, normally the
	// process's stdin and stdout (required)
	HostIn  io.Reader
	HostOut io.Writer
	// ChatSession overrides the discordgo session (for testing)
	ChatSession chat.Session
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	clk := clock.New()
	rnd := random.New()

	hostClient := host.NewClient(cfg.HostIn, cfg.HostOut, logger)

	var store storage.LinkStore
	switch cfg.Config.Storage {
	case config.StorageHost:
		store = hoststore.New(hostClient)
	case config.StorageMemory:
		store = memory.New()
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.Config.RedisURL
		s, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		store = s
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Config.Storage)
	}

	session := cfg.ChatSession
	if session == nil {
		s, err := chat.NewDiscord(cfg.Config.Token, logger)
		if err != nil {
			return nil, err
		}
		session = s
	}

	verifyService := verify.New(store, clk, rnd)
	relayController := relay.New(cfg.Config, logger, hostClient, hostClient.Notifications(), session, verifyService)
	statusHandler := status.NewHandler(logger, clk, verifyService)

	return &App{
		Config: cfg.Config,
		Logger: logger,
		Clock:  clk,
		Random: rnd,
		Host:   hostClient,
		Chat:   session,
		Store:  store,
		Verify: verifyService,
		Relay:  relayController,
		Status: statusHandler,
	}, nil
}
