// Package relay is the event dispatcher: two independent consumption loops,
// one per platform, that decode incoming events, route them to handlers,
// and emit the translated result on the other side. The loops share only
// the verification service and the link store behind it.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/voximity/omegga-discord-lite/internal/chat"
	"github.com/voximity/omegga-discord-lite/internal/config"
	"github.com/voximity/omegga-discord-lite/internal/host"
	"github.com/voximity/omegga-discord-lite/internal/model"
	"github.com/voximity/omegga-discord-lite/internal/services/roles"
	"github.com/voximity/omegga-discord-lite/internal/services/template"
	"github.com/voximity/omegga-discord-lite/internal/services/verify"
)

// registeredCommands are the in-game slash commands declared to the host on
// init. The host only routes cmd:<name> events for declared names.
var registeredCommands = []string{"discord"}

// Host is the slice of the host client the dispatcher uses.
type Host interface {
	Log(text string)
	Error(text string)
	Broadcast(text string)
	Whisper(player, text string)
	Players(ctx context.Context) ([]model.Player, error)
	Player(ctx context.Context, target string) (*model.Player, error)
	PlayerRoles(ctx context.Context, target string) ([]string, error)
	RespondInit(id json.RawMessage, commands []string) error
	RespondStop(id json.RawMessage) error
}

var _ Host = (*host.Client)(nil)

// Controller owns both dispatcher loops. It holds no business state of its
// own; the verification service carries the only shared mutable state.
type Controller struct {
	cfg    *config.Config
	logger *slog.Logger

	host       Host
	hostEvents <-chan host.Message
	chat       chat.Session
	verify     *verify.Service

	gameRoles roles.Priorities
	chatRoles roles.Priorities
}

// New creates a dispatcher over the given collaborators. Role priority
// lists are parsed once here and immutable afterwards.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	h Host,
	hostEvents <-chan host.Message,
	session chat.Session,
	v *verify.Service,
) *Controller {
	return &Controller{
		cfg:        cfg,
		logger:     logger,
		host:       h,
		hostEvents: hostEvents,
		chat:       session,
		verify:     v,
		gameRoles:  roles.Parse(cfg.GameRoles),
		chatRoles:  roles.Parse(cfg.DiscordRoles),
	}
}

// RunHostLoop consumes host events until the context is cancelled or the
// event source closes. Per-event failures are logged and never terminate
// the loop.
func (c *Controller) RunHostLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-c.hostEvents:
			if !ok {
				return nil
			}
			c.dispatchHostEvent(ctx, msg)
		}
	}
}

// RunChatLoop opens the chat session and consumes its events until the
// context is cancelled or the session closes. A connection failure is
// surfaced to the host as an error log and returned; it never affects the
// host loop.
func (c *Controller) RunChatLoop(ctx context.Context) error {
	if err := c.chat.Open(ctx); err != nil {
		c.host.Error("Error while listening to Discord: " + err.Error())
		return err
	}
	defer c.chat.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-c.chat.Events():
			if !ok {
				return nil
			}
			c.dispatchChatEvent(ctx, ev)
		}
	}
}

// eventLogger tags a logger with a correlation id for one event's handling.
func (c *Controller) eventLogger(kind string) *slog.Logger {
	return c.logger.With(
		slog.String("event_id", uuid.NewString()),
		slog.String("source", kind),
	)
}

// userFormatters builds the role/user formatter set for a game player.
func (c *Controller) userFormatters(ctx context.Context, user string) (template.FormatterSet, error) {
	rs, err := c.host.PlayerRoles(ctx, user)
	if err != nil {
		return nil, err
	}
	return template.FormatterSet{
		{Key: "role", Value: roles.Resolve(rs, c.gameRoles)},
		{Key: "user", Value: user},
	}, nil
}
