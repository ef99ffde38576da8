package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/voximity/omegga-discord-lite/internal/host"
	"github.com/voximity/omegga-discord-lite/internal/model"
	"github.com/voximity/omegga-discord-lite/internal/services/template"
)

// Host event method names.
const (
	methodInit  = "init"
	methodStop  = "stop"
	methodStart = "start"
	methodChat  = "chat"
	methodJoin  = "join"
	methodLeave = "leave"

	methodCmdDiscord = "cmd:discord"
)

// dispatchHostEvent routes one host event. Malformed parameters and failed
// side effects are logged and the event skipped; nothing here may kill the
// loop.
func (c *Controller) dispatchHostEvent(ctx context.Context, msg host.Message) {
	log := c.eventLogger("host").With(slog.String("method", msg.Method))

	var err error
	switch msg.Method {
	case methodInit:
		err = c.host.RespondInit(msg.ID, registeredCommands)
		if err == nil {
			log.Info("host handshake complete")
		}
	case methodStop:
		err = c.host.RespondStop(msg.ID)
	case methodStart:
		err = c.handleServerStart(ctx, msg.Params)
	case methodChat:
		err = c.handleGameChat(ctx, msg.Params)
	case methodJoin, methodLeave:
		err = c.handlePresence(ctx, msg.Method, msg.Params)
	case methodCmdDiscord:
		err = c.handleGameCommand(ctx, msg.Params)
	default:
		log.Debug("ignoring host event")
	}

	if err != nil {
		log.Error("host event failed", slog.String("error", err.Error()))
	}
}

// handleServerStart announces the new map on the chat side.
func (c *Controller) handleServerStart(ctx context.Context, params json.RawMessage) error {
	var args []struct {
		Map string `json:"map"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return fmt.Errorf("decoding start params: %w", err)
	}

	mapName := ""
	if len(args) > 0 {
		mapName = args[0].Map
	}

	content := template.Render(c.cfg.ServerStartFormat, template.FormatterSet{
		{Key: "map", Value: mapName},
	})
	return c.chat.SendMessage(ctx, c.cfg.ChannelID, content)
}

// handleGameChat relays an in-game message to the chat channel, attaching
// the player's resolved role tag.
func (c *Controller) handleGameChat(ctx context.Context, params json.RawMessage) error {
	var args []string
	if err := json.Unmarshal(params, &args); err != nil {
		return fmt.Errorf("decoding chat params: %w", err)
	}
	if len(args) == 0 {
		return errors.New("chat event without a user")
	}

	user := args[0]
	message := ""
	if len(args) > 1 {
		message = args[1]
	}

	userFs, err := c.userFormatters(ctx, user)
	if err != nil {
		return err
	}
	fs := template.Compose(userFs, template.FormatterSet{
		{Key: "message", Value: message},
	})

	return c.chat.SendMessage(ctx, c.cfg.ChannelID, template.Render(c.cfg.DiscordMessageFormat, fs))
}

// handlePresence announces a join or leave, refreshes the online-count
// channel name if configured, and abandons any pending verification when
// the player leaves.
func (c *Controller) handlePresence(ctx context.Context, method string, params json.RawMessage) error {
	var players []model.Player
	if err := json.Unmarshal(params, &players); err != nil {
		return fmt.Errorf("decoding presence params: %w", err)
	}
	if len(players) == 0 {
		return errors.New("presence event without a player")
	}
	player := players[0]

	if method == methodLeave {
		c.verify.Abandon(player.ID)
	}

	fs, err := c.userFormatters(ctx, player.Name)
	if err != nil {
		return err
	}

	format := c.cfg.JoinMessageFormat
	if method == methodLeave {
		format = c.cfg.LeaveMessageFormat
	}
	if err := c.chat.SendMessage(ctx, c.cfg.ChannelID, template.Render(format, fs)); err != nil {
		return err
	}

	if c.cfg.ChannelNameOnlineFormat == "" {
		return nil
	}
	roster, err := c.host.Players(ctx)
	if err != nil {
		return err
	}
	name := template.Render(c.cfg.ChannelNameOnlineFormat, template.FormatterSet{
		{Key: "n", Value: strconv.Itoa(len(roster))},
	})
	if err := c.chat.RenameChannel(ctx, c.cfg.ChannelID, name); err != nil {
		c.host.Error("Error on updating channel: " + err.Error())
	}
	return nil
}

// handleGameCommand services the in-game /discord command.
func (c *Controller) handleGameCommand(ctx context.Context, params json.RawMessage) error {
	var args []string
	if err := json.Unmarshal(params, &args); err != nil {
		return fmt.Errorf("decoding command params: %w", err)
	}
	if len(args) == 0 {
		return errors.New("command event without a user")
	}
	user := args[0]

	if len(args) < 2 {
		c.host.Whisper(user, msgNoSubcommand)
		return nil
	}

	switch args[1] {
	case "verify":
		return c.gameVerify(ctx, user)
	case "wipe":
		return c.gameWipe(ctx, user)
	default:
		c.host.Whisper(user, template.Render(msgUnknownSubcommand, template.FormatterSet{
			{Key: "command", Value: args[1]},
		}))
		return nil
	}
}

// gameVerify starts (or repeats) the verification handshake for a player.
func (c *Controller) gameVerify(ctx context.Context, user string) error {
	player, err := c.host.Player(ctx, user)
	if err != nil {
		return err
	}

	code, err := c.verify.Request(ctx, player.ID)
	switch {
	case errors.Is(err, model.ErrAlreadyVerified):
		c.host.Whisper(user, msgAlreadyVerified)
		return nil
	case errors.Is(err, model.ErrAlreadyPending):
		c.host.Whisper(user, template.Render(msgAlreadyPending, template.FormatterSet{
			{Key: "prefix", Value: c.cfg.DiscordPrefix},
			{Key: "code", Value: code},
		}))
		return nil
	case err != nil:
		return err
	}

	c.host.Whisper(user, template.Render(msgVerifyHint, template.FormatterSet{
		{Key: "prefix", Value: c.cfg.DiscordPrefix},
		{Key: "code", Value: code},
	}))
	return nil
}

// gameWipe clears the link store. Host player only; anyone else is ignored.
func (c *Controller) gameWipe(ctx context.Context, user string) error {
	player, err := c.host.Player(ctx, user)
	if err != nil {
		return err
	}
	if !player.Host {
		return nil
	}

	if err := c.verify.Wipe(ctx); err != nil {
		return err
	}
	c.host.Broadcast(msgStoreWiped)
	return nil
}
