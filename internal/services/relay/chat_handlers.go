package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/voximity/omegga-discord-lite/internal/chat"
	"github.com/voximity/omegga-discord-lite/internal/model"
	"github.com/voximity/omegga-discord-lite/internal/services/markup"
	"github.com/voximity/omegga-discord-lite/internal/services/roles"
	"github.com/voximity/omegga-discord-lite/internal/services/template"
)

// defaultRoleColor is used when no role carries a color of its own.
const defaultRoleColor = 0xaaaaaa

// dispatchChatEvent routes one chat-service event. Failures are logged and
// the event skipped; the loop keeps running.
func (c *Controller) dispatchChatEvent(ctx context.Context, ev chat.Event) {
	log := c.eventLogger("chat")

	switch ev := ev.(type) {
	case chat.Ready:
		c.host.Log("Discord client is ready.")
	case chat.MessageCreate:
		if err := c.handleChatMessage(ctx, ev); err != nil {
			log.Error("chat event failed",
				slog.String("message_id", ev.MessageID),
				slog.String("error", err.Error()))
		}
	default:
		log.Debug("ignoring chat event")
	}
}

// handleChatMessage services commands and relays the message in-game. Own
// messages and other channels are ignored to prevent feedback loops.
func (c *Controller) handleChatMessage(ctx context.Context, m chat.MessageCreate) error {
	if m.AuthorID == c.chat.Me() {
		return nil
	}
	if m.ChannelID != c.cfg.ChannelID {
		return nil
	}

	var cmdErr error
	if strings.HasPrefix(m.Content, c.cfg.DiscordPrefix) {
		cmd, args, _ := strings.Cut(strings.TrimPrefix(m.Content, c.cfg.DiscordPrefix), " ")
		c.host.Log(fmt.Sprintf("%s is trying to run %s with %s", m.AuthorName, cmd, args))

		switch cmd {
		case "players":
			cmdErr = c.cmdPlayers(ctx, m)
		case "verify":
			cmdErr = c.cmdVerify(ctx, m, args)
		default:
			// Unknown commands are silently ignored.
		}
	}

	// Every channel message is relayed, command or not.
	c.relayToGame(m)
	return cmdErr
}

// relayToGame translates a chat message into game markup and broadcasts it,
// with a plain mirror on the host console.
func (c *Controller) relayToGame(m chat.MessageCreate) {
	roleNames := make([]string, len(m.Roles))
	color := defaultRoleColor
	colorFound := false
	for i, r := range m.Roles {
		roleNames[i] = r.Name
		if !colorFound && r.Color != 0 {
			color = r.Color
			colorFound = true
		}
	}

	fs := template.FormatterSet{
		{Key: "role", Value: roles.Resolve(roleNames, c.chatRoles)},
		{Key: "user", Value: m.DisplayName()},
		{Key: "message", Value: markup.ToGameMarkup(m.Content)},
		{Key: "color", Value: fmt.Sprintf("%06x", color)},
	}

	c.host.Broadcast(template.Render(c.cfg.GameMessageFormat, fs))
	c.host.Log(template.Render(mirrorFormat, fs))
}

// cmdPlayers replies with the roster, each player prefixed by their
// resolved role tag.
func (c *Controller) cmdPlayers(ctx context.Context, m chat.MessageCreate) error {
	players, err := c.host.Players(ctx)
	if err != nil {
		return err
	}
	if len(players) == 0 {
		return c.chat.Reply(ctx, m.ChannelID, m.MessageID, msgNoPlayersOnline)
	}

	var b strings.Builder
	if len(players) == 1 {
		b.WriteString(msgPlayersHeaderOne)
	} else {
		b.WriteString(template.Render(msgPlayersHeaderMany, template.FormatterSet{
			{Key: "n", Value: strconv.Itoa(len(players))},
		}))
	}
	b.WriteString("\n")

	for _, player := range players {
		rs, err := c.host.PlayerRoles(ctx, player.Name)
		if err != nil {
			return err
		}
		if tag := roles.Resolve(rs, c.gameRoles); tag != "" {
			b.WriteString(tag)
			b.WriteString(" ")
		}
		b.WriteString(player.Name)
		b.WriteString("\n")
	}

	return c.chat.Reply(ctx, m.ChannelID, m.MessageID, b.String())
}

// cmdVerify handles the chat-side half of verification: with no argument it
// re-syncs an existing link, with a code it completes a pending one.
func (c *Controller) cmdVerify(ctx context.Context, m chat.MessageCreate, args string) error {
	if !c.cfg.Verification {
		return nil
	}
	if args == "" {
		return c.syncVerification(ctx, m)
	}
	return c.submitCode(ctx, m, args)
}

func (c *Controller) syncVerification(ctx context.Context, m chat.MessageCreate) error {
	gameID, err := c.verify.Sync(ctx, m.AuthorID)
	if errors.Is(err, model.ErrLinkNotFound) {
		return c.chat.Reply(ctx, m.ChannelID, m.MessageID, msgNotVerified)
	}
	if err != nil {
		return err
	}

	player, err := c.host.Player(ctx, gameID)
	if errors.Is(err, model.ErrPlayerNotFound) {
		// Linked, but not currently on the server; nothing to sync from.
		return c.chat.Reply(ctx, m.ChannelID, m.MessageID, msgNotVerified)
	}
	if err != nil {
		return err
	}

	c.updateVerified(ctx, m, player)
	return c.chat.Reply(ctx, m.ChannelID, m.MessageID, msgSynced)
}

func (c *Controller) submitCode(ctx context.Context, m chat.MessageCreate, code string) error {
	gameID, err := c.verify.Submit(ctx, code, m.AuthorID)
	if errors.Is(err, model.ErrNoSuchCode) {
		return c.chat.Reply(ctx, m.ChannelID, m.MessageID, msgNoSuchCode)
	}
	if err != nil {
		return err
	}

	name := gameID
	player, err := c.host.Player(ctx, gameID)
	if err == nil {
		name = player.Name
	}

	if err := c.chat.Reply(ctx, m.ChannelID, m.MessageID, template.Render(msgVerifiedChat, template.FormatterSet{
		{Key: "user", Value: name},
	})); err != nil {
		return err
	}

	if player != nil {
		c.updateVerified(ctx, m, player)
		c.host.Whisper(player.Name, template.Render(msgVerifiedGame, template.FormatterSet{
			{Key: "user", Value: m.AuthorName},
		}))
	}
	return nil
}

// updateVerified applies the configured chat-side effects of a verified
// link: the verified role and the nickname sync. Failures here are logged
// but never fail the verification itself.
func (c *Controller) updateVerified(ctx context.Context, m chat.MessageCreate, player *model.Player) {
	if c.cfg.VerifiedRole != "" {
		if err := c.chat.GrantRole(ctx, m.GuildID, m.AuthorID, c.cfg.VerifiedRole); err != nil {
			c.logger.Warn("granting verified role",
				slog.String("user_id", m.AuthorID),
				slog.String("error", err.Error()))
		}
	}
	if c.cfg.VerifiedNickname {
		if err := c.chat.SetNickname(ctx, m.GuildID, m.AuthorID, player.Name); err != nil {
			c.logger.Warn("syncing nickname",
				slog.String("user_id", m.AuthorID),
				slog.String("error", err.Error()))
		}
	}
}
