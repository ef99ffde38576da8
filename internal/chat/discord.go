package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/bwmarrin/discordgo"
)

// Discord is a discordgo-backed Session.
type Discord struct {
	session *discordgo.Session
	logger  *slog.Logger
	events  chan Event
}

// Ensure Discord implements Session
var _ Session = (*Discord)(nil)

// NewDiscord creates a Discord session for the given bot token. The
// connection is not opened until Open is called.
func NewDiscord(token string, logger *slog.Logger) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	// Handlers run on the gateway goroutine so event order is preserved
	// end to end.
	session.SyncEvents = true

	d := &Discord{
		session: session,
		logger:  logger,
		events:  make(chan Event, 256),
	}

	session.AddHandler(d.onReady)
	session.AddHandler(d.onMessageCreate)

	return d, nil
}

func (d *Discord) onReady(_ *discordgo.Session, _ *discordgo.Ready) {
	d.events <- Ready{}
}

func (d *Discord) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	ev := MessageCreate{
		MessageID:  m.ID,
		ChannelID:  m.ChannelID,
		GuildID:    m.GuildID,
		AuthorID:   m.Author.ID,
		AuthorName: m.Author.Username,
		Content:    m.Content,
	}

	if m.Member != nil {
		ev.Nickname = m.Member.Nick
		ev.Roles = d.memberRoles(s, m.GuildID, m.Member.Roles)
	}

	d.events <- ev
}

// memberRoles resolves role ids against the state cache and sorts the
// result by hierarchy position, highest first.
func (d *Discord) memberRoles(s *discordgo.Session, guildID string, ids []string) []Role {
	rs := make([]Role, 0, len(ids))
	for _, id := range ids {
		role, err := s.State.Role(guildID, id)
		if err != nil {
			d.logger.Warn("role missing from cache",
				slog.String("guild_id", guildID),
				slog.String("role_id", id))
			continue
		}
		rs = append(rs, Role{
			ID:       role.ID,
			Name:     role.Name,
			Color:    role.Color,
			Position: role.Position,
		})
	}
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].Position > rs[j].Position
	})
	return rs
}

func (d *Discord) Open(ctx context.Context) error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("opening discord gateway: %w", err)
	}
	return nil
}

func (d *Discord) Close() error {
	err := d.session.Close()
	close(d.events)
	return err
}

func (d *Discord) Events() <-chan Event {
	return d.events
}

func (d *Discord) Me() string {
	if d.session.State.User == nil {
		return ""
	}
	return d.session.State.User.ID
}

func (d *Discord) SendMessage(ctx context.Context, channelID, content string) error {
	_, err := d.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return err
}

func (d *Discord) Reply(ctx context.Context, channelID, messageID, content string) error {
	ref := &discordgo.MessageReference{
		MessageID: messageID,
		ChannelID: channelID,
	}
	_, err := d.session.ChannelMessageSendReply(channelID, content, ref, discordgo.WithContext(ctx))
	return err
}

func (d *Discord) RenameChannel(ctx context.Context, channelID, name string) error {
	_, err := d.session.ChannelEdit(channelID, &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx))
	return err
}

func (d *Discord) SetNickname(ctx context.Context, guildID, userID, nick string) error {
	return d.session.GuildMemberNickname(guildID, userID, nick, discordgo.WithContext(ctx))
}

func (d *Discord) GrantRole(ctx context.Context, guildID, userID, roleID string) error {
	return d.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
}
