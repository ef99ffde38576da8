// Package chat abstracts the chat-service gateway. The relay consumes
// decoded events and issues actions through the Session interface; the
// discordgo adapter in this package is the production implementation.
package chat

import "context"

// Role is a chat-side role, ordered by hierarchy position.
type Role struct {
	ID       string
	Name     string
	Color    int
	Position int
}

// Event is a decoded gateway event.
type Event interface {
	isEvent()
}

// Ready signals the gateway connection is established and caches are primed.
type Ready struct{}

func (Ready) isEvent() {}

// MessageCreate is a new message in some channel. Roles are sorted by
// hierarchy position, highest first.
type MessageCreate struct {
	MessageID  string
	ChannelID  string
	GuildID    string
	AuthorID   string
	AuthorName string
	Nickname   string
	Content    string
	Roles      []Role
}

func (MessageCreate) isEvent() {}

// DisplayName prefers the author's guild nickname over the raw username.
func (m MessageCreate) DisplayName() string {
	if m.Nickname != "" {
		return m.Nickname
	}
	return m.AuthorName
}

// Session is the action surface of the chat service.
type Session interface {
	// Open connects to the gateway. Events are delivered until Close.
	Open(ctx context.Context) error

	// Close tears the connection down and closes the event channel.
	Close() error

	// Events delivers decoded gateway events in arrival order.
	Events() <-chan Event

	// Me returns this connection's own user id, for feedback-loop
	// suppression. Valid once Open has succeeded.
	Me() string

	// SendMessage posts content to a channel.
	SendMessage(ctx context.Context, channelID, content string) error

	// Reply posts content to a channel as a reply to an existing message.
	Reply(ctx context.Context, channelID, messageID, content string) error

	// RenameChannel updates a channel's displayed name.
	RenameChannel(ctx context.Context, channelID, name string) error

	// SetNickname updates a member's guild nickname.
	SetNickname(ctx context.Context, guildID, userID, nick string) error

	// GrantRole adds a role to a guild member.
	GrantRole(ctx context.Context, guildID, userID, roleID string) error
}
