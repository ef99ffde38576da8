package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/voximity/omegga-discord-lite/internal/model"
)

// RPC method names understood by the host.
const (
	methodLog            = "log"
	methodError          = "error"
	methodBroadcast      = "broadcast"
	methodWhisper        = "whisper"
	methodGetPlayers     = "getPlayers"
	methodGetPlayer      = "getPlayer"
	methodGetPlayerRoles = "getPlayerRoles"
	methodStoreGet       = "store.get"
	methodStoreSet       = "store.set"
	methodStoreWipe      = "store.wipe"
)

// Client drives the host RPC connection: it correlates responses to calls
// we issue and hands everything else (lifecycle requests and game
// notifications) to the consumer via Notifications.
type Client struct {
	transport *Transport
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[string]chan *Message

	notifs chan Message
}

// NewClient creates a client over the given streams. Call Run to start the
// read loop.
func NewClient(r io.Reader, w io.Writer, logger *slog.Logger) *Client {
	return &Client{
		transport: NewTransport(r, w),
		logger:    logger,
		pending:   make(map[string]chan *Message),
		notifs:    make(chan Message, 16),
	}
}

// Notifications delivers host-initiated requests and notifications in
// arrival order. The channel is closed when the read loop exits.
func (c *Client) Notifications() <-chan Message {
	return c.notifs
}

// Run reads messages until the context is cancelled or the stream ends.
// Malformed lines are logged and skipped; a stream failure is returned.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.notifs)
	for {
		msg, err := c.transport.Read()
		if err != nil {
			if errors.Is(err, ErrMalformed) {
				c.logger.Warn("skipping malformed host message", slog.String("error", err.Error()))
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if msg.IsResponse() {
			c.deliver(msg)
			continue
		}

		select {
		case c.notifs <- *msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) deliver(msg *Message) {
	var id string
	if err := json.Unmarshal(msg.ID, &id); err != nil {
		c.logger.Warn("response with unrecognized id shape", slog.String("id", string(msg.ID)))
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()

	if !ok {
		c.logger.Warn("response for unknown call", slog.String("id", id))
		return
	}
	ch <- msg
}

// call issues a request and waits for its response.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := uuid.NewString()
	req, err := newRequest(id, method, params)
	if err != nil {
		return nil, err
	}

	ch := make(chan *Message, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.transport.Write(req); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, err
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// notify sends a fire-and-forget message. Write failures are logged and
// dropped; nothing retries.
func (c *Client) notify(method string, params any) {
	msg, err := newNotification(method, params)
	if err == nil {
		err = c.transport.Write(msg)
	}
	if err != nil {
		c.logger.Error("host notify failed",
			slog.String("method", method),
			slog.String("error", err.Error()))
	}
}

// Log writes a line to the host's console.
func (c *Client) Log(text string) {
	c.notify(methodLog, []string{text})
}

// Error writes an error line to the host's console.
func (c *Client) Error(text string) {
	c.notify(methodError, []string{text})
}

// Broadcast sends a chat message to every player in-game.
func (c *Client) Broadcast(text string) {
	c.notify(methodBroadcast, []string{text})
}

// Whisper sends a private chat message to one player.
func (c *Client) Whisper(player, text string) {
	c.notify(methodWhisper, []string{player, text})
}

// Players returns the current roster.
func (c *Client) Players(ctx context.Context) ([]model.Player, error) {
	raw, err := c.call(ctx, methodGetPlayers, nil)
	if err != nil {
		return nil, err
	}
	var players []model.Player
	if err := json.Unmarshal(raw, &players); err != nil {
		return nil, fmt.Errorf("decoding roster: %w", err)
	}
	return players, nil
}

// Player looks up one player by name or id. Returns model.ErrPlayerNotFound
// if the host reports no such player.
func (c *Client) Player(ctx context.Context, target string) (*model.Player, error) {
	raw, err := c.call(ctx, methodGetPlayer, []string{target})
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, model.ErrPlayerNotFound
	}
	var player model.Player
	if err := json.Unmarshal(raw, &player); err != nil {
		return nil, fmt.Errorf("decoding player: %w", err)
	}
	return &player, nil
}

// PlayerRoles returns a player's role names, already ordered by the host's
// own priority. Absent players resolve to an empty list.
func (c *Client) PlayerRoles(ctx context.Context, target string) ([]string, error) {
	raw, err := c.call(ctx, methodGetPlayerRoles, []string{target})
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var rs []string
	if err := json.Unmarshal(raw, &rs); err != nil {
		return nil, fmt.Errorf("decoding roles: %w", err)
	}
	return rs, nil
}

// StoreGet reads a value from the host's key-value store. A missing key
// yields a nil RawMessage and no error.
func (c *Client) StoreGet(ctx context.Context, key string) (json.RawMessage, error) {
	raw, err := c.call(ctx, methodStoreGet, []string{key})
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return raw, nil
}

// StoreSet writes a value to the host's key-value store.
func (c *Client) StoreSet(key string, value any) {
	c.notify(methodStoreSet, []any{key, value})
}

// StoreWipe clears the host's key-value store.
func (c *Client) StoreWipe() {
	c.notify(methodStoreWipe, nil)
}

// RespondInit acknowledges the host's init request, declaring the chat
// commands this plugin registers. Without this ack the host will not route
// commands to the plugin.
func (c *Client) RespondInit(id json.RawMessage, commands []string) error {
	msg, err := newResponse(id, map[string]any{"registeredCommands": commands})
	if err != nil {
		return err
	}
	return c.transport.Write(msg)
}

// RespondStop acknowledges the host's stop request.
func (c *Client) RespondStop(id json.RawMessage) error {
	msg, err := newResponse(id, nil)
	if err != nil {
		return err
	}
	return c.transport.Write(msg)
}
