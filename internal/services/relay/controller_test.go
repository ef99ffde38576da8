package relay

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/voximity/omegga-discord-lite/internal/chat"
	"github.com/voximity/omegga-discord-lite/internal/config"
	"github.com/voximity/omegga-discord-lite/internal/dependencies/mocks"
	"github.com/voximity/omegga-discord-lite/internal/host"
	"github.com/voximity/omegga-discord-lite/internal/model"
	"github.com/voximity/omegga-discord-lite/internal/services/verify"
	"github.com/voximity/omegga-discord-lite/internal/storage/memory"
	"github.com/voximity/omegga-discord-lite/internal/testutil"
)

// fakeHost records outbound host calls and serves a canned roster.
type fakeHost struct {
	mu sync.Mutex

	logs       []string
	errors     []string
	broadcasts []string
	whispers   [][2]string

	players []model.Player
	roles   map[string][]string

	initAcks [][]string
	stopAcks int
}

var _ Host = (*fakeHost)(nil)

func newFakeHost() *fakeHost {
	return &fakeHost{roles: make(map[string][]string)}
}

func (f *fakeHost) Log(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, text)
}

func (f *fakeHost) Error(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, text)
}

func (f *fakeHost) Broadcast(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, text)
}

func (f *fakeHost) Whisper(player, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.whispers = append(f.whispers, [2]string{player, text})
}

func (f *fakeHost) Players(ctx context.Context) ([]model.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.players, nil
}

func (f *fakeHost) Player(ctx context.Context, target string) (*model.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.players {
		if p.Name == target || p.ID == target {
			player := p
			return &player, nil
		}
	}
	return nil, model.ErrPlayerNotFound
}

func (f *fakeHost) PlayerRoles(ctx context.Context, target string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roles[target], nil
}

func (f *fakeHost) RespondInit(id json.RawMessage, commands []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initAcks = append(f.initAcks, commands)
	return nil
}

func (f *fakeHost) RespondStop(id json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopAcks++
	return nil
}

// fakeChat records outbound chat actions and feeds events through a channel.
type fakeChat struct {
	mu sync.Mutex

	me     string
	events chan chat.Event
	closed bool

	sent    []string
	replies [][2]string // message id, content
	renames []string
	nicks   [][2]string // user id, nick
	granted [][2]string // user id, role id
}

var _ chat.Session = (*fakeChat)(nil)

func newFakeChat() *fakeChat {
	return &fakeChat{me: "bot", events: make(chan chat.Event, 8)}
}

func (f *fakeChat) Open(ctx context.Context) error { return nil }

func (f *fakeChat) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

func (f *fakeChat) Events() <-chan chat.Event { return f.events }

func (f *fakeChat) Me() string { return f.me }

func (f *fakeChat) SendMessage(ctx context.Context, channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, content)
	return nil
}

func (f *fakeChat) Reply(ctx context.Context, channelID, messageID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, [2]string{messageID, content})
	return nil
}

func (f *fakeChat) RenameChannel(ctx context.Context, channelID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renames = append(f.renames, name)
	return nil
}

func (f *fakeChat) SetNickname(ctx context.Context, guildID, userID, nick string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nicks = append(f.nicks, [2]string{userID, nick})
	return nil
}

func (f *fakeChat) GrantRole(ctx context.Context, guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.granted = append(f.granted, [2]string{userID, roleID})
	return nil
}

func rawParams(t interface{ Fatalf(string, ...any) }, v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	return raw
}

type ControllerSuite struct {
	suite.Suite
	cfg        *config.Config
	hostFake   *fakeHost
	chatFake   *fakeChat
	storage    *memory.Storage
	random     *mocks.MockRandom
	verify     *verify.Service
	hostEvents chan host.Message
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.cfg = config.Default()
	s.cfg.Token = "tok"
	s.cfg.ChannelID = "chan1"
	s.cfg.DiscordMessageFormat = "[$role] $user: $message"
	s.cfg.GameMessageFormat = `<color="$color">[Discord]</> $role$user: $message`
	s.cfg.JoinMessageFormat = "$user joined"
	s.cfg.LeaveMessageFormat = "$user left"
	s.cfg.ServerStartFormat = "map: $map"

	s.hostFake = newFakeHost()
	s.chatFake = newFakeChat()
	s.storage = memory.New()
	s.random = mocks.NewMockRandom()
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.verify = verify.New(s.storage, clk, s.random)
	s.hostEvents = make(chan host.Message, 8)
	s.ctx = context.Background()

	s.rebuild()
}

// rebuild recreates the controller after config tweaks in a test.
func (s *ControllerSuite) rebuild() {
	s.controller = New(s.cfg, testutil.NopLogger(), s.hostFake, s.hostEvents, s.chatFake, s.verify)
}

func (s *ControllerSuite) message(content string) chat.MessageCreate {
	return chat.MessageCreate{
		MessageID:  "m1",
		ChannelID:  "chan1",
		GuildID:    "g1",
		AuthorID:   "d1",
		AuthorName: "Alice",
		Content:    content,
	}
}

// Host loop events

func (s *ControllerSuite) TestInitHandshakeDeclaresCommands() {
	s.controller.dispatchHostEvent(s.ctx, host.Message{Method: "init", ID: json.RawMessage(`1`)})

	s.Require().Len(s.hostFake.initAcks, 1)
	s.Equal([]string{"discord"}, s.hostFake.initAcks[0])
}

func (s *ControllerSuite) TestStopIsAcknowledged() {
	s.controller.dispatchHostEvent(s.ctx, host.Message{Method: "stop", ID: json.RawMessage(`2`)})
	s.Equal(1, s.hostFake.stopAcks)
}

func (s *ControllerSuite) TestServerStartAnnouncesMap() {
	s.controller.dispatchHostEvent(s.ctx, host.Message{
		Method: "start",
		Params: rawParams(s.T(), []map[string]string{{"map": "Plate"}}),
	})

	s.Require().Len(s.chatFake.sent, 1)
	s.Equal("map: Plate", s.chatFake.sent[0])
}

func (s *ControllerSuite) TestGameChatRelayedWithEmptyRoleTable() {
	s.controller.dispatchHostEvent(s.ctx, host.Message{
		Method: "chat",
		Params: rawParams(s.T(), []string{"Steve", "hello"}),
	})

	s.Require().Len(s.chatFake.sent, 1)
	s.Equal("[] Steve: hello", s.chatFake.sent[0])
}

func (s *ControllerSuite) TestGameChatResolvesRoleTag() {
	s.cfg.GameRoles = []string{"Admin:[A]"}
	s.rebuild()
	s.hostFake.roles["Steve"] = []string{"Admin"}

	s.controller.dispatchHostEvent(s.ctx, host.Message{
		Method: "chat",
		Params: rawParams(s.T(), []string{"Steve", "hello"}),
	})

	s.Require().Len(s.chatFake.sent, 1)
	s.Equal("[[A]] Steve: hello", s.chatFake.sent[0])
}

func (s *ControllerSuite) TestMalformedHostParamsAreSkipped() {
	s.controller.dispatchHostEvent(s.ctx, host.Message{
		Method: "chat",
		Params: json.RawMessage(`{"not": "an array"}`),
	})
	s.Empty(s.chatFake.sent)
}

func (s *ControllerSuite) TestJoinAnnouncedAndChannelRenamed() {
	s.cfg.ChannelNameOnlineFormat = "online-$n"
	s.rebuild()
	s.hostFake.players = []model.Player{{ID: "p1", Name: "Steve"}}

	s.controller.dispatchHostEvent(s.ctx, host.Message{
		Method: "join",
		Params: rawParams(s.T(), []model.Player{{ID: "p1", Name: "Steve"}}),
	})

	s.Require().Len(s.chatFake.sent, 1)
	s.Equal("Steve joined", s.chatFake.sent[0])
	s.Require().Len(s.chatFake.renames, 1)
	s.Equal("online-1", s.chatFake.renames[0])
}

func (s *ControllerSuite) TestNoRenameWithoutOnlineFormat() {
	s.controller.dispatchHostEvent(s.ctx, host.Message{
		Method: "join",
		Params: rawParams(s.T(), []model.Player{{ID: "p1", Name: "Steve"}}),
	})
	s.Empty(s.chatFake.renames)
}

func (s *ControllerSuite) TestLeaveAbandonsPendingVerification() {
	s.random.QueueString("abc123")
	s.hostFake.players = []model.Player{{ID: "p1", Name: "Steve"}}
	s.controller.dispatchHostEvent(s.ctx, host.Message{
		Method: "cmd:discord",
		Params: rawParams(s.T(), []string{"Steve", "verify"}),
	})
	s.Require().Equal(1, s.verify.PendingCount())

	s.controller.dispatchHostEvent(s.ctx, host.Message{
		Method: "leave",
		Params: rawParams(s.T(), []model.Player{{ID: "p1", Name: "Steve"}}),
	})

	s.Equal(0, s.verify.PendingCount())
	s.Require().Len(s.chatFake.sent, 1)
	s.Equal("Steve left", s.chatFake.sent[0])
}

// In-game /discord command

func (s *ControllerSuite) TestGameVerifyWhispersCode() {
	s.random.QueueString("abc123")
	s.hostFake.players = []model.Player{{ID: "p1", Name: "Steve"}}

	s.controller.dispatchHostEvent(s.ctx, host.Message{
		Method: "cmd:discord",
		Params: rawParams(s.T(), []string{"Steve", "verify"}),
	})

	s.Require().Len(s.hostFake.whispers, 1)
	s.Equal("Steve", s.hostFake.whispers[0][0])
	s.Equal("To verify, send <code>!verify abc123</> in the game channel.", s.hostFake.whispers[0][1])
}

func (s *ControllerSuite) TestGameVerifyRepeatsExistingCode() {
	s.random.QueueString("abc123", "oops42")
	s.hostFake.players = []model.Player{{ID: "p1", Name: "Steve"}}

	params := rawParams(s.T(), []string{"Steve", "verify"})
	s.controller.dispatchHostEvent(s.ctx, host.Message{Method: "cmd:discord", Params: params})
	s.controller.dispatchHostEvent(s.ctx, host.Message{Method: "cmd:discord", Params: params})

	s.Require().Len(s.hostFake.whispers, 2)
	s.Contains(s.hostFake.whispers[1][1], "already initiated")
	s.Contains(s.hostFake.whispers[1][1], "abc123")
}

func (s *ControllerSuite) TestGameVerifyAlreadyVerified() {
	s.Require().NoError(s.storage.SaveLink(s.ctx, "p1", "d1"))
	s.hostFake.players = []model.Player{{ID: "p1", Name: "Steve"}}

	s.controller.dispatchHostEvent(s.ctx, host.Message{
		Method: "cmd:discord",
		Params: rawParams(s.T(), []string{"Steve", "verify"}),
	})

	s.Require().Len(s.hostFake.whispers, 1)
	s.Contains(s.hostFake.whispers[0][1], "already verified")
}

func (s *ControllerSuite) TestGameCommandWithoutSubcommand() {
	s.controller.dispatchHostEvent(s.ctx, host.Message{
		Method: "cmd:discord",
		Params: rawParams(s.T(), []string{"Steve"}),
	})

	s.Require().Len(s.hostFake.whispers, 1)
	s.Contains(s.hostFake.whispers[0][1], "specify a command")
}

func (s *ControllerSuite) TestGameCommandUnknownSubcommand() {
	s.hostFake.players = []model.Player{{ID: "p1", Name: "Steve"}}

	s.controller.dispatchHostEvent(s.ctx, host.Message{
		Method: "cmd:discord",
		Params: rawParams(s.T(), []string{"Steve", "dance"}),
	})

	s.Require().Len(s.hostFake.whispers, 1)
	s.Contains(s.hostFake.whispers[0][1], "<code>/discord dance</>")
}

func (s *ControllerSuite) TestGameWipeRequiresHost() {
	s.Require().NoError(s.storage.SaveLink(s.ctx, "p1", "d1"))
	s.hostFake.players = []model.Player{{ID: "p1", Name: "Steve", Host: false}}

	s.controller.dispatchHostEvent(s.ctx, host.Message{
		Method: "cmd:discord",
		Params: rawParams(s.T(), []string{"Steve", "wipe"}),
	})

	s.Empty(s.hostFake.broadcasts)
	_, err := s.storage.ChatID(s.ctx, "p1")
	s.NoError(err)
}

func (s *ControllerSuite) TestGameWipeByHostClearsStore() {
	s.Require().NoError(s.storage.SaveLink(s.ctx, "p1", "d1"))
	s.hostFake.players = []model.Player{{ID: "p1", Name: "Steve", Host: true}}

	s.controller.dispatchHostEvent(s.ctx, host.Message{
		Method: "cmd:discord",
		Params: rawParams(s.T(), []string{"Steve", "wipe"}),
	})

	s.Require().Len(s.hostFake.broadcasts, 1)
	s.Equal("Verification store has been wiped.", s.hostFake.broadcasts[0])
	_, err := s.storage.ChatID(s.ctx, "p1")
	s.ErrorIs(err, model.ErrLinkNotFound)
}

// Chat loop events

func (s *ControllerSuite) TestReadyLogsToHost() {
	s.controller.dispatchChatEvent(s.ctx, chat.Ready{})

	s.Require().Len(s.hostFake.logs, 1)
	s.Equal("Discord client is ready.", s.hostFake.logs[0])
}

func (s *ControllerSuite) TestOwnMessagesIgnored() {
	m := s.message("hello")
	m.AuthorID = "bot"

	s.controller.dispatchChatEvent(s.ctx, m)

	s.Empty(s.hostFake.broadcasts)
}

func (s *ControllerSuite) TestOtherChannelsIgnored() {
	m := s.message("hello")
	m.ChannelID = "elsewhere"

	s.controller.dispatchChatEvent(s.ctx, m)

	s.Empty(s.hostFake.broadcasts)
}

func (s *ControllerSuite) TestChatMessageRelayedWithMarkup() {
	m := s.message("**hi** and _there_")
	m.Roles = []chat.Role{{Name: "Regular", Color: 0xff0000, Position: 3}}

	s.controller.dispatchChatEvent(s.ctx, m)

	s.Require().Len(s.hostFake.broadcasts, 1)
	s.Equal(`<color="ff0000">[Discord]</> Alice: <b>hi</> and <i>there</>`, s.hostFake.broadcasts[0])

	// A plain-text mirror goes to the host console.
	s.Require().Len(s.hostFake.logs, 1)
	s.Equal("<Alice> <b>hi</> and <i>there</>", s.hostFake.logs[0])
}

func (s *ControllerSuite) TestChatMessagePrefersNickname() {
	m := s.message("hi")
	m.Nickname = "Ali"

	s.controller.dispatchChatEvent(s.ctx, m)

	s.Require().Len(s.hostFake.broadcasts, 1)
	s.Contains(s.hostFake.broadcasts[0], "Ali: hi")
}

func (s *ControllerSuite) TestChatDefaultRoleColor() {
	s.controller.dispatchChatEvent(s.ctx, s.message("hi"))

	s.Require().Len(s.hostFake.broadcasts, 1)
	s.Contains(s.hostFake.broadcasts[0], `<color="aaaaaa">`)
}

func (s *ControllerSuite) TestPlayersCommandEmptyRoster() {
	s.controller.dispatchChatEvent(s.ctx, s.message("!players"))

	s.Require().Len(s.chatFake.replies, 1)
	s.Equal("**There are no players online.**", s.chatFake.replies[0][1])

	// The command message still relays in-game.
	s.Require().Len(s.hostFake.broadcasts, 1)
	s.Contains(s.hostFake.broadcasts[0], "!players")
}

func (s *ControllerSuite) TestPlayersCommandListsRosterWithTags() {
	s.cfg.GameRoles = []string{"Admin:[A]"}
	s.rebuild()
	s.hostFake.players = []model.Player{
		{ID: "p1", Name: "Steve"},
		{ID: "p2", Name: "Alex"},
	}
	s.hostFake.roles["Steve"] = []string{"Admin"}

	s.controller.dispatchChatEvent(s.ctx, s.message("!players"))

	s.Require().Len(s.chatFake.replies, 1)
	s.Equal("**There are 2 players online.**\n[A] Steve\nAlex\n", s.chatFake.replies[0][1])
}

func (s *ControllerSuite) TestPlayersCommandSingularPhrasing() {
	s.hostFake.players = []model.Player{{ID: "p1", Name: "Steve"}}

	s.controller.dispatchChatEvent(s.ctx, s.message("!players"))

	s.Require().Len(s.chatFake.replies, 1)
	s.Equal("**There is 1 player online.**\nSteve\n", s.chatFake.replies[0][1])
}

func (s *ControllerSuite) TestVerifyUnknownCodeReplies() {
	s.controller.dispatchChatEvent(s.ctx, s.message("!verify nope99"))

	s.Require().Len(s.chatFake.replies, 1)
	s.Equal("**There is no pending verification with that code!**", s.chatFake.replies[0][1])
}

func (s *ControllerSuite) TestVerifySyncWithoutLinkReplies() {
	s.controller.dispatchChatEvent(s.ctx, s.message("!verify"))

	s.Require().Len(s.chatFake.replies, 1)
	s.Contains(s.chatFake.replies[0][1], "You are not verified!")
}

func (s *ControllerSuite) TestVerifyDisabledByConfig() {
	s.cfg.Verification = false
	s.rebuild()

	s.controller.dispatchChatEvent(s.ctx, s.message("!verify nope99"))

	s.Empty(s.chatFake.replies)
	// But the message still relays.
	s.Require().Len(s.hostFake.broadcasts, 1)
}

func (s *ControllerSuite) TestVerifyEndToEnd() {
	s.cfg.VerifiedRole = "role9"
	s.cfg.VerifiedNickname = true
	s.rebuild()
	s.random.QueueString("abc123")
	s.hostFake.players = []model.Player{{ID: "p1", Name: "Steve"}}

	// In-game half: request a code.
	s.controller.dispatchHostEvent(s.ctx, host.Message{
		Method: "cmd:discord",
		Params: rawParams(s.T(), []string{"Steve", "verify"}),
	})
	s.Require().Len(s.hostFake.whispers, 1)

	// Chat half: submit the code.
	s.controller.dispatchChatEvent(s.ctx, s.message("!verify abc123"))

	// Link persisted both ways.
	chatID, err := s.storage.ChatID(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal("d1", chatID)

	// Confirmed on the chat side...
	s.Require().Len(s.chatFake.replies, 1)
	s.Equal("**Success!** You've been verified as **Steve** in Brickadia.", s.chatFake.replies[0][1])

	// ...with role grant and nickname sync...
	s.Require().Len(s.chatFake.granted, 1)
	s.Equal([2]string{"d1", "role9"}, s.chatFake.granted[0])
	s.Require().Len(s.chatFake.nicks, 1)
	s.Equal([2]string{"d1", "Steve"}, s.chatFake.nicks[0])

	// ...and confirmed in-game.
	s.Require().Len(s.hostFake.whispers, 2)
	s.Equal("Steve", s.hostFake.whispers[1][0])
	s.Contains(s.hostFake.whispers[1][1], "verified as <b>Alice</> in Discord")

	// A re-sync now succeeds.
	s.controller.dispatchChatEvent(s.ctx, s.message("!verify"))
	s.Require().Len(s.chatFake.replies, 2)
	s.Equal("**Synced verification with game.**", s.chatFake.replies[1][1])
}

// Loop lifecycle

func (s *ControllerSuite) TestLoopsStopWhenSourcesClose() {
	var wg sync.WaitGroup
	wg.Add(2)

	var hostErr, chatErr error
	go func() {
		defer wg.Done()
		hostErr = s.controller.RunHostLoop(s.ctx)
	}()
	go func() {
		defer wg.Done()
		chatErr = s.controller.RunChatLoop(s.ctx)
	}()

	s.hostEvents <- host.Message{Method: "init", ID: json.RawMessage(`1`)}
	close(s.hostEvents)
	s.chatFake.events <- chat.Ready{}
	s.Require().NoError(s.chatFake.Close())

	wg.Wait()
	s.NoError(hostErr)
	s.NoError(chatErr)
	s.Require().Len(s.hostFake.initAcks, 1)
}
