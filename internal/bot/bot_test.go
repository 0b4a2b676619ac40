package bot

import (
	"errors"
	"slices"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func newTestBot(modules ...Module) *Bot {
	b := NewBot(&Config{DiscordToken: "test-token"})
	b.modules = modules
	return b
}

// connectAs replaces the gateway dial with one that fills in the READY user.
func connectAs(b *Bot, calls *[]string, user *discordgo.User) {
	b.openGateway = func(s *discordgo.Session) error {
		*calls = append(*calls, "open")
		s.State.User = user
		return nil
	}
}

func TestNewBot(t *testing.T) {
	cfg := &Config{DiscordToken: "test-token"}

	b := NewBot(cfg)

	if b.config != cfg {
		t.Error("expected config to be stored")
	}
	if b.openGateway == nil {
		t.Error("expected gateway opener to default to Session.Open")
	}
}

func TestBot_Start_OpensGatewayBeforeInit(t *testing.T) {
	var calls []string
	player := &configurableFakeModule{fakeModule: fakeModule{name: "music_player", calls: &calls}}
	ping := &fakeModule{name: "ping", calls: &calls}
	b := newTestBot(player, ping)
	connectAs(b, &calls, &discordgo.User{ID: "42", Username: "sgrplay"})

	if err := b.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"music_player:load-config", "open", "music_player:init", "ping:init"}
	if !slices.Equal(calls, want) {
		t.Errorf("expected calls %v, got %v", want, calls)
	}
	if !player.loaded {
		t.Error("expected music_player config to be loaded")
	}

	for _, mod := range []*fakeModule{&player.fakeModule, ping} {
		if mod.deps.Session == nil || mod.deps.Session != b.session {
			t.Errorf("%s: expected Init to receive the bot session", mod.name)
		}
		if mod.userAtInit == nil || mod.userAtInit.ID != "42" {
			t.Errorf("%s: expected bot user to be known at Init, got %v", mod.name, mod.userAtInit)
		}
	}
}

func TestBot_Start_Failures(t *testing.T) {
	configErr := errors.New("LAVALINK_PASSWORD is required")
	openErr := errors.New("websocket: bad handshake")
	initErr := errors.New("lavalink unreachable")

	tests := []struct {
		name      string
		configErr error
		openErr   error
		user      *discordgo.User
		initErr   error
		wantErr   error
		wantCalls []string
	}{
		{
			name:      "config error skips the gateway",
			configErr: configErr,
			wantErr:   configErr,
			wantCalls: []string{"music_player:load-config"},
		},
		{
			name:      "open error skips init",
			openErr:   openErr,
			wantErr:   openErr,
			wantCalls: []string{"music_player:load-config", "open"},
		},
		{
			name:      "missing bot user skips init",
			wantCalls: []string{"music_player:load-config", "open"},
		},
		{
			name:      "init error is returned",
			user:      &discordgo.User{ID: "42"},
			initErr:   initErr,
			wantErr:   initErr,
			wantCalls: []string{"music_player:load-config", "open", "music_player:init"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []string
			player := &configurableFakeModule{
				fakeModule: fakeModule{name: "music_player", calls: &calls, initErr: tt.initErr},
				configErr:  tt.configErr,
			}
			b := newTestBot(player)
			b.openGateway = func(s *discordgo.Session) error {
				calls = append(calls, "open")
				if tt.openErr != nil {
					return tt.openErr
				}
				s.State.User = tt.user
				return nil
			}

			err := b.Start()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
			if !slices.Equal(calls, tt.wantCalls) {
				t.Errorf("expected calls %v, got %v", tt.wantCalls, calls)
			}
		})
	}
}

func TestBot_Stop_ShutsDownEveryModule(t *testing.T) {
	var calls []string
	player := &configurableFakeModule{fakeModule: fakeModule{
		name:        "music_player",
		calls:       &calls,
		shutdownErr: errors.New("redis: connection refused"),
	}}
	ping := &fakeModule{name: "ping", calls: &calls}
	b := newTestBot(player, ping)

	if err := b.Stop(); err != nil {
		t.Fatalf("expected module errors to be logged only, got %v", err)
	}

	want := []string{"music_player:shutdown", "ping:shutdown"}
	if !slices.Equal(calls, want) {
		t.Errorf("expected calls %v, got %v", want, calls)
	}
}

func TestBot_BuildHandlerMap(t *testing.T) {
	var invoked []string
	handlerFor := func(name string) InteractionHandler {
		return func(s *discordgo.Session, i *discordgo.InteractionCreate, r Responder) error {
			invoked = append(invoked, name)
			return nil
		}
	}

	player := &configurableFakeModule{fakeModule: fakeModule{
		name: "music_player",
		handlers: map[string]InteractionHandler{
			"play": handlerFor("play"),
			"skip": handlerFor("skip"),
		},
	}}
	ping := &fakeModule{
		name:     "ping",
		handlers: map[string]InteractionHandler{"ping": handlerFor("ping")},
	}
	b := newTestBot(player, ping)

	b.buildHandlerMap()

	if len(b.handlers) != 3 {
		t.Fatalf("expected 3 handlers, got %d", len(b.handlers))
	}
	for _, name := range []string{"play", "skip", "ping"} {
		handler, ok := b.handlers[name]
		if !ok {
			t.Errorf("expected %s handler to be registered", name)
			continue
		}
		_ = handler(nil, nil, &MockResponder{})
	}
	if !slices.Equal(invoked, []string{"play", "skip", "ping"}) {
		t.Errorf("expected each command to route to its own handler, got %v", invoked)
	}
}

func TestBot_CollectCommands(t *testing.T) {
	player := &configurableFakeModule{fakeModule: fakeModule{
		name: "music_player",
		commands: []*discordgo.ApplicationCommand{
			{Name: "play", Description: "Play a song from Spotify"},
			{Name: "queue", Description: "Show the queue"},
		},
	}}
	ping := &fakeModule{
		name:     "ping",
		commands: []*discordgo.ApplicationCommand{{Name: "ping", Description: "Check that the bot is alive"}},
	}
	b := newTestBot(player, ping)

	var names []string
	for _, cmd := range b.collectCommands() {
		names = append(names, cmd.Name)
	}

	if want := []string{"play", "queue", "ping"}; !slices.Equal(names, want) {
		t.Errorf("expected commands %v, got %v", want, names)
	}
}
