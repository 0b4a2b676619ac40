package presentation

import (
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/sgrplay/internal/bot"
	"github.com/sglre6355/sgrplay/internal/modules/ping/application"
)

type fixedLatency time.Duration

func (f fixedLatency) HeartbeatLatency() time.Duration { return time.Duration(f) }

func TestPingHandler_ReturnsMessage(t *testing.T) {
	handler := NewPingHandler(application.NewPingInteractor(fixedLatency(12 * time.Millisecond)))
	responder := &bot.MockResponder{}

	if err := handler.Handle(nil, nil, responder); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if responder.LastResponse == nil {
		t.Fatal("expected response, got nil")
	}
	if responder.LastResponse.Type != discordgo.InteractionResponseChannelMessageWithSource {
		t.Errorf("expected response type %d, got %d",
			discordgo.InteractionResponseChannelMessageWithSource,
			responder.LastResponse.Type)
	}

	data := responder.LastResponse.Data
	if data == nil {
		t.Fatal("expected response data, got nil")
	}
	if data.Content != "Pong! (12ms)" {
		t.Errorf("expected content %q, got %q", "Pong! (12ms)", data.Content)
	}
	if data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Error("expected reply to be ephemeral")
	}
}

func TestPingHandler_ResponderError(t *testing.T) {
	handler := NewPingHandler(application.NewPingInteractor(nil))
	expectedErr := errors.New("responder failed")
	responder := &bot.MockResponder{Err: expectedErr}

	err := handler.Handle(nil, nil, responder)
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
}
