package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/application/usecases"
)

// autocompleteTimeout keeps suggestions within Discord's response window.
const autocompleteTimeout = 2500 * time.Millisecond

// minQueryLength is the shortest query that is searched.
const minQueryLength = 2

// AutocompleteHandler handles autocomplete requests.
type AutocompleteHandler struct {
	autocomplete *usecases.AutocompleteService
}

// NewAutocompleteHandler creates a new AutocompleteHandler.
func NewAutocompleteHandler(autocomplete *usecases.AutocompleteService) *AutocompleteHandler {
	return &AutocompleteHandler{autocomplete: autocomplete}
}

// HandlePlay handles autocomplete for play command.
func (h *AutocompleteHandler) HandlePlay(s *discordgo.Session, i *discordgo.InteractionCreate) {
	respondChoices(s, i, h.playChoices(i.ApplicationCommandData().Options))
}

func (h *AutocompleteHandler) playChoices(
	options []*discordgo.ApplicationCommandInteractionDataOption,
) []*discordgo.ApplicationCommandOptionChoice {
	// Get the current query value
	var query string
	for _, opt := range options {
		if opt.Name == "query" && opt.Focused {
			query = opt.StringValue()
			break
		}
	}

	// Don't search for very short queries
	if len([]rune(query)) < minQueryLength {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), autocompleteTimeout)
	defer cancel()

	output, err := h.autocomplete.SearchTracks(ctx, usecases.SearchTracksInput{Query: query})
	if err != nil {
		slog.Debug("autocomplete search failed", "query", query, "error", err)
		return nil
	}

	return trackChoices(output.Tracks)
}

// HandleRemove handles autocomplete for remove command.
func (h *AutocompleteHandler) HandleRemove(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		slog.Warn("failed to parse guild ID in autocomplete", "error", err, "guildID", i.GuildID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), autocompleteTimeout)
	defer cancel()

	output, err := h.autocomplete.GetQueueTracks(ctx, usecases.GetQueueTracksInput{GuildID: guildID})
	if err != nil {
		slog.Debug("autocomplete queue lookup failed", "guild", guildID, "error", err)
		respondChoices(s, i, nil)
		return
	}

	respondChoices(s, i, positionChoices(output.Tracks))
}

// trackChoices lists search results, valued by track id so /play resolves
// exactly the chosen track.
func trackChoices(tracks []*usecases.SimpleMetadata) []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(tracks))
	for _, track := range tracks {
		explicit := ""
		if track.Explicit {
			explicit = "[E] "
		}
		name := fmt.Sprintf("%s%s - %s", explicit, track.Name, track.ArtistsString())
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(fmt.Sprintf("%s [%s]", truncate(name, 90), track.FormattedDuration()), 100),
			Value: string(track.ID),
		})
	}
	return choices
}

// positionChoices lists queued tracks by their 1-indexed position.
func positionChoices(tracks []*usecases.Track) []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(tracks))
	for idx, track := range tracks {
		position := idx + 1
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  fmt.Sprintf("%d. %s", position, truncate(track.Title(), 90)),
			Value: position,
		})
	}
	return choices
}

func respondChoices(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	choices []*discordgo.ApplicationCommandOptionChoice,
) {
	if choices == nil {
		choices = []*discordgo.ApplicationCommandOptionChoice{}
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	})
	if err != nil {
		slog.Debug("failed to respond to autocomplete", "error", err)
	}
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
