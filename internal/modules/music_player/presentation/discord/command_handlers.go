package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrplay/internal/bot"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/application/usecases"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorError   = 0xE74C3C
	colorSpotify = 0x1DB954
)

// playTimeout bounds a /play request, including the wait for the voice
// connection to become ready.
const playTimeout = 30 * time.Second

// CommandHandlers holds all the command handlers.
type CommandHandlers struct {
	playback *usecases.PlaybackService
}

// NewCommandHandlers creates new CommandHandlers.
func NewCommandHandlers(playback *usecases.PlaybackService) *CommandHandlers {
	return &CommandHandlers{playback: playback}
}

// HandlePlay handles the /play command.
func (h *CommandHandlers) HandlePlay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if i.Member == nil || i.Member.User == nil {
		return respondError(r, "Invalid user")
	}
	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return respondError(r, "Invalid user")
	}

	notificationChannelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return respondError(r, "Invalid notification channel")
	}

	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "query" {
			query = opt.StringValue()
		}
	}

	// Joining can take up to the ready timeout
	if err := r.Defer(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), playTimeout)
	defer cancel()

	output, err := h.playback.Play(ctx, usecases.PlayInput{
		GuildID:               guildID,
		UserID:                userID,
		NotificationChannelID: notificationChannelID,
		Query:                 query,
	})
	if err != nil {
		return editError(r, errorMessage(err))
	}

	return r.Edit(&discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{
			{
				Description: queuedDescription(output),
				Color:       colorSuccess,
			},
		},
	})
}

// HandleSkip handles the /skip command.
func (h *CommandHandlers) HandleSkip(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	notificationChannelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return respondError(r, "Invalid notification channel")
	}

	output, err := h.playback.Skip(ctx, usecases.SkipInput{
		GuildID:               guildID,
		NotificationChannelID: notificationChannelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf("Skipped %s.", trackLink(output.SkippedTrack)))
}

// HandleStop handles the /stop command.
func (h *CommandHandlers) HandleStop(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if err := h.playback.Stop(ctx, usecases.StopInput{GuildID: guildID}); err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, "Stopped playback.")
}

// HandleLeave handles the /leave command.
func (h *CommandHandlers) HandleLeave(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if err := h.playback.Leave(ctx, usecases.StopInput{GuildID: guildID}); err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, "Disconnected.")
}

// HandleNowPlaying handles the /np command.
func (h *CommandHandlers) HandleNowPlaying(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	output, err := h.playback.NowPlaying(ctx, usecases.NowPlayingInput{GuildID: guildID})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{nowPlayingEmbed(output)},
		},
	})
}

// HandleQueue handles the /queue command.
func (h *CommandHandlers) HandleQueue(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	page := 1
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "page" {
			page = int(opt.IntValue())
		}
	}

	output, err := h.playback.QueueList(ctx, usecases.QueueListInput{
		GuildID: guildID,
		Page:    page,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{queueEmbed(output)},
		},
	})
}

// HandleRemove handles the /remove command.
func (h *CommandHandlers) HandleRemove(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	var position int
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "position" {
			position = int(opt.IntValue())
		}
	}

	output, err := h.playback.QueueRemove(ctx, usecases.QueueRemoveInput{
		GuildID:  guildID,
		Position: position,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf("Removed %s.", trackLink(output.RemovedTrack)))
}

// HandleClear handles the /clear command.
func (h *CommandHandlers) HandleClear(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	output, err := h.playback.QueueClear(ctx, usecases.QueueClearInput{GuildID: guildID})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf("Cleared %s from the queue.", plural(output.ClearedCount, "track", "tracks")))
}

// HandleShuffle handles the /shuffle command.
func (h *CommandHandlers) HandleShuffle(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	output, err := h.playback.QueueShuffle(ctx, usecases.QueueShuffleInput{GuildID: guildID})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf("Shuffled %s.", plural(output.TrackCount, "track", "tracks")))
}

// errorMessage picks the user-facing text for a use case error. Unexpected
// errors are logged and hidden behind a generic message.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, usecases.ErrNotConnected):
		return "Not currently playing anything."
	case errors.Is(err, usecases.ErrUserNotInVoice):
		return "Join a voice channel and then try that again!"
	case errors.Is(err, usecases.ErrNotPlaying):
		return "Nothing is playing right now."
	case errors.Is(err, usecases.ErrQueueEmpty):
		return "The queue is empty."
	case errors.Is(err, usecases.ErrInvalidPosition):
		return "There is no track at that position."
	case errors.Is(err, usecases.ErrNoResults):
		return "No results found."
	case errors.Is(err, usecases.ErrReadyTimeout):
		return "Failed to join the voice channel within 20 seconds, please try again later!"
	default:
		slog.Error("command failed", "error", err)
		return "Something went wrong, please try again later!"
	}
}

// Response helpers.

func respondSuccess(r bot.Responder, description string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Description: description,
					Color:       colorSuccess,
				},
			},
		},
	})
}

func respondError(r bot.Responder, message string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{errorEmbed(message)},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

func editError(r bot.Responder, message string) error {
	return r.Edit(&discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{errorEmbed(message)},
	})
}

func errorEmbed(message string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Error",
		Description: message,
		Color:       colorError,
	}
}

func queuedDescription(output *usecases.PlayOutput) string {
	description := fmt.Sprintf("Added %s to the queue", trackLink(output.Track))
	if output.Position > 0 {
		description += fmt.Sprintf(" at position %d", output.Position)
	}
	return description + "."
}

func nowPlayingEmbed(output *usecases.NowPlayingOutput) *discordgo.MessageEmbed {
	metadata := output.Metadata

	title := "Now Playing"
	if output.Paused {
		title = "Paused"
	}

	embed := &discordgo.MessageEmbed{
		Author:      &discordgo.MessageEmbedAuthor{Name: title},
		Title:       metadata.Name,
		URL:         metadata.URL,
		Description: metadata.ArtistsString(),
		Color:       colorSpotify,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Length",
				Value:  metadata.FormattedDuration(),
				Inline: true,
			},
			{
				Name:   "Requested by",
				Value:  fmt.Sprintf("<@%s>", output.Track.Requester.ID),
				Inline: true,
			},
		},
	}
	if metadata.Album != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Album",
			Value:  metadata.Album,
			Inline: true,
		})
	}
	if metadata.ArtURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: metadata.ArtURL}
	}
	return embed
}

func queueEmbed(output *usecases.QueueListOutput) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Queue",
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Page %d/%d", output.CurrentPage, output.TotalPages),
		},
	}

	var sb strings.Builder

	if output.CurrentTrack != nil {
		sb.WriteString("### Now Playing\n")
		fmt.Fprintf(&sb, "%s\n", trackLine(output.CurrentTrack))
	}

	if output.TotalTracks == 0 {
		sb.WriteString("Queue is empty.")
		embed.Description = sb.String()
		return embed
	}

	sb.WriteString("### Up Next\n")
	for idx, track := range output.Tracks {
		// Escape the period to prevent Discord markdown list formatting
		fmt.Fprintf(&sb, "%d\\. %s\n", output.PageStart+idx+1, trackLine(track))
	}

	if remaining := output.TotalTracks - output.PageStart - len(output.Tracks); remaining > 0 {
		fmt.Fprintf(&sb, "\n...and %s more", plural(remaining, "track", "tracks"))
	}

	embed.Description = sb.String()
	return embed
}

// trackLine renders a track as a link followed by its artists and length.
func trackLine(track *usecases.Track) string {
	line := trackLink(track)
	if track.Metadata != nil {
		if artists := track.Metadata.ArtistsString(); artists != "" {
			line += " - " + artists
		}
		line += fmt.Sprintf(" [%s]", track.Metadata.FormattedDuration())
	}
	return line
}

func trackLink(track *usecases.Track) string {
	title := escapeMarkdown(track.Title())
	if track.Metadata != nil && track.Metadata.URL != "" {
		return fmt.Sprintf("[%s](%s)", title, track.Metadata.URL)
	}
	return fmt.Sprintf("**%s**", title)
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"~", `\~`,
	"`", "\\`",
	"|", `\|`,
	"[", `\[`,
	"]", `\]`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, pluralForm)
}
