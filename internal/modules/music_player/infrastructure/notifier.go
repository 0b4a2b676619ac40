package infrastructure

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/application/ports"
)

// Embed colors.
const (
	colorSpotify = 0x1DB954
	colorRed     = 0xE74C3C
)

const spotifyIconURL = "https://cdn.discordapp.com/attachments/950635812628869150/950635979490856980/Spotify_Icon_RGB_Green.png"

// Notifier sends notifications to Discord channels.
type Notifier struct {
	session *discordgo.Session
}

// NewNotifier creates a new Notifier.
func NewNotifier(session *discordgo.Session) *Notifier {
	return &Notifier{session: session}
}

// SendNowPlaying sends a "Now Playing" embed to the channel and returns the message ID.
func (n *Notifier) SendNowPlaying(
	channelID snowflake.ID,
	info *ports.NowPlayingInfo,
) (snowflake.ID, error) {
	msg, err := n.session.ChannelMessageSendComplex(channelID.String(), &discordgo.MessageSend{
		Content: "Now Playing",
		Embeds:  []*discordgo.MessageEmbed{nowPlayingEmbed(info)},
	})
	if err != nil {
		return 0, err
	}
	messageID, err := snowflake.Parse(msg.ID)
	if err != nil {
		return 0, err
	}
	return messageID, nil
}

// nowPlayingEmbed renders the track card shown while a track plays.
func nowPlayingEmbed(info *ports.NowPlayingInfo) *discordgo.MessageEmbed {
	metadata := info.Metadata

	artistLabel := "Artist"
	if len(metadata.Artists) > 1 {
		artistLabel = "Artists"
	}

	fields := []*discordgo.MessageEmbedField{
		{
			Name:   artistLabel,
			Value:  orPlaceholder(metadata.ArtistsString()),
			Inline: true,
		},
	}
	if metadata.Album != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Album",
			Value:  metadata.Album,
			Inline: true,
		})
	}
	fields = append(fields,
		&discordgo.MessageEmbedField{
			Name:   "Requested by",
			Value:  requesterMention(info),
			Inline: true,
		},
		&discordgo.MessageEmbedField{
			Name:   "Length",
			Value:  metadata.FormattedDuration(),
			Inline: true,
		},
	)

	embed := &discordgo.MessageEmbed{
		Title:  metadata.Name,
		URL:    metadata.URL,
		Color:  colorSpotify,
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text:    "Spotify",
			IconURL: spotifyIconURL,
		},
	}
	if metadata.ArtURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: metadata.ArtURL}
	}
	if !info.EnqueuedAt.IsZero() {
		embed.Timestamp = info.EnqueuedAt.UTC().Format(time.RFC3339)
	}

	return embed
}

func requesterMention(info *ports.NowPlayingInfo) string {
	if info.Requester.ID != 0 {
		return fmt.Sprintf("<@%s>", info.Requester.ID)
	}
	return orPlaceholder(info.Requester.Name)
}

func orPlaceholder(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// DeleteMessage deletes a message from the channel.
func (n *Notifier) DeleteMessage(channelID snowflake.ID, messageID snowflake.ID) error {
	return n.session.ChannelMessageDelete(channelID.String(), messageID.String())
}

// SendError sends an error message embed to the channel.
func (n *Notifier) SendError(channelID snowflake.ID, message string) error {
	embed := &discordgo.MessageEmbed{
		Description: message,
		Color:       colorRed,
	}

	_, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed)
	return err
}

// Ensure Notifier implements ports.NotificationSender.
var _ ports.NotificationSender = (*Notifier)(nil)
