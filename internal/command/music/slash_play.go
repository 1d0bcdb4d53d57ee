// Package music implements the playback slash commands.
package music

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"soundkeep/internal/command"
	"soundkeep/internal/music/extract"
	"soundkeep/internal/music/player"
)

type PlayCommand struct{}

func (c *PlayCommand) Name() string        { return "play" }
func (c *PlayCommand) Description() string { return "Play a track, playlist or search query" }
func (c *PlayCommand) Group() string       { return "music" }

func (c *PlayCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "input",
				Description: "URL, playlist URL or song name",
				Required:    true,
			},
		},
	}
}

func (c *PlayCommand) Run(ctx *command.SlashContext) error {
	return enqueueAndPlay(ctx, false)
}

type PlayNextCommand struct{}

func (c *PlayNextCommand) Name() string { return "playnext" }
func (c *PlayNextCommand) Description() string {
	return "Queue a track to play right after the current one"
}
func (c *PlayNextCommand) Group() string { return "music" }

func (c *PlayNextCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "input",
				Description: "URL, playlist URL or song name",
				Required:    true,
			},
		},
	}
}

func (c *PlayNextCommand) Run(ctx *command.SlashContext) error {
	return enqueueAndPlay(ctx, true)
}

func enqueueAndPlay(ctx *command.SlashContext, front bool) error {
	input := ctx.Option("input")
	if input == "" {
		return ctx.ReplyEphemeral("🎵 Error: input is required")
	}

	// Resolution can take seconds; acknowledge first.
	if err := ctx.Defer(); err != nil {
		return fmt.Errorf("failed to send deferred response: %w", err)
	}

	voiceState, err := ctx.Voice.FindUserVoiceState(ctx.GuildID(), ctx.UserID())
	if err != nil {
		return ctx.Followup("🎵 Join a voice channel first")
	}

	reqCtx := context.Background()

	var entries []extract.Metadata
	if isPlaylistURL(input) {
		entries, err = ctx.Resolver.FetchPlaylistMetadata(reqCtx, input)
	} else {
		var md *extract.Metadata
		md, err = ctx.Resolver.FetchMetadata(reqCtx, input)
		if md != nil {
			entries = []extract.Metadata{*md}
		}
	}
	if err != nil || len(entries) == 0 {
		return ctx.Followup(fmt.Sprintf("🎵 Error: could not resolve %q", input))
	}

	tracks := make([]player.Track, len(entries))
	for i, e := range entries {
		tracks[i] = player.Track{
			Title:         e.Title,
			URL:           e.URL,
			Duration:      e.Duration,
			Thumbnail:     e.Thumbnail,
			RequesterID:   ctx.UserID(),
			RequesterName: ctx.UserName(),
		}
	}

	p := ctx.Players.GetOrCreate(ctx.GuildID())
	if front {
		p.EnqueueNext(tracks...)
	} else {
		p.Enqueue(tracks...)
	}
	_ = p.Play(voiceState.ChannelID)

	if len(tracks) == 1 {
		return ctx.Followup(fmt.Sprintf("🎶 Queued: **%s** [%s]", tracks[0].Title, tracks[0].DurationString()))
	}
	return ctx.Followup(fmt.Sprintf("🎶 Queued **%d** tracks", len(tracks)))
}

func isPlaylistURL(input string) bool {
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return false
	}
	return strings.Contains(input, "list=") || strings.Contains(input, "/playlist")
}
