// Package playlist implements the saved-playlist slash commands backed by
// the SQLite store.
package playlist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"soundkeep/internal/command"
	"soundkeep/internal/music/player"
	"soundkeep/internal/storage"
)

type PlaylistCommand struct{}

func (c *PlaylistCommand) Name() string        { return "playlist" }
func (c *PlaylistCommand) Description() string { return "Manage saved playlists" }
func (c *PlaylistCommand) Group() string       { return "playlist" }

func nameOption(desc string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "name",
		Description: desc,
		Required:    true,
	}
}

func (c *PlaylistCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "create",
				Description: "Create an empty playlist",
				Options:     []*discordgo.ApplicationCommandOption{nameOption("Playlist name")},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "delete",
				Description: "Delete a playlist and its songs",
				Options:     []*discordgo.ApplicationCommandOption{nameOption("Playlist name")},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "list",
				Description: "List this server's playlists",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "show",
				Description: "Show the songs in a playlist",
				Options:     []*discordgo.ApplicationCommandOption{nameOption("Playlist name")},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "add",
				Description: "Add a track to a playlist",
				Options: []*discordgo.ApplicationCommandOption{
					nameOption("Playlist name"),
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "input",
						Description: "URL or song name",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "remove",
				Description: "Remove a song from a playlist by its number",
				Options: []*discordgo.ApplicationCommandOption{
					nameOption("Playlist name"),
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "number",
						Description: "Song number as shown by /playlist show",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "play",
				Description: "Queue every song of a playlist",
				Options:     []*discordgo.ApplicationCommandOption{nameOption("Playlist name")},
			},
		},
	}
}

func (c *PlaylistCommand) Run(ctx *command.SlashContext) error {
	options := ctx.Event.ApplicationCommandData().Options
	if len(options) == 0 {
		return ctx.ReplyEphemeral("Choose a subcommand")
	}
	sub := options[0]

	subOption := func(name string) string {
		for _, opt := range sub.Options {
			if opt.Name == name {
				return opt.StringValue()
			}
		}
		return ""
	}

	switch sub.Name {
	case "create":
		return c.create(ctx, subOption("name"))
	case "delete":
		return c.delete(ctx, subOption("name"))
	case "list":
		return c.list(ctx)
	case "show":
		return c.show(ctx, subOption("name"))
	case "add":
		return c.add(ctx, subOption("name"), subOption("input"))
	case "remove":
		var number int64
		for _, opt := range sub.Options {
			if opt.Name == "number" {
				number = opt.IntValue()
			}
		}
		return c.remove(ctx, subOption("name"), int(number))
	case "play":
		return c.play(ctx, subOption("name"))
	}
	return ctx.ReplyEphemeral("Unknown subcommand")
}

func (c *PlaylistCommand) create(ctx *command.SlashContext, name string) error {
	if _, err := ctx.Storage.CreatePlaylist(ctx.GuildID(), name); err != nil {
		if errors.Is(err, storage.ErrPlaylistExists) {
			return ctx.ReplyEphemeral(fmt.Sprintf("📼 Playlist **%s** already exists", name))
		}
		return ctx.ReplyEphemeral(fmt.Sprintf("Failed to create playlist: %v", err))
	}
	return ctx.Reply(fmt.Sprintf("📼 Created playlist **%s**", name))
}

func (c *PlaylistCommand) delete(ctx *command.SlashContext, name string) error {
	deleted, err := ctx.Storage.DeletePlaylist(ctx.GuildID(), name)
	if err != nil {
		return ctx.ReplyEphemeral(fmt.Sprintf("Failed to delete playlist: %v", err))
	}
	if !deleted {
		return ctx.ReplyEphemeral(fmt.Sprintf("📼 No playlist named **%s**", name))
	}
	return ctx.Reply(fmt.Sprintf("📼 Deleted playlist **%s**", name))
}

func (c *PlaylistCommand) list(ctx *command.SlashContext) error {
	playlists, err := ctx.Storage.ListPlaylists(ctx.GuildID())
	if err != nil {
		return ctx.ReplyEphemeral(fmt.Sprintf("Failed to list playlists: %v", err))
	}
	if len(playlists) == 0 {
		return ctx.ReplyEphemeral("📼 No playlists yet, create one with `/playlist create`")
	}

	var b strings.Builder
	for _, p := range playlists {
		fmt.Fprintf(&b, "**%s** (%d songs)\n", p.Name, p.SongCount)
	}
	return ctx.ReplyEmbed(&discordgo.MessageEmbed{Title: "Playlists", Description: b.String()})
}

func (c *PlaylistCommand) show(ctx *command.SlashContext, name string) error {
	pl, err := c.findPlaylist(ctx, name)
	if err != nil || pl == nil {
		return c.missingPlaylist(ctx, name, err)
	}

	songs, err := ctx.Storage.PlaylistSongs(pl.ID)
	if err != nil {
		return ctx.ReplyEphemeral(fmt.Sprintf("Failed to read playlist: %v", err))
	}
	if len(songs) == 0 {
		return ctx.ReplyEphemeral(fmt.Sprintf("📼 Playlist **%s** is empty", name))
	}

	var b strings.Builder
	for _, s := range songs {
		t := player.Track{Title: s.Title, Duration: s.Duration}
		fmt.Fprintf(&b, "`%2d.` **%s** [%s]\n", s.Position+1, s.Title, t.DurationString())
	}
	return ctx.ReplyEmbed(&discordgo.MessageEmbed{Title: name, Description: b.String()})
}

func (c *PlaylistCommand) add(ctx *command.SlashContext, name, input string) error {
	pl, err := c.findPlaylist(ctx, name)
	if err != nil || pl == nil {
		return c.missingPlaylist(ctx, name, err)
	}

	if err := ctx.Defer(); err != nil {
		return fmt.Errorf("failed to send deferred response: %w", err)
	}

	md, err := ctx.Resolver.FetchMetadata(context.Background(), input)
	if err != nil {
		return ctx.Followup(fmt.Sprintf("🎵 Error: could not resolve %q", input))
	}

	if err := ctx.Storage.AddPlaylistSong(pl.ID, md.Title, md.URL, md.Duration); err != nil {
		return ctx.Followup(fmt.Sprintf("Failed to add song: %v", err))
	}
	return ctx.Followup(fmt.Sprintf("📼 Added **%s** to **%s**", md.Title, name))
}

func (c *PlaylistCommand) remove(ctx *command.SlashContext, name string, number int) error {
	pl, err := c.findPlaylist(ctx, name)
	if err != nil || pl == nil {
		return c.missingPlaylist(ctx, name, err)
	}

	removed, err := ctx.Storage.RemovePlaylistSong(pl.ID, number-1)
	if err != nil {
		return ctx.ReplyEphemeral(fmt.Sprintf("Failed to remove song: %v", err))
	}
	if !removed {
		return ctx.ReplyEphemeral(fmt.Sprintf("📼 No song #%d in **%s**", number, name))
	}
	return ctx.Reply(fmt.Sprintf("📼 Removed song #%d from **%s**", number, name))
}

func (c *PlaylistCommand) play(ctx *command.SlashContext, name string) error {
	pl, err := c.findPlaylist(ctx, name)
	if err != nil || pl == nil {
		return c.missingPlaylist(ctx, name, err)
	}

	songs, err := ctx.Storage.PlaylistSongs(pl.ID)
	if err != nil {
		return ctx.ReplyEphemeral(fmt.Sprintf("Failed to read playlist: %v", err))
	}
	if len(songs) == 0 {
		return ctx.ReplyEphemeral(fmt.Sprintf("📼 Playlist **%s** is empty", name))
	}

	voiceState, err := ctx.Voice.FindUserVoiceState(ctx.GuildID(), ctx.UserID())
	if err != nil {
		return ctx.ReplyEphemeral("🎵 Join a voice channel first")
	}

	tracks := make([]player.Track, len(songs))
	for i, s := range songs {
		tracks[i] = player.Track{
			Title:         s.Title,
			URL:           s.URL,
			Duration:      s.Duration,
			RequesterID:   ctx.UserID(),
			RequesterName: ctx.UserName(),
		}
	}

	p := ctx.Players.GetOrCreate(ctx.GuildID())
	p.Enqueue(tracks...)
	_ = p.Play(voiceState.ChannelID)

	return ctx.Reply(fmt.Sprintf("📼 Queued **%d** song(s) from **%s**", len(tracks), name))
}

func (c *PlaylistCommand) findPlaylist(ctx *command.SlashContext, name string) (*storage.Playlist, error) {
	return ctx.Storage.GetPlaylist(ctx.GuildID(), name)
}

func (c *PlaylistCommand) missingPlaylist(ctx *command.SlashContext, name string, err error) error {
	if err != nil {
		return ctx.ReplyEphemeral(fmt.Sprintf("Failed to read playlist: %v", err))
	}
	return ctx.ReplyEphemeral(fmt.Sprintf("📼 No playlist named **%s**", name))
}
