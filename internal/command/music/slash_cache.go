package music

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bwmarrin/discordgo"

	"soundkeep/internal/command"
	"soundkeep/internal/music/player"
)

// CacheCommand bulk-downloads a remote playlist into a named local cache so
// it can later play entirely from disk.
type CacheCommand struct{}

func (c *CacheCommand) Name() string        { return "cache" }
func (c *CacheCommand) Description() string { return "Download a playlist into a named local cache" }
func (c *CacheCommand) Group() string       { return "music" }

func (c *CacheCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "url",
				Description: "Playlist URL to download",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "name",
				Description: "Name for the cached playlist",
				Required:    true,
			},
		},
	}
}

func (c *CacheCommand) Run(ctx *command.SlashContext) error {
	url := ctx.Option("url")
	name := ctx.Option("name")
	if url == "" || name == "" {
		return ctx.ReplyEphemeral("📼 Error: url and name are required")
	}
	if !isPlaylistURL(url) {
		return ctx.ReplyEphemeral("📼 That does not look like a playlist URL")
	}

	if err := ctx.Defer(); err != nil {
		return fmt.Errorf("failed to send deferred response: %w", err)
	}

	reqCtx := context.Background()
	entries, err := ctx.Resolver.FetchPlaylistMetadata(reqCtx, url)
	if err != nil || len(entries) == 0 {
		return ctx.Followup(fmt.Sprintf("📼 Error: could not read playlist %q", url))
	}

	guildID := ctx.GuildID()
	playlistID, err := ctx.Storage.CreateCachedPlaylist(guildID, name, url)
	if err != nil {
		return fmt.Errorf("failed to record cached playlist: %w", err)
	}
	already, err := ctx.Storage.CachedPlaylistURLs(playlistID)
	if err != nil {
		return fmt.Errorf("failed to read cached playlist state: %w", err)
	}

	var pending int
	for _, e := range entries {
		if e.URL != "" && !already[e.URL] {
			pending++
		}
	}
	if pending == 0 {
		return ctx.Followup(fmt.Sprintf("📼 **%s** is already fully cached (%d tracks)", name, len(already)))
	}

	if err := ctx.Followup(fmt.Sprintf("📼 Caching **%d** new track(s) from **%s**, this can take a while", pending, name)); err != nil {
		return err
	}

	var cached, failed int
	for _, e := range entries {
		if e.URL == "" || already[e.URL] {
			continue
		}
		dest, err := ctx.Cache.PlaylistPath(guildID, playlistID, e.URL)
		if err != nil {
			return err
		}
		path, err := ctx.Downloader.DownloadTrack(reqCtx, e.URL, dest)
		if err != nil {
			failed++
			continue
		}
		if err := ctx.Storage.AddCachedPlaylistTrack(playlistID, e.Title, e.URL, e.Duration, path); err != nil {
			failed++
			continue
		}
		cached++
	}

	desc := fmt.Sprintf("**%d** track(s) cached in total.", len(already)+cached)
	if cached > 0 {
		desc += fmt.Sprintf("\nNew: %d", cached)
	}
	if len(already) > 0 {
		desc += fmt.Sprintf("\nPreviously cached: %d", len(already))
	}
	if failed > 0 {
		desc += fmt.Sprintf("\nFailed: %d", failed)
	}
	return ctx.FollowupEmbed(&discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Cache Complete: %s", name),
		Description: desc,
	})
}

// PlayLocalCommand enqueues a cached playlist straight from local files.
// Without a name it lists the guild's cached playlists.
type PlayLocalCommand struct{}

func (c *PlayLocalCommand) Name() string        { return "playlocal" }
func (c *PlayLocalCommand) Description() string { return "Play a cached playlist from local files" }
func (c *PlayLocalCommand) Group() string       { return "music" }

func (c *PlayLocalCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "name",
				Description: "Name of the cached playlist, empty to list them",
				Required:    false,
			},
		},
	}
}

func (c *PlayLocalCommand) Run(ctx *command.SlashContext) error {
	name := ctx.Option("name")
	if name == "" {
		return listCachedPlaylists(ctx)
	}

	pl, err := ctx.Storage.GetCachedPlaylist(ctx.GuildID(), name)
	if err != nil {
		return fmt.Errorf("failed to read cached playlist: %w", err)
	}
	if pl == nil {
		return ctx.ReplyEphemeral(fmt.Sprintf("📼 No cached playlist named **%s**, run /cache first", name))
	}

	stored, err := ctx.Storage.CachedPlaylistTracks(pl.ID)
	if err != nil {
		return fmt.Errorf("failed to read cached tracks: %w", err)
	}
	if len(stored) == 0 {
		return ctx.ReplyEphemeral(fmt.Sprintf("📼 Cached playlist **%s** has no tracks", name))
	}

	voiceState, err := ctx.Voice.FindUserVoiceState(ctx.GuildID(), ctx.UserID())
	if err != nil {
		return ctx.ReplyEphemeral("🎵 Join a voice channel first")
	}

	// Only tracks whose files survived on disk are playable.
	var playable []player.Track
	for _, t := range stored {
		if _, err := os.Stat(t.FilePath); err != nil {
			continue
		}
		playable = append(playable, player.Track{
			Title:         t.Title,
			URL:           t.FilePath,
			Duration:      t.Duration,
			RequesterID:   ctx.UserID(),
			RequesterName: ctx.UserName(),
		})
	}
	if len(playable) == 0 {
		return ctx.ReplyEphemeral(fmt.Sprintf("📼 All cached files for **%s** are missing, re-run /cache", name))
	}

	p := ctx.Players.GetOrCreate(ctx.GuildID())
	p.Enqueue(playable...)
	_ = p.Play(voiceState.ChannelID)

	desc := fmt.Sprintf("Queued **%d** track(s) from cached playlist **%s**.", len(playable), name)
	if skipped := len(stored) - len(playable); skipped > 0 {
		desc += fmt.Sprintf("\n(%d track(s) skipped, files missing)", skipped)
	}
	return ctx.ReplyEmbed(&discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Local Playlist: %s", name),
		Description: desc,
	})
}

func listCachedPlaylists(ctx *command.SlashContext) error {
	playlists, err := ctx.Storage.ListCachedPlaylists(ctx.GuildID())
	if err != nil {
		return fmt.Errorf("failed to list cached playlists: %w", err)
	}
	if len(playlists) == 0 {
		return ctx.ReplyEphemeral("📼 No cached playlists yet, run /cache first")
	}

	var b strings.Builder
	for _, p := range playlists {
		fmt.Fprintf(&b, "**%s** (%d tracks)\n", p.Name, p.TrackCount)
	}
	return ctx.ReplyEmbed(&discordgo.MessageEmbed{
		Title:       "Cached Playlists",
		Description: b.String(),
	})
}

// UncacheCommand removes a cached playlist's index and files.
type UncacheCommand struct{}

func (c *UncacheCommand) Name() string        { return "uncache" }
func (c *UncacheCommand) Description() string { return "Delete a cached playlist and its files" }
func (c *UncacheCommand) Group() string       { return "music" }

func (c *UncacheCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "name",
				Description: "Name of the cached playlist",
				Required:    true,
			},
		},
	}
}

func (c *UncacheCommand) Run(ctx *command.SlashContext) error {
	name := ctx.Option("name")
	if name == "" {
		return ctx.ReplyEphemeral("📼 Error: name is required")
	}

	pl, err := ctx.Storage.GetCachedPlaylist(ctx.GuildID(), name)
	if err != nil {
		return fmt.Errorf("failed to read cached playlist: %w", err)
	}
	if pl == nil {
		return ctx.ReplyEphemeral(fmt.Sprintf("📼 No cached playlist named **%s**", name))
	}

	tracks, err := ctx.Storage.CachedPlaylistTracks(pl.ID)
	if err != nil {
		return fmt.Errorf("failed to read cached tracks: %w", err)
	}
	if _, err := ctx.Storage.DeleteCachedPlaylist(ctx.GuildID(), name); err != nil {
		return fmt.Errorf("failed to delete cached playlist: %w", err)
	}
	for _, t := range tracks {
		_ = os.Remove(t.FilePath)
	}

	return ctx.Reply(fmt.Sprintf("📼 Deleted cached playlist **%s** (%d tracks)", name, len(tracks)))
}
