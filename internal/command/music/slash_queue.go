package music

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"soundkeep/internal/command"
)

const queuePageSize = 15

type QueueCommand struct{}

func (c *QueueCommand) Name() string        { return "queue" }
func (c *QueueCommand) Description() string { return "Show the current track and pending queue" }
func (c *QueueCommand) Group() string       { return "music" }
func (c *QueueCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return simpleDefinition(c)
}

func (c *QueueCommand) Run(ctx *command.SlashContext) error {
	p, ok := ctx.Players.Get(ctx.GuildID())
	if !ok {
		return ctx.ReplyEphemeral("🎵 Nothing is playing")
	}

	current := p.NowPlaying()
	pending := p.Pending()
	if current == nil && len(pending) == 0 {
		return ctx.ReplyEphemeral("🎵 Nothing is playing")
	}

	var b strings.Builder
	if current != nil {
		state := "▶️"
		if p.IsPaused() {
			state = "⏸"
		}
		fmt.Fprintf(&b, "%s **%s** [%s] requested by %s\n\n",
			state, current.Title, current.DurationString(), current.RequesterName)
	}

	for i, t := range pending {
		if i == queuePageSize {
			fmt.Fprintf(&b, "… and %d more\n", len(pending)-queuePageSize)
			break
		}
		fmt.Fprintf(&b, "`%2d.` **%s** [%s]\n", i+1, t.Title, t.DurationString())
	}

	return ctx.ReplyEmbed(&discordgo.MessageEmbed{
		Title:       "Queue",
		Description: b.String(),
	})
}

type NowPlayingCommand struct{}

func (c *NowPlayingCommand) Name() string        { return "nowplaying" }
func (c *NowPlayingCommand) Description() string { return "Show the track playing right now" }
func (c *NowPlayingCommand) Group() string       { return "music" }
func (c *NowPlayingCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return simpleDefinition(c)
}

func (c *NowPlayingCommand) Run(ctx *command.SlashContext) error {
	p, ok := ctx.Players.Get(ctx.GuildID())
	if !ok {
		return ctx.ReplyEphemeral("🎵 Nothing is playing")
	}
	current := p.NowPlaying()
	if current == nil {
		return ctx.ReplyEphemeral("🎵 Nothing is playing")
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Now Playing",
		Description: fmt.Sprintf("**%s** [%s]\nrequested by %s", current.Title, current.DurationString(), current.RequesterName),
	}
	if current.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: current.Thumbnail}
	}
	if strings.HasPrefix(current.URL, "http") {
		embed.URL = current.URL
	}
	return ctx.ReplyEmbed(embed)
}
