package music

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"soundkeep/internal/command"
	"soundkeep/internal/music/player"
)

// simpleDefinition covers the control commands that take no options.
func simpleDefinition(c command.Command) *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
	}
}

// guildPlayer fetches the player only if one already exists; control
// commands never create one.
func guildPlayer(ctx *command.SlashContext) (*player.Player, error) {
	p, ok := ctx.Players.Get(ctx.GuildID())
	if !ok {
		return nil, player.ErrNoTrackPlaying
	}
	return p, nil
}

type SkipCommand struct{}

func (c *SkipCommand) Name() string        { return "skip" }
func (c *SkipCommand) Description() string { return "Skip the current track" }
func (c *SkipCommand) Group() string       { return "music" }
func (c *SkipCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return simpleDefinition(c)
}

func (c *SkipCommand) Run(ctx *command.SlashContext) error {
	p, err := guildPlayer(ctx)
	if err == nil {
		err = p.Skip()
	}
	if err != nil {
		return ctx.ReplyEphemeral(fmt.Sprintf("🎵 %s", err))
	}
	return ctx.Reply("⏭ Skipped")
}

type StopCommand struct{}

func (c *StopCommand) Name() string        { return "stop" }
func (c *StopCommand) Description() string { return "Stop playback and clear the queue" }
func (c *StopCommand) Group() string       { return "music" }
func (c *StopCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return simpleDefinition(c)
}

func (c *StopCommand) Run(ctx *command.SlashContext) error {
	p, err := guildPlayer(ctx)
	if err == nil {
		err = p.Stop()
	}
	if err != nil {
		return ctx.ReplyEphemeral(fmt.Sprintf("🎵 %s", err))
	}
	return ctx.Reply("⏹ Playback stopped, queue cleared")
}

type PauseCommand struct{}

func (c *PauseCommand) Name() string        { return "pause" }
func (c *PauseCommand) Description() string { return "Pause the current track" }
func (c *PauseCommand) Group() string       { return "music" }
func (c *PauseCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return simpleDefinition(c)
}

func (c *PauseCommand) Run(ctx *command.SlashContext) error {
	p, err := guildPlayer(ctx)
	if err == nil {
		err = p.Pause()
	}
	if err != nil {
		return ctx.ReplyEphemeral(fmt.Sprintf("🎵 %s", err))
	}
	return ctx.Reply("⏸ Paused")
}

type ResumeCommand struct{}

func (c *ResumeCommand) Name() string        { return "resume" }
func (c *ResumeCommand) Description() string { return "Resume a paused track" }
func (c *ResumeCommand) Group() string       { return "music" }
func (c *ResumeCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return simpleDefinition(c)
}

func (c *ResumeCommand) Run(ctx *command.SlashContext) error {
	p, err := guildPlayer(ctx)
	if err == nil {
		err = p.Resume()
	}
	if err != nil {
		if errors.Is(err, player.ErrNotPaused) {
			return ctx.ReplyEphemeral("🎵 Nothing is paused")
		}
		return ctx.ReplyEphemeral(fmt.Sprintf("🎵 %s", err))
	}
	return ctx.Reply("▶️ Resumed")
}

type ShuffleCommand struct{}

func (c *ShuffleCommand) Name() string        { return "shuffle" }
func (c *ShuffleCommand) Description() string { return "Shuffle the pending queue" }
func (c *ShuffleCommand) Group() string       { return "music" }
func (c *ShuffleCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return simpleDefinition(c)
}

func (c *ShuffleCommand) Run(ctx *command.SlashContext) error {
	p, ok := ctx.Players.Get(ctx.GuildID())
	if !ok || len(p.Pending()) == 0 {
		return ctx.ReplyEphemeral("🎵 The queue is empty")
	}
	p.Shuffle()
	return ctx.Reply("🔀 Queue shuffled")
}
