// Package command defines the slash command surface: the Command
// interface, the registry handlers are dispatched from, and the shared
// interaction context.
package command

import (
	"github.com/bwmarrin/discordgo"

	"soundkeep/internal/music/audiocache"
	"soundkeep/internal/music/downloader"
	"soundkeep/internal/music/player"
	"soundkeep/internal/music/resolver"
	"soundkeep/internal/settings"
	"soundkeep/internal/storage"
)

type Command interface {
	Name() string
	Description() string
	Group() string
	SlashDefinition() *discordgo.ApplicationCommand
	Run(ctx *SlashContext) error
}

// VoiceState holds the minimal voice channel state for a user.
type VoiceState struct {
	ChannelID string
	UserID    string
}

// VoiceFinder is the piece of the bot commands need to locate a user's
// voice channel without importing the bot package.
type VoiceFinder interface {
	FindUserVoiceState(guildID, userID string) (*VoiceState, error)
}

type SlashContext struct {
	Session    *discordgo.Session
	Event      *discordgo.InteractionCreate
	Storage    *storage.Storage
	Settings   *settings.Store
	Resolver   *resolver.Resolver
	Cache      *audiocache.Cache
	Downloader *downloader.Downloader
	Players    *player.Registry
	Voice      VoiceFinder
}

// GuildID is empty for DM interactions.
func (ctx *SlashContext) GuildID() string {
	return ctx.Event.GuildID
}

func (ctx *SlashContext) UserID() string {
	if ctx.Event.Member != nil {
		return ctx.Event.Member.User.ID
	}
	return ctx.Event.User.ID
}

func (ctx *SlashContext) UserName() string {
	if ctx.Event.Member != nil {
		return ctx.Event.Member.User.Username
	}
	return ctx.Event.User.Username
}

// Option returns the named string option, or "" when absent.
func (ctx *SlashContext) Option(name string) string {
	for _, opt := range ctx.Event.ApplicationCommandData().Options {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}
