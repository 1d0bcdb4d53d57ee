// Package bot wires the Discord session to the command registry and the
// per-guild music players.
package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"soundkeep/internal/command"
	commandmusic "soundkeep/internal/command/music"
	commandplaylist "soundkeep/internal/command/playlist"
	"soundkeep/internal/config"
	"soundkeep/internal/logger"
	"soundkeep/internal/music/audiocache"
	"soundkeep/internal/music/downloader"
	"soundkeep/internal/music/player"
	"soundkeep/internal/music/resolver"
	"soundkeep/internal/music/stream"
	"soundkeep/internal/settings"
	"soundkeep/internal/storage"
)

type Bot struct {
	session    *discordgo.Session
	cfg        *config.Config
	storage    *storage.Storage
	settings   *settings.Store
	resolver   *resolver.Resolver
	cache      *audiocache.Cache
	downloader *downloader.Downloader
	players    *player.Registry
	log        zerolog.Logger
}

// Run starts the bot and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, store *storage.Storage, sets *settings.Store,
	res *resolver.Resolver, cache *audiocache.Cache, dl *downloader.Downloader) error {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	b := &Bot{
		session:    session,
		cfg:        cfg,
		storage:    store,
		settings:   sets,
		resolver:   res,
		cache:      cache,
		downloader: dl,
		log:        logger.With("bot"),
	}
	b.players = player.NewRegistry(b.newPlayer)

	b.registerCommands()

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates

	session.AddHandler(b.onReady)
	session.AddHandler(b.onGuildCreate)
	session.AddHandler(b.onInteractionCreate)
	session.AddHandler(b.onVoiceStateUpdate)

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer session.Close()

	<-ctx.Done()
	b.log.Info().Msg("shutdown signal received, stopping players")
	for _, p := range b.players.All() {
		p.Shutdown()
	}
	return nil
}

// newPlayer builds the guild's player and starts the goroutine that turns
// its events into announcement messages.
func (b *Bot) newPlayer(guildID string) *player.Player {
	engine := stream.NewEngine(b.session, guildID)
	p := player.New(guildID, engine, b.resolver)
	go b.announceLoop(guildID, p)
	return p
}

func (b *Bot) registerCommands() {
	command.Register(&commandmusic.PlayCommand{}, command.WithGuildOnly())
	command.Register(&commandmusic.PlayNextCommand{}, command.WithGuildOnly())
	command.Register(&commandmusic.SkipCommand{}, command.WithGuildOnly())
	command.Register(&commandmusic.StopCommand{}, command.WithGuildOnly())
	command.Register(&commandmusic.PauseCommand{}, command.WithGuildOnly())
	command.Register(&commandmusic.ResumeCommand{}, command.WithGuildOnly())
	command.Register(&commandmusic.ShuffleCommand{}, command.WithGuildOnly())
	command.Register(&commandmusic.QueueCommand{}, command.WithGuildOnly())
	command.Register(&commandmusic.NowPlayingCommand{}, command.WithGuildOnly())
	command.Register(&commandmusic.AnnounceCommand{}, command.WithGuildOnly())
	command.Register(&commandmusic.CacheCommand{}, command.WithGuildOnly())
	command.Register(&commandmusic.PlayLocalCommand{}, command.WithGuildOnly())
	command.Register(&commandmusic.UncacheCommand{}, command.WithGuildOnly())
	command.Register(&commandplaylist.PlaylistCommand{}, command.WithGuildOnly())
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info().Str("user", s.State.User.Username).Int("guilds", len(r.Guilds)).Msg("connected")

	if !b.cfg.InitSlashCommands {
		b.log.Info().Msg("slash command sync skipped")
		return
	}
	for _, g := range r.Guilds {
		b.syncSlashCommands(g.ID)
	}
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	b.log.Info().Str("guild", g.ID).Str("name", g.Name).Msg("joined guild")
	b.syncSlashCommands(g.ID)
}

func (b *Bot) syncSlashCommands(guildID string) {
	defs := make([]*discordgo.ApplicationCommand, 0)
	for _, cmd := range command.All() {
		defs = append(defs, cmd.SlashDefinition())
	}
	if _, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, guildID, defs); err != nil {
		b.log.Error().Err(err).Str("guild", guildID).Msg("slash command sync failed")
		return
	}
	b.log.Debug().Str("guild", guildID).Int("commands", len(defs)).Msg("slash commands synced")
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	name := i.ApplicationCommandData().Name
	cmd, ok := command.Get(name)
	if !ok {
		b.log.Warn().Str("command", name).Msg("unknown command")
		return
	}

	ctx := &command.SlashContext{
		Session:    s,
		Event:      i,
		Storage:    b.storage,
		Settings:   b.settings,
		Resolver:   b.resolver,
		Cache:      b.cache,
		Downloader: b.downloader,
		Players:    b.players,
		Voice:      b,
	}

	go func() {
		if err := cmd.Run(ctx); err != nil {
			b.log.Error().Err(err).Str("command", name).Msg("command failed")
			_ = ctx.ReplyEphemeral(fmt.Sprintf("Error: %v", err))
		}
	}()
}

// onVoiceStateUpdate tears the guild's player down when the bot leaves or
// is moved out of a voice channel.
func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.UserID != s.State.User.ID {
		return
	}
	if v.ChannelID != "" {
		return
	}
	if _, ok := b.players.Get(v.GuildID); ok {
		b.log.Info().Str("guild", v.GuildID).Msg("voice disconnected, releasing player")
		b.players.Remove(v.GuildID)
	}
}

// FindUserVoiceState locates the voice channel a user currently sits in.
func (b *Bot) FindUserVoiceState(guildID, userID string) (*command.VoiceState, error) {
	guild, err := b.session.State.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving guild: %w", err)
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return &command.VoiceState{ChannelID: vs.ChannelID, UserID: vs.UserID}, nil
		}
	}
	return nil, errors.New("user not in any voice channel")
}
