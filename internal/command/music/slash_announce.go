package music

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"soundkeep/internal/command"
)

// AnnounceCommand manages the channel where track transitions are posted.
type AnnounceCommand struct{}

func (c *AnnounceCommand) Name() string        { return "announce" }
func (c *AnnounceCommand) Description() string { return "Manage the music announcement channel" }
func (c *AnnounceCommand) Group() string       { return "music" }

func (c *AnnounceCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set",
				Description: "Post announcements in a channel",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionChannel,
						Name:        "channel",
						Description: "Text channel for announcements",
						Required:    true,
						ChannelTypes: []discordgo.ChannelType{
							discordgo.ChannelTypeGuildText,
						},
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "off",
				Description: "Disable announcements",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "show",
				Description: "Show the current announcement channel",
			},
		},
	}
}

func (c *AnnounceCommand) Run(ctx *command.SlashContext) error {
	options := ctx.Event.ApplicationCommandData().Options
	if len(options) == 0 {
		return ctx.ReplyEphemeral("Choose a subcommand")
	}
	sub := options[0]

	switch sub.Name {
	case "set":
		channel := sub.Options[0].ChannelValue(ctx.Session)
		if err := ctx.Settings.SetAnnounceChannel(ctx.GuildID(), channel.ID); err != nil {
			return ctx.ReplyEphemeral(fmt.Sprintf("Failed to save: %v", err))
		}
		return ctx.Reply(fmt.Sprintf("📢 Announcements will go to <#%s>", channel.ID))

	case "off":
		if err := ctx.Settings.RemoveAnnounceChannel(ctx.GuildID()); err != nil {
			return ctx.ReplyEphemeral(fmt.Sprintf("Failed to save: %v", err))
		}
		return ctx.Reply("📢 Announcements disabled")

	case "show":
		channelID, err := ctx.Settings.GetAnnounceChannel(ctx.GuildID())
		if err != nil {
			return ctx.ReplyEphemeral(fmt.Sprintf("Failed to read settings: %v", err))
		}
		if channelID == "" {
			return ctx.ReplyEphemeral("📢 Announcements are disabled")
		}
		return ctx.ReplyEphemeral(fmt.Sprintf("📢 Announcements go to <#%s>", channelID))
	}

	return ctx.ReplyEphemeral("Unknown subcommand")
}
