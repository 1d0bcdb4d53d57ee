package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"soundkeep/internal/command"
	"soundkeep/internal/music/player"
)

// announceLoop posts player transitions to the guild's configured
// announcement channel. It exits when the player's event channel closes
// with the player itself.
func (b *Bot) announceLoop(guildID string, p *player.Player) {
	for ev := range p.Events {
		channelID, err := b.settings.GetAnnounceChannel(guildID)
		if err != nil || channelID == "" {
			continue
		}

		var embed *discordgo.MessageEmbed
		switch ev.Status {
		case player.StatusPlaying:
			embed = &discordgo.MessageEmbed{
				Description: fmt.Sprintf("%s Now playing: **%s** [%s]",
					ev.Status.Emoji(), ev.Track.Title, ev.Track.DurationString()),
			}
			if ev.Track.Thumbnail != "" {
				embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: ev.Track.Thumbnail}
			}
		case player.StatusError:
			embed = &discordgo.MessageEmbed{
				Description: fmt.Sprintf("%s Could not play **%s**, skipping",
					ev.Status.Emoji(), ev.Track.Title),
			}
		case player.StatusExhausted:
			embed = &discordgo.MessageEmbed{
				Description: fmt.Sprintf("%s Queue finished", ev.Status.Emoji()),
			}
		default:
			continue
		}

		embed.Color = command.EmbedColor
		if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
			b.log.Warn().Err(err).Str("guild", guildID).Msg("failed to post announcement")
		}
	}
}
