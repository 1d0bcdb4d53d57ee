package command

import "github.com/bwmarrin/discordgo"

const EmbedColor = 0x1e90b0

// Reply sends a public message response to the interaction.
func (ctx *SlashContext) Reply(content string) error {
	return ctx.Session.InteractionRespond(ctx.Event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
}

// ReplyEphemeral sends a response only the invoking user can see.
func (ctx *SlashContext) ReplyEphemeral(content string) error {
	return ctx.Session.InteractionRespond(ctx.Event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// ReplyEmbed sends a public embed response.
func (ctx *SlashContext) ReplyEmbed(embed *discordgo.MessageEmbed) error {
	if embed.Color == 0 {
		embed.Color = EmbedColor
	}
	return ctx.Session.InteractionRespond(ctx.Event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	})
}

// Defer acknowledges the interaction with a "thinking" placeholder so slow
// work can follow up later without hitting the 3 second deadline.
func (ctx *SlashContext) Defer() error {
	return ctx.Session.InteractionRespond(ctx.Event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

// Followup completes a deferred interaction with a public message.
func (ctx *SlashContext) Followup(content string) error {
	_, err := ctx.Session.FollowupMessageCreate(ctx.Event.Interaction, true, &discordgo.WebhookParams{
		Content: content,
	})
	return err
}

// FollowupEmbed completes a deferred interaction with an embed.
func (ctx *SlashContext) FollowupEmbed(embed *discordgo.MessageEmbed) error {
	if embed.Color == 0 {
		embed.Color = EmbedColor
	}
	_, err := ctx.Session.FollowupMessageCreate(ctx.Event.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
	})
	return err
}
