package command

import "errors"

var ErrGuildOnly = errors.New("this command only works in a server")

type Middleware func(Command) Command

func Apply(cmd Command, mws ...Middleware) Command {
	for _, mw := range mws {
		cmd = mw(cmd)
	}
	return cmd
}

type guildOnly struct {
	Command
}

func (g *guildOnly) Run(ctx *SlashContext) error {
	if ctx.GuildID() == "" {
		return ctx.ReplyEphemeral(ErrGuildOnly.Error())
	}
	return g.Command.Run(ctx)
}

// WithGuildOnly rejects DM invocations with an ephemeral notice.
func WithGuildOnly() Middleware {
	return func(cmd Command) Command {
		return &guildOnly{cmd}
	}
}
