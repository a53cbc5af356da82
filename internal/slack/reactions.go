package slack

import (
	"context"

	goslack "github.com/slack-go/slack"
)

const (
	ReactionQueued  = "hourglass"
	ReactionWorking = "eyes"
	ReactionDone    = "white_check_mark"
	ReactionFailed  = "x"
)

// React adds a reaction to a message. Failures are logged only.
func (c *Client) React(ctx context.Context, channel, ts, name string) {
	if err := c.api.AddReactionContext(ctx, name, goslack.NewRefToMessage(channel, ts)); err != nil {
		c.logger.Debugw("failed to add reaction", "reaction", name, "channel", channel, "ts", ts, "error", err)
	}
}

// SwapReaction replaces one reaction with another.
func (c *Client) SwapReaction(ctx context.Context, channel, ts, from, to string) {
	if err := c.api.RemoveReactionContext(ctx, from, goslack.NewRefToMessage(channel, ts)); err != nil {
		c.logger.Debugw("failed to remove reaction", "reaction", from, "channel", channel, "ts", ts, "error", err)
	}
	c.React(ctx, channel, ts, to)
}
