// Package slack adapts the Slack Web API to the chat surface the pipeline
// reports through.
package slack

import (
	"context"
	"fmt"

	"github.com/brianndofor/wif/internal/blocks"
	goslack "github.com/slack-go/slack"
	"go.uber.org/zap"
)

// API is the subset of *slack.Client used here.
type API interface {
	PostMessageContext(ctx context.Context, channelID string, options ...goslack.MsgOption) (string, string, error)
	UpdateMessageContext(ctx context.Context, channelID, timestamp string, options ...goslack.MsgOption) (string, string, string, error)
	GetConversationRepliesContext(ctx context.Context, params *goslack.GetConversationRepliesParameters) ([]goslack.Message, bool, string, error)
	GetUserInfoContext(ctx context.Context, user string) (*goslack.User, error)
	AddReactionContext(ctx context.Context, name string, item goslack.ItemRef) error
	RemoveReactionContext(ctx context.Context, name string, item goslack.ItemRef) error
	AuthTestContext(ctx context.Context) (*goslack.AuthTestResponse, error)
}

var _ API = (*goslack.Client)(nil)

type Client struct {
	api    API
	logger *zap.SugaredLogger
}

func New(token string, logger *zap.SugaredLogger) *Client {
	return NewWithAPI(goslack.New(token), logger)
}

func NewWithAPI(api API, logger *zap.SugaredLogger) *Client {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{api: api, logger: logger}
}

// AuthStatus returns "team/user" for the bot token.
func (c *Client) AuthStatus(ctx context.Context) (string, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("slack auth test failed: %w", err)
	}
	return resp.Team + "/" + resp.User, nil
}

// Thread returns a chat bound to one conversation thread.
func (c *Client) Thread(channel, threadTS string) *Thread {
	return &Thread{client: c, channel: channel, threadTS: threadTS}
}

// Thread posts into and edits messages of a single thread.
type Thread struct {
	client   *Client
	channel  string
	threadTS string
}

func (t *Thread) PostMessage(ctx context.Context, msg blocks.Message) (string, error) {
	_, ts, err := t.client.api.PostMessageContext(ctx, t.channel,
		goslack.MsgOptionText(msg.Text, false),
		goslack.MsgOptionBlocks(ToBlocks(msg)...),
		goslack.MsgOptionTS(t.threadTS),
	)
	if err != nil {
		return "", fmt.Errorf("failed to post slack message: %w", err)
	}
	return ts, nil
}

func (t *Thread) UpdateMessage(ctx context.Context, ts string, msg blocks.Message) error {
	if ts == "" {
		return nil
	}
	_, _, _, err := t.client.api.UpdateMessageContext(ctx, t.channel, ts,
		goslack.MsgOptionText(msg.Text, false),
		goslack.MsgOptionBlocks(ToBlocks(msg)...),
	)
	if err != nil {
		return fmt.Errorf("failed to update slack message: %w", err)
	}
	return nil
}
