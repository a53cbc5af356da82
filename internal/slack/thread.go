package slack

import (
	"context"
	"errors"
	"sort"
	"strings"

	goslack "github.com/slack-go/slack"
)

type threadMessage struct {
	user string
	text string
	ts   string
}

// ReadThread renders the whole thread rooted at rootTS as "Name: text"
// paragraphs, oldest first. On failure the fallback text is returned.
func (c *Client) ReadThread(ctx context.Context, channel, rootTS, fallback string) string {
	messages, err := c.replies(ctx, channel, rootTS)
	if err != nil {
		c.logger.Warnw("failed to read thread, using triggering message", "channel", channel, "thread_ts", rootTS, "error", err)
		return fallback
	}
	if len(messages) == 0 {
		return fallback
	}
	sort.SliceStable(messages, func(i, j int) bool { return messages[i].ts < messages[j].ts })

	names := map[string]string{}
	for _, m := range messages {
		if m.user == "" {
			continue
		}
		if _, ok := names[m.user]; !ok {
			names[m.user] = c.displayName(ctx, m.user)
		}
	}
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		label := "Unknown"
		if m.user != "" {
			label = names[m.user]
		}
		parts = append(parts, label+": "+m.text)
	}
	return strings.Join(parts, "\n\n")
}

func (c *Client) replies(ctx context.Context, channel, rootTS string) ([]threadMessage, error) {
	var out []threadMessage
	cursor := ""
	for {
		msgs, _, next, err := c.api.GetConversationRepliesContext(ctx, &goslack.GetConversationRepliesParameters{
			ChannelID: channel,
			Timestamp: rootTS,
			Cursor:    cursor,
			Limit:     200,
		})
		if err != nil {
			return nil, err
		}
		for _, m := range msgs {
			text := strings.TrimSpace(m.Text)
			if text == "" || m.Timestamp == "" {
				continue
			}
			out = append(out, threadMessage{user: m.User, text: text, ts: m.Timestamp})
		}
		if next == "" {
			return out, nil
		}
		if next == cursor {
			return nil, errors.New("slack returned a repeated cursor")
		}
		cursor = next
	}
}

func (c *Client) displayName(ctx context.Context, id string) string {
	user, err := c.api.GetUserInfoContext(ctx, id)
	if err != nil || user == nil {
		return id
	}
	for _, name := range []string{user.RealName, user.Profile.RealName, user.Name} {
		if strings.TrimSpace(name) != "" {
			return name
		}
	}
	return id
}
