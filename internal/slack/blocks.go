package slack

import (
	"github.com/brianndofor/wif/internal/blocks"
	goslack "github.com/slack-go/slack"
)

// Slack rejects section and context text longer than this.
const maxTextLen = 3000

// ToBlocks converts a message to Block Kit blocks.
func ToBlocks(m blocks.Message) []goslack.Block {
	out := make([]goslack.Block, 0, len(m.Blocks))
	for _, b := range m.Blocks {
		switch b.Kind {
		case blocks.KindSection:
			out = append(out, goslack.NewSectionBlock(mrkdwn(b.Text), nil, nil))
		case blocks.KindContext:
			out = append(out, goslack.NewContextBlock("", mrkdwn(b.Text)))
		case blocks.KindDivider:
			out = append(out, goslack.NewDividerBlock())
		}
	}
	return out
}

func mrkdwn(text string) *goslack.TextBlockObject {
	return goslack.NewTextBlockObject(goslack.MarkdownType, truncate(text), false, false)
}

func truncate(text string) string {
	r := []rune(text)
	if len(r) <= maxTextLen {
		return text
	}
	return string(r[:maxTextLen-1]) + "…"
}
