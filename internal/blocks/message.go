// Package blocks builds channel-neutral status and result messages: a list
// of section, context and divider blocks plus a plain-text fallback.
package blocks

import (
	"fmt"
	"strings"
)

type Kind string

const (
	KindSection Kind = "section"
	KindContext Kind = "context"
	KindDivider Kind = "divider"
)

type Block struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text,omitempty"`
}

// Message is what the chat collaborator posts or updates. Text is the
// notification fallback for clients that do not render blocks.
type Message struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks"`
}

func Section(text string) Block { return Block{Kind: KindSection, Text: text} }

func Context(text string) Block { return Block{Kind: KindContext, Text: text} }

func Divider() Block { return Block{Kind: KindDivider} }

// PRLink returns the canonical pull request URL.
func PRLink(repo string, number int) string {
	return fmt.Sprintf("https://github.com/%s/pull/%d", repo, number)
}

// Link renders a labelled link in mrkdwn.
func Link(url, label string) string {
	return fmt.Sprintf("<%s|%s>", url, label)
}

func PRLinkMrkdwn(repo string, number int) string {
	return Link(PRLink(repo, number), fmt.Sprintf("PR #%d", number))
}

// PlainText flattens a message to text, one block per paragraph.
func (m Message) PlainText() string {
	parts := make([]string, 0, len(m.Blocks))
	for _, b := range m.Blocks {
		switch b.Kind {
		case KindDivider:
			parts = append(parts, "---")
		default:
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}
