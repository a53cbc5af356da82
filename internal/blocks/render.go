package blocks

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	mrkdwnLink = regexp.MustCompile(`<([^|>]+)\|([^>]+)>`)
	mrkdwnBold = regexp.MustCompile(`\*([^*\n]+)\*`)

	emoji = strings.NewReplacer(
		":white_check_mark:", "✔",
		":arrows_counterclockwise:", "↻",
		":white_circle:", "○",
		":hourglass_flowing_sand:", "⏳",
		":large_green_circle:", "●",
		":large_yellow_circle:", "●",
		":information_source:", "ℹ",
		":thinking_face:", "?",
		":warning:", "!",
		":mag:", "»",
		":x:", "✖",
	)

	sectionStyle = lipgloss.NewStyle()
	contextStyle = lipgloss.NewStyle().Faint(true)
	boldStyle    = lipgloss.NewStyle().Bold(true)
	dividerStyle = lipgloss.NewStyle().Faint(true)
)

// Terminal renders a message for a terminal, turning mrkdwn links into
// "label (url)" and emphasis into bold text.
func Terminal(m Message) string {
	var b strings.Builder
	for i, block := range m.Blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		switch block.Kind {
		case KindDivider:
			b.WriteString(dividerStyle.Render(strings.Repeat("─", 40)))
		case KindContext:
			b.WriteString(contextStyle.Render(plain(block.Text)))
		default:
			b.WriteString(sectionStyle.Render(styled(block.Text)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func plain(text string) string {
	text = emoji.Replace(text)
	text = mrkdwnLink.ReplaceAllString(text, "$2 ($1)")
	return mrkdwnBold.ReplaceAllString(text, "$1")
}

func styled(text string) string {
	text = emoji.Replace(text)
	text = mrkdwnLink.ReplaceAllString(text, "$2 ($1)")
	return mrkdwnBold.ReplaceAllStringFunc(text, func(m string) string {
		return boldStyle.Render(strings.Trim(m, "*"))
	})
}
