package blocks

import (
	"fmt"
	"strings"

	"github.com/brianndofor/wif/internal/version"
)

// Footer is the trace summary appended to terminal messages.
type Footer struct {
	Checked   string `json:"checked,omitempty"`
	Evaluated string `json:"evaluated,omitempty"`
	Skipped   string `json:"skipped,omitempty"`
	TraceURL  string `json:"trace_url,omitempty"`
}

func (f Footer) parts() []string {
	parts := []string{}
	for _, p := range []string{f.Checked, f.Evaluated, f.Skipped} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	if f.TraceURL != "" {
		parts = append(parts, Link(f.TraceURL, "View trace"))
	}
	return parts
}

func (f Footer) block() (Block, bool) {
	parts := f.parts()
	if len(parts) == 0 {
		return Block{}, false
	}
	return Context(strings.Join(parts, " · ")), true
}

type Candidate struct {
	Version  string
	PRNumber int
	PRLink   string
	Reason   string
}

func (c Candidate) link(repo string) string {
	if repo != "" && c.PRNumber > 0 {
		return PRLinkMrkdwn(repo, c.PRNumber)
	}
	return c.PRLink
}

func candidateLines(repo string, candidates []Candidate) string {
	lines := make([]string, 0, len(candidates))
	for i, c := range candidates {
		lines = append(lines, fmt.Sprintf("%d. *%s* — %s", i+1, version.Display(c.Version), c.link(repo)))
	}
	return strings.Join(lines, "\n")
}

type HighConfidenceParams struct {
	Repo       string
	Candidates []Candidate
	Footer     Footer
}

func HighConfidence(p HighConfidenceParams) Message {
	if len(p.Candidates) == 0 {
		return Simple("No candidates to report.", "", "", p.Footer)
	}
	first := p.Candidates[0]
	var out []Block
	var text string
	if len(p.Candidates) == 1 {
		out = append(out, Section(fmt.Sprintf(":white_check_mark: *Fixed in %s*\nSee %s", version.Display(first.Version), first.link(p.Repo))))
		text = fmt.Sprintf("Fixed in %s. See PR #%d.", version.Display(first.Version), first.PRNumber)
	} else {
		out = append(out,
			Section(":white_check_mark: *High-confidence fix candidates found*"),
			Section(candidateLines(p.Repo, p.Candidates)),
		)
		text = fmt.Sprintf("High-confidence fix candidates: %s.", fallbackList(p.Candidates))
	}
	out = append(out, Context(":large_green_circle: *High confidence* — "+first.Reason), Divider())
	if fb, ok := p.Footer.block(); ok {
		out = append(out, fb)
	}
	return Message{Text: text, Blocks: out}
}

type MediumConfidenceParams struct {
	Repo        string
	Candidates  []Candidate
	Reason      string
	Maintainers string
	Display     int
	Footer      Footer
}

func MediumConfidence(p MediumConfidenceParams) Message {
	shown := p.Candidates
	if p.Display > 0 && len(shown) > p.Display {
		shown = shown[:p.Display]
	}
	deferLine := "Deferring to SDK maintainers to confirm."
	if p.Maintainers != "" {
		deferLine += " " + p.Maintainers
	}
	out := []Block{
		Section(":mag: *Potential candidates found*\n" + deferLine),
		Section(candidateLines(p.Repo, shown)),
		Context(":large_yellow_circle: *Medium confidence* — " + p.Reason),
		Divider(),
	}
	if fb, ok := p.Footer.block(); ok {
		out = append(out, fb)
	}
	return Message{Text: fmt.Sprintf("Potential candidates: %s.", fallbackList(shown)), Blocks: out}
}

type NoResultParams struct {
	Version     string
	Maintainers string
	Footer      Footer
}

func NoResult(p NoResultParams) Message {
	deferLine := "Deferring to SDK maintainers for investigation."
	if p.Maintainers != "" {
		deferLine += " " + p.Maintainers
	}
	v := version.Display(p.Version)
	out := []Block{
		Section(fmt.Sprintf(":thinking_face: *No fix identified*\nI wasn't able to identify a fix in releases after `%s`. %s", v, deferLine)),
		Divider(),
	}
	if fb, ok := p.Footer.block(); ok {
		out = append(out, fb)
	}
	return Message{Text: fmt.Sprintf("No fix identified in releases after %s.", v), Blocks: out}
}

func TooOld(reportedVersion string, maxReleases int, maintainers string, footer Footer) Message {
	v := version.Display(reportedVersion)
	deferLine := "Deferring to SDK maintainers."
	if maintainers != "" {
		deferLine += " " + maintainers
	}
	text := fmt.Sprintf(":warning: *Version too old*\nThe reported version (`%s`) is more than %d releases behind the latest stable release. Unable to look this up efficiently.\n%s", v, maxReleases, deferLine)
	return Message{
		Text:   fmt.Sprintf("Version %s is too old.", v),
		Blocks: []Block{Section(withNotes(text, footer))},
	}
}

// Simple is a single informational block used for clarification requests and
// the degenerate release-range outcomes.
func Simple(message, skipped, maintainers string, footer Footer) Message {
	text := message
	if maintainers != "" {
		text += " " + maintainers
	}
	if skipped != "" && footer.Skipped == "" {
		footer.Skipped = skipped
	}
	return Message{
		Text:   message,
		Blocks: []Block{Section(":information_source: " + withNotes(text, footer))},
	}
}

// Error renders the notice posted when a run fails unexpectedly.
func Error(summary string) Message {
	line := strings.TrimSpace(strings.SplitN(summary, "\n", 2)[0])
	escaped := strings.ReplaceAll(strings.ReplaceAll(line, `\`, `\\`), "`", "` ")
	return Message{
		Text:   "Something went wrong: " + line,
		Blocks: []Block{Section(":x: *Something went wrong*\n`" + escaped + "`")},
	}
}

func withNotes(text string, footer Footer) string {
	if footer.Skipped != "" {
		text += "\n\n" + footer.Skipped
	}
	if footer.TraceURL != "" {
		text += "\n" + Link(footer.TraceURL, "View trace")
	}
	return text
}

func fallbackList(candidates []Candidate) string {
	parts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		parts = append(parts, fmt.Sprintf("%s PR #%d", version.Display(c.Version), c.PRNumber))
	}
	return strings.Join(parts, ", ")
}
