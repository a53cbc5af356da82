package analysis

import (
	"fmt"
	"strings"

	"github.com/brianndofor/wif/internal/blocks"
	"github.com/brianndofor/wif/internal/version"
)

// Footer builds the trace footer for a result.
func Footer(res Result) blocks.Footer {
	var f blocks.Footer
	t := res.Trace
	switch {
	case t.FirstRelease != "" && t.LastRelease != "" && res.Repo != "":
		f.Checked = fmt.Sprintf("Checked releases `%s`–`%s` in `%s`", version.Display(t.FirstRelease), version.Display(t.LastRelease), res.Repo)
	case res.ReportedVersion != "":
		f.Checked = fmt.Sprintf("Checked version `%s`", version.Display(res.ReportedVersion))
	}
	switch {
	case len(t.Evaluated) > 1 && res.Repo != "":
		links := make([]string, 0, len(t.Evaluated))
		for _, n := range t.Evaluated {
			links = append(links, blocks.PRLinkMrkdwn(res.Repo, n))
		}
		f.Evaluated = "Relevant PRs evaluated: " + strings.Join(links, ", ")
	case t.ReleaseCount != nil && len(t.Evaluated) == 0:
		f.Evaluated = fmt.Sprintf("Release notes reviewed: %d", *t.ReleaseCount)
	}
	if len(t.Skipped) > 0 {
		f.Skipped = "Skipped steps: " + strings.Join(t.Skipped, "; ")
	}
	f.TraceURL = t.TraceURL
	return f
}

func toBlockCandidates(candidates []Candidate) []blocks.Candidate {
	out := make([]blocks.Candidate, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, blocks.Candidate{Version: c.Version, PRNumber: c.PRNumber, PRLink: c.PRLink, Reason: c.Reason})
	}
	return out
}

// render builds the final message for a result.
func (p *Pipeline) render(res Result) blocks.Message {
	footer := Footer(res)
	maintainers := p.sdks.Maintainers(res.Repo)
	switch res.Kind {
	case KindHighConfidence:
		return blocks.HighConfidence(blocks.HighConfidenceParams{
			Repo:       res.Repo,
			Candidates: toBlockCandidates(res.Candidates),
			Footer:     footer,
		})
	case KindMediumConfidence:
		best, _ := res.Best()
		return blocks.MediumConfidence(blocks.MediumConfidenceParams{
			Repo:        res.Repo,
			Candidates:  toBlockCandidates(res.Candidates),
			Reason:      best.Reason,
			Maintainers: maintainers,
			Display:     p.opts.DisplayMedium,
			Footer:      footer,
		})
	case KindNoResult:
		return blocks.NoResult(blocks.NoResultParams{
			Version:     res.ReportedVersion,
			Maintainers: maintainers,
			Footer:      footer,
		})
	case KindTooOld:
		return blocks.TooOld(res.ReportedVersion, p.opts.MaxReleases, maintainers, footer)
	case KindFetchFailed:
		return blocks.Simple(res.Message, "", maintainers, footer)
	default:
		return blocks.Simple(res.Message, "", "", footer)
	}
}
