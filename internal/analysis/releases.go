package analysis

import (
	"context"
	"fmt"
	"sort"

	"github.com/brianndofor/wif/internal/github"
	"github.com/brianndofor/wif/internal/version"
)

const (
	invalidVersionMessage = "Could not find the reported version. Please verify the version is correct."
	fetchFailedMessage    = "Unable to fetch releases. Deferring to SDK maintainers for investigation."
	alreadyLatestMessage  = "No releases found after the reported version. You may already be on the latest stable release."
)

// ReleasesAfter returns the stable releases strictly after reported, oldest
// first. Tags that do not parse are dropped.
func ReleasesAfter(releases []github.Release, reported string) []github.Release {
	out := make([]github.Release, 0, len(releases))
	for _, r := range releases {
		if version.IsPrerelease(r.Tag) || !version.After(r.Tag, reported) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return version.Compare(out[i].Tag, out[j].Tag) < 0
	})
	return out
}

// fetchReleaseRange classifies the degenerate ranges into terminal results
// and otherwise returns the releases to scan.
func (p *Pipeline) fetchReleaseRange(ctx context.Context, repo, reported string) ([]github.Release, *Result) {
	if !version.Valid(reported) {
		return nil, &Result{Kind: KindInvalidVersion, Message: invalidVersionMessage}
	}
	all, err := p.host.ListReleases(ctx, repo)
	if err != nil {
		p.logger.Warnw("failed to fetch releases", "repo", repo, "error", err)
		return nil, &Result{Kind: KindFetchFailed, Message: fetchFailedMessage}
	}
	after := ReleasesAfter(all, reported)
	if len(after) == 0 {
		message := alreadyLatestMessage
		tags := make([]string, 0, len(all))
		for _, r := range all {
			tags = append(tags, r.Tag)
		}
		if span, ok := version.StableSpan(tags); ok {
			message += fmt.Sprintf(" Known stable versions range from `%s` to `%s`.", span.Oldest, span.Newest)
		}
		return nil, &Result{Kind: KindAlreadyLatest, Message: message}
	}
	if len(after) > p.opts.MaxReleases {
		return nil, &Result{
			Kind:    KindTooOld,
			Message: fmt.Sprintf("The reported version is too old. There are more than %d releases since then. Unable to look this up efficiently.", p.opts.MaxReleases),
		}
	}
	return after, nil
}
