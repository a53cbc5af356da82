package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/brianndofor/wif/internal/blocks"
	"github.com/brianndofor/wif/internal/github"
	"github.com/brianndofor/wif/internal/oracle"
	"github.com/brianndofor/wif/internal/version"
)

type linkInput struct {
	reported string
	repo     string
	problem  string
	report   string
}

type linkState struct {
	hit     *Candidate
	skipped []string
}

// checkLinks tries each referenced link in order and stops at the first
// verified high-confidence fix. Links that fail are recorded as skipped;
// links that resolve to nothing newer than the reported version are not.
func (p *Pipeline) checkLinks(ctx context.Context, links []string, in linkInput) linkState {
	state, _, _ := foldUntil(ctx, links, linkState{}, func(ctx context.Context, st linkState, link string) (linkState, bool, error) {
		hit, err := p.checkLink(ctx, link, in)
		if err != nil {
			p.logger.Warnw("linked issue check failed", "link", link, "error", err)
			st.skipped = append(st.skipped, fmt.Sprintf("Could not check link %s: %v", link, err))
			return st, false, nil
		}
		if hit != nil {
			st.hit = hit
			return st, true, nil
		}
		return st, false, nil
	})
	return state
}

func (p *Pipeline) checkLink(ctx context.Context, link string, in linkInput) (*Candidate, error) {
	res, err := p.host.ResolveIssueLink(ctx, link)
	if err != nil {
		return nil, err
	}
	if res == nil {
		p.logger.Debugw("linked issue has no shipped fix", "link", link)
		return nil, nil
	}
	if !version.After(res.FixedInVersion, in.reported) {
		p.logger.Debugw("linked fix is not newer than reported version", "link", link, "fixed_in", res.FixedInVersion, "version", in.reported)
		return nil, nil
	}
	repo := res.Repo
	if repo == "" {
		repo = in.repo
	}
	pr, err := p.host.GetPullRequest(ctx, repo, res.PRNumber)
	if errors.Is(err, github.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	match := oracle.MatchInput{
		Repo:     repo,
		Problem:  in.problem,
		Report:   in.report,
		PRNumber: pr.Number,
		PRTitle:  pr.Title,
		PRBody:   pr.Body,
	}
	if match.PRNumber == 0 {
		match.PRNumber = res.PRNumber
	}
	score, err := p.oracle.ScoreConfidence(ctx, match)
	if err != nil {
		return nil, err
	}
	if score.Level != oracle.LevelHigh {
		return nil, nil
	}
	verdict, err := p.oracle.VerifyMatch(ctx, match)
	if err != nil {
		return nil, err
	}
	if !verdict.Confirmed {
		p.logger.Infow("linked fix not confirmed", "link", link, "pr", res.PRNumber, "reason", verdict.Reason)
		return nil, nil
	}
	return &Candidate{
		Version:  res.FixedInVersion,
		PRNumber: res.PRNumber,
		PRLink:   blocks.PRLink(repo, res.PRNumber),
		Tier:     TierHigh,
		Reason:   score.Reason,
	}, nil
}
