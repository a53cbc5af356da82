package analysis

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/brianndofor/wif/internal/blocks"
	"github.com/brianndofor/wif/internal/github"
	"github.com/brianndofor/wif/internal/oracle"
	"github.com/brianndofor/wif/internal/version"
)

var prNumberRe = regexp.MustCompile(`#(\d+)`)

// ProgressFunc receives cumulative counts after each scanned batch.
type ProgressFunc func(done, total int)

type scanInput struct {
	releases []github.Release
	problem  string
	repo     string
	report   string
}

type scanState struct {
	high    []Candidate
	medium  []Candidate
	seen    map[int]bool
	skipped []string
	scanned int
}

// scan walks the releases oldest-first in batches. The first batch that
// yields a confirmed high-confidence candidate is the last one scanned.
func (p *Pipeline) scan(ctx context.Context, in scanInput, progress ProgressFunc) (scanState, error) {
	total := len(in.releases)
	state, _, err := foldUntil(ctx, chunk(in.releases, p.opts.BatchSize), scanState{seen: map[int]bool{}},
		func(ctx context.Context, st scanState, batch []github.Release) (scanState, bool, error) {
			st, capped, err := p.scanBatch(ctx, in, st, batch)
			if err != nil {
				return st, false, err
			}
			st.scanned += len(batch)
			if progress != nil {
				progress(st.scanned, total)
			}
			return st, capped || len(st.high) > 0, nil
		})
	return state, err
}

func (p *Pipeline) scanBatch(ctx context.Context, in scanInput, st scanState, batch []github.Release) (scanState, bool, error) {
	notes := make([]oracle.ReleaseNote, 0, len(batch))
	for _, r := range batch {
		notes = append(notes, oracle.ReleaseNote{Tag: r.Tag, Body: r.Body})
	}
	entries, err := p.oracle.FilterRelevantEntries(ctx, oracle.FilterInput{
		Repo:    in.repo,
		Problem: in.problem,
		Report:  in.report,
		Notes:   notes,
	})
	if err != nil {
		return st, false, err
	}
	p.logger.Debugw("release batch filtered", "repo", in.repo, "from", batch[0].Tag, "to", batch[len(batch)-1].Tag, "entries", len(entries))
	return foldUntil(ctx, entries, st, func(ctx context.Context, st scanState, e oracle.Entry) (scanState, bool, error) {
		tag, ok := batchTag(batch, e.Release)
		if !ok {
			p.logger.Debugw("dropping entry outside batch", "repo", in.repo, "release", e.Release, "line", e.Line)
			return st, false, nil
		}
		e.Release = tag
		return p.evaluateEntry(ctx, in, st, e)
	})
}

// batchTag maps the release an entry names onto a tag of the batch, by exact
// tag or by equal version.
func batchTag(batch []github.Release, release string) (string, bool) {
	release = strings.TrimSpace(release)
	if release == "" {
		return "", false
	}
	for _, r := range batch {
		if r.Tag == release {
			return r.Tag, true
		}
	}
	if !version.Valid(release) {
		return "", false
	}
	for _, r := range batch {
		if version.Valid(r.Tag) && version.Compare(r.Tag, release) == 0 {
			return r.Tag, true
		}
	}
	return "", false
}

// evaluateEntry scores one relevant line. It reports stop once the
// high-confidence cap is reached.
func (p *Pipeline) evaluateEntry(ctx context.Context, in scanInput, st scanState, e oracle.Entry) (scanState, bool, error) {
	n := EntryPRNumber(e)
	if n == 0 || st.seen[n] {
		return st, false, nil
	}
	st.seen[n] = true
	pr, err := p.host.GetPullRequest(ctx, in.repo, n)
	if err != nil {
		p.logger.Warnw("skipping unresolvable pull request", "repo", in.repo, "pr", n, "error", err)
		if !errors.Is(err, github.ErrNotFound) {
			st.skipped = append(st.skipped, fmt.Sprintf("Could not fetch PR #%d: %v", n, err))
		}
		return st, false, nil
	}
	match := oracle.MatchInput{
		Repo:     in.repo,
		Problem:  in.problem,
		Report:   in.report,
		Line:     e.Line,
		PRNumber: n,
		PRTitle:  pr.Title,
		PRBody:   pr.Body,
	}
	score, err := p.oracle.ScoreConfidence(ctx, match)
	if err != nil {
		return st, false, err
	}
	cand := Candidate{Version: e.Release, PRNumber: n, PRLink: blocks.PRLink(in.repo, n), Tier: TierMedium, Reason: score.Reason}
	switch score.Level {
	case oracle.LevelHigh:
		verdict, err := p.oracle.VerifyMatch(ctx, match)
		if err != nil {
			return st, false, err
		}
		if verdict.Confirmed {
			cand.Tier = TierHigh
			st.high = append(st.high, cand)
			return st, len(st.high) >= p.opts.MaxHigh, nil
		}
		cand.Reason = verdict.Reason
		st.medium = p.addMedium(st.medium, cand)
	case oracle.LevelMedium:
		st.medium = p.addMedium(st.medium, cand)
	}
	return st, false, nil
}

func (p *Pipeline) addMedium(medium []Candidate, c Candidate) []Candidate {
	if len(medium) >= p.opts.MaxMedium {
		return medium
	}
	return append(medium, c)
}

// EntryPRNumber parses "#N" out of the entry's reference, then its line.
func EntryPRNumber(e oracle.Entry) int {
	for _, s := range []string{e.PRReference, e.Line} {
		if m := prNumberRe.FindStringSubmatch(s); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}
