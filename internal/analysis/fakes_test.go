package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/brianndofor/wif/internal/blocks"
	"github.com/brianndofor/wif/internal/github"
	"github.com/brianndofor/wif/internal/oracle"
	"github.com/brianndofor/wif/internal/sdkmap"
)

type fakeOracle struct {
	Extraction oracle.Extraction
	Guess      oracle.RepoGuess
	GuessErr   error
	// Entries is keyed by the first tag of each batch.
	Entries   map[string][]oracle.Entry
	FilterErr error
	Scores    map[int]oracle.Score
	Verdicts  map[int]oracle.Verdict
	// ScorePanic makes ScoreConfidence panic.
	ScorePanic bool

	FilterCalls  [][]string
	ScoredPRs    []int
	VerifiedPRs  []int
	ResolveCalls int
}

func (f *fakeOracle) ExtractRequest(ctx context.Context, report string) (oracle.Extraction, error) {
	return f.Extraction, nil
}

func (f *fakeOracle) ResolveRepository(ctx context.Context, sdk, report string) (oracle.RepoGuess, error) {
	f.ResolveCalls++
	return f.Guess, f.GuessErr
}

func (f *fakeOracle) FilterRelevantEntries(ctx context.Context, in oracle.FilterInput) ([]oracle.Entry, error) {
	tags := make([]string, 0, len(in.Notes))
	for _, n := range in.Notes {
		tags = append(tags, n.Tag)
	}
	f.FilterCalls = append(f.FilterCalls, tags)
	if f.FilterErr != nil {
		return nil, f.FilterErr
	}
	if len(tags) == 0 {
		return nil, nil
	}
	return f.Entries[tags[0]], nil
}

func (f *fakeOracle) ScoreConfidence(ctx context.Context, in oracle.MatchInput) (oracle.Score, error) {
	f.ScoredPRs = append(f.ScoredPRs, in.PRNumber)
	if f.ScorePanic {
		panic("score exploded")
	}
	score, ok := f.Scores[in.PRNumber]
	if !ok {
		return oracle.Score{Level: oracle.LevelLow, Reason: "unrelated"}, nil
	}
	return score, nil
}

func (f *fakeOracle) VerifyMatch(ctx context.Context, in oracle.MatchInput) (oracle.Verdict, error) {
	f.VerifiedPRs = append(f.VerifiedPRs, in.PRNumber)
	return f.Verdicts[in.PRNumber], nil
}

type fakeHost struct {
	Releases       []github.Release
	ReleasesErr    error
	PRs            map[int]github.PullRequest
	Resolutions    map[string]*github.Resolution
	ResolutionErrs map[string]error

	ListCalls int
}

func (f *fakeHost) ListReleases(ctx context.Context, repo string) ([]github.Release, error) {
	f.ListCalls++
	return f.Releases, f.ReleasesErr
}

func (f *fakeHost) GetPullRequest(ctx context.Context, repo string, number int) (github.PullRequest, error) {
	pr, ok := f.PRs[number]
	if !ok {
		return github.PullRequest{}, github.ErrNotFound
	}
	return pr, nil
}

func (f *fakeHost) ResolveIssueLink(ctx context.Context, url string) (*github.Resolution, error) {
	if err, ok := f.ResolutionErrs[url]; ok {
		return nil, err
	}
	return f.Resolutions[url], nil
}

type fakeChat struct {
	mu      sync.Mutex
	Posts   []blocks.Message
	Updates []blocks.Message
	PostErr error
}

func (f *fakeChat) PostMessage(ctx context.Context, msg blocks.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PostErr != nil {
		return "", f.PostErr
	}
	f.Posts = append(f.Posts, msg)
	return fmt.Sprintf("ts-%d", len(f.Posts)), nil
}

func (f *fakeChat) UpdateMessage(ctx context.Context, id string, msg blocks.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id != "ts-1" {
		return errors.New("unknown message")
	}
	f.Updates = append(f.Updates, msg)
	return nil
}

func (f *fakeChat) lastUpdate(t *testing.T) blocks.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Updates) == 0 {
		t.Fatalf("expected progress updates")
	}
	return f.Updates[len(f.Updates)-1]
}

func newPipeline(t *testing.T, o oracle.Oracle, host CodeHost) *Pipeline {
	t.Helper()
	table, err := sdkmap.Default()
	if err != nil {
		t.Fatalf("load sdk table: %v", err)
	}
	return New(o, host, table, DefaultOptions(), nil)
}

func releasesFrom(tags ...string) []github.Release {
	out := make([]github.Release, 0, len(tags))
	for _, tag := range tags {
		out = append(out, github.Release{Tag: tag, Body: "- Internal changes"})
	}
	return out
}

func patchReleases(major, minor, from, to int) []github.Release {
	tags := make([]string, 0, to-from+1)
	for p := from; p <= to; p++ {
		tags = append(tags, fmt.Sprintf("%d.%d.%d", major, minor, p))
	}
	return releasesFrom(tags...)
}

func prs(numbers ...int) map[int]github.PullRequest {
	out := make(map[int]github.PullRequest, len(numbers))
	for _, n := range numbers {
		out[n] = github.PullRequest{Number: n, Title: fmt.Sprintf("Fix %d", n), State: "closed", Merged: true}
	}
	return out
}

func entry(release string, pr int) oracle.Entry {
	return oracle.Entry{Release: release, Line: fmt.Sprintf("- Fix something (#%d)", pr), PRReference: fmt.Sprintf("#%d", pr)}
}

func cocoaReport(version string, links ...string) oracle.Extraction {
	return oracle.Extraction{SDK: "cocoa", Version: version, Problem: "app crashes on launch", Links: links}
}
