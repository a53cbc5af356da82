package analysis

import (
	"context"
	"errors"

	"github.com/brianndofor/wif/internal/blocks"
	"github.com/brianndofor/wif/internal/github"
)

// ErrNoChat is returned by Run when no chat collaborator was supplied.
var ErrNoChat = errors.New("analysis: no chat to report to")

type Kind string

const (
	KindClarification    Kind = "clarification"
	KindHighConfidence   Kind = "high_confidence"
	KindMediumConfidence Kind = "medium_confidence"
	KindNoResult         Kind = "no_result"
	KindTooOld           Kind = "too_old"
	KindAlreadyLatest    Kind = "already_latest"
	KindInvalidVersion   Kind = "invalid_version"
	KindFetchFailed      Kind = "fetch_failed"
)

type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
)

// Candidate is a (version, pull request) pair believed to fix the problem.
type Candidate struct {
	Version  string `json:"version"`
	PRNumber int    `json:"pr_number"`
	PRLink   string `json:"pr_link"`
	Tier     Tier   `json:"tier"`
	Reason   string `json:"reason,omitempty"`
}

// Trace records what a run looked at, for the footer and the run ledger.
type Trace struct {
	FirstRelease string
	LastRelease  string
	// ReleaseCount is nil when no release range was fetched.
	ReleaseCount *int
	Evaluated    []int
	Skipped      []string
	TraceURL     string
}

// Result is the single terminal outcome of a run.
type Result struct {
	RunID           string
	Kind            Kind
	Message         string
	Repo            string
	SDK             string
	ReportedVersion string
	// Candidates holds the confirmed high-confidence fixes or, for
	// medium_confidence, every medium candidate in scan order.
	Candidates []Candidate
	Trace      Trace
	Rendered   blocks.Message
}

// Best returns the representative candidate, the first in scan order.
func (r Result) Best() (Candidate, bool) {
	if len(r.Candidates) == 0 {
		return Candidate{}, false
	}
	return r.Candidates[0], true
}

// Request is one report to analyse. Thread is the rendered conversation the
// report came from; when empty the report alone is used as context.
type Request struct {
	RunID  string
	Report string
	Thread string
}

func (r Request) context() string {
	if r.Thread != "" {
		return r.Thread
	}
	return r.Report
}

// CodeHost is the code-hosting collaborator.
type CodeHost interface {
	ListReleases(ctx context.Context, repo string) ([]github.Release, error)
	GetPullRequest(ctx context.Context, repo string, number int) (github.PullRequest, error)
	ResolveIssueLink(ctx context.Context, url string) (*github.Resolution, error)
}

// Chat is the chat collaborator a run reports through. PostMessage returns
// an id that UpdateMessage accepts.
type Chat interface {
	PostMessage(ctx context.Context, msg blocks.Message) (string, error)
	UpdateMessage(ctx context.Context, id string, msg blocks.Message) error
}

type Options struct {
	BatchSize     int
	MaxReleases   int
	MaxHigh       int
	MaxMedium     int
	DisplayMedium int
	TraceURLBase  string
}

func DefaultOptions() Options {
	return Options{
		BatchSize:     5,
		MaxReleases:   100,
		MaxHigh:       3,
		MaxMedium:     5,
		DisplayMedium: 3,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.BatchSize <= 0 {
		o.BatchSize = d.BatchSize
	}
	if o.MaxReleases <= 0 {
		o.MaxReleases = d.MaxReleases
	}
	if o.MaxHigh <= 0 {
		o.MaxHigh = d.MaxHigh
	}
	if o.MaxMedium <= 0 {
		o.MaxMedium = d.MaxMedium
	}
	if o.DisplayMedium <= 0 {
		o.DisplayMedium = d.DisplayMedium
	}
	return o
}
