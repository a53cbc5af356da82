package oracle

import (
	"context"
	"strings"
)

type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// Extraction is the structured reading of a free-text report. SDK and Version
// are empty when the report does not state them.
type Extraction struct {
	SDK     string   `json:"sdk,omitempty"`
	Version string   `json:"version,omitempty"`
	Problem string   `json:"problem"`
	Links   []string `json:"links"`
}

type RepoGuess struct {
	Owner      string `json:"owner"`
	Repo       string `json:"repo"`
	Confidence Level  `json:"confidence"`
	Reasoning  string `json:"reasoning,omitempty"`
}

// Slug returns owner/repo, or "" when the guess is unusable.
func (g RepoGuess) Slug() string {
	owner := strings.TrimSpace(g.Owner)
	repo := strings.TrimSpace(g.Repo)
	if owner == "" || repo == "" || g.Confidence == LevelLow {
		return ""
	}
	return owner + "/" + repo
}

type ReleaseNote struct {
	Tag  string
	Body string
}

type FilterInput struct {
	Repo    string
	Problem string
	Report  string
	Notes   []ReleaseNote
}

// Entry is one release-note line the oracle judged relevant.
type Entry struct {
	Release     string `json:"release"`
	Line        string `json:"line"`
	PRReference string `json:"pr_reference,omitempty"`
}

type MatchInput struct {
	Repo     string
	Problem  string
	Report   string
	Line     string
	PRNumber int
	PRTitle  string
	PRBody   string
}

type Score struct {
	Level  Level  `json:"level"`
	Reason string `json:"reason"`
}

type Verdict struct {
	Confirmed bool   `json:"confirmed"`
	Reason    string `json:"reason"`
}

// Oracle answers the structured questions the pipeline asks, one method per
// question type.
type Oracle interface {
	ExtractRequest(ctx context.Context, report string) (Extraction, error)
	ResolveRepository(ctx context.Context, sdk, report string) (RepoGuess, error)
	FilterRelevantEntries(ctx context.Context, in FilterInput) ([]Entry, error)
	ScoreConfidence(ctx context.Context, in MatchInput) (Score, error)
	VerifyMatch(ctx context.Context, in MatchInput) (Verdict, error)
}
