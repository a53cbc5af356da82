package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/brianndofor/wif/internal/version"
)

// Resolution is the release and pull request that closed a linked issue.
type Resolution struct {
	Repo           string
	FixedInVersion string
	PRNumber       int
}

type closingPRsResponse struct {
	Data struct {
		Repository struct {
			Issue struct {
				ClosedByPullRequestsReferences struct {
					Nodes []closingPRNode `json:"nodes"`
				} `json:"closedByPullRequestsReferences"`
			} `json:"issue"`
		} `json:"repository"`
	} `json:"data"`
}

type closingPRNode struct {
	Number int  `json:"number"`
	Merged bool `json:"merged"`
}

const closingPRsQuery = `query($owner: String!, $name: String!, $number: Int!) {
  repository(owner: $owner, name: $name) {
    issue(number: $number) {
      closedByPullRequestsReferences(first: 10, includeClosedPrs: true) {
        nodes {
          number
          merged
        }
      }
    }
  }
}`

// ResolveIssueLink maps an issue or pull request URL to the merged PR that
// fixed it and the earliest stable release whose notes mention that PR.
// A nil resolution with a nil error means the link is valid but nothing has
// shipped for it.
func (c *Client) ResolveIssueLink(ctx context.Context, rawURL string) (*Resolution, error) {
	link, err := ParseLink(rawURL)
	if err != nil {
		return nil, err
	}

	prNumber := 0
	switch link.Kind {
	case LinkPull:
		pr, err := c.GetPullRequest(ctx, link.Repo, link.Number)
		if err != nil {
			return nil, err
		}
		if pr.MergeState() != "merged" {
			return nil, nil
		}
		prNumber = pr.Number
	case LinkIssue:
		prNumber, err = c.closingPR(ctx, link)
		if err != nil {
			return nil, err
		}
		if prNumber == 0 {
			return nil, nil
		}
	case LinkRef:
		// The pulls endpoint 404s for issue numbers.
		pr, err := c.GetPullRequest(ctx, link.Repo, link.Number)
		switch {
		case err == nil:
			if pr.MergeState() != "merged" {
				return nil, nil
			}
			prNumber = pr.Number
		case errors.Is(err, ErrNotFound):
			prNumber, err = c.closingPR(ctx, link)
			if err != nil {
				return nil, err
			}
			if prNumber == 0 {
				return nil, nil
			}
		default:
			return nil, err
		}
	}

	releases, err := c.ListReleases(ctx, link.Repo)
	if err != nil {
		return nil, err
	}
	release, ok := FirstReleaseMentioning(releases, link.Repo, prNumber)
	if !ok {
		return nil, nil
	}
	return &Resolution{Repo: link.Repo, FixedInVersion: release.Tag, PRNumber: prNumber}, nil
}

func (c *Client) closingPR(ctx context.Context, link Link) (int, error) {
	owner, name, err := splitRepo(link.Repo)
	if err != nil {
		return 0, err
	}
	args := []string{"graphql", "-f", "query=" + closingPRsQuery, "-f", "owner=" + owner, "-f", "name=" + name, "-F", fmt.Sprintf("number=%d", link.Number)}
	output, err := c.api(ctx, args...)
	if err != nil {
		return 0, err
	}
	var resp closingPRsResponse
	if err := json.Unmarshal(output, &resp); err != nil {
		return 0, fmt.Errorf("failed to decode closing pull requests: %w", err)
	}
	for _, node := range resp.Data.Repository.Issue.ClosedByPullRequestsReferences.Nodes {
		if node.Merged {
			return node.Number, nil
		}
	}
	return 0, nil
}

// FirstReleaseMentioning returns the oldest stable release whose notes
// reference the PR by "#N" or by URL.
func FirstReleaseMentioning(releases []Release, repo string, prNumber int) (Release, bool) {
	ref := regexp.MustCompile(`(#` + strconv.Itoa(prNumber) + `\b|/` + regexp.QuoteMeta(repo) + `/pull/` + strconv.Itoa(prNumber) + `\b)`)
	stable := make([]Release, 0, len(releases))
	for _, r := range releases {
		if version.Valid(r.Tag) && !version.IsPrerelease(r.Tag) {
			stable = append(stable, r)
		}
	}
	sort.SliceStable(stable, func(i, j int) bool {
		return version.Compare(stable[i].Tag, stable[j].Tag) < 0
	})
	for _, r := range stable {
		if ref.MatchString(r.Body) {
			return r, true
		}
	}
	return Release{}, false
}
