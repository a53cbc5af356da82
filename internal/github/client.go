package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// ErrNotFound is returned when the code host answers 404.
var ErrNotFound = errors.New("not found")

type Client struct {
	Runner  Runner
	command string
}

func NewClient(runner Runner) *Client {
	command := "gh"
	if rr, ok := runner.(RealRunner); ok && rr.Command != "" {
		command = rr.Command
	}
	return &Client{Runner: runner, command: command}
}

func (c *Client) CheckInstalled() error {
	_, err := exec.LookPath(c.command)
	if err != nil {
		return fmt.Errorf("%s CLI not found in PATH", c.command)
	}
	return nil
}

func (c *Client) AuthStatus(ctx context.Context) error {
	_, err := c.Runner.Run(ctx, []string{"auth", "status"}, nil)
	return err
}

func (c *Client) api(ctx context.Context, args ...string) ([]byte, error) {
	output, err := c.Runner.Run(ctx, append([]string{"api"}, args...), nil)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", strings.Join(args, " "), ErrNotFound)
		}
		return nil, err
	}
	return output, nil
}

func isNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "HTTP 404") || strings.Contains(msg, "Not Found (HTTP 404)")
}

type Release struct {
	Tag        string `json:"tag_name"`
	Name       string `json:"name"`
	URL        string `json:"html_url"`
	Body       string `json:"body"`
	Prerelease bool   `json:"prerelease"`
	Draft      bool   `json:"draft"`
}

// ListReleases returns every published release of repo in the code host's
// order. Callers sort.
func (c *Client) ListReleases(ctx context.Context, repo string) ([]Release, error) {
	if _, _, err := splitRepo(repo); err != nil {
		return nil, err
	}
	output, err := c.api(ctx, "--paginate", fmt.Sprintf("repos/%s/releases?per_page=100", repo))
	if err != nil {
		return nil, err
	}
	// --paginate emits one JSON array per page back to back.
	var releases []Release
	dec := json.NewDecoder(bytes.NewReader(output))
	for {
		var page []Release
		if err := dec.Decode(&page); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode releases: %w", err)
		}
		for _, r := range page {
			if !r.Draft {
				releases = append(releases, r)
			}
		}
	}
	return releases, nil
}

type PullRequest struct {
	Number   int    `json:"number"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	State    string `json:"state"`
	Merged   bool   `json:"merged"`
	MergedAt string `json:"merged_at"`
	URL      string `json:"html_url"`
}

// MergeState summarises the PR state as open, closed or merged.
func (p PullRequest) MergeState() string {
	if p.Merged || p.MergedAt != "" {
		return "merged"
	}
	if p.State == "" {
		return "unknown"
	}
	return p.State
}

// GetPullRequest returns ErrNotFound when the PR does not exist.
func (c *Client) GetPullRequest(ctx context.Context, repo string, number int) (PullRequest, error) {
	if _, _, err := splitRepo(repo); err != nil {
		return PullRequest{}, err
	}
	if number <= 0 {
		return PullRequest{}, fmt.Errorf("invalid pull request number %d", number)
	}
	output, err := c.api(ctx, fmt.Sprintf("repos/%s/pulls/%d", repo, number))
	if err != nil {
		return PullRequest{}, err
	}
	var pr PullRequest
	if err := json.Unmarshal(output, &pr); err != nil {
		return PullRequest{}, fmt.Errorf("failed to decode pull request: %w", err)
	}
	return pr, nil
}

// refRe matches the owner/repo#N shorthand that could name an issue or a PR.
var refRe = regexp.MustCompile(`^([A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+)#([0-9]+)$`)

type LinkKind string

const (
	LinkIssue LinkKind = "issues"
	LinkPull  LinkKind = "pull"
	// LinkRef is owner/repo#N, which GitHub uses for both issues and PRs.
	LinkRef LinkKind = "ref"
)

type Link struct {
	Kind   LinkKind
	Repo   string
	Number int
}

// ParseLink parses https://github.com/owner/repo/(issues|pull)/N[...] and the
// owner/repo#N shorthand.
func ParseLink(raw string) (Link, error) {
	trimmed := strings.TrimSpace(strings.Trim(raw, "<>"))
	if m := refRe.FindStringSubmatch(trimmed); m != nil {
		number, err := strconv.Atoi(m[2])
		if err != nil || number <= 0 {
			return Link{}, fmt.Errorf("invalid reference %q", raw)
		}
		return Link{Kind: LinkRef, Repo: m[1], Number: number}, nil
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return Link{}, fmt.Errorf("invalid link %q", raw)
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	if host != "github.com" {
		return Link{}, fmt.Errorf("not a github link: %q", raw)
	}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) < 4 {
		return Link{}, fmt.Errorf("invalid github link %q", raw)
	}
	kind := LinkKind(parts[2])
	if kind != LinkIssue && kind != LinkPull {
		return Link{}, fmt.Errorf("unsupported github link %q", raw)
	}
	number, err := strconv.Atoi(parts[3])
	if err != nil || number <= 0 {
		return Link{}, fmt.Errorf("invalid github link %q", raw)
	}
	return Link{Kind: kind, Repo: parts[0] + "/" + parts[1], Number: number}, nil
}

func splitRepo(repo string) (string, string, error) {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo: %s", repo)
	}
	return parts[0], parts[1], nil
}
