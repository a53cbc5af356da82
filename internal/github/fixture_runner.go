package github

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// FixtureRunner serves gh api calls from files under Root:
// releases.json, pull_<N>.json and issue_<N>.json.
type FixtureRunner struct {
	Root string
}

func NewFixtureRunner(root string) FixtureRunner {
	return FixtureRunner{Root: root}
}

var (
	pullPathRe  = regexp.MustCompile(`pulls/([0-9]+)$`)
	numberArgRe = regexp.MustCompile(`^number=([0-9]+)$`)
)

func (f FixtureRunner) Run(ctx context.Context, args []string, stdin []byte) ([]byte, error) {
	_ = ctx
	_ = stdin
	key := strings.Join(args, " ")
	var file string
	switch {
	case strings.Contains(key, "auth status"):
		return []byte("logged in"), nil
	case strings.Contains(key, "/releases"):
		file = "releases.json"
	case len(args) > 0 && pullPathRe.MatchString(args[len(args)-1]):
		file = fmt.Sprintf("pull_%s.json", pullPathRe.FindStringSubmatch(args[len(args)-1])[1])
	case strings.Contains(key, "graphql"):
		for _, arg := range args {
			if m := numberArgRe.FindStringSubmatch(arg); m != nil {
				file = fmt.Sprintf("issue_%s.json", m[1])
			}
		}
	}
	if file == "" {
		return nil, fmt.Errorf("no fixture for gh args: %s", key)
	}
	data, err := os.ReadFile(filepath.Join(f.Root, file))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("gh %s: HTTP 404", key)
		}
		return nil, err
	}
	return data, nil
}
