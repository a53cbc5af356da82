// Package sdkmap holds the read-only SDK and maintainer lookup tables.
package sdkmap

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed sdks.yaml
var defaultTable []byte

type file struct {
	Repositories map[string]string   `yaml:"repositories"`
	Maintainers  map[string][]string `yaml:"maintainers"`
}

// Table is immutable after construction and safe for concurrent use.
type Table struct {
	repos       map[string]string
	maintainers map[string][]string
}

// Default returns the embedded table.
func Default() (*Table, error) {
	return Parse(defaultTable)
}

// Load reads a table from path, or the embedded table when path is empty.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sdk table: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Table, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse sdk table: %w", err)
	}
	t := &Table{
		repos:       make(map[string]string, len(f.Repositories)),
		maintainers: make(map[string][]string, len(f.Maintainers)),
	}
	for sdk, repo := range f.Repositories {
		repo = strings.TrimSpace(repo)
		if !ValidSlug(repo) {
			return nil, fmt.Errorf("invalid repository %q for sdk %q", repo, sdk)
		}
		t.repos[normalize(sdk)] = repo
	}
	for repo, groups := range f.Maintainers {
		t.maintainers[strings.ToLower(strings.TrimSpace(repo))] = append([]string(nil), groups...)
	}
	return t, nil
}

// Repository looks an SDK identifier up case-insensitively.
func (t *Table) Repository(sdk string) (string, bool) {
	repo, ok := t.repos[normalize(sdk)]
	return repo, ok
}

// Maintainers returns the space-separated group handles for repo, or "".
func (t *Table) Maintainers(repo string) string {
	return strings.Join(t.maintainers[strings.ToLower(strings.TrimSpace(repo))], " ")
}

func (t *Table) Len() int { return len(t.repos) }

func normalize(sdk string) string {
	s := strings.ToLower(strings.TrimSpace(sdk))
	s = strings.TrimPrefix(s, "@sentry/")
	return s
}

// ValidSlug reports whether s looks like owner/name.
func ValidSlug(s string) bool {
	parts := strings.Split(s, "/")
	return len(parts) == 2 && strings.TrimSpace(parts[0]) != "" && strings.TrimSpace(parts[1]) != "" && !strings.ContainsAny(s, " \t\n")
}
