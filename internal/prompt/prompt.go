package prompt

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed templates/*.txt schemas/*.json
var assets embed.FS

type Task string

const (
	TaskExtract         Task = "extract"
	TaskResolveRepo     Task = "resolve_repo"
	TaskFilterEntries   Task = "filter_entries"
	TaskScoreConfidence Task = "score_confidence"
	TaskVerifyMatch     Task = "verify_match"
)

var Tasks = []Task{TaskExtract, TaskResolveRepo, TaskFilterEntries, TaskScoreConfidence, TaskVerifyMatch}

// Vars holds placeholder values keyed without braces, e.g. "REPO".
type Vars map[string]string

// LoadTemplate returns the prompt for task. WIF_PROMPT_DIR overrides the
// embedded copy with <dir>/<task>.txt when that file exists.
func LoadTemplate(task Task) (string, error) {
	if dir := os.Getenv("WIF_PROMPT_DIR"); dir != "" {
		content, err := os.ReadFile(filepath.Join(dir, string(task)+".txt"))
		if err == nil {
			return string(content), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to read prompt template: %w", err)
		}
	}
	content, err := assets.ReadFile("templates/" + string(task) + ".txt")
	if err != nil {
		return "", fmt.Errorf("unknown prompt template %q: %w", task, err)
	}
	return string(content), nil
}

func SystemInstruction() string {
	content, err := assets.ReadFile("templates/system.txt")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(content))
}

// SchemaName is the resource name used when compiling the task schema.
func SchemaName(task Task) string {
	return string(task) + ".schema.json"
}

func LoadSchema(task Task) (string, error) {
	content, err := assets.ReadFile("schemas/" + SchemaName(task))
	if err != nil {
		return "", fmt.Errorf("unknown schema %q: %w", task, err)
	}
	return string(content), nil
}

// Render substitutes {KEY} placeholders in one pass, so placeholder text
// inside a value is left alone. Empty values render as "None" so the model
// never sees a dangling label.
func Render(template string, vars Vars) string {
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, 2*len(keys))
	for _, key := range keys {
		value := vars[key]
		if strings.TrimSpace(value) == "" {
			value = "None"
		}
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.TrimSpace(strings.NewReplacer(pairs...).Replace(template))
}
