package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/brianndofor/wif/internal/prompt"
	"github.com/brianndofor/wif/internal/provider"
	"github.com/brianndofor/wif/internal/redact"
	"go.uber.org/zap"
)

// Client implements Oracle over a generic structured-answer runner.
type Client struct {
	runner provider.Runner
	redact bool
	logger *zap.SugaredLogger
}

func NewClient(runner provider.Runner, redactInput bool, logger *zap.SugaredLogger) *Client {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{runner: runner, redact: redactInput, logger: logger}
}

func (c *Client) ExtractRequest(ctx context.Context, report string) (Extraction, error) {
	var out Extraction
	err := c.ask(ctx, prompt.TaskExtract, prompt.Vars{"REPORT": report}, &out)
	out.SDK = strings.TrimSpace(out.SDK)
	out.Version = strings.TrimSpace(out.Version)
	return out, err
}

func (c *Client) ResolveRepository(ctx context.Context, sdk, report string) (RepoGuess, error) {
	var out RepoGuess
	err := c.ask(ctx, prompt.TaskResolveRepo, prompt.Vars{"SDK": sdk, "REPORT": report}, &out)
	return out, err
}

func (c *Client) FilterRelevantEntries(ctx context.Context, in FilterInput) ([]Entry, error) {
	var out struct {
		Entries []Entry `json:"entries"`
	}
	err := c.ask(ctx, prompt.TaskFilterEntries, prompt.Vars{
		"REPO":    in.Repo,
		"PROBLEM": in.Problem,
		"REPORT":  in.Report,
		"NOTES":   renderNotes(in.Notes),
	}, &out)
	return out.Entries, err
}

func (c *Client) ScoreConfidence(ctx context.Context, in MatchInput) (Score, error) {
	var out Score
	err := c.ask(ctx, prompt.TaskScoreConfidence, matchVars(in), &out)
	return out, err
}

func (c *Client) VerifyMatch(ctx context.Context, in MatchInput) (Verdict, error) {
	var out Verdict
	err := c.ask(ctx, prompt.TaskVerifyMatch, matchVars(in), &out)
	return out, err
}

func (c *Client) ask(ctx context.Context, task prompt.Task, vars prompt.Vars, out interface{}) error {
	template, err := prompt.LoadTemplate(task)
	if err != nil {
		return err
	}
	schema, err := prompt.LoadSchema(task)
	if err != nil {
		return err
	}
	for key, value := range vars {
		vars[key] = redact.Optional(value, c.redact)
	}
	start := time.Now()
	raw, err := c.runner.Generate(ctx, provider.Request{
		Task:        string(task),
		Instruction: prompt.SystemInstruction(),
		Prompt:      prompt.Render(template, vars),
		Schema:      provider.Schema{Name: prompt.SchemaName(task), Source: schema},
	})
	if err != nil {
		return fmt.Errorf("oracle %s: %w", task, err)
	}
	c.logger.Debugw("oracle answered", "task", task, "duration_ms", time.Since(start).Milliseconds())
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s answer: %w", task, err)
	}
	return nil
}

func matchVars(in MatchInput) prompt.Vars {
	return prompt.Vars{
		"REPO":      in.Repo,
		"PROBLEM":   in.Problem,
		"REPORT":    in.Report,
		"LINE":      in.Line,
		"PR_NUMBER": strconv.Itoa(in.PRNumber),
		"PR_TITLE":  in.PRTitle,
		"PR_BODY":   in.PRBody,
	}
}

func renderNotes(notes []ReleaseNote) string {
	var b strings.Builder
	for i, n := range notes {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("## ")
		b.WriteString(n.Tag)
		b.WriteString("\n")
		body := strings.TrimSpace(n.Body)
		if body == "" {
			body = "(no release notes)"
		}
		b.WriteString(body)
	}
	return b.String()
}
