package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/brianndofor/wif/internal/config"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// claudeResponse is the wrapper printed by the Claude CLI with
// --output-format json and --json-schema.
type claudeResponse struct {
	Type             string          `json:"type"`
	Subtype          string          `json:"subtype"`
	IsError          bool            `json:"is_error"`
	Result           string          `json:"result"`
	StructuredOutput json.RawMessage `json:"structured_output"`
}

// extractStructuredOutput returns the schema-conforming payload from the
// CLI wrapper.
func extractStructuredOutput(raw []byte) ([]byte, error) {
	var resp claudeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse claude response wrapper: %w", err)
	}
	if resp.IsError {
		return nil, fmt.Errorf("claude returned an error response: %s", strings.TrimSpace(resp.Result))
	}
	if len(resp.StructuredOutput) == 0 || string(resp.StructuredOutput) == "null" {
		return nil, ErrEmptyOutput
	}
	return resp.StructuredOutput, nil
}

type ClaudeRunner struct {
	command string
	args    []string
	timeout time.Duration
}

func NewClaudeRunner(cfg config.ProviderConfig) *ClaudeRunner {
	command := cfg.Command
	if command == "" {
		command = "claude"
	}
	return &ClaudeRunner{command: command, args: cfg.Args, timeout: cfg.Timeout}
}

func (c *ClaudeRunner) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	schema, err := compactSchema(req.Schema)
	if err != nil {
		return nil, err
	}
	args := append([]string{}, c.args...)
	args = append(args, "-p", "--output-format", "json", "--json-schema", schema)
	if strings.TrimSpace(req.Instruction) != "" {
		args = append(args, "--append-system-prompt", req.Instruction)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, c.command, args...)
	// Prompts can be large; the CLI reads them from stdin in print mode.
	cmd.Stdin = strings.NewReader(req.Prompt)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("provider %s timed out: %w", req.Task, ctx.Err())
		}
		return nil, fmt.Errorf("provider %s failed: %w\n%s", req.Task, err, stderr.String())
	}
	structured, err := extractStructuredOutput(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", req.Task, err)
	}
	if err := Validate(req.Schema, structured); err != nil {
		return nil, fmt.Errorf("provider %s: %w", req.Task, err)
	}
	return structured, nil
}

var healthSchema = Schema{
	Name:   "health.schema.json",
	Source: `{"type":"object","properties":{"ok":{"type":"boolean"}},"required":["ok"],"additionalProperties":false}`,
}

func (c *ClaudeRunner) HealthCheck(ctx context.Context) error {
	out, err := c.Generate(ctx, Request{
		Task:   "health",
		Prompt: "Return JSON matching the schema with ok set to true.",
		Schema: healthSchema,
	})
	if err != nil {
		return fmt.Errorf("provider health check failed: %w", err)
	}
	var resp struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal(out, &resp); err != nil || !resp.OK {
		return fmt.Errorf("provider health check returned %s", string(out))
	}
	return nil
}

func compactSchema(s Schema) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s.Source)); err != nil {
		return "", fmt.Errorf("invalid schema %s: %w", s.Name, err)
	}
	return buf.String(), nil
}

var (
	compiledMu sync.Mutex
	compiled   = map[string]*jsonschema.Schema{}
)

func compile(s Schema) (*jsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()
	if schema, ok := compiled[s.Name]; ok {
		return schema, nil
	}
	schema, err := jsonschema.CompileString(s.Name, s.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema %s: %w", s.Name, err)
	}
	compiled[s.Name] = schema
	return schema, nil
}

// Compile reports whether s is a usable JSON schema.
func Compile(s Schema) error {
	_, err := compile(s)
	return err
}

// Validate checks data against the schema.
func Validate(s Schema, data []byte) error {
	schema, err := compile(s)
	if err != nil {
		return err
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("provider output failed schema validation: %w", err)
	}
	return nil
}
