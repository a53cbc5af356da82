package provider

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrEmptyOutput is returned when the provider produced no structured output.
var ErrEmptyOutput = errors.New("provider returned no structured output")

// Schema is a named JSON schema document.
type Schema struct {
	Name   string
	Source string
}

// Request is one structured question: a task-specific instruction, the
// material to reason about, and the schema the answer must satisfy.
type Request struct {
	Task        string
	Instruction string
	Prompt      string
	Schema      Schema
}

type Runner interface {
	Generate(ctx context.Context, req Request) (json.RawMessage, error)
	HealthCheck(ctx context.Context) error
}
