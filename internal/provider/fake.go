package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FakeRunner answers each task from <Dir>/<task>.json. A file holding a JSON
// array is replayed one element per call, repeating the last element.
type FakeRunner struct {
	Dir string

	mu    sync.Mutex
	calls map[string]int
}

func NewFakeRunner(dir string) *FakeRunner {
	return &FakeRunner{Dir: dir, calls: map[string]int{}}
}

func (f *FakeRunner) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	_ = ctx
	data, err := os.ReadFile(filepath.Join(f.Dir, req.Task+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read provider fixture: %w", err)
	}
	out := json.RawMessage(data)
	var seq []json.RawMessage
	if err := json.Unmarshal(data, &seq); err == nil {
		if len(seq) == 0 {
			return nil, ErrEmptyOutput
		}
		f.mu.Lock()
		n := f.calls[req.Task]
		f.calls[req.Task] = n + 1
		f.mu.Unlock()
		if n >= len(seq) {
			n = len(seq) - 1
		}
		out = seq[n]
	}
	if req.Schema.Source != "" {
		if err := Validate(req.Schema, out); err != nil {
			return nil, fmt.Errorf("invalid provider fixture %s: %w", req.Task, err)
		}
	}
	return out, nil
}

func (f *FakeRunner) HealthCheck(ctx context.Context) error {
	_ = ctx
	return nil
}
