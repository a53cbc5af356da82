package prompt

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	template := "Repo: {REPO}\nProblem: {PROBLEM}"
	output := Render(template, Vars{"REPO": "getsentry/sentry-cocoa", "PROBLEM": ""})
	if output != "Repo: getsentry/sentry-cocoa\nProblem: None" {
		t.Fatalf("unexpected render: %q", output)
	}
}

func TestRenderLeavesPlaceholdersInValues(t *testing.T) {
	template := "Problem: {PROBLEM}\nReport: {REPORT}"
	vars := Vars{"PROBLEM": "crash", "REPORT": "user wrote {PROBLEM} literally"}
	want := "Problem: crash\nReport: user wrote {PROBLEM} literally"
	for i := 0; i < 100; i++ {
		if got := Render(template, vars); got != want {
			t.Fatalf("unexpected render on attempt %d: %q", i, got)
		}
	}
}

func TestEveryTaskHasTemplateAndSchema(t *testing.T) {
	for _, task := range Tasks {
		tpl, err := LoadTemplate(task)
		if err != nil {
			t.Fatalf("%s: %v", task, err)
		}
		if !strings.Contains(tpl, "{") {
			t.Fatalf("%s: template has no placeholders", task)
		}
		schema, err := LoadSchema(task)
		if err != nil {
			t.Fatalf("%s: %v", task, err)
		}
		var v map[string]interface{}
		if err := json.Unmarshal([]byte(schema), &v); err != nil {
			t.Fatalf("%s: schema is not JSON: %v", task, err)
		}
	}
	if SystemInstruction() == "" {
		t.Fatalf("expected system instruction")
	}
}

func TestLoadTemplateOverride(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "extract.txt"), []byte("custom {REPORT}"), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}
	t.Setenv("WIF_PROMPT_DIR", dir)
	tpl, err := LoadTemplate(TaskExtract)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tpl != "custom {REPORT}" {
		t.Fatalf("expected override, got %q", tpl)
	}
	tpl, err = LoadTemplate(TaskVerifyMatch)
	if err != nil || !strings.Contains(tpl, "{PR_NUMBER}") {
		t.Fatalf("expected embedded fallback, got %q (%v)", tpl, err)
	}
}
