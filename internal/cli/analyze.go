package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/brianndofor/wif/internal/analysis"
	"github.com/brianndofor/wif/internal/blocks"
	"github.com/brianndofor/wif/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// consoleChat prints messages to a terminal. Updates print only the newest
// progress line.
type consoleChat struct {
	mu    sync.Mutex
	out   io.Writer
	quiet bool
	n     int
}

func (c *consoleChat) PostMessage(ctx context.Context, msg blocks.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	if !c.quiet {
		fmt.Fprint(c.out, blocks.Terminal(msg))
	}
	return fmt.Sprintf("console-%d", c.n), nil
}

func (c *consoleChat) UpdateMessage(ctx context.Context, id string, msg blocks.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quiet {
		return nil
	}
	rendered := strings.TrimRight(blocks.Terminal(msg), "\n")
	if i := strings.LastIndex(rendered, "\n"); i >= 0 {
		rendered = rendered[i+1:]
	}
	fmt.Fprintln(c.out, rendered)
	return nil
}

type analyzeOutput struct {
	RunID           string               `json:"run_id"`
	Kind            analysis.Kind        `json:"kind"`
	Message         string               `json:"message,omitempty"`
	Repo            string               `json:"repo,omitempty"`
	SDK             string               `json:"sdk,omitempty"`
	ReportedVersion string               `json:"reported_version,omitempty"`
	Candidates      []analysis.Candidate `json:"candidates"`
	Footer          blocks.Footer        `json:"footer"`
	Text            string               `json:"text"`
}

func NewAnalyzeCmd() *cobra.Command {
	var file string
	var jsonOut bool
	var record bool

	cmd := &cobra.Command{
		Use:   "analyze [report]",
		Short: "Analyse a bug report from the command line",
		Long:  "Analyse a bug report given as arguments, --file, or on stdin when neither is set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd.Context())
			if err != nil {
				return err
			}
			report, err := readReport(cmd.InOrStdin(), file, args)
			if err != nil {
				return err
			}

			chat := &consoleChat{out: cmd.OutOrStdout(), quiet: jsonOut}
			runID := uuid.NewString()
			res, err := app.Pipeline.Run(cmd.Context(), chat, analysis.Request{RunID: runID, Report: report})
			if err != nil {
				if record {
					_ = app.Store.RecordRun(store.Run{ID: runID, Kind: store.KindFailed, Error: err.Error()})
				}
				return err
			}
			if record {
				if err := app.Store.RecordRun(runRecord(res)); err != nil {
					app.Logger.Warnw("failed to record run", "error", err)
				}
			}
			if !jsonOut {
				return nil
			}
			if res.Candidates == nil {
				res.Candidates = []analysis.Candidate{}
			}
			data, err := json.MarshalIndent(analyzeOutput{
				RunID:           res.RunID,
				Kind:            res.Kind,
				Message:         res.Message,
				Repo:            res.Repo,
				SDK:             res.SDK,
				ReportedVersion: res.ReportedVersion,
				Candidates:      res.Candidates,
				Footer:          analysis.Footer(res),
				Text:            res.Rendered.PlainText(),
			}, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the report from a file")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&record, "record", false, "Record the run in the local ledger")
	return cmd
}

func readReport(stdin io.Reader, file string, args []string) (string, error) {
	var report string
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read report: %w", err)
		}
		report = string(data)
	case len(args) > 0:
		report = strings.Join(args, " ")
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read report: %w", err)
		}
		report = string(data)
	}
	report = strings.TrimSpace(report)
	if report == "" {
		return "", errors.New("report is empty")
	}
	return report, nil
}

func runRecord(res analysis.Result) store.Run {
	run := store.Run{
		ID:              res.RunID,
		Kind:            string(res.Kind),
		Repo:            res.Repo,
		SDK:             res.SDK,
		ReportedVersion: res.ReportedVersion,
		Message:         res.Rendered.Text,
	}
	if best, ok := res.Best(); ok {
		run.FixedVersion = best.Version
		run.PRNumber = best.PRNumber
	}
	return run
}
