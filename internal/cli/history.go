package cli

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/brianndofor/wif/internal/store"
	"github.com/spf13/cobra"
)

type historyItem struct {
	ID              string `json:"id"`
	Kind            string `json:"kind"`
	Repo            string `json:"repo,omitempty"`
	ReportedVersion string `json:"reported_version,omitempty"`
	FixedVersion    string `json:"fixed_version,omitempty"`
	PRNumber        int    `json:"pr_number,omitempty"`
	Error           string `json:"error,omitempty"`
	CreatedAt       string `json:"created_at"`
	DurationMS      int64  `json:"duration_ms"`
}

func NewHistoryCmd() *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recent analysis runs, or show one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return showRun(cmd, app.Store, args[0])
			}
			runs, err := app.Store.ListRuns(limit)
			if err != nil {
				return err
			}
			items := make([]historyItem, 0, len(runs))
			for _, r := range runs {
				items = append(items, toHistoryItem(r))
			}
			if jsonOut {
				data, err := json.MarshalIndent(items, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tKIND\tREPO\tREPORTED\tFIXED\tPR")
			for _, it := range items {
				pr := ""
				if it.PRNumber > 0 {
					pr = fmt.Sprintf("#%d", it.PRNumber)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", it.CreatedAt, it.Kind, it.Repo, it.ReportedVersion, it.FixedVersion, pr)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

type runDetail struct {
	historyItem
	EventID  string `json:"event_id,omitempty"`
	Channel  string `json:"channel,omitempty"`
	ThreadTS string `json:"thread_ts,omitempty"`
	SDK      string `json:"sdk,omitempty"`
	Message  string `json:"message,omitempty"`
}

func showRun(cmd *cobra.Command, st *store.Store, id string) error {
	r, err := st.GetRun(id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(runDetail{
		historyItem: toHistoryItem(r),
		EventID:     r.EventID,
		Channel:     r.Channel,
		ThreadTS:    r.ThreadTS,
		SDK:         r.SDK,
		Message:     r.Message,
	}, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func toHistoryItem(r store.Run) historyItem {
	return historyItem{
		ID:              r.ID,
		Kind:            r.Kind,
		Repo:            r.Repo,
		ReportedVersion: r.ReportedVersion,
		FixedVersion:    r.FixedVersion,
		PRNumber:        r.PRNumber,
		Error:           r.Error,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
		DurationMS:      r.Duration.Milliseconds(),
	}
}
