package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/brianndofor/wif/internal/prompt"
	"github.com/brianndofor/wif/internal/provider"
	"github.com/brianndofor/wif/internal/slack"
	"github.com/spf13/cobra"
)

func NewDoctorCmd() *cobra.Command {
	var skipProvider bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check dependencies and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd.Context())
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "wif doctor")

			if app.Config.Mock.Enabled {
				fmt.Fprintln(out, "- mock mode: on")
			} else {
				if err := app.GH.CheckInstalled(); err != nil {
					return err
				}
				fmt.Fprintln(out, "- gh: ok")
			}
			if err := app.GH.AuthStatus(ctx); err != nil {
				return fmt.Errorf("gh auth: %w", err)
			}
			fmt.Fprintln(out, "- gh auth: ok")

			fmt.Fprintf(out, "- sdk table: %d repositories\n", app.SDKs.Len())

			for _, task := range prompt.Tasks {
				source, err := prompt.LoadSchema(task)
				if err != nil {
					return err
				}
				schema := provider.Schema{Name: prompt.SchemaName(task), Source: source}
				if err := provider.Compile(schema); err != nil {
					return fmt.Errorf("schema %s: %w", schema.Name, err)
				}
				if _, err := prompt.LoadTemplate(task); err != nil {
					return err
				}
			}
			fmt.Fprintln(out, "- prompts and schemas: ok")

			if skipProvider {
				fmt.Fprintln(out, "- provider: skipped")
			} else {
				if err := app.Provider.HealthCheck(ctx); err != nil {
					fmt.Fprintf(cmd.OutOrStderr(), "- provider: failed\n%v\n", err)
					return err
				}
				fmt.Fprintln(out, "- provider: ok")
			}

			if app.Config.Slack.BotToken == "" {
				fmt.Fprintln(out, "- slack: no bot token configured")
			} else {
				identity, err := slack.New(app.Config.Slack.BotToken, app.Logger).AuthStatus(ctx)
				if err != nil {
					return fmt.Errorf("slack auth: %w", err)
				}
				fmt.Fprintf(out, "- slack: ok (%s)\n", identity)
			}
			fmt.Fprintln(out, "doctor checks passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipProvider, "skip-provider", false, "Skip the provider round trip")
	return cmd
}
