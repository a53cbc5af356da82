package cli

import (
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var configPath string
	var app *App

	root := &cobra.Command{
		Use:           "wif",
		Short:         "Tell a bug reporter whether their issue is already fixed",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			app, err = initApp(configPath)
			if err != nil {
				return err
			}
			cmd.SetContext(withApp(cmd.Context(), app))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				app.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Override config path")

	root.AddCommand(NewServeCmd())
	root.AddCommand(NewAnalyzeCmd())
	root.AddCommand(NewDoctorCmd())
	root.AddCommand(NewConfigCmd())
	root.AddCommand(NewHistoryCmd())

	return root
}
