package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mutafix.dev/pkg/mutafix/internal/domain"
)

var viewReportFlag string

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Browse a saved candidate report",
		Long:  "Browse the latest report of the reports directory, or the one given with --report.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return workflow.View(cmd.Context(), domain.ViewArgs{
				Reports: viper.GetString(outputFlagName),
				Report:  viewReportFlag,
			})
		},
	}

	cmd.Flags().StringVarP(&viewReportFlag, "report", "r", "", "report file to open")

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
