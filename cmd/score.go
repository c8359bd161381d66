package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mutafix.dev/pkg/mutafix/internal/domain"
)

var scoreFormulaFlag string
var scoreTopFlag int
var scoreReportFlag string

// scoreCmd represents the score command.
var scoreCmd = newScoreCmd()

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Rank the candidates of a report by suspiciousness",
		Long: `Score every candidate of a report from the tests covering its block and the
failing tests, then print the most suspicious ones. The ranking is saved back
into the report. Without --report the latest report is scored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return workflow.Score(cmd.Context(), domain.ScoreArgs{
				Reports:  viper.GetString(outputFlagName),
				Report:   scoreReportFlag,
				Coverage: viper.GetString(coverageFlagName),
				Failing:  viper.GetString(failingFlagName),
				Formula:  viper.GetString(suspFormulaKey),
				Top:      viper.GetInt(scoreTopKey),
			})
		},
	}

	cmd.Flags().StringVar(&scoreFormulaFlag, formulaFlagName, viper.GetString(suspFormulaKey), "suspiciousness formula: ochiai or tarantula")
	bindFlagToConfig(cmd.Flags().Lookup(formulaFlagName), suspFormulaKey)

	cmd.Flags().IntVarP(&scoreTopFlag, "top", "n", viper.GetInt(scoreTopKey), "number of candidates shown, 0 for all")
	bindFlagToConfig(cmd.Flags().Lookup("top"), scoreTopKey)

	cmd.Flags().StringVarP(&scoreReportFlag, "report", "r", "", "report file to score")

	return cmd
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}
