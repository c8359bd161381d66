package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mutafix.dev/pkg/mutafix/internal/domain"
)

// indexCmd represents the index command.
var indexCmd = newIndexCmd()

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Build the class hierarchy index and show its statistics",
		Long: `Scan the codebase (the classpath unless --codebase is given) for subtype
edges and static factory methods, the way list and mutate do before
enumerating, and print what was found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			codebase := pathList(viper.GetStringSlice(codebaseFlagName))
			if len(codebase) == 0 {
				codebase = pathList(viper.GetStringSlice(classpathFlagName))
			}

			return workflow.Index(cmd.Context(), domain.IndexArgs{
				Codebase: codebase,
				Parallel: viper.GetInt(runParallelConfigKey),
			})
		},
	}
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
