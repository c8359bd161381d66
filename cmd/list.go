package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mutafix.dev/pkg/mutafix/internal/domain"
)

var listShardFlag string
var listSpillDirFlag string

// listCmd represents the list command.
var listCmd = newListCmd()

const listLongDescription = `Enumerate the mutation candidates of every class on the classpath and save
them as a report.

With --failing and --coverage, only methods covered by a failing test are
mutated and only candidates whose block is covered by one are kept.`

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Enumerate mutation candidates",
		Long:  listLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			shardIndex, totalShards := parseShardFlag(listShardFlag)

			return workflow.List(cmd.Context(), domain.ListArgs{
				SessionArgs:     sessionArgs(),
				Reports:         viper.GetString(outputFlagName),
				SpillDir:        viper.GetString(spillDirKey),
				ShardIndex:      shardIndex,
				TotalShardCount: totalShards,
			})
		},
	}

	configureListFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func configureListFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&listShardFlag, "shard", "s", "", "shard index and total shard count in the format INDEX/TOTAL (e.g., 0/3)")
	cmd.Flags().StringVar(&listSpillDirFlag, spillDirFlagName, viper.GetString(spillDirKey), "directory for temporary candidate spill files")
	bindFlagToConfig(cmd.Flags().Lookup(spillDirFlagName), spillDirKey)
}

func parseShardFlag(shard string) (int, int) {
	if shard == "" {
		return 0, 1
	}

	var index, total int

	_, err := fmt.Sscanf(shard, "%d/%d", &index, &total)
	if err != nil || total <= 0 || index < 0 || index >= total {
		return 0, 1
	}

	return index, total
}
