package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mutafix.dev/pkg/mutafix/internal/domain"
)

var mutateOutputFlag string
var mutateDiffFlag bool

// mutateCmd represents the mutate command.
var mutateCmd = newMutateCmd()

func newMutateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mutate <mutation-id>",
		Short: "Materialize one candidate as a mutated class file",
		Long: `Re-walk the method named by a mutation id, apply exactly that candidate and
write the resulting class file under the output directory, laid out by
package. Ids are the ones listed in reports, e.g.

  demo/Calc#add#(II)I#12#LOCAL_NAME_MUTATOR_0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.Mutate(cmd.Context(), domain.MutateArgs{
				SessionArgs: sessionArgs(),
				ID:          args[0],
				Output:      viper.GetString(mutateOutputKey),
				Diff:        viper.GetBool(mutateDiffKey),
			})
		},
	}

	cmd.Flags().StringVarP(&mutateOutputFlag, "out-dir", "d", viper.GetString(mutateOutputKey), "directory the mutated class is written to")
	bindFlagToConfig(cmd.Flags().Lookup("out-dir"), mutateOutputKey)

	cmd.Flags().BoolVar(&mutateDiffFlag, "diff", viper.GetBool(mutateDiffKey), "show the diff of the disassembled method")
	bindFlagToConfig(cmd.Flags().Lookup("diff"), mutateDiffKey)

	return cmd
}

func init() {
	rootCmd.AddCommand(mutateCmd)
}
