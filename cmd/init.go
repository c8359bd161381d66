package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const forceFlagName = "force"

// initCmd represents the init command.
var initCmd = newInitCmd()

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a mutafix.yaml holding the current settings",
		Long: `Create mutafix.yaml in the working directory from the current defaults,
environment and flags. The file lists the classpath, coverage and failing-test
inputs together with the checker, formula and mutator selection so later runs
only need the subcommand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			targetPath := filepath.Join(configFolderPath, configFileName)

			force, err := cmd.Flags().GetBool(forceFlagName)
			if err != nil {
				return err
			}

			if force {
				err = viper.WriteConfigAs(targetPath)
			} else {
				err = viper.SafeWriteConfigAs(targetPath)
			}

			if err != nil {
				return fmt.Errorf("write %s: %w", targetPath, err)
			}

			cmd.Printf("wrote %s\n", targetPath)

			return nil
		},
	}

	cmd.Flags().Bool(forceFlagName, false, "overwrite an existing configuration file")

	return cmd
}

func init() {
	rootCmd.AddCommand(initCmd)
}
