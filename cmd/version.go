package cmd

import (
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"mutafix.dev/pkg/mutafix/internal/domain/mutagens"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version information",
		Long:  "Displays the build version, the Go version and the mutator groups compiled into this tool.",
		Run: func(cmd *cobra.Command, _ []string) {
			info, ok := debug.ReadBuildInfo()
			if !ok || info.Main.Version == "" {
				cmd.Println("version: unknown")
			} else {
				cmd.Println("tool version\t", info.Main.Version)
				cmd.Println("go version\t", info.GoVersion)

				if rev := buildSetting(info, "vcs.revision"); rev != "" {
					cmd.Println("revision\t", rev)
				}
			}

			cmd.Println("mutators\t", strings.Join(mutagens.Groups(), " "))
		},
	}
}

func buildSetting(info *debug.BuildInfo, key string) string {
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value
		}
	}

	return ""
}

// versionCmd represents the version command.
var versionCmd = newVersionCmd()

func init() {
	rootCmd.AddCommand(versionCmd)
}
