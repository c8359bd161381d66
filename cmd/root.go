// Package cmd provides the root command and CLI setup for mutafix.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"mutafix.dev/pkg/mutafix/internal/adapter"
	"mutafix.dev/pkg/mutafix/internal/controller"
	"mutafix.dev/pkg/mutafix/internal/domain"
)

var reportStore adapter.ReportStore
var workflow domain.Workflow
var ui controller.UI

// reportsOutputDirFlag is a root-level flag shared by commands that read/write reports.
var reportsOutputDirFlag string

var (
	classpathFlag      []string
	codebaseFlag       []string
	coverageFlag       string
	failingFlag        string
	mutatorsFlag       []string
	excludeMethodsFlag []string
	checkerFlag        string
	parallelFlag       int
	cacheSizeFlag      int
	verboseFlag        bool
	logFileFlag        string
)

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	reportStore = adapter.NewReportStore()
	workflow = domain.NewWorkflow(
		reportStore,
		adapter.NewYAMLCoverageLoader(),
		adapter.NewFileFailingTestsLoader(),
		adapter.NewClassWriter(),
		ui,
	)
}

const rootLongDescription = `Mutafix generates candidate patches for compiled JVM programs by mutating
class files. Coverage of the failing tests narrows the search to suspicious
code, typed mutators enumerate the candidate substitutions, and every
candidate can be materialized on its own as a mutated class file.

Class paths accept directories and jar files, repeated or joined by the
system path list separator.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mutafix",
		Short: "Bytecode mutation engine for program repair",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringVarP(&reportsOutputDirFlag, outputFlagName, "o", viper.GetString(outputFlagName), "directory of candidate reports")
	bindFlagToConfig(flags.Lookup(outputFlagName), outputFlagName)

	flags.StringSliceVarP(&classpathFlag, classpathFlagName, "c", viper.GetStringSlice(classpathFlagName), "class directories and jars under mutation (can be repeated)")
	bindFlagToConfig(flags.Lookup(classpathFlagName), classpathFlagName)

	flags.StringSliceVar(&codebaseFlag, codebaseFlagName, viper.GetStringSlice(codebaseFlagName), "class directories and jars scanned for the class hierarchy (default: classpath)")
	bindFlagToConfig(flags.Lookup(codebaseFlagName), codebaseFlagName)

	flags.StringVar(&coverageFlag, coverageFlagName, viper.GetString(coverageFlagName), "YAML table of the tests covering each basic block")
	bindFlagToConfig(flags.Lookup(coverageFlagName), coverageFlagName)

	flags.StringVar(&failingFlag, failingFlagName, viper.GetString(failingFlagName), "file listing the originally failing tests")
	bindFlagToConfig(flags.Lookup(failingFlagName), failingFlagName)

	flags.StringSliceVarP(&mutatorsFlag, mutatorsFlagName, "m", viper.GetStringSlice(mutatorsFlagName), "mutator groups to activate")
	bindFlagToConfig(flags.Lookup(mutatorsFlagName), mutatorsFlagName)

	flags.StringArrayVarP(&excludeMethodsFlag, excludeMethodsFlagName, "x", viper.GetStringSlice(excludeMethodsKey), "never mutate methods whose name matches the glob (can be repeated)")
	bindFlagToConfig(flags.Lookup(excludeMethodsFlagName), excludeMethodsKey)

	flags.StringVar(&checkerFlag, checkerFlagName, viper.GetString(suspCheckerKey), "suspicion checker: dummy, strict or weak")
	bindFlagToConfig(flags.Lookup(checkerFlagName), suspCheckerKey)

	flags.IntVarP(&parallelFlag, runParallelFlagName, "p", viper.GetInt(runParallelConfigKey), "number of classes processed in parallel")
	bindFlagToConfig(flags.Lookup(runParallelFlagName), runParallelConfigKey)

	flags.IntVar(&cacheSizeFlag, cacheSizeFlagName, viper.GetInt(cacheSizeKey), "number of parsed classes kept in memory")
	bindFlagToConfig(flags.Lookup(cacheSizeFlagName), cacheSizeKey)

	flags.BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(flags.Lookup(verboseFlagName), logVerboseKey)

	flags.StringVar(&logFileFlag, logFileFlagName, viper.GetString(logFilenameKey), "log file")
	bindFlagToConfig(flags.Lookup(logFileFlagName), logFilenameKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// sessionArgs collects the session settings from flags, env and config.
func sessionArgs() domain.SessionArgs {
	return domain.SessionArgs{
		ClassPath:      pathList(viper.GetStringSlice(classpathFlagName)),
		Codebase:       pathList(viper.GetStringSlice(codebaseFlagName)),
		Coverage:       viper.GetString(coverageFlagName),
		Failing:        viper.GetString(failingFlagName),
		Checker:        viper.GetString(suspCheckerKey),
		Mutators:       viper.GetStringSlice(mutatorsFlagName),
		ExcludeMethods: viper.GetStringSlice(excludeMethodsKey),
		CacheSize:      viper.GetInt(cacheSizeKey),
		Parallel:       viper.GetInt(runParallelConfigKey),
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}
