package cmd

import (
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"mutafix.dev/pkg/mutafix/internal/domain/classinfo"
	"mutafix.dev/pkg/mutafix/internal/domain/mutagens"
	"mutafix.dev/pkg/mutafix/internal/domain/susp"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "mutafix"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	outputFlagName         = "output"
	classpathFlagName      = "classpath"
	codebaseFlagName       = "codebase"
	coverageFlagName       = "coverage"
	failingFlagName        = "failing"
	mutatorsFlagName       = "mutators"
	excludeMethodsFlagName = "exclude-methods"
	checkerFlagName        = "checker"
	formulaFlagName        = "formula"
	runParallelFlagName    = "parallel"
	cacheSizeFlagName      = "cache-size"
	spillDirFlagName       = "spill-dir"
	verboseFlagName        = "verbose"
	logFileFlagName        = "log-file"

	excludeMethodsKey    = "exclude.methods"
	suspCheckerKey       = "susp.checker"
	suspFormulaKey       = "susp.formula"
	runParallelConfigKey = "run.parallel"
	spillDirKey          = "run.spill_dir"
	cacheSizeKey         = "cache.size"
	mutateOutputKey      = "mutate.output"
	mutateDiffKey        = "mutate.diff"
	scoreTopKey          = "score.top"

	defaultReportsDir  = ".mutafix-reports"
	defaultMutantsDir  = "mutants"
	defaultRunParallel = 4
	defaultScoreTop    = 20

	envPrefix = "MUTAFIX"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".mutafix.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return
		}

		slog.Warn("ignoring unreadable config file", "file", configFileName, "error", err)
	}
}

func setDefaults() {
	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(outputFlagName, defaultReportsDir)
	viper.SetDefault(classpathFlagName, []string{})
	viper.SetDefault(codebaseFlagName, []string{})
	viper.SetDefault(coverageFlagName, "")
	viper.SetDefault(failingFlagName, "")
	viper.SetDefault(mutatorsFlagName, []string{mutagens.AllGroup})
	viper.SetDefault(excludeMethodsKey, []string{})
	viper.SetDefault(suspCheckerKey, susp.CheckerStrict)
	viper.SetDefault(suspFormulaKey, "ochiai")
	viper.SetDefault(runParallelConfigKey, defaultRunParallel)
	viper.SetDefault(spillDirKey, "")
	viper.SetDefault(cacheSizeKey, classinfo.DefaultCacheSize)
	viper.SetDefault(mutateOutputKey, defaultMutantsDir)
	viper.SetDefault(mutateDiffKey, false)
	viper.SetDefault(scoreTopKey, defaultScoreTop)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)
}

// pathList flattens repeated path flags, each of which may itself be a
// list joined by the OS path list separator.
func pathList(values []string) []string {
	var out []string

	for _, v := range values {
		for _, p := range filepath.SplitList(v) {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}

	return out
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
