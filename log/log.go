/*
Package log is a global and configurable logger pkg, based on zerolog (https://github.com/rs/zerolog)

The logger is configured with a toml file. Every field is optional; a missing
field falls back to its default.

 # default level for all modules
 # one of debug/info/warn/error/fatal/panic
 level = "info"

 # output formatter: console, console_no_color, json
 formatter = "json"

 # output: stdout, stderr or a file path
 out = "stderr"

 # print source file and line
 caller = false

 # time stamp format, see time/format.go
 timefieldformat = "3:04 PM"

 # per module overrides, only level and out are read
 [assembler]
 level = "debug"

 [gossiper]
 level = "warn"
 out = "gossip.log"

Put the file named pslog.toml next to the binary (current working directory),
or point the environment variable PSN_LOGCONFIG at it.
*/
package log

import (
	"errors"
	"os"
	"strings"
	"sync"

	colorable "github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

var baseLogger = zerolog.New(os.Stderr)
var baseLevel = zerolog.InfoLevel
var logInitLock sync.Mutex
var isLogInit = false
var viperConf = viper.New()

var confFilePathKey = "LOGCONFIG"
var confEnvPrefix = "PSN"
var defaultConfFileName = "pslog"

func loadConfigFile() *viper.Viper {
	viperConf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperConf.SetEnvPrefix(confEnvPrefix)
	viperConf.AutomaticEnv()

	viperConf.SetConfigType("toml")
	viperConf.SetConfigName(defaultConfFileName)
	viperConf.AddConfigPath(".")

	if confFilePath := viperConf.GetString(confFilePathKey); confFilePath != "" {
		viperConf.SetConfigFile(confFilePath)
		baseLogger.Info().Str("file", confFilePath).Msg("Init logger using a configuration file")
	}

	if err := viperConf.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			baseLogger.Error().Err(err).Msg("Fail to read the logger config file")
		}
	}

	return viperConf
}

func initLog() {
	if format := viperConf.GetString("timefieldformat"); format != "" {
		zerolog.TimeFieldFormat = format
	}

	out := os.Stderr
	if outputName := viperConf.GetString("out"); outputName != "" {
		o, err := getOutput(outputName)
		if err == nil {
			out = o
			baseLogger = baseLogger.Output(out)
		} else {
			baseLogger.Warn().Err(err).Str("outputName", outputName).Msg("failed to open output writer. set to base out instead")
		}
	}

	switch formatter := strings.ToLower(viperConf.GetString("formatter")); formatter {
	case "", "json":
		baseLogger = baseLogger.Output(out)
	case "console":
		baseLogger = baseLogger.Output(
			zerolog.ConsoleWriter{Out: colorable.NewColorable(out), NoColor: false, TimeFormat: zerolog.TimeFieldFormat})
	case "console_no_color":
		baseLogger = baseLogger.Output(
			zerolog.ConsoleWriter{Out: out, NoColor: true, TimeFormat: zerolog.TimeFieldFormat})
	default:
		baseLogger.Warn().Str("formatter", formatter).Msg("Invalid message formatter. Only allowed; console/console_no_color/json")
		baseLogger = baseLogger.Output(out)
	}

	if viperConf.GetBool("caller") {
		baseLogger = baseLogger.With().Caller().Logger()
	}

	zLevel := zerolog.InfoLevel
	if level := viperConf.GetString("level"); level != "" {
		var err error
		if zLevel, err = zerolog.ParseLevel(level); err != nil {
			baseLogger.Warn().Err(err).Msg("Fail to parse the default log level. set the level as info")
			zLevel = zerolog.InfoLevel
		}
	}

	baseLogger = baseLogger.With().Timestamp().Logger().Level(zLevel)
	baseLevel = zLevel
}

// NewLogger creates a logger tagged with field 'module' = moduleName.
// Module specific level and output are read from the [moduleName] table.
func NewLogger(moduleName string) *Logger {
	logInitLock.Lock()
	defer logInitLock.Unlock()

	if !isLogInit {
		loadConfigFile()
		initLog()
		isLogInit = true
	}

	zLogger := baseLogger.With().Str("module", moduleName).Logger()

	zLevel := baseLevel
	if subViperConf := viperConf.Sub(moduleName); subViperConf != nil {
		if outputName := subViperConf.GetString("out"); outputName != "" {
			if out, err := getOutput(outputName); err == nil {
				zLogger = zLogger.Output(out)
			} else {
				baseLogger.Warn().Err(err).Str("outputName", outputName).Str("module", moduleName).Msg("failed to open output writer. set to base out instead")
			}
		}

		if level := subViperConf.GetString("level"); level != "" {
			var err error
			if zLevel, err = zerolog.ParseLevel(level); err != nil {
				zLevel = zerolog.InfoLevel
			}
			zLogger = zLogger.Level(zLevel)
		}
	}

	return &Logger{
		Logger: &zLogger,
		name:   moduleName,
		level:  zLevel,
	}
}

var errEmptyName = errors.New("empty output name")

// getOutput returns the writer named by outName: stdout, stderr or a file
// path opened for appending.
func getOutput(outName string) (*os.File, error) {
	switch outName {
	case "":
		return nil, errEmptyName
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return os.OpenFile(outName, os.O_WRONLY|os.O_CREATE|os.O_APPEND|os.O_SYNC, 0644)
	}
}

// Default returns the base logger without a module name.
func Default() *Logger {
	logInitLock.Lock()
	defer logInitLock.Unlock()

	if !isLogInit {
		initLog()
		isLogInit = true
	}

	return &Logger{
		Logger: &baseLogger,
		name:   "",
		level:  baseLevel,
	}
}

// Nop returns a disabled logger, handy for tests and library callers that
// do not want output.
func Nop() *Logger {
	zLogger := zerolog.Nop()
	return &Logger{
		Logger: &zLogger,
		name:   "nop",
		level:  zerolog.Disabled,
	}
}

// IsDebugEnabled reports whether debug statements are emitted, so callers
// can skip building expensive log fields.
func (logger *Logger) IsDebugEnabled() bool {
	return logger.level <= zerolog.DebugLevel
}

// Level returns the current logger level.
func (logger *Logger) Level() string {
	return logger.level.String()
}

// Name returns the module name.
func (logger *Logger) Name() string {
	return logger.name
}

// Logger keeps the configuration and embeds the zerolog logger.
type Logger struct {
	*zerolog.Logger
	name  string
	level zerolog.Level
}
