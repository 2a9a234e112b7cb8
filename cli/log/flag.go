package log

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	FlagLevel  = "loglevel"
	FlagFormat = "logformat"
)

var (
	levels  = []string{"warn", "debug", "info", "error"}
	formats = []string{"text", "json"}
)

// enum is a string flag restricted to a fixed set of values. The first
// value is the default.
type enum struct {
	value   string
	allowed []string
}

func newEnum(allowed []string) *enum {
	return &enum{value: allowed[0], allowed: allowed}
}

func (e *enum) String() string { return e.value }

func (e *enum) Set(v string) error {
	if !slices.Contains(e.allowed, v) {
		return fmt.Errorf("must be one of %s", strings.Join(e.allowed, ", "))
	}
	e.value = v
	return nil
}

func (e *enum) Type() string { return "string" }

func RegisterLoggingFlags(flags *pflag.FlagSet) {
	flags.Var(newEnum(levels), FlagLevel, "set the log level (debug, info, warn, error)")
	flags.VarP(newEnum(formats), FlagFormat, "f", "set the log format (text, json)")
}

// GetBaseLogger builds the logger selected by the logging flags. Log
// output goes to the error stream so that command output stays parsable.
func GetBaseLogger(cmd *cobra.Command) (*slog.Logger, error) {
	logLevel, err := GetLoggerLevel(cmd)
	if err != nil {
		return nil, err
	}

	format := cmd.Flag(FlagFormat).Value.String()
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
			Level: logLevel,
		})
	case "text":
		handler = slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
			Level: logLevel,
		})
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	return slog.New(handler), nil
}

func GetLoggerLevel(cmd *cobra.Command) (slog.Level, error) {
	flag := cmd.Flag(FlagLevel)
	if flag == nil {
		return slog.LevelWarn, fmt.Errorf("flag accessed but not defined: %s", FlagLevel)
	}
	var level slog.Level
	switch logLevel := flag.Value.String(); logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return slog.LevelWarn, fmt.Errorf("invalid log level: %s", logLevel)
	}
	return level, nil
}
