package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/stridelink/internal/app"
	"github.com/vk/stridelink/internal/layout"
	"github.com/xyproto/env/v2"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// Environment variables supply the defaults that flags override.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("stridelink", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
stridelink - Builds bare-metal applications, each linked at its own base address.

Usage:
  stridelink [options] [BUILD_FILE]

Arguments:
  BUILD_FILE
    Path to the HCL build file (default "stridelink.hcl", or $STRIDELINK_CONFIG).

Options:
`)
		flagSet.PrintDefaults()
	}

	defaultConfig := env.Str("STRIDELINK_CONFIG", app.DefaultConfigPath)
	configFlag := flagSet.String("config", "", "Path to the HCL build file.")
	cFlag := flagSet.String("c", "", "Path to the HCL build file (shorthand).")
	appsDirFlag := flagSet.String("apps-dir", "", "Directory holding one source file per application.")
	templateFlag := flagSet.String("template", "", "Path to the shared linker script.")
	originFlag := flagSet.String("origin", "", "Base address of the first application, e.g. 0x80400000.")
	strideFlag := flagSet.String("stride", "", "Distance between consecutive base addresses, e.g. 0x20000.")
	commandFlag := flagSet.String("command", "", `Toolchain command as an HCL list expression, e.g. '["make", app]'.`)
	timeoutFlag := flagSet.Duration("timeout", 0, "Per-application build timeout. 0 disables it.")
	planFlag := flagSet.Bool("plan", false, "Print the address plan and exit without building.")
	recoverFlag := flagSet.Bool("recover-stale", false, "Restore the linker script from a backup left by an interrupted run.")
	logFormatFlag := flagSet.String("log-format", env.Str("STRIDELINK_LOG_FORMAT", "text"), "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", env.Str("STRIDELINK_LOG_LEVEL", "info"), "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	noColorFlag := flagSet.Bool("no-color", env.Str("NO_COLOR", "") != "", "Disable colored progress output.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: app.ExitUsage, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: app.ExitUsage, Message: "at most one build file may be given"}
	}

	path := defaultConfig
	if *configFlag != "" {
		path = *configFlag
	} else if *cFlag != "" {
		path = *cFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Build file determined.", "path", path)

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: app.ExitUsage, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: app.ExitUsage, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	origin, err := parseAddressFlag("origin", *originFlag)
	if err != nil {
		return nil, false, err
	}
	stride, err := parseAddressFlag("stride", *strideFlag)
	if err != nil {
		return nil, false, err
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ConfigPath:   path,
		AppsDir:      *appsDirFlag,
		TemplatePath: *templateFlag,
		Origin:       origin,
		Stride:       stride,
		Command:      *commandFlag,
		Timeout:      *timeoutFlag,
		Plan:         *planFlag,
		RecoverStale: *recoverFlag,
		NoColor:      *noColorFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: app.ExitUsage, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// parseAddressFlag returns nil for an unset flag.
func parseAddressFlag(name, value string) (*uint64, error) {
	if value == "" {
		return nil, nil
	}
	v, err := layout.ParseAddress(value)
	if err != nil {
		return nil, &ExitError{Code: app.ExitUsage, Message: fmt.Sprintf("invalid -%s: %v", name, err)}
	}
	return &v, nil
}

