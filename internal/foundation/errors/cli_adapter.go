package errors

import (
	"context"
	"fmt"
	"log/slog"
)

// ExitCode is the process exit status reported by the CLI.
type ExitCode int

const (
	ExitSuccess          ExitCode = 0
	ExitInvalidArgs      ExitCode = 1
	ExitFileNotFound     ExitCode = 2
	ExitPermissionDenied ExitCode = 3
	ExitProcessing       ExitCode = 4
	ExitPreviewServer    ExitCode = 5
)

var exitCodeNames = map[ExitCode]string{
	ExitSuccess:          "SUCCESS",
	ExitInvalidArgs:      "ERROR_INVALID_ARGS",
	ExitFileNotFound:     "ERROR_FILE_NOT_FOUND",
	ExitPermissionDenied: "ERROR_PERMISSION_DENIED",
	ExitProcessing:       "ERROR_PROCESSING",
	ExitPreviewServer:    "ERROR_JEKYLL_SERVER",
}

// String returns the status name used in JSON reports.
func (c ExitCode) String() string {
	if name, ok := exitCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("EXIT_%d", int(c))
}

// CLIErrorAdapter maps errors to exit codes and logs their classification.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	if classified, ok := AsClassified(err); ok {
		return exitCodeFromCategory(classified.Category())
	}
	return ExitProcessing
}

func exitCodeFromCategory(category ErrorCategory) ExitCode {
	switch category {
	case CategoryValidation, CategoryConfig:
		return ExitInvalidArgs
	case CategoryNotFound:
		return ExitFileNotFound
	case CategoryPermission:
		return ExitPermissionDenied
	case CategoryPreview:
		return ExitPreviewServer
	default:
		return ExitProcessing
	}
}

// FormatError formats an error for a one-line summary. Verbose adapters
// prefix the category.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	if classified, ok := AsClassified(err); ok && a.verbose {
		return fmt.Sprintf("[%s] %s", classified.Category(), classified.Error())
	}
	return err.Error()
}

// LogError writes the classification of err (category, context, cause) at
// debug level. The user-facing message is rendered by the caller.
func (a *CLIErrorAdapter) LogError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	classified, ok := AsClassified(err)
	if !ok {
		a.logger.DebugContext(ctx, "Unclassified error", slog.String("error", err.Error()))
		return
	}
	attrs := []slog.Attr{
		slog.String("category", string(classified.Category())),
		slog.String("severity", string(classified.Severity())),
	}
	for k, v := range classified.Context() {
		attrs = append(attrs, slog.Any(k, v))
	}
	if classified.cause != nil {
		attrs = append(attrs, slog.String("cause", classified.cause.Error()))
	}
	a.logger.LogAttrs(ctx, slog.LevelDebug, classified.Message(), attrs...)
}
