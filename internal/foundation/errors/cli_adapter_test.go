package errors

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected ExitCode
	}{
		{name: "nil error", err: nil, expected: ExitSuccess},
		{name: "validation", err: ValidationError("empty identifier").Build(), expected: ExitInvalidArgs},
		{name: "config", err: ConfigError("bad config").Build(), expected: ExitInvalidArgs},
		{name: "not found", err: NotFoundError("missing post").Build(), expected: ExitFileNotFound},
		{name: "permission", err: PermissionError("unreadable").Build(), expected: ExitPermissionDenied},
		{name: "preview", err: PreviewError("serve failed").Build(), expected: ExitPreviewServer},
		{name: "git", err: GitError("push failed").Build(), expected: ExitProcessing},
		{name: "wrapped classified", err: fmt.Errorf("outer: %w", NotFoundError("inner").Build()), expected: ExitFileNotFound},
		{name: "unclassified", err: stderrors.New("boom"), expected: ExitProcessing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestExitCodeString(t *testing.T) {
	assert.Equal(t, "SUCCESS", ExitSuccess.String())
	assert.Equal(t, "ERROR_FILE_NOT_FOUND", ExitFileNotFound.String())
	assert.Equal(t, "ERROR_JEKYLL_SERVER", ExitPreviewServer.String())
	assert.Equal(t, "EXIT_42", ExitCode(42).String())
}

func TestCLIErrorAdapter_LogError(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	adapter := NewCLIErrorAdapter(true, logger)

	err := PermissionError("cannot read post").WithContext("path", "/tmp/a.md").Build()
	adapter.LogError(context.Background(), err)

	require.Equal(t, ExitPermissionDenied, adapter.ExitCodeFor(err))
	assert.Contains(t, logBuf.String(), "category=permission")
	assert.Contains(t, logBuf.String(), "path=/tmp/a.md")
	assert.Equal(t, "[permission] cannot read post", adapter.FormatError(err))
}

func TestCLIErrorAdapter_LogNil(t *testing.T) {
	var logBuf bytes.Buffer
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&logBuf, nil)))
	adapter.LogError(context.Background(), nil)
	assert.Empty(t, logBuf.String())
	assert.Empty(t, adapter.FormatError(nil))
}
