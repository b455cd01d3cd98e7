package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "jekyllpress.yaml").
			Build()

		assert.Equal(t, CategoryConfig, err.Category())
		assert.Equal(t, SeverityFatal, err.Severity())
		assert.Equal(t, "invalid configuration", err.Message())

		file, exists := err.Context().GetString("file")
		assert.True(t, exists)
		assert.Equal(t, "jekyllpress.yaml", file)
	})

	t.Run("Error string includes cause", func(t *testing.T) {
		cause := stderrors.New("no such file")
		err := WrapError(cause, CategoryNotFound, "source post missing").Build()
		assert.Equal(t, "source post missing: no such file", err.Error())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("Detection through wrapping", func(t *testing.T) {
		err := fmt.Errorf("stage failed: %w", PermissionError("denied").Build())
		require.True(t, IsClassified(err))
		assert.True(t, HasCategory(err, CategoryPermission))
		assert.Equal(t, CategoryPermission, GetCategory(err))
		assert.Equal(t, CategoryInternal, GetCategory(stderrors.New("plain")))
	})
}

func TestErrorBuilder(t *testing.T) {
	t.Run("Category override", func(t *testing.T) {
		err := GitError("git operation failed").WithCategory(CategoryNetwork).Retryable().Build()
		assert.Equal(t, CategoryNetwork, err.Category())
		assert.True(t, err.CanRetry())
	})

	t.Run("Convenience constructors", func(t *testing.T) {
		tests := []struct {
			name     string
			builder  *ErrorBuilder
			category ErrorCategory
			severity ErrorSeverity
			retry    RetryStrategy
		}{
			{"ValidationError", ValidationError("x"), CategoryValidation, SeverityError, RetryUserAction},
			{"ConfigError", ConfigError("x"), CategoryConfig, SeverityFatal, RetryUserAction},
			{"NotFoundError", NotFoundError("x"), CategoryNotFound, SeverityError, RetryUserAction},
			{"PermissionError", PermissionError("x"), CategoryPermission, SeverityError, RetryUserAction},
			{"ProcessingError", ProcessingError("x"), CategoryProcessing, SeverityError, RetryNever},
			{"FileSystemError", FileSystemError("x"), CategoryFileSystem, SeverityError, RetryBackoff},
			{"PreviewError", PreviewError("x"), CategoryPreview, SeverityError, RetryNever},
			{"GitError", GitError("x"), CategoryGit, SeverityError, RetryNever},
			{"NetworkError", NetworkError("x"), CategoryNetwork, SeverityError, RetryBackoff},
			{"InternalError", InternalError("x"), CategoryInternal, SeverityFatal, RetryNever},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.builder.Build()
				assert.Equal(t, tt.category, err.Category())
				assert.Equal(t, tt.severity, err.Severity())
				assert.Equal(t, tt.retry, err.RetryStrategy())
			})
		}
	})
}

func TestClassifiedError_WithContextDoesNotMutate(t *testing.T) {
	base := NotFoundError("missing").WithContext("a", 1).Build()
	derived := base.WithContext("b", 2)

	_, hasB := base.Context().Get("b")
	assert.False(t, hasB)
	v, ok := derived.Context().Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.ErrorIs(t, derived, base)
}

func TestErrorContext_Merge(t *testing.T) {
	ctx1 := ErrorContext{}.Set("key1", "value1").Set("shared", "original")
	ctx2 := ErrorContext{}.Set("key2", "value2").Set("shared", "overridden")

	merged := ctx1.Merge(ctx2)

	shared, _ := merged.GetString("shared")
	assert.Equal(t, "overridden", shared)
	_, ok := merged.GetString("key1")
	assert.True(t, ok)
	var nilCtx ErrorContext
	assert.Equal(t, ctx2, nilCtx.Merge(ctx2))
}
