// Package errors provides the classified error primitives used across jekyllpress.
//
// A ClassifiedError carries a category (what kind of failure), a severity and a
// retry hint next to the human-readable message and the underlying cause. The
// CLI adapter maps categories onto the process exit codes:
//
//	0 success
//	1 invalid arguments (validation, config)
//	2 resource not found
//	3 permission denied
//	4 processing failure (everything else)
//	5 preview tool failure
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryNotFound, "source post missing").
//		WithContext("path", postPath).
//		WithCause(statErr).
//		Build()
package errors
