package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExternalTool marks failures reported by an external tool invocation.
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks failures caused by rejected inputs.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks failures caused by unusable configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks lookups that produced nothing.
	ErrNotFound = errors.New("not found")
	// ErrTimeout marks operations ended by a deadline.
	ErrTimeout = errors.New("timeout")
	// ErrTransient marks failures worth retrying.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether the error is worth another attempt. Validation
// and configuration failures never are; everything else defaults to retryable
// so a flaky tool invocation does not end a session early.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrValidation) && !errors.Is(err, ErrConfiguration)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

// ExcerptLimit bounds tool diagnostic excerpts embedded in errors.
const ExcerptLimit = 200

// Excerpt trims tool output to a short single-line diagnostic suitable for
// inclusion in an error message.
func Excerpt(output string) string {
	output = strings.TrimSpace(output)
	output = strings.ReplaceAll(output, "\n", " | ")
	if len(output) > ExcerptLimit {
		output = output[:ExcerptLimit]
	}
	return output
}
