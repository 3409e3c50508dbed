// Package classify implements the error taxonomy from spec §4.1 and §7:
// every raised failure is categorised as network, llm, resourceLimit,
// business, or unknown, and only network/llm are retryable.
package classify

import (
	"errors"
	"fmt"
	"strings"
)

// Category is the closed set of failure categories.
type Category string

const (
	Network       Category = "network"
	LLM           Category = "llm"
	ResourceLimit Category = "resourceLimit"
	Business      Category = "business"
	Unknown       Category = "unknown"
)

var networkKeywords = []string{"timeout", "connection", "dns", "ssl", "socket", "unreachable"}
var llmKeywords = []string{"rate_limit", "context_length", "content_filter", "model_not_found", "api_error"}
var resourceKeywords = []string{"memory", "disk", "quota", "oom"}

// Structured is implemented by failures that already know their category
// and retryability; Classify trusts them verbatim instead of keyword
// matching.
type Structured interface {
	error
	Category() Category
	Retryable() bool
}

// StructuredError is a ready-made Structured error for call sites that want
// to assert a category directly rather than rely on keyword sniffing.
type StructuredError struct {
	Err         error
	Cat         Category
	IsRetryable bool
}

func (e *StructuredError) Error() string       { return e.Err.Error() }
func (e *StructuredError) Unwrap() error       { return e.Err }
func (e *StructuredError) Category() Category  { return e.Cat }
func (e *StructuredError) Retryable() bool     { return e.IsRetryable }

// BusinessError marks an explicit value/type/key violation — never
// retryable.
type BusinessError struct {
	Err error
}

func (e *BusinessError) Error() string      { return e.Err.Error() }
func (e *BusinessError) Unwrap() error      { return e.Err }
func (e *BusinessError) Category() Category { return Business }
func (e *BusinessError) Retryable() bool    { return false }

// Classify is a pure function of the failure: structured failures are
// trusted verbatim, otherwise keyword groups are matched against the
// message and type name.
func Classify(err error) Category {
	if err == nil {
		return Unknown
	}

	var structured Structured
	if errors.As(err, &structured) {
		return structured.Category()
	}

	msg := strings.ToLower(err.Error() + " " + fmt.Sprintf("%T", err))

	if containsAny(msg, networkKeywords) {
		return Network
	}
	if containsAny(msg, llmKeywords) {
		return LLM
	}
	if containsAny(msg, resourceKeywords) {
		return ResourceLimit
	}
	return Unknown
}

// Retryable reports whether failures of this category should be retried.
// Only {network, llm} are retryable per spec §4.1.
func Retryable(cat Category) bool {
	return cat == Network || cat == LLM
}

// RetryableErr classifies err and checks retryability in one call, honoring
// a Structured error's own verdict when present.
func RetryableErr(err error) bool {
	if err == nil {
		return false
	}
	var structured Structured
	if errors.As(err, &structured) {
		return structured.Retryable()
	}
	return Retryable(Classify(err))
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
