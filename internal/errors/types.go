// Package errors classifies failures of node queries so callers can tell
// bad input from a misbehaving endpoint.
package errors

import (
	"sort"
	"strings"
)

// ErrorCode is the category of a ChainError.
type ErrorCode string

const (
	// ErrCodeValidation marks bad caller input such as a malformed address.
	ErrCodeValidation ErrorCode = "VALIDATION"
	// ErrCodeNetwork marks a node that could not be reached.
	ErrCodeNetwork ErrorCode = "NETWORK"
	// ErrCodeRPC marks a node that answered with an error.
	ErrCodeRPC ErrorCode = "RPC"
	// ErrCodeDecode marks storage bytes that do not match the expected layout.
	ErrCodeDecode ErrorCode = "DECODE"
	// ErrCodeConfig marks unusable settings.
	ErrCodeConfig ErrorCode = "CONFIG"
	// ErrCodeTimeout marks a query that ran past its deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeInternal marks everything else, including caller cancellation.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// ChainError is a failed node query. Endpoint is the node url, empty when
// the failure happened before any node was involved.
type ChainError struct {
	Code     ErrorCode
	Endpoint string
	Op       string
	Cause    error
	Fields   map[string]string
}

// NewChainError creates a ChainError.
func NewChainError(code ErrorCode, endpoint, op string, cause error) *ChainError {
	return &ChainError{Code: code, Endpoint: endpoint, Op: op, Cause: cause}
}

// Error renders "[endpoint:CODE] op (k=v ...): cause".
func (e *ChainError) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	if e.Endpoint != "" {
		b.WriteString(e.Endpoint)
		b.WriteByte(':')
	}
	b.WriteString(string(e.Code))
	b.WriteString("] ")
	b.WriteString(e.Op)

	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(k + "=" + e.Fields[k])
		}
		b.WriteByte(')')
	}

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the cause.
func (e *ChainError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair shown in Error.
func (e *ChainError) WithContext(key, value string) *ChainError {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[key] = value
	return e
}

// NewValidationError reports bad caller input.
func NewValidationError(op string) *ChainError {
	return NewChainError(ErrCodeValidation, "", op, nil)
}

// NewConfigError reports unusable settings.
func NewConfigError(op string, cause error) *ChainError {
	return NewChainError(ErrCodeConfig, "", op, cause)
}

// NewDecodeError reports undecodable storage read from endpoint.
func NewDecodeError(endpoint, op string, cause error) *ChainError {
	return NewChainError(ErrCodeDecode, endpoint, op, cause)
}
