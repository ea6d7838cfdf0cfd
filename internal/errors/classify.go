package errors

import (
	"context"
	"errors"
	"strings"
)

// Transport failures whose text is all a websocket client gives us.
var networkPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"eof",
	"i/o timeout",
	"websocket",
}

// Classify wraps the error of a node call made against endpoint. An error
// that already is a ChainError keeps its code and gains the endpoint if it
// had none.
func Classify(err error, endpoint, op string) *ChainError {
	if err == nil {
		return nil
	}

	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		return WrapChainError(err, chainErr.Code, endpoint, op)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewChainError(ErrCodeTimeout, endpoint, op, err)
	case errors.Is(err, context.Canceled):
		return NewChainError(ErrCodeInternal, endpoint, op, err)
	case isNetworkMessage(err.Error()):
		return NewChainError(ErrCodeNetwork, endpoint, op, err)
	default:
		return NewChainError(ErrCodeRPC, endpoint, op, err)
	}
}

// WrapChainError returns err as a ChainError, creating one with code when
// err is not already one. An existing ChainError is annotated in place.
func WrapChainError(err error, code ErrorCode, endpoint, op string) *ChainError {
	if err == nil {
		return nil
	}

	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		if op != "" && op != chainErr.Op {
			chainErr.WithContext("during", op)
		}
		if chainErr.Endpoint == "" {
			chainErr.Endpoint = endpoint
		}
		return chainErr
	}
	return NewChainError(code, endpoint, op, err)
}

// IsChainError reports whether err wraps a ChainError with code.
func IsChainError(err error, code ErrorCode) bool {
	var chainErr *ChainError
	return errors.As(err, &chainErr) && chainErr.Code == code
}

// IsNodeFault reports whether err counts against the endpoint that
// returned it. Caller cancellation, bad input and bad settings do not.
func IsNodeFault(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		switch chainErr.Code {
		case ErrCodeValidation, ErrCodeConfig:
			return false
		}
	}
	return true
}

func isNetworkMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, pattern := range networkPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
