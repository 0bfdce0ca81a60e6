package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorAction determines how the fetcher treats a loader or parser error.
type ErrorAction int

const (
	// ActionMiss records the identifier as failed and moves on.
	ActionMiss ErrorAction = iota
	// ActionFatal aborts the batch so it can be retried as a whole.
	ActionFatal
)

// StatusError reports a non-200 portal response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

// ParseError reports a page that loaded but could not be read as a case.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse case page: " + e.Reason
}

// ClassifyError determines the action for a given error.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionMiss // Should not happen
	}

	if errors.Is(err, ErrCaseNotFound) {
		return ActionMiss
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return ActionMiss
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ActionFatal
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case http.StatusNotFound, http.StatusGone:
			return ActionMiss
		default:
			// 403, 429 and 5xx mean the portal is refusing or failing everyone.
			return ActionFatal
		}
	}

	sLower := strings.ToLower(err.Error())
	if strings.Contains(sLower, "no such case") || strings.Contains(sLower, "no cases matched") {
		return ActionMiss
	}

	// Default to Fatal (network, throttling, browser crashes)
	return ActionFatal
}
