// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package fabric

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrEmptyBaseURL is returned when the client has no backend configured.
var ErrEmptyBaseURL = errors.New("fabric base URL not configured")

// HTTPStatusError is a non-2xx response. Body holds the response text,
// truncated to MaxErrorBodySize.
type HTTPStatusError struct {
	Status     int
	StatusText string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	text := e.StatusText
	if text == "" {
		text = http.StatusText(e.Status)
	}
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("HTTP %d %s", e.Status, text)
	}
	return fmt.Sprintf("HTTP %d %s: %s", e.Status, text, body)
}

// NetworkError is a transport failure: the request never produced a
// response, or the response body broke off.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsCancellation reports whether err stems from context cancellation.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *HTTPStatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
