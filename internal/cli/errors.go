// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import "fmt"

// Exit codes
const (
	ExitFailure   = 1
	ExitCancelled = 130
)

// ExitError ends the process with Code. The failure has already been
// reported to the user.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}
