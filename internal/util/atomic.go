// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// AtomicWriteFile writes data to path through a synced temp file in the same
// directory that is renamed over the target. Readers see either the old
// file or the complete new one. Missing parent directories are created.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) (err error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(absPath)+"-")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("failed to sync data to disk: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Chmod(tmp, perm); err != nil {
		return fmt.Errorf("failed to set file permissions: %w", err)
	}
	if err = os.Rename(tmp, absPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
