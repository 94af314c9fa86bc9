package patch

import (
	"fmt"
	"os"
	"strings"
)

// Revert undoes a previously applied patch. If a .orig backup exists, its
// bytes are restored and the backup is removed. If no backup exists but
// the file also carries no sentinel, the revert is a no-op success. If no
// backup exists and a sentinel IS present, reverting would discard an
// edit this patcher cannot reconstruct, so it fails loudly.
func Revert(f File) (Result, error) {
	backupPath := f.Path + ".orig"

	backup, err := os.ReadFile(backupPath)
	if err == nil {
		if err := writeAtomic(f.Path, backup); err != nil {
			return Result{}, err
		}
		if err := os.Remove(backupPath); err != nil {
			return Result{}, fmt.Errorf("patch: remove backup %s: %w", backupPath, err)
		}
		return Result{File: f, State: Unpatched, Note: "reverted"}, nil
	}
	if !os.IsNotExist(err) {
		return Result{}, fmt.Errorf("patch: read backup %s: %w", backupPath, err)
	}

	data, readErr := os.ReadFile(f.Path)
	if readErr != nil {
		return Result{}, fmt.Errorf("patch: read %s: %w", f.Path, readErr)
	}
	if !strings.Contains(string(data), "// SENTINELGATE_PATCH_v1") &&
		!strings.Contains(string(data), "// SENTINELGATE_PATCH_v2") {
		return Result{File: f, State: Unpatched, Note: "already unpatched"}, nil
	}

	return Result{}, &BackupMissingError{Path: f.Path}
}
