package patch

import "fmt"

// NotFoundError reports that the target runtime's bundle could not be
// located on disk.
type NotFoundError struct {
	Runtime string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("patch: could not locate an installed bundle for %q", e.Runtime)
}

// IncompatibleError reports an anchor-absent incompatibility: the target
// file exists but does not contain the expected structure for any known
// patch format (spec §7 PatchError).
type IncompatibleError struct {
	Path      string
	SupportsV []string
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("patch: %s does not match any supported anchor (tested against %v)", e.Path, e.SupportsV)
}

// BackupMissingError reports that a revert was attempted on a file
// carrying the sentinel but with no .orig backup — unsafe to auto-revert.
type BackupMissingError struct {
	Path string
}

func (e *BackupMissingError) Error() string {
	return fmt.Sprintf("patch: %s is patched but its .orig backup is missing; refusing to auto-revert", e.Path)
}

// MixedVersionError reports that a file already carries a sentinel from a
// different patch format generation than the one about to be applied.
type MixedVersionError struct {
	Path    string
	Current string
	Wanted  string
}

func (e *MixedVersionError) Error() string {
	return fmt.Sprintf("patch: %s carries a %s sentinel, refusing to apply %s over it", e.Path, e.Current, e.Wanted)
}
