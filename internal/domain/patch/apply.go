package patch

import (
	"fmt"
	"os"
	"strings"
)

// Apply patches one file. It is idempotent: if the sentinel for the
// current version's format is already present, it reports Patched without
// touching the file. If a sentinel from a *different* format generation is
// present, it refuses rather than mixing patch versions.
func Apply(f File, version string) (Result, error) {
	spec, ok := AnchorFor(f.Kind, version)
	if !ok {
		return Result{}, fmt.Errorf("patch: no anchor spec registered for kind %q", f.Kind)
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return Result{}, fmt.Errorf("patch: read %s: %w", f.Path, err)
	}
	content := string(data)

	if strings.Contains(content, spec.Sentinel) {
		return Result{File: f, State: Patched, Note: "already patched"}, nil
	}
	if otherSentinel, ok := mixedSentinel(content, spec.Sentinel); ok {
		return Result{}, &MixedVersionError{Path: f.Path, Current: otherSentinel, Wanted: spec.Sentinel}
	}

	idx := strings.Index(content, spec.Anchor)
	if idx < 0 {
		return Result{}, &IncompatibleError{Path: f.Path, SupportsV: []string{"v1", "v2"}}
	}

	var newContent string
	switch spec.Mode {
	case InjectAfter:
		insertAt := idx + len(spec.Anchor)
		newContent = content[:insertAt] + spec.Template + content[insertAt:]
	case InjectReplace:
		newContent = content[:idx] + spec.Template + content[idx+len(spec.Anchor):]
	}

	backupPath := f.Path + ".orig"
	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		if err := os.WriteFile(backupPath, data, 0644); err != nil {
			return Result{}, fmt.Errorf("patch: write backup %s: %w", backupPath, err)
		}
	}

	if err := writeAtomic(f.Path, []byte(newContent)); err != nil {
		return Result{}, err
	}

	return Result{File: f, State: Patched, Note: "applied"}, nil
}

// mixedSentinel reports whether content carries a SENTINELGATE_PATCH_v*
// sentinel other than want.
func mixedSentinel(content, want string) (string, bool) {
	for _, candidate := range []string{"// SENTINELGATE_PATCH_v1", "// SENTINELGATE_PATCH_v2"} {
		if candidate != want && strings.Contains(content, candidate) {
			return candidate, true
		}
	}
	return "", false
}

// writeAtomic writes data to path via a temp-sibling-then-rename sequence
// for crash-safe writes.
func writeAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("patch: create temp file: %w", err)
	}
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("patch: write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("patch: fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("patch: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("patch: rename temp file: %w", err)
	}
	return nil
}
