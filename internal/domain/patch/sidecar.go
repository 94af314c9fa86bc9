package patch

import (
	"encoding/json"
	"os"
)

// sidecarEntry is the cached state for one target file.
type sidecarEntry struct {
	Path     string `json:"path"`
	State    string `json:"state"`
	Sentinel string `json:"sentinel,omitempty"`
}

// Sidecar is a small JSON cache of per-file patch state. It is a cache,
// never a source of truth: Check does not read it and always determines
// state by reading the target file directly.
type Sidecar struct {
	path    string
	entries map[string]sidecarEntry
}

// LoadSidecar reads the sidecar file at path, returning an empty Sidecar
// if it doesn't exist or can't be parsed.
func LoadSidecar(path string) *Sidecar {
	s := &Sidecar{path: path, entries: make(map[string]sidecarEntry)}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var entries []sidecarEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return s
	}
	for _, e := range entries {
		s.entries[e.Path] = e
	}
	return s
}

// Record stores a Result's state in the sidecar, keyed by file path.
func (s *Sidecar) Record(r Result, sentinel string) {
	s.entries[r.File.Path] = sidecarEntry{Path: r.File.Path, State: r.State.String(), Sentinel: sentinel}
}

// Get returns the cached state for a path, if present.
func (s *Sidecar) Get(path string) (State, bool) {
	e, ok := s.entries[path]
	if !ok {
		return Unpatched, false
	}
	switch e.State {
	case "patched":
		return Patched, true
	case "native":
		return Native, true
	default:
		return Unpatched, true
	}
}

// Save persists the sidecar to disk.
func (s *Sidecar) Save() error {
	entries := make([]sidecarEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}
