package rules

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"
)

// Store owns the in-memory rule set. Reads are lock-free via an atomic
// pointer swap; reloads replace the entire set atomically (spec §3, §5:
// "Rule set: single-writer/multi-reader. Live reload atomically swaps the
// entire set.").
type Store struct {
	compiled    atomic.Pointer[[]*CompiledRule]
	startupHash atomic.Uint64
	hashCaptured atomic.Bool
}

// NewStore creates a Store seeded with only the self-protection rule set.
func NewStore() *Store {
	s := &Store{}
	compiled := mustCompileAll(selfProtectionSpecs)
	s.compiled.Store(&compiled)
	return s
}

// Compiled returns the current compiled rule slice. Safe for concurrent use.
func (s *Store) Compiled() []*CompiledRule {
	p := s.compiled.Load()
	if p == nil {
		return nil
	}
	return *p
}

// LoadYAML parses rules-file YAML bytes, compiles every entry, merges in
// the self-protection set (dropping any user entry sharing a protected
// name, and refusing to let a config entry clear `protected` on a
// protected name), and atomically swaps the store's rule set.
//
// A rule whose compilation fails is rejected individually; the rest load
// (spec §4.1 "Error semantics"). A malformed (unparsable) file is rejected
// whole, returning a *ConfigError, and the previous in-memory set is
// retained — callers MUST NOT call atomic.Store on failure, which this
// method guarantees by only swapping after full success.
func (s *Store) LoadYAML(path string, data []byte) error {
	var specs []RuleSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return &ConfigError{Path: path, Err: fmt.Errorf("parse rules file: %w", err)}
	}

	merged := mergeSelfProtection(specs)

	compiled := make([]*CompiledRule, 0, len(merged))
	var rejected int
	for _, spec := range merged {
		c, err := Compile(spec)
		if err != nil {
			rejected++
			continue
		}
		compiled = append(compiled, c)
	}

	s.compiled.Store(&compiled)

	h := xxhash.Sum64(canonicalize(merged))
	if !s.hashCaptured.Load() {
		s.startupHash.Store(h)
		s.hashCaptured.Store(true)
	}

	recordRuleLoad(len(compiled), rejected)
	return nil
}

// mergeSelfProtection drops any user rule sharing a self-protection name
// and appends the hardcoded self-protection specs, always enabled and
// always protected (spec §4.1: "A configured rule marked protected
// externally cannot set protected = false on reload.").
func mergeSelfProtection(user []RuleSpec) []RuleSpec {
	out := make([]RuleSpec, 0, len(user)+len(selfProtectionSpecs))
	for _, spec := range user {
		if IsSelfProtectionRule(spec.Name) {
			continue
		}
		out = append(out, spec)
	}
	out = append(out, selfProtectionSpecs...)
	return out
}

func mustCompileAll(specs []RuleSpec) []*CompiledRule {
	out := make([]*CompiledRule, 0, len(specs))
	for _, spec := range specs {
		c, err := Compile(spec)
		if err != nil {
			panic(fmt.Sprintf("self-protection rule %q failed to compile: %v", spec.Name, err))
		}
		out = append(out, c)
	}
	return out
}

// canonicalize produces a stable byte representation of a rule set for
// hashing, by re-marshalling through YAML (field order is stable because
// RuleSpec's struct field order is stable).
func canonicalize(specs []RuleSpec) []byte {
	b, err := yaml.Marshal(specs)
	if err != nil {
		return nil
	}
	return b
}

// CheckTamper re-hashes the given on-disk bytes and compares against the
// hash captured at daemon start, returning a *TamperError if they differ.
// Per spec §7/§9: this is a periodic hash compare, not an auto-reload
// trigger; the caller keeps running the in-memory set regardless.
func (s *Store) CheckTamper(path string) error {
	if !s.hashCaptured.Load() {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil // file absence is not tamper; LoadYAML already logged the load error
	}
	var specs []RuleSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return &TamperError{Path: path}
	}
	merged := mergeSelfProtection(specs)
	if xxhash.Sum64(canonicalize(merged)) != s.startupHash.Load() {
		return &TamperError{Path: path}
	}
	return nil
}
