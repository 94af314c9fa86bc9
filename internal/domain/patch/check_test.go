package patch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckUnpatched(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "exec-tool.js")
	if err := os.WriteFile(path, []byte("async function executeTool() {}\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f := File{Kind: KindExecTool, Path: path}

	res, err := Check(f)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.State != Unpatched {
		t.Errorf("State = %v, want Unpatched", res.State)
	}
}

func TestCheckPatched(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "exec-tool.js")
	content := "async function executeTool() {\n  // SENTINELGATE_PATCH_v2\n}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f := File{Kind: KindExecTool, Path: path}

	res, err := Check(f)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.State != Patched {
		t.Errorf("State = %v, want Patched", res.State)
	}
}

func TestCheckNativeWhenFileAbsent(t *testing.T) {
	t.Parallel()

	f := File{Kind: KindExecTool, Path: filepath.Join(t.TempDir(), "does-not-exist.js")}

	res, err := Check(f)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.State != Native {
		t.Errorf("State = %v, want Native", res.State)
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	cases := map[State]string{
		Unpatched: "unpatched",
		Patched:   "patched",
		Native:    "native",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
