package patch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRevertRestoresFromBackup(t *testing.T) {
	t.Parallel()

	f := writeTempExecTool(t, execToolV2Source)
	if _, err := Apply(f, "2.0.0"); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	res, err := Revert(f)
	if err != nil {
		t.Fatalf("Revert: %v", err)
	}
	if res.State != Unpatched {
		t.Errorf("State = %v, want Unpatched", res.State)
	}

	restored, err := os.ReadFile(f.Path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(restored) != execToolV2Source {
		t.Error("Revert should restore the exact original content")
	}
	if _, err := os.Stat(f.Path + ".orig"); !os.IsNotExist(err) {
		t.Error("Revert should remove the .orig backup once restored")
	}
}

func TestRevertNoopWhenAlreadyUnpatched(t *testing.T) {
	t.Parallel()

	f := writeTempExecTool(t, execToolV2Source)

	res, err := Revert(f)
	if err != nil {
		t.Fatalf("Revert: %v", err)
	}
	if res.State != Unpatched || res.Note != "already unpatched" {
		t.Errorf("Revert = %+v, want State=Unpatched Note=\"already unpatched\"", res)
	}
}

func TestRevertFailsLoudlyWithoutBackup(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "exec-tool.js")
	content := "async function executeTool() {\n  // SENTINELGATE_PATCH_v2\n}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f := File{Kind: KindExecTool, Path: path}

	_, err := Revert(f)
	if err == nil {
		t.Fatal("expected an error reverting a patched file with no .orig backup")
	}
	if _, ok := err.(*BackupMissingError); !ok {
		t.Errorf("expected *BackupMissingError, got %T", err)
	}

	after, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatalf("ReadFile: %v", readErr)
	}
	if !strings.Contains(string(after), "SENTINELGATE_PATCH_v2") {
		t.Error("a failed revert must not remove the sentinel from the file")
	}
}
