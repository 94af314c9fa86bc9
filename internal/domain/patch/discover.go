package patch

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Discover locates the target runtime's installed bundle: it resolves the
// binary on PATH, follows symlinks to the canonical install location, then
// walks up the directory tree looking for a directory named for the
// runtime with a child "dist" directory.
func Discover(runtimeName string) (Target, error) {
	bin, err := exec.LookPath(runtimeName)
	if err != nil {
		if home := homeFallback(runtimeName); home != "" {
			bin = home
		} else {
			return Target{}, &NotFoundError{Runtime: runtimeName}
		}
	}

	resolved, err := filepath.EvalSymlinks(bin)
	if err != nil {
		resolved = bin
	}

	bundleDir, err := findBundleDir(resolved, runtimeName)
	if err != nil {
		return Target{}, err
	}

	version := detectVersion(runtimeName)

	return Target{
		BundleDir: bundleDir,
		Runtime:   runtimeName,
		Version:   version,
		Files: []File{
			{Kind: KindExecTool, Path: filepath.Join(bundleDir, "dist", "exec-tool.js")},
			{Kind: KindPiTools, Path: filepath.Join(bundleDir, "dist", "pi-tools.js")},
		},
	}, nil
}

// findBundleDir walks up from a resolved binary path looking for a
// directory named for the runtime that has a "dist" child.
func findBundleDir(resolvedBin, runtimeName string) (string, error) {
	dir := filepath.Dir(resolvedBin)
	for i := 0; i < 8; i++ {
		if filepath.Base(dir) == runtimeName {
			if info, err := os.Stat(filepath.Join(dir, "dist")); err == nil && info.IsDir() {
				return dir, nil
			}
		}
		candidate := filepath.Join(dir, runtimeName)
		if info, err := os.Stat(filepath.Join(candidate, "dist")); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", &NotFoundError{Runtime: runtimeName}
}

// homeFallback scans known version-manager install layouts under the
// user's home directory when the runtime is not on PATH.
func homeFallback(runtimeName string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	var globs []string
	if runtime.GOOS == "windows" {
		globs = []string{
			filepath.Join(home, "AppData", "Roaming", "npm", "node_modules", runtimeName, "dist"),
		}
	} else {
		globs = []string{
			filepath.Join(home, ".nvm", "versions", "node", "*", "lib", "node_modules", runtimeName, "dist"),
			filepath.Join(home, ".volta", "tools", "image", "packages", runtimeName, "lib", "node_modules", runtimeName, "dist"),
			filepath.Join(home, ".local", "share", "pnpm", "global", "*", "node_modules", runtimeName, "dist"),
		}
	}

	for _, g := range globs {
		matches, err := filepath.Glob(g)
		if err != nil || len(matches) == 0 {
			continue
		}
		return filepath.Dir(matches[len(matches)-1])
	}
	return ""
}

// detectVersion shells out to "<runtime> --version" and trims the output.
// A failure to determine the version is not fatal: callers proceed with an
// empty version string, which schemeFor treats as the current format.
func detectVersion(runtimeName string) string {
	out, err := exec.Command(runtimeName, "--version").Output()
	if err != nil {
		return ""
	}
	v := strings.TrimSpace(string(out))
	return strings.TrimPrefix(v, "v")
}
