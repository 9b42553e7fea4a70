// SPDX-License-Identifier: AGPL-3.0-or-later

// Package paths centralises ask data-directory and schema-root resolution.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
)

const (
	appDirName = "ask"
	envDataDir = "DATA_DIR"
)

var override atomic.Pointer[string]

// SetDataDirOverride pins the data directory to an explicit location.
// Passing an empty string clears the override.
func SetDataDirOverride(dir string) {
	if dir == "" {
		override.Store(nil)
		return
	}
	clean := filepath.Clean(dir)
	override.Store(&clean)
}

// DataDir returns the directory holding the dispatch journal. The first of
// these wins: SetDataDirOverride, $DATA_DIR, the per-user data directory,
// ./.ask under the working directory.
func DataDir() string {
	if ptr := override.Load(); ptr != nil {
		return *ptr
	}
	if dir := os.Getenv(envDataDir); dir != "" {
		return filepath.Clean(dir)
	}
	if dir := userDataDir(); dir != "" {
		return filepath.Join(dir, appDirName)
	}
	if cwd, err := os.Getwd(); err == nil {
		return filepath.Join(cwd, "."+appDirName)
	}
	return filepath.Join(os.TempDir(), appDirName)
}

// userDataDir is $XDG_DATA_HOME or ~/.local/share on POSIX and
// %LOCALAPPDATA% on Windows.
func userDataDir() string {
	if runtime.GOOS == "windows" {
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return dir
		}
	} else if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(home, "AppData", "Local")
	}
	return filepath.Join(home, ".local", "share")
}

// RootSpec names one schema root directory.
type RootSpec struct {
	Name string
	Dir  string
}

// SchemaRoots orders the schema search roots: each contributor in the given
// order (child before parent), then schemaDir under the working directory.
// Duplicate directories keep their first position.
func SchemaRoots(contributors []RootSpec, workDir, schemaDir string) []RootSpec {
	out := make([]RootSpec, 0, len(contributors)+1)
	seen := make(map[string]struct{}, len(contributors)+1)
	add := func(spec RootSpec) {
		if spec.Dir == "" {
			return
		}
		clean := filepath.Clean(spec.Dir)
		if _, dup := seen[clean]; dup {
			return
		}
		seen[clean] = struct{}{}
		spec.Dir = clean
		out = append(out, spec)
	}
	for _, c := range contributors {
		add(c)
	}
	if workDir != "" {
		if schemaDir == "" {
			schemaDir = "."
		}
		add(RootSpec{Name: "workdir", Dir: filepath.Join(workDir, schemaDir)})
	}
	return out
}
