package pkgman

import (
	"os"
	"path/filepath"
)

// PackagesDir is the dependency-tree directory inside a workspace.
const PackagesDir = "packages"

// DirResolver resolves installed packages under the workspace's
// dependency-tree directory. It implements plugin.PathResolver.
type DirResolver struct{}

// InstalledPath returns the on-disk directory for a package id resolved
// from a base directory. A missing package is not an error.
func (DirResolver) InstalledPath(id, from string) (string, bool) {
	path := filepath.Join(from, PackagesDir, filepath.FromSlash(id))
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return path, true
}

// IsLinked reports whether the installed package is a locally-linked
// package (a symlink into a development checkout) rather than a registry
// install.
func (DirResolver) IsLinked(id, from string) bool {
	path := filepath.Join(from, PackagesDir, filepath.FromSlash(id))
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSymlink != 0
}

// LinkTarget returns the directory a locally-linked package points at.
func (DirResolver) LinkTarget(id, from string) (string, bool) {
	path := filepath.Join(from, PackagesDir, filepath.FromSlash(id))
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", false
	}
	return target, true
}
