package pkgman

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// vcsDirs are version-control metadata directories never copied.
var vcsDirs = map[string]bool{
	".git": true,
	".hg":  true,
	".svn": true,
}

// Resync mirrors a locally-linked package's source directory into its
// installed location.
//
// A full resync removes the destination and recopies everything except
// version-control metadata. A partial resync copies over the existing tree,
// additionally leaving the package's own dependency tree untouched.
//
// A destination that is still a symlink points back into the source
// checkout; copying through it would truncate the checkout's own files.
// The link is removed first so the copy lands in a real directory.
func Resync(src, dst string, full bool) error {
	if info, err := os.Lstat(dst); err == nil && info.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(dst); err != nil {
			return fmt.Errorf("resync %s: %w", dst, err)
		}
	} else if full {
		if err := os.RemoveAll(dst); err != nil {
			return fmt.Errorf("resync %s: %w", dst, err)
		}
	}
	return copyTree(src, dst, full)
}

func copyTree(src, dst string, full bool) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("resync read %s: %w", src, err)
	}

	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("resync mkdir %s: %w", dst, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if vcsDirs[name] {
			continue
		}
		if !full && name == PackagesDir {
			continue
		}

		srcPath := filepath.Join(src, name)
		dstPath := filepath.Join(dst, name)

		if entry.IsDir() {
			if err := copyTree(srcPath, dstPath, full); err != nil {
				return err
			}
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("resync open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("resync stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("resync create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("resync copy %s: %w", dst, err)
	}
	return out.Close()
}
