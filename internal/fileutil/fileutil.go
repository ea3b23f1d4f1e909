// Package fileutil holds small filesystem helpers shared by the cache and
// configuration layers.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// TempSuffix ends the name of every in-flight temp file created by
// WriteFileAtomic so directory walkers can skip them.
const TempSuffix = ".tmp"

// WriteFileAtomic writes data to a hidden temp file in the target directory,
// syncs it and renames it over path. Readers observe either the previous
// contents or the new ones, never a partial write.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*"+TempSuffix)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(step string, err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%s temp file: %w", step, err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fail("write", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fail("chmod", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// IsTempFile reports whether name looks like a WriteFileAtomic temp file.
func IsTempFile(name string) bool {
	base := filepath.Base(name)
	return len(base) > len(TempSuffix) && base[0] == '.' && filepath.Ext(base) == TempSuffix
}
