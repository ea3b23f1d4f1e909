package doccache

import (
	"fmt"
	"path/filepath"
	"strings"

	"shamal/internal/fileutil"
)

const (
	lockSuffix = ".lock"
	tempSuffix = fileutil.TempSuffix
)

// ValidateKey reports whether key is a usable cache key: one or more
// slash-separated segments of ASCII letters, digits, '.', '_' or '-'. The
// segments "." and ".." are rejected, as are final segments that would
// collide with the cache's own lock and temp files.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	segments := strings.Split(key, "/")
	for _, segment := range segments {
		if segment == "" || segment == "." || segment == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
		for i := 0; i < len(segment); i++ {
			if !keyByte(segment[i]) {
				return fmt.Errorf("%w: %q contains %q", ErrInvalidKey, key, segment[i])
			}
		}
	}
	last := segments[len(segments)-1]
	if strings.HasSuffix(last, lockSuffix) || strings.HasSuffix(last, tempSuffix) {
		return fmt.Errorf("%w: %q uses a reserved suffix", ErrInvalidKey, key)
	}
	return nil
}

func keyByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '.', b == '_', b == '-':
		return true
	}
	return false
}

func keyPath(dir, key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.FromSlash(key)), nil
}
