package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteAtomic writes data to dst through a temporary file in the same
// directory, creating missing directories. Readers never observe a partial file.
func WriteAtomic(dst string, data []byte) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, dst)
}

// NumberedName returns the file name used for the n-th fragment of a batch.
func NumberedName(n int, ext string) string {
	return fmt.Sprintf("fragment-%04d%s", n, ext)
}
