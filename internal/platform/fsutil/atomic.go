package fsutil

import (
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to a temp file next to path and renames it into
// place. Readers see either the old file or the complete new one.
func WriteFileAtomic(path string, data []byte) error {
	return WriteWithAtomic(path, func(tmp string) error {
		return os.WriteFile(tmp, data, 0o644)
	})
}

// WriteWithAtomic lets write produce the temp file itself, for encoders that
// only save by path. The temp file is removed on any failure.
func WriteWithAtomic(path string, write func(tmp string) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := write(tmpName); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := syncFile(tmpName); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func syncFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
