package store

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
)

const fileExt = ".json"

// FileBackend stores each value as one JSON file in a directory. Writes go
// to a temporary file first and are renamed into place, so a crash never
// leaves a half-written document behind.
type FileBackend struct {
	mu    sync.Mutex
	dir   string
	quota int64
}

// DefaultDir returns ~/.config/quality-master/forms (or the platform
// equivalent).
func DefaultDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "quality-master", "forms")
}

// NewFileBackend creates the directory if needed. A quota <= 0 means
// unlimited.
func NewFileBackend(dir string, quota int64) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileBackend{dir: dir, quota: quota}, nil
}

// Dir returns the storage directory.
func (f *FileBackend) Dir() string {
	return f.dir
}

func (f *FileBackend) path(id string) string {
	return filepath.Join(f.dir, base64.RawURLEncoding.EncodeToString([]byte(id))+fileExt)
}

// Get implements Backend.
func (f *FileBackend) Get(id string) ([]byte, bool, error) {
	data, err := os.ReadFile(f.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Put implements Backend.
func (f *FileBackend) Put(id string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	target := f.path(id)
	if f.quota > 0 {
		used, err := f.usage()
		if err != nil {
			return err
		}
		var old int64
		if info, err := os.Stat(target); err == nil {
			old = info.Size()
		}
		if used-old+int64(len(data)) > f.quota {
			return fmt.Errorf("%w: %d bytes requested, %d of %d in use", ErrQuotaExceeded, len(data), used, f.quota)
		}
	}

	tmp, err := os.CreateTemp(f.dir, ".write-*")
	if err != nil {
		return mapDiskFull(err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return mapDiskFull(err)
	}
	if err := tmp.Close(); err != nil {
		return mapDiskFull(err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return err
	}
	return nil
}

// Delete implements Backend.
func (f *FileBackend) Delete(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := os.Remove(f.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// List implements Backend.
func (f *FileBackend) List() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSuffix(name, fileExt))
		if err != nil {
			continue
		}
		ids = append(ids, string(raw))
	}
	return ids, nil
}

// usage sums the size of stored documents.
func (f *FileBackend) usage() (int64, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

func mapDiskFull(err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	}
	return err
}
