package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const reportExt = ".pdf"

var (
	ErrNotFound    = errors.New("report not found")
	ErrInvalidName = errors.New("invalid report file name")
)

// FileStorage keeps rendered reports as flat files under a single directory.
type FileStorage struct {
	fs  afero.Fs
	now func() time.Time
}

// NewFileStorage roots storage at dir on the OS filesystem, creating it when missing.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create reports dir: %w", err)
	}
	return NewFileStorageFs(afero.NewBasePathFs(afero.NewOsFs(), dir)), nil
}

// NewFileStorageFs uses fs as the reports directory itself.
func NewFileStorageFs(fs afero.Fs) *FileStorage {
	return &FileStorage{fs: fs, now: time.Now}
}

// validName accepts bare file names only.
func validName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Save implements data.ReportStorage
func (s *FileStorage) Save(ctx context.Context, name string, content []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := afero.WriteFile(s.fs, name, content, 0o644); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// List implements data.ReportStorage
func (s *FileStorage) List(ctx context.Context) ([]string, error) {
	infos, err := s.reports()
	if err != nil {
		return nil, err
	}

	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].ModTime().Equal(infos[j].ModTime()) {
			return infos[i].Name() > infos[j].Name()
		}
		return infos[i].ModTime().After(infos[j].ModTime())
	})

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}

// Read implements data.ReportStorage
func (s *FileStorage) Read(ctx context.Context, name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	content, err := afero.ReadFile(s.fs, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	return content, nil
}

// Delete implements data.ReportStorage
func (s *FileStorage) Delete(ctx context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := s.fs.Remove(name); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}

// Prune implements data.ReportStorage
func (s *FileStorage) Prune(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	infos, err := s.reports()
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := s.fs.Remove(info.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("failed to prune report %s: %w", info.Name(), err)
		}
		removed++
	}
	return removed, nil
}

func (s *FileStorage) reports() ([]os.FileInfo, error) {
	entries, err := afero.ReadDir(s.fs, ".")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	infos := make([]os.FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), reportExt) {
			continue
		}
		infos = append(infos, entry)
	}
	return infos, nil
}
