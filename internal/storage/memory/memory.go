// internal/storage/memory/memory.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/facette/natsort"
	"github.com/peyecoder/peyecoder/internal/config"
	"github.com/peyecoder/peyecoder/internal/storage"
	"github.com/peyecoder/peyecoder/pkg/core"
)

const (
	extJSON = ".json"
	extGzip = ".json.gz"
)

// record is the on-disk form of a subject.
type record struct {
	Version  int            `json:"version"`
	SavedAt  time.Time      `json:"savedAt"`
	Number   string         `json:"number"`
	Document map[string]any `json:"document"`
}

// Backend stores each subject as a JSON file, optionally gzipped, in OutputDir
type Backend struct {
	cfg config.MemoryConfig
	mu  sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init creates the output directory
func (b *Backend) Init() error {
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

func (b *Backend) path(number string, compressed bool) string {
	ext := extJSON
	if compressed {
		ext = extGzip
	}
	return filepath.Join(b.cfg.OutputDir, url.PathEscape(number)+ext)
}

// SaveSubject writes s, removing a copy stored with the other compression setting.
func (b *Backend) SaveSubject(s *core.Subject) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec := record{
		Version:  1,
		SavedAt:  time.Now().UTC(),
		Number:   s.Info.Number,
		Document: s.ToPlist(),
	}
	path := b.path(rec.Number, b.cfg.CompressOutput)
	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(path, rec)
	} else {
		err = writeJSON(path, rec)
	}
	if err != nil {
		return fmt.Errorf("save subject %s: %w", rec.Number, err)
	}

	stale := b.path(rec.Number, !b.cfg.CompressOutput)
	if err := os.Remove(stale); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale copy: %w", err)
	}
	return nil
}

// LoadSubject reads the subject stored under number.
func (b *Backend) LoadSubject(number string) (*core.Subject, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, err := b.read(number)
	if err != nil {
		return nil, err
	}
	s := core.NewSubject()
	if err := s.FromPlist(rec.Document); err != nil {
		return nil, fmt.Errorf("load subject %s: %w", number, err)
	}
	return s, nil
}

func (b *Backend) read(number string) (record, error) {
	var rec record
	for _, compressed := range []bool{b.cfg.CompressOutput, !b.cfg.CompressOutput} {
		f, err := os.Open(b.path(number, compressed))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return rec, fmt.Errorf("open subject %s: %w", number, err)
		}
		defer f.Close()

		var r io.Reader = f
		if compressed {
			gz, err := gzip.NewReader(f)
			if err != nil {
				return rec, fmt.Errorf("read subject %s: %w", number, err)
			}
			defer gz.Close()
			r = gz
		}
		if err := json.NewDecoder(r).Decode(&rec); err != nil {
			return rec, fmt.Errorf("decode subject %s: %w", number, err)
		}
		return rec, nil
	}
	return rec, fmt.Errorf("subject %s: %w", number, storage.ErrSubjectNotFound)
}

// DeleteSubject removes every stored copy of number.
func (b *Backend) DeleteSubject(number string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	found := false
	for _, compressed := range []bool{true, false} {
		err := os.Remove(b.path(number, compressed))
		switch {
		case err == nil:
			found = true
		case !errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("delete subject %s: %w", number, err)
		}
	}
	if !found {
		return fmt.Errorf("subject %s: %w", number, storage.ErrSubjectNotFound)
	}
	return nil
}

// ListSubjects returns the stored subject numbers in natural order.
func (b *Backend) ListSubjects() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entries, err := os.ReadDir(b.cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	seen := make(map[string]bool)
	var numbers []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		var stem string
		switch {
		case strings.HasSuffix(name, extGzip):
			stem = strings.TrimSuffix(name, extGzip)
		case strings.HasSuffix(name, extJSON):
			stem = strings.TrimSuffix(name, extJSON)
		default:
			continue
		}
		number, err := url.PathUnescape(stem)
		if err != nil || seen[number] {
			continue
		}
		seen[number] = true
		numbers = append(numbers, number)
	}
	natsort.Sort(numbers)
	return numbers, nil
}

func writeJSON(path string, rec record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rec)
}

func writeGzipJSON(path string, rec record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(rec); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}
