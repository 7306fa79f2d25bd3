// Package datafile loads and saves subject data files (property lists).
package datafile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/peyecoder/peyecoder/pkg/core"
	"howett.net/plist"
)

// Extension is the conventional suffix of a subject data file.
const Extension = ".vcx"

// Decode parses a property list document into a subject.
func Decode(data []byte) (*core.Subject, error) {
	var doc map[string]any
	if _, err := plist.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode data file: %w", err)
	}
	s := core.NewSubject()
	if err := s.FromPlist(doc); err != nil {
		return nil, err
	}
	return s, nil
}

// Encode renders a subject as an XML property list.
func Encode(s *core.Subject) ([]byte, error) {
	data, err := plist.MarshalIndent(s.ToPlist(), plist.XMLFormat, "\t")
	if err != nil {
		return nil, fmt.Errorf("encode data file: %w", err)
	}
	return data, nil
}

// Load reads a subject from path.
func Load(path string) (*core.Subject, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}
	s, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Save writes a subject to path, replacing the file only once the new
// content is fully written. The subject is marked clean on success.
func Save(path string, s *core.Subject) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".peyecoder-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write data file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close data file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}

	s.Dirty = false
	return nil
}
