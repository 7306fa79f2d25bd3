// internal/storage/storage.go
package storage

import (
	"errors"

	"github.com/peyecoder/peyecoder/pkg/core"
)

// ErrSubjectNotFound is returned when no subject is stored under a number.
var ErrSubjectNotFound = errors.New("subject not found")

// Backend is the interface all storage implementations must satisfy.
// Subjects are keyed by their Number field.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// SaveSubject stores s, replacing any subject with the same number.
	SaveSubject(s *core.Subject) error
	LoadSubject(number string) (*core.Subject, error)
	DeleteSubject(number string) error
	// ListSubjects returns the stored numbers in natural order.
	ListSubjects() ([]string, error)
}
