// Package gormstorage implements the storage.Backend interface on top of GORM.
// The sqlite and postgres backends embed it and only differ in how the
// connection is opened.
package gormstorage

import (
	"errors"
	"fmt"

	"github.com/facette/natsort"
	"github.com/peyecoder/peyecoder/internal/database"
	"github.com/peyecoder/peyecoder/internal/model"
	"github.com/peyecoder/peyecoder/internal/model/convert"
	"github.com/peyecoder/peyecoder/internal/storage"
	"github.com/peyecoder/peyecoder/pkg/core"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// children are the tables owned by a subject row.
var children = []any{
	&model.Event{},
	&model.Reason{},
	&model.Trial{},
	&model.Offset{},
	&model.Occluder{},
}

// Backend implements storage.Backend using GORM.
type Backend struct {
	db  *gorm.DB
	log zerolog.Logger
}

// New creates a new GORM storage backend.
func New(db *gorm.DB, log zerolog.Logger) *Backend {
	return &Backend{db: db, log: log}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.db
}

// Init migrates the schema.
func (b *Backend) Init() error {
	if b.db == nil {
		return fmt.Errorf("gorm backend: no database connection")
	}
	return database.Migrate(b.db)
}

// Close closes the connection pool.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveSubject replaces the stored subject with the same number, keeping its ID.
func (b *Backend) SaveSubject(s *core.Subject) error {
	rec, err := convert.CoreToSubject(s)
	if err != nil {
		return fmt.Errorf("save subject %s: %w", s.Info.Number, err)
	}

	err = b.db.Transaction(func(tx *gorm.DB) error {
		var existing model.Subject
		err := tx.Where("number = ?", rec.Number).Take(&existing).Error
		switch {
		case err == nil:
			rec.ID = existing.ID
			rec.CreatedAt = existing.CreatedAt
			if err := deleteSubject(tx, existing.ID); err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return fmt.Errorf("save subject %s: %w", rec.Number, err)
	}

	b.log.Debug().
		Str("number", rec.Number).
		Str("id", rec.ID).
		Int("events", len(rec.Events)).
		Msg("Saved subject")
	return nil
}

// LoadSubject reads a subject with all its associations.
func (b *Backend) LoadSubject(number string) (*core.Subject, error) {
	var rec model.Subject
	err := b.db.
		Preload("Events").
		Preload("Reasons").
		Preload("Trials").
		Preload("Offsets").
		Preload("Occluders").
		Where("number = ?", number).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("subject %s: %w", number, storage.ErrSubjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load subject %s: %w", number, err)
	}
	return convert.SubjectToCore(rec)
}

// DeleteSubject removes a subject and everything it owns.
func (b *Backend) DeleteSubject(number string) error {
	return b.db.Transaction(func(tx *gorm.DB) error {
		var existing model.Subject
		err := tx.Where("number = ?", number).Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("subject %s: %w", number, storage.ErrSubjectNotFound)
		}
		if err != nil {
			return err
		}
		return deleteSubject(tx, existing.ID)
	})
}

// ListSubjects returns the stored numbers in natural order.
func (b *Backend) ListSubjects() ([]string, error) {
	var numbers []string
	if err := b.db.Model(&model.Subject{}).Pluck("number", &numbers).Error; err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	natsort.Sort(numbers)
	return numbers, nil
}

func deleteSubject(tx *gorm.DB, id string) error {
	for _, child := range children {
		if err := tx.Where("subject_id = ?", id).Delete(child).Error; err != nil {
			return err
		}
	}
	return tx.Where("id = ?", id).Delete(&model.Subject{}).Error
}
