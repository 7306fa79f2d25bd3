package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Subject{},
	&Event{},
	&Reason{},
	&Trial{},
	&Offset{},
	&Occluder{},
}

////////////////////////
// SUBJECT MODELS
////////////////////////

// Subject is one coded video. Number is the lookup key used by the CLI.
type Subject struct {
	ID        string `json:"id" gorm:"size:36;primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Number              string `json:"number" gorm:"size:64;uniqueIndex:idx_subject_number"`
	Birthday            string `json:"birthday" gorm:"size:32"`
	Coder               string `json:"coder" gorm:"size:127"`
	DateOfTest          string `json:"dateOfTest" gorm:"size:32"`
	Order               string `json:"order" gorm:"size:127"`
	PrimaryPS           string `json:"primaryPS" gorm:"size:127"`
	SecondaryPS         string `json:"secondaryPS" gorm:"size:127"`
	CheckedBy           string `json:"checkedBy" gorm:"size:127"`
	PrimaryPSComplete   bool   `json:"primaryPSComplete"`
	SecondaryPSComplete bool   `json:"secondaryPSComplete"`
	Sex                 string `json:"sex" gorm:"size:3"`
	UnusedTrials        string `json:"unusedTrials" gorm:"size:255"`
	Notes               string `json:"notes" gorm:"size:2000"`

	Framerate string         `json:"framerate" gorm:"size:16"`
	DropFrame bool           `json:"dropFrame"`
	Settings  datatypes.JSON `json:"settings"`

	// RemovedOffset is the offset currently subtracted from HasOffset events, nil when none is.
	RemovedOffset *int `json:"removedOffset"`

	Events    []Event    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignKey:SubjectID"`
	Reasons   []Reason   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignKey:SubjectID"`
	Trials    []Trial    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignKey:SubjectID"`
	Offsets   []Offset   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignKey:SubjectID"`
	Occluders []Occluder `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignKey:SubjectID"`
}

func (*Subject) TableName() string {
	return "subjects"
}

// BeforeCreate assigns a random ID to new subjects.
func (s *Subject) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Event is one coded gaze event. Position keeps the timeline order.
type Event struct {
	ID        uint   `gorm:"primarykey"`
	SubjectID string `json:"subjectId" gorm:"size:36;index:idx_event_subject_id"`
	Position  int    `json:"position"`
	Trial     int    `json:"trial" gorm:"index:idx_event_trial"`
	Status    bool   `json:"status"`
	Response  string `json:"response" gorm:"size:32"`
	Frame     int    `json:"frame"`
	HasOffset bool   `json:"hasOffset"`
}

func (*Event) TableName() string {
	return "events"
}

// Reason is one prescreening decision. Prescreener is 1 or 2.
type Reason struct {
	ID          uint   `gorm:"primarykey"`
	SubjectID   string `json:"subjectId" gorm:"size:36;index:idx_reason_subject_id"`
	Prescreener int    `json:"prescreener"`
	Trial       int    `json:"trial"`
	Include     int    `json:"include"`
	Reason      string `json:"reason" gorm:"size:255"`
}

func (*Reason) TableName() string {
	return "reasons"
}

// Trial is one trial order row. Present records which columns were supplied.
type Trial struct {
	ID            uint   `gorm:"primarykey"`
	SubjectID     string `json:"subjectId" gorm:"size:36;index:idx_trial_subject_id"`
	Position      int    `json:"position"`
	Present       uint16 `json:"present"`
	Name          string `json:"name" gorm:"size:127"`
	TrialNumber   int    `json:"trialNumber"`
	SoundStimulus string `json:"soundStimulus" gorm:"size:255"`
	LeftImage     string `json:"leftImage" gorm:"size:255"`
	CenterImage   string `json:"centerImage" gorm:"size:255"`
	RightImage    string `json:"rightImage" gorm:"size:255"`
	TargetSide    string `json:"targetSide" gorm:"size:64"`
	Condition     string `json:"condition" gorm:"size:127"`
	Used          string `json:"used" gorm:"size:16"`
	TrialEnd      int    `json:"trialEnd"`
	CriticalOnset int    `json:"criticalOnset"`
}

func (*Trial) TableName() string {
	return "trials"
}

// Offset is one timecode offset entry.
type Offset struct {
	ID        uint   `gorm:"primarykey"`
	SubjectID string `json:"subjectId" gorm:"size:36;index:idx_offset_subject_id"`
	Frame     int    `json:"frame"`
	Offset    int    `json:"offset"`
}

func (*Offset) TableName() string {
	return "offsets"
}

// Occluder is a masked rectangle stored as a WKT polygon.
type Occluder struct {
	ID        uint   `gorm:"primarykey"`
	SubjectID string `json:"subjectId" gorm:"size:36;index:idx_occluder_subject_id"`
	Position  int    `json:"position"`
	Shape     string `json:"shape" gorm:"size:255"`
}

func (*Occluder) TableName() string {
	return "occluders"
}
