package model

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrInvalidMeetingStatus = errors.New("invalid meeting status")

type MeetingStatus string

const (
	MeetingUpcoming   MeetingStatus = "upcoming"
	MeetingActive     MeetingStatus = "active"
	MeetingCompleted  MeetingStatus = "completed"
	MeetingProcessing MeetingStatus = "processing"
	MeetingCancelled  MeetingStatus = "cancelled"
)

// MeetingStatuses lists every status a meeting can be in
var MeetingStatuses = []MeetingStatus{
	MeetingUpcoming,
	MeetingActive,
	MeetingCompleted,
	MeetingProcessing,
	MeetingCancelled,
}

func (s MeetingStatus) Valid() bool {
	switch s {
	case MeetingUpcoming, MeetingActive, MeetingCompleted, MeetingProcessing, MeetingCancelled:
		return true
	}

	return false
}

func ParseMeetingStatus(s string) (MeetingStatus, error) {
	status := MeetingStatus(s)
	if !status.Valid() {
		return "", ErrInvalidMeetingStatus
	}

	return status, nil
}

type Meeting struct {
	ID            string        `gorm:"primaryKey" json:"id"`
	Name          string        `gorm:"not null" json:"name"`
	UserID        string        `gorm:"not null;index" json:"userId"`
	AgentID       string        `gorm:"not null;index" json:"agentId"`
	Status        MeetingStatus `gorm:"size:16;not null;default:upcoming;check:status IN ('upcoming','active','completed','processing','cancelled')" json:"status"`
	StartedAt     *time.Time    `json:"startedAt"`
	EndedAt       *time.Time    `json:"endedAt"`
	TranscriptURL *string       `json:"transcriptUrl"`
	RecordingURL  *string       `json:"recordingUrl"`
	Summary       *string       `json:"summary"`
	CreatedAt     time.Time     `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time     `gorm:"not null" json:"updatedAt"`

	User  *User  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Agent *Agent `gorm:"constraint:OnDelete:CASCADE" json:"agent,omitempty"`
}

func (m *Meeting) BeforeCreate(tx *gorm.DB) error {
	return assignID(&m.ID)
}

// BeforeSave defaults the status and refuses anything outside the known set
func (m *Meeting) BeforeSave(tx *gorm.DB) error {
	if m.Status == "" {
		m.Status = MeetingUpcoming
	}

	if !m.Status.Valid() {
		return ErrInvalidMeetingStatus
	}

	return nil
}

// All lists every model that has to be migrated, parents first.
func All() []any {
	return []any{
		&User{},
		&Session{},
		&Account{},
		&Verification{},
		&Agent{},
		&Meeting{},
	}
}
