package store

import (
	"bitwise74/meet-api/internal/model"
	"bitwise74/meet-api/pkg/forms"
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

type MeetingFilter struct {
	Search   string `form:"search"`
	AgentID  string `form:"agentId"`
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

type MeetingStore struct {
	db *gorm.DB
}

func NewMeetingStore(db *gorm.DB) *MeetingStore {
	return &MeetingStore{db: db}
}

func (s *MeetingStore) List(ctx context.Context, userID string, f MeetingFilter) (*Page[model.Meeting], error) {
	offset, limit := bounds(f.Page, f.PageSize)

	q := s.db.WithContext(ctx).Model(&model.Meeting{}).Where("user_id = ?", userID)

	if strings.TrimSpace(f.Search) != "" {
		q = q.Where(nameLike, likePattern(f.Search))
	}

	if f.AgentID != "" {
		q = q.Where("agent_id = ?", f.AgentID)
	}

	if f.Status != "" {
		status, err := model.ParseMeetingStatus(f.Status)
		if err != nil {
			return nil, forms.Errors{"status": "Invalid status"}
		}

		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	var meetings []model.Meeting

	err := q.Session(&gorm.Session{}).
		Preload("Agent").
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&meetings).
		Error
	if err != nil {
		return nil, err
	}

	return newPage(meetings, total, limit), nil
}

func (s *MeetingStore) Get(ctx context.Context, userID, id string) (*model.Meeting, error) {
	return findMeeting(s.db.WithContext(ctx).Preload("Agent"), userID, id)
}

// Create adds a meeting for one of the caller's agents
func (s *MeetingStore) Create(ctx context.Context, userID string, f forms.MeetingForm) (*model.Meeting, error) {
	if errs := forms.Validate(&f); errs != nil {
		return nil, errs
	}

	var meeting *model.Meeting

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ownsAgent(tx, userID, f.AgentID); err != nil {
			return err
		}

		m := &model.Meeting{
			Name:    strings.TrimSpace(f.Name),
			UserID:  userID,
			AgentID: f.AgentID,
			Status:  model.MeetingUpcoming,
		}

		if err := tx.Create(m).Error; err != nil {
			return err
		}

		var err error
		meeting, err = findMeeting(tx.Preload("Agent"), userID, m.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return meeting, nil
}

func (s *MeetingStore) Update(ctx context.Context, userID, id string, p forms.MeetingPatch) (*model.Meeting, error) {
	if errs := forms.Validate(&p); errs != nil {
		return nil, errs
	}

	var meeting *model.Meeting

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findMeeting(tx, userID, id)
		if err != nil {
			return err
		}

		updates := map[string]any{}

		if p.Name != nil {
			updates["name"] = strings.TrimSpace(*p.Name)
		}

		if p.AgentID != nil && *p.AgentID != current.AgentID {
			if err := ownsAgent(tx, userID, *p.AgentID); err != nil {
				return err
			}

			updates["agent_id"] = *p.AgentID
		}

		if p.Status != nil {
			status, err := model.ParseMeetingStatus(*p.Status)
			if err != nil {
				return forms.Errors{"status": "Invalid status"}
			}

			updates["status"] = status
		}

		startedAt, endedAt := current.StartedAt, current.EndedAt

		if p.StartedAt != nil {
			startedAt = p.StartedAt
			updates["started_at"] = *p.StartedAt
		}

		if p.EndedAt != nil {
			endedAt = p.EndedAt
			updates["ended_at"] = *p.EndedAt
		}

		if startedAt != nil && endedAt != nil && endedAt.Before(*startedAt) {
			return forms.Errors{"endedAt": "End time can't be before start time"}
		}

		if p.TranscriptURL != nil {
			updates["transcript_url"] = nullable(*p.TranscriptURL)
		}

		if p.RecordingURL != nil {
			updates["recording_url"] = nullable(*p.RecordingURL)
		}

		if p.Summary != nil {
			updates["summary"] = nullable(*p.Summary)
		}

		if len(updates) > 0 {
			if err := tx.Model(current).Updates(updates).Error; err != nil {
				return err
			}
		}

		meeting, err = findMeeting(tx.Preload("Agent"), userID, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return meeting, nil
}

// Delete removes the meeting and returns the removed row
func (s *MeetingStore) Delete(ctx context.Context, userID, id string) (*model.Meeting, error) {
	var meeting *model.Meeting

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error

		meeting, err = findMeeting(tx, userID, id)
		if err != nil {
			return err
		}

		return tx.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Meeting{}).Error
	})
	if err != nil {
		return nil, err
	}

	return meeting, nil
}

func findMeeting(db *gorm.DB, userID, id string) (*model.Meeting, error) {
	var meeting model.Meeting

	err := db.Where("id = ? AND user_id = ?", id, userID).First(&meeting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return &meeting, nil
}

func ownsAgent(db *gorm.DB, userID, agentID string) error {
	var n int64

	err := db.Model(&model.Agent{}).Where("id = ? AND user_id = ?", agentID, userID).Count(&n).Error
	if err != nil {
		return err
	}

	if n == 0 {
		return ErrAgentNotFound
	}

	return nil
}

// nullable maps an empty string to NULL
func nullable(s string) any {
	if s == "" {
		return nil
	}

	return s
}
