package store

import (
	"bitwise74/meet-api/internal/model"
	"bitwise74/meet-api/pkg/forms"
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

type AgentFilter struct {
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

type AgentWithCount struct {
	model.Agent
	MeetingCount int64 `json:"meetingCount"`
}

type AgentStore struct {
	db *gorm.DB
}

func NewAgentStore(db *gorm.DB) *AgentStore {
	return &AgentStore{db: db}
}

func (s *AgentStore) List(ctx context.Context, userID string, f AgentFilter) (*Page[AgentWithCount], error) {
	offset, limit := bounds(f.Page, f.PageSize)
	db := s.db.WithContext(ctx)

	q := db.Model(&model.Agent{}).Where("user_id = ?", userID)
	if strings.TrimSpace(f.Search) != "" {
		q = q.Where(nameLike, likePattern(f.Search))
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	var agents []model.Agent

	err := q.Session(&gorm.Session{}).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&agents).
		Error
	if err != nil {
		return nil, err
	}

	items, err := s.withCounts(db, userID, agents)
	if err != nil {
		return nil, err
	}

	return newPage(items, total, limit), nil
}

func (s *AgentStore) withCounts(db *gorm.DB, userID string, agents []model.Agent) ([]AgentWithCount, error) {
	if len(agents) == 0 {
		return nil, nil
	}

	ids := make([]string, len(agents))
	for i, a := range agents {
		ids[i] = a.ID
	}

	var rows []struct {
		AgentID string
		N       int64
	}

	err := db.Model(&model.Meeting{}).
		Select("agent_id, COUNT(*) AS n").
		Where("user_id = ? AND agent_id IN ?", userID, ids).
		Group("agent_id").
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.AgentID] = r.N
	}

	out := make([]AgentWithCount, len(agents))
	for i, a := range agents {
		out[i] = AgentWithCount{Agent: a, MeetingCount: counts[a.ID]}
	}

	return out, nil
}

func (s *AgentStore) Get(ctx context.Context, userID, id string) (*AgentWithCount, error) {
	db := s.db.WithContext(ctx)

	agent, err := findAgent(db, userID, id)
	if err != nil {
		return nil, err
	}

	items, err := s.withCounts(db, userID, []model.Agent{*agent})
	if err != nil {
		return nil, err
	}

	return &items[0], nil
}

func (s *AgentStore) Create(ctx context.Context, userID string, f forms.AgentForm) (*model.Agent, error) {
	if errs := forms.Validate(&f); errs != nil {
		return nil, errs
	}

	agent := &model.Agent{
		Name:         strings.TrimSpace(f.Name),
		Instructions: f.Instructions,
		UserID:       userID,
	}

	if err := s.db.WithContext(ctx).Create(agent).Error; err != nil {
		return nil, err
	}

	return agent, nil
}

func (s *AgentStore) Update(ctx context.Context, userID, id string, p forms.AgentPatch) (*model.Agent, error) {
	if errs := forms.Validate(&p); errs != nil {
		return nil, errs
	}

	var agent *model.Agent

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findAgent(tx, userID, id)
		if err != nil {
			return err
		}

		updates := map[string]any{}

		if p.Name != nil {
			updates["name"] = strings.TrimSpace(*p.Name)
		}

		if p.Instructions != nil {
			updates["instructions"] = *p.Instructions
		}

		if len(updates) > 0 {
			if err := tx.Model(current).Updates(updates).Error; err != nil {
				return err
			}
		}

		agent, err = findAgent(tx, userID, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return agent, nil
}

// Delete removes the agent and, through the foreign key, its meetings.
// The removed row is returned.
func (s *AgentStore) Delete(ctx context.Context, userID, id string) (*model.Agent, error) {
	var agent *model.Agent

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error

		agent, err = findAgent(tx, userID, id)
		if err != nil {
			return err
		}

		return tx.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Agent{}).Error
	})
	if err != nil {
		return nil, err
	}

	return agent, nil
}

func findAgent(db *gorm.DB, userID, id string) (*model.Agent, error) {
	var agent model.Agent

	err := db.Where("id = ? AND user_id = ?", id, userID).First(&agent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return &agent, nil
}
