package client

import (
	"bitwise74/meet-api/internal/model"
	"bitwise74/meet-api/internal/store"
	"bitwise74/meet-api/pkg/forms"
	"context"
	"net/http"
	"net/url"
)

func (c *Client) ListAgents(ctx context.Context, f store.AgentFilter) (*store.Page[store.AgentWithCount], error) {
	var out store.Page[store.AgentWithCount]
	if err := c.do(ctx, http.MethodGet, "/api/agents", pageQuery(f.Search, f.Page, f.PageSize), nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) GetAgent(ctx context.Context, id string) (*store.AgentWithCount, error) {
	var out store.AgentWithCount
	if err := c.do(ctx, http.MethodGet, "/api/agents/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) CreateAgent(ctx context.Context, f forms.AgentForm) (*model.Agent, error) {
	if errs := forms.Validate(&f); errs != nil {
		return nil, errs
	}

	var out model.Agent
	if err := c.do(ctx, http.MethodPost, "/api/agents", nil, f, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) UpdateAgent(ctx context.Context, id string, p forms.AgentPatch) (*model.Agent, error) {
	if errs := forms.Validate(&p); errs != nil {
		return nil, errs
	}

	var out model.Agent
	if err := c.do(ctx, http.MethodPatch, "/api/agents/"+url.PathEscape(id), nil, p, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) DeleteAgent(ctx context.Context, id string) (*model.Agent, error) {
	var out model.Agent
	if err := c.do(ctx, http.MethodDelete, "/api/agents/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) ListMeetings(ctx context.Context, f store.MeetingFilter) (*store.Page[model.Meeting], error) {
	q := pageQuery(f.Search, f.Page, f.PageSize)
	if f.AgentID != "" {
		q.Set("agentId", f.AgentID)
	}

	if f.Status != "" {
		q.Set("status", f.Status)
	}

	var out store.Page[model.Meeting]
	if err := c.do(ctx, http.MethodGet, "/api/meetings", q, nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) GetMeeting(ctx context.Context, id string) (*model.Meeting, error) {
	var out model.Meeting
	if err := c.do(ctx, http.MethodGet, "/api/meetings/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) CreateMeeting(ctx context.Context, f forms.MeetingForm) (*model.Meeting, error) {
	if errs := forms.Validate(&f); errs != nil {
		return nil, errs
	}

	var out model.Meeting
	if err := c.do(ctx, http.MethodPost, "/api/meetings", nil, f, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) UpdateMeeting(ctx context.Context, id string, p forms.MeetingPatch) (*model.Meeting, error) {
	if errs := forms.Validate(&p); errs != nil {
		return nil, errs
	}

	var out model.Meeting
	if err := c.do(ctx, http.MethodPatch, "/api/meetings/"+url.PathEscape(id), nil, p, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) DeleteMeeting(ctx context.Context, id string) (*model.Meeting, error) {
	var out model.Meeting
	if err := c.do(ctx, http.MethodDelete, "/api/meetings/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}
