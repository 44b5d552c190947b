// Package store holds the user scoped queries behind the agent and
// meeting endpoints. Every query filters on the caller's user id, so rows
// of other users behave exactly like missing rows.
package store

import (
	"errors"
	"strings"
)

var (
	ErrNotFound      = errors.New("record doesn't exist or isn't owned by the user")
	ErrAgentNotFound = errors.New("agent doesn't exist or isn't owned by the user")
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func newPage[T any](items []T, total int64, size int) *Page[T] {
	if items == nil {
		items = []T{}
	}

	return &Page[T]{
		Items:      items,
		Total:      total,
		TotalPages: int((total + int64(size) - 1) / int64(size)),
	}
}

// bounds clamps the requested page and page size and returns the offset
func bounds(page, size int) (offset, limit int) {
	if page < 1 {
		page = DefaultPage
	}

	switch {
	case size < 1:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}

	return (page - 1) * size, size
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns a search term into a case insensitive substring pattern
func likePattern(search string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(search))) + "%"
}

const nameLike = `LOWER(name) LIKE ? ESCAPE '\'`
