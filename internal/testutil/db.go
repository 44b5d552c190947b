// Package testutil holds helpers shared by package tests
package testutil

import (
	"bitwise74/meet-api/db"
	"fmt"
	"strings"
	"testing"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"
)

// NewDB returns a migrated in-memory SQLite database private to the test
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, gonanoid.Must(6))

	g, err := db.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := g.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}

	// A single connection keeps the shared in-memory database alive and
	// avoids table locks between pooled connections.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return g
}

// Clock is a settable time source for tests
type Clock struct {
	T time.Time
}

func (c *Clock) Now() time.Time { return c.T }

func (c *Clock) Advance(d time.Duration) { c.T = c.T.Add(d) }
