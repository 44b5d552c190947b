package internal

import (
	"bitwise74/meet-api/internal/service"
	"bitwise74/meet-api/internal/testutil"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepsClose(t *testing.T) {
	db := testutil.NewDB(t)

	cleanup, err := service.StartCleanup(db, "@every 1h")
	require.NoError(t, err)

	d := &Deps{DB: db, Cleanup: cleanup}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, d.Close(ctx))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Error(t, sqlDB.Ping())
}

func TestDepsCloseEmpty(t *testing.T) {
	assert.NoError(t, (&Deps{}).Close(context.Background()))
}
