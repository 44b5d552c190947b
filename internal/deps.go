package internal

import (
	"bitwise74/meet-api/aws"
	"bitwise74/meet-api/internal/auth"
	"bitwise74/meet-api/internal/store"
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Deps is everything a handler may need. S3, Redis and Cleanup are nil when
// they are not configured.
type Deps struct {
	DB       *gorm.DB
	Auth     *auth.Service
	Agents   *store.AgentStore
	Meetings *store.MeetingStore
	S3       *aws.S3Client
	Redis    *redis.Client
	Cleanup  *cron.Cron
}

// Close stops the cleanup jobs, waiting for a running one until ctx is
// done, then closes the connections
func (d *Deps) Close(ctx context.Context) error {
	var errs []error

	if d.Cleanup != nil {
		select {
		case <-d.Cleanup.Stop().Done():
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	}

	if d.Redis != nil {
		errs = append(errs, d.Redis.Close())
	}

	if d.DB != nil {
		sqlDB, err := d.DB.DB()
		if err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, sqlDB.Close())
		}
	}

	return errors.Join(errs...)
}
