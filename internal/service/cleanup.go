package service

import (
	"bitwise74/meet-api/internal/model"
	"bitwise74/meet-api/pkg/metrics"
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const DefaultCleanupSchedule = "@every 1h"

// PurgeExpired deletes sessions and verifications that expired before now
func PurgeExpired(ctx context.Context, db *gorm.DB, now time.Time) (sessions, verifications int64, err error) {
	res := db.WithContext(ctx).Where("expires_at < ?", now).Delete(&model.Session{})
	if res.Error != nil {
		return 0, 0, res.Error
	}
	sessions = res.RowsAffected

	res = db.WithContext(ctx).Where("expires_at < ?", now).Delete(&model.Verification{})
	if res.Error != nil {
		return sessions, 0, res.Error
	}

	return sessions, res.RowsAffected, nil
}

// StartCleanup schedules PurgeExpired. The returned cron has to be stopped
// on shutdown.
func StartCleanup(db *gorm.DB, schedule string) (*cron.Cron, error) {
	if schedule == "" {
		schedule = DefaultCleanupSchedule
	}

	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		sessions, verifications, err := PurgeExpired(context.Background(), db, time.Now())
		if err != nil {
			zap.L().Error("Failed to clean up expired rows", zap.Error(err))
			return
		}

		metrics.CleanupPurged.WithLabelValues("sessions").Add(float64(sessions))
		metrics.CleanupPurged.WithLabelValues("verifications").Add(float64(verifications))

		if sessions+verifications > 0 {
			zap.L().Debug("Cleaned up expired rows",
				zap.Int64("sessions", sessions),
				zap.Int64("verifications", verifications),
			)
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	zap.L().Debug("Expired row cleanup attached", zap.String("schedule", schedule))

	return c, nil
}
