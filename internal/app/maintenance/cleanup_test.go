package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidecrm/tide/internal/database/testutil"
	"github.com/tidecrm/tide/internal/models"
	"github.com/tidecrm/tide/internal/services"
)

func TestCleanerRunOnceRespectsRetention(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	now := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)

	stale := models.ApiLog{Method: "GET", Path: "/api/leads", IPAddress: "192.0.2.1", StatusCode: 200}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Model(&stale).Update("created_at", now.AddDate(0, 0, -10)).Error)

	fresh := models.ApiLog{Method: "GET", Path: "/api/deals", IPAddress: "192.0.2.1", StatusCode: 200}
	require.NoError(t, db.Create(&fresh).Error)
	require.NoError(t, db.Model(&fresh).Update("created_at", now.AddDate(0, 0, -2)).Error)

	cleaner := NewCleaner(audit,
		WithRetentionDays(7),
		WithNow(func() time.Time { return now }),
	)
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var remaining []models.ApiLog
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "/api/deals", remaining[0].Path)
}

func TestCleanerWithoutAuditServiceIsNoop(t *testing.T) {
	cleaner := NewCleaner(nil)
	assert.NoError(t, cleaner.Start())
	assert.NoError(t, cleaner.RunOnce(context.Background()))
	cleaner.Stop()
}
