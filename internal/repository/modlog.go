package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Enforcement actions recorded in the audit trail.
const (
	ActionBan     = "ban"
	ActionMute    = "mute"
	ActionKick    = "kick"
	ActionWarn    = "warn"
	ActionUnban   = "unban"
	ActionUnmute  = "unmute"
	ActionRestore = "restore"
)

// DailyStats are the enforcement counts for the daily report window.
type DailyStats struct {
	Bans  int64
	Mutes int64
}

type ModerationLogRepository interface {
	Record(ctx context.Context, entry *ModerationLog) error
	StatsSince(ctx context.Context, since time.Time) (DailyStats, error)
	CountActionsSince(ctx context.Context, roomID, userID int64, action string, since time.Time) (int64, error)
}

type PostgresModerationLogRepository struct {
	db *gorm.DB
}

func NewModerationLogRepository(db *gorm.DB) ModerationLogRepository {
	return &PostgresModerationLogRepository{db: db}
}

func (r *PostgresModerationLogRepository) Record(ctx context.Context, entry *ModerationLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *PostgresModerationLogRepository) StatsSince(ctx context.Context, since time.Time) (DailyStats, error) {
	var stats DailyStats
	err := r.db.WithContext(ctx).Model(&ModerationLog{}).
		Where("action = ? AND created_at >= ?", ActionBan, since).
		Count(&stats.Bans).Error
	if err != nil {
		return DailyStats{}, err
	}
	err = r.db.WithContext(ctx).Model(&ModerationLog{}).
		Where("action = ? AND created_at >= ?", ActionMute, since).
		Count(&stats.Mutes).Error
	if err != nil {
		return DailyStats{}, err
	}
	return stats, nil
}

func (r *PostgresModerationLogRepository) CountActionsSince(ctx context.Context, roomID, userID int64, action string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ModerationLog{}).
		Where("room_id = ? AND user_id = ? AND action = ? AND created_at >= ?", roomID, userID, action, since).
		Count(&count).Error
	return count, err
}
