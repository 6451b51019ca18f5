package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type KnownMemberRepository interface {
	// Upsert records that the user was seen in the room and refreshes the
	// stored name fields. A new row starts unscreened.
	Upsert(roomID, userID int64, username, firstName, lastName string) error
	MarkLeft(roomID, userID int64) error
	MarkChecked(roomID, userID int64) error
	// ResetChecked queues the member for re-screening, e.g. after a profile
	// change.
	ResetChecked(roomID, userID int64) error
	GetUnchecked(roomID int64, limit int) ([]KnownMember, error)
	CountMembers(roomID int64) (int64, error)
}

type PostgresKnownMemberRepository struct {
	db *gorm.DB
}

func NewKnownMemberRepository(db *gorm.DB) KnownMemberRepository {
	return &PostgresKnownMemberRepository{db: db}
}

func (r *PostgresKnownMemberRepository) Upsert(roomID, userID int64, username, firstName, lastName string) error {
	member := KnownMember{
		RoomID:     roomID,
		UserID:     userID,
		Username:   username,
		FirstName:  firstName,
		LastName:   lastName,
		IsMember:   true,
		LastSeenAt: time.Now(),
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"username":     username,
			"first_name":   firstName,
			"last_name":    lastName,
			"is_member":    true,
			"last_seen_at": member.LastSeenAt,
		}),
	}).Create(&member).Error
	if err != nil {
		return fmt.Errorf("failed to upsert member: %w", err)
	}
	return nil
}

func (r *PostgresKnownMemberRepository) MarkLeft(roomID, userID int64) error {
	err := r.db.Model(&KnownMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("is_member", false).Error
	if err != nil {
		return fmt.Errorf("failed to mark member left: %w", err)
	}
	return nil
}

func (r *PostgresKnownMemberRepository) MarkChecked(roomID, userID int64) error {
	now := time.Now()
	err := r.db.Model(&KnownMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("profile_checked_at", &now).Error
	if err != nil {
		return fmt.Errorf("failed to mark member checked: %w", err)
	}
	return nil
}

func (r *PostgresKnownMemberRepository) ResetChecked(roomID, userID int64) error {
	err := r.db.Model(&KnownMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("profile_checked_at", nil).Error
	if err != nil {
		return fmt.Errorf("failed to reset member check: %w", err)
	}
	return nil
}

func (r *PostgresKnownMemberRepository) GetUnchecked(roomID int64, limit int) ([]KnownMember, error) {
	var members []KnownMember
	err := r.db.Where("room_id = ? AND is_member = ? AND profile_checked_at IS NULL", roomID, true).
		Order("last_seen_at ASC").
		Limit(limit).
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get unchecked members: %w", err)
	}
	return members, nil
}

func (r *PostgresKnownMemberRepository) CountMembers(roomID int64) (int64, error) {
	var count int64
	err := r.db.Model(&KnownMember{}).
		Where("room_id = ? AND is_member = ?", roomID, true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return count, nil
}
