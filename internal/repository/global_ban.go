package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type GlobalBanRepository interface {
	IsBanned(userID int64) (bool, error)
	Ban(userID int64, reason string, adminID int64) error
	Unban(userID int64) (bool, error)
	Get(userID int64) (*GlobalBan, error)
}

type PostgresGlobalBanRepository struct {
	db *gorm.DB
}

func NewGlobalBanRepository(db *gorm.DB) GlobalBanRepository {
	return &PostgresGlobalBanRepository{db: db}
}

func (r *PostgresGlobalBanRepository) IsBanned(userID int64) (bool, error) {
	var count int64
	err := r.db.Model(&GlobalBan{}).
		Where("user_id = ? AND active = ?", userID, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check global ban: %w", err)
	}
	return count > 0, nil
}

// Ban creates the blacklist row or re-activates an old one.
func (r *PostgresGlobalBanRepository) Ban(userID int64, reason string, adminID int64) error {
	var existing GlobalBan
	err := r.db.First(&existing, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ban := GlobalBan{
				UserID:  userID,
				Reason:  reason,
				AdminID: adminID,
				Active:  true,
			}
			if err := r.db.Create(&ban).Error; err != nil {
				return fmt.Errorf("failed to create global ban: %w", err)
			}
			return nil
		}
		return fmt.Errorf("failed to check existing global ban: %w", err)
	}

	updates := map[string]interface{}{
		"active":   true,
		"reason":   reason,
		"admin_id": adminID,
	}
	if err := r.db.Model(&existing).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to reactivate global ban: %w", err)
	}
	return nil
}

func (r *PostgresGlobalBanRepository) Unban(userID int64) (bool, error) {
	res := r.db.Model(&GlobalBan{}).
		Where("user_id = ? AND active = ?", userID, true).
		Update("active", false)
	if res.Error != nil {
		return false, fmt.Errorf("failed to lift global ban: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresGlobalBanRepository) Get(userID int64) (*GlobalBan, error) {
	var ban GlobalBan
	err := r.db.First(&ban, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get global ban: %w", err)
	}
	return &ban, nil
}
