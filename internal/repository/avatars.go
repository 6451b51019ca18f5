package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type BannedAvatarRepository interface {
	// FindByContentID is the cheap exact check, done before any hashing.
	FindByContentID(contentID string) (*BannedAvatar, error)
	// GetAll returns every banned avatar for the perceptual-hash scan.
	GetAll() ([]BannedAvatar, error)
	Add(contentID, hash string, addedBy int64) error
	Remove(contentID string) (bool, error)
}

type PostgresBannedAvatarRepository struct {
	db *gorm.DB
}

func NewBannedAvatarRepository(db *gorm.DB) BannedAvatarRepository {
	return &PostgresBannedAvatarRepository{db: db}
}

func (r *PostgresBannedAvatarRepository) FindByContentID(contentID string) (*BannedAvatar, error) {
	var avatar BannedAvatar
	err := r.db.First(&avatar, "content_id = ?", contentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up banned avatar: %w", err)
	}
	return &avatar, nil
}

func (r *PostgresBannedAvatarRepository) GetAll() ([]BannedAvatar, error) {
	var avatars []BannedAvatar
	if err := r.db.Find(&avatars).Error; err != nil {
		return nil, fmt.Errorf("failed to get banned avatars: %w", err)
	}
	return avatars, nil
}

func (r *PostgresBannedAvatarRepository) Add(contentID, hash string, addedBy int64) error {
	avatar := BannedAvatar{
		ContentID: contentID,
		Hash:      hash,
		AddedBy:   addedBy,
	}
	err := r.db.Where(BannedAvatar{ContentID: contentID}).FirstOrCreate(&avatar).Error
	if err != nil {
		return fmt.Errorf("failed to add banned avatar: %w", err)
	}
	return nil
}

func (r *PostgresBannedAvatarRepository) Remove(contentID string) (bool, error) {
	res := r.db.Where("content_id = ?", contentID).Delete(&BannedAvatar{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to remove banned avatar: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
