package repository

import (
	"fmt"

	"gorm.io/gorm"

	"chat-sentinel-bot/internal/textnorm"
)

type WordRepository interface {
	// GetWords returns the words of the given kind visible in the room,
	// room-scoped and global rows combined, already normalized.
	GetWords(roomID int64, kind string) ([]string, error)
	AddWord(roomID int64, kind, word string, addedBy int64) error
	RemoveWord(roomID int64, kind, word string) (bool, error)
}

type PostgresWordRepository struct {
	db *gorm.DB
}

func NewWordRepository(db *gorm.DB) WordRepository {
	return &PostgresWordRepository{db: db}
}

func (r *PostgresWordRepository) GetWords(roomID int64, kind string) ([]string, error) {
	var words []string
	err := r.db.Model(&BanWord{}).
		Where("kind = ? AND room_id IN ?", kind, []int64{roomID, GlobalScope}).
		Pluck("word", &words).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get %s words: %w", kind, err)
	}
	return words, nil
}

func (r *PostgresWordRepository) AddWord(roomID int64, kind, word string, addedBy int64) error {
	entry := BanWord{
		RoomID:  roomID,
		Kind:    kind,
		Word:    textnorm.Normalize(word),
		AddedBy: addedBy,
	}
	err := r.db.Where(BanWord{RoomID: roomID, Kind: kind, Word: entry.Word}).
		FirstOrCreate(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to add %s word: %w", kind, err)
	}
	return nil
}

func (r *PostgresWordRepository) RemoveWord(roomID int64, kind, word string) (bool, error) {
	normalized := textnorm.Normalize(word)
	res := r.db.Where("room_id = ? AND kind = ? AND word = ?", roomID, kind, normalized).
		Delete(&BanWord{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to remove %s word: %w", kind, res.Error)
	}
	return res.RowsAffected > 0, nil
}
