package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chat-sentinel-bot/internal/tracker"
)

// PostgresWarningStore persists the tracker's warning counters so they
// survive restarts. It satisfies tracker.WarningStore.
type PostgresWarningStore struct {
	db *gorm.DB
}

func NewWarningStore(db *gorm.DB) *PostgresWarningStore {
	return &PostgresWarningStore{db: db}
}

func (r *PostgresWarningStore) LoadWarnings(roomID, userID int64) (tracker.Snapshot, error) {
	var state WarningState
	err := r.db.First(&state, "room_id = ? AND user_id = ?", roomID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tracker.Snapshot{}, nil
		}
		return tracker.Snapshot{}, fmt.Errorf("failed to load warning state: %w", err)
	}
	return tracker.Snapshot{
		Warnings:      state.Warnings,
		ZalgoWarnings: state.ZalgoWarnings,
		MimicWarnings: state.MimicWarnings,
	}, nil
}

func (r *PostgresWarningStore) SaveWarnings(roomID, userID int64, snap tracker.Snapshot) error {
	state := WarningState{
		RoomID:        roomID,
		UserID:        userID,
		Warnings:      snap.Warnings,
		ZalgoWarnings: snap.ZalgoWarnings,
		MimicWarnings: snap.MimicWarnings,
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"warnings":       snap.Warnings,
			"zalgo_warnings": snap.ZalgoWarnings,
			"mimic_warnings": snap.MimicWarnings,
		}),
	}).Create(&state).Error
	if err != nil {
		return fmt.Errorf("failed to save warning state: %w", err)
	}
	return nil
}
