package repository

import (
	"fmt"

	"gorm.io/gorm"
)

type RoomAccessRepository interface {
	HasRole(roomID, userID int64, role string) (bool, error)
	Grant(roomID, userID int64, role string) error
	Revoke(roomID, userID int64, role string) error
	ListRole(roomID int64, role string) ([]int64, error)
}

type PostgresRoomAccessRepository struct {
	db *gorm.DB
}

func NewRoomAccessRepository(db *gorm.DB) RoomAccessRepository {
	return &PostgresRoomAccessRepository{db: db}
}

func (r *PostgresRoomAccessRepository) HasRole(roomID, userID int64, role string) (bool, error) {
	var count int64
	err := r.db.Model(&RoomAccess{}).
		Where("room_id = ? AND user_id = ? AND role = ?", roomID, userID, role).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check %s role: %w", role, err)
	}
	return count > 0, nil
}

func (r *PostgresRoomAccessRepository) Grant(roomID, userID int64, role string) error {
	access := RoomAccess{
		RoomID: roomID,
		UserID: userID,
		Role:   role,
	}
	err := r.db.Where(RoomAccess{RoomID: roomID, UserID: userID, Role: role}).
		FirstOrCreate(&access).Error
	if err != nil {
		return fmt.Errorf("failed to grant %s role: %w", role, err)
	}
	return nil
}

func (r *PostgresRoomAccessRepository) Revoke(roomID, userID int64, role string) error {
	err := r.db.Where("room_id = ? AND user_id = ? AND role = ?", roomID, userID, role).
		Delete(&RoomAccess{}).Error
	if err != nil {
		return fmt.Errorf("failed to revoke %s role: %w", role, err)
	}
	return nil
}

func (r *PostgresRoomAccessRepository) ListRole(roomID int64, role string) ([]int64, error) {
	var users []int64
	err := r.db.Model(&RoomAccess{}).
		Where("room_id = ? AND role = ?", roomID, role).
		Pluck("user_id", &users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s role: %w", role, err)
	}
	return users, nil
}
