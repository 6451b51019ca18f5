package filters

import (
	"chat-sentinel-bot/internal/repository"
)

type mockGlobalBanRepo struct {
	banned  bool
	reason  string
	err     error
	GetFunc func(userID int64) (*repository.GlobalBan, error)
}

func (m *mockGlobalBanRepo) IsBanned(userID int64) (bool, error) {
	return m.banned, m.err
}

func (m *mockGlobalBanRepo) Ban(userID int64, reason string, adminID int64) error {
	return nil
}

func (m *mockGlobalBanRepo) Unban(userID int64) (bool, error) {
	return false, nil
}

func (m *mockGlobalBanRepo) Get(userID int64) (*repository.GlobalBan, error) {
	if m.GetFunc != nil {
		return m.GetFunc(userID)
	}
	if m.err != nil {
		return nil, m.err
	}
	if !m.banned {
		return nil, nil
	}
	return &repository.GlobalBan{UserID: userID, Reason: m.reason, Active: true}, nil
}

type mockAccessRepo struct {
	hasRole     bool
	err         error
	HasRoleFunc func(roomID, userID int64, role string) (bool, error)
}

func (m *mockAccessRepo) HasRole(roomID, userID int64, role string) (bool, error) {
	if m.HasRoleFunc != nil {
		return m.HasRoleFunc(roomID, userID, role)
	}
	return m.hasRole, m.err
}

func (m *mockAccessRepo) Grant(roomID, userID int64, role string) error {
	return nil
}

func (m *mockAccessRepo) Revoke(roomID, userID int64, role string) error {
	return nil
}

func (m *mockAccessRepo) ListRole(roomID int64, role string) ([]int64, error) {
	return nil, nil
}

type mockSettingsRepo struct {
	settings        *repository.RoomSettings
	err             error
	GetSettingsFunc func(roomID int64) (*repository.RoomSettings, error)
}

func (m *mockSettingsRepo) GetSettings(roomID int64) (*repository.RoomSettings, error) {
	if m.GetSettingsFunc != nil {
		return m.GetSettingsFunc(roomID)
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.settings, nil
}

func (m *mockSettingsRepo) InitSettings(roomID int64) error {
	return nil
}

func (m *mockSettingsRepo) UpdateSettings(settings *repository.RoomSettings) error {
	m.settings = settings
	return nil
}

func (m *mockSettingsRepo) GetActiveRooms() ([]int64, error) {
	return nil, nil
}

func (m *mockSettingsRepo) SetActive(roomID int64, active bool) error {
	return nil
}

type mockWordRepo struct {
	words        []string
	err          error
	GetWordsFunc func(roomID int64, kind string) ([]string, error)
}

func (m *mockWordRepo) GetWords(roomID int64, kind string) ([]string, error) {
	if m.GetWordsFunc != nil {
		return m.GetWordsFunc(roomID, kind)
	}
	return m.words, m.err
}

func (m *mockWordRepo) AddWord(roomID int64, kind, word string, addedBy int64) error {
	return nil
}

func (m *mockWordRepo) RemoveWord(roomID int64, kind, word string) (bool, error) {
	return false, nil
}
