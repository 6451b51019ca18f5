package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chat-sentinel-bot/internal/platform"
	"chat-sentinel-bot/internal/repository"
)

type sentMessage struct {
	roomID  int64
	text    string
	actions []platform.Action
}

type mockClient struct {
	mu         sync.Mutex
	sent       []sentMessage
	edited     []string
	deleted    []int64
	batches    [][]int64
	banned     []int64
	unbanned   []int64
	restricted map[int64]platform.Permissions
	answers    []string
	members    map[int64]*platform.Member
	profiles   map[int64]*platform.Profile
	avatars    map[int64]*platform.Avatar
	nextMsgID  int64
}

func newMockClient() *mockClient {
	return &mockClient{
		restricted: make(map[int64]platform.Permissions),
		members:    make(map[int64]*platform.Member),
		profiles:   make(map[int64]*platform.Profile),
		avatars:    make(map[int64]*platform.Avatar),
		nextMsgID:  5000,
	}
}

func (m *mockClient) SendMessage(ctx context.Context, roomID int64, text string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{roomID: roomID, text: text})
	m.nextMsgID++
	return m.nextMsgID, nil
}

func (m *mockClient) SendMessageWithActions(ctx context.Context, roomID int64, text string, actions []platform.Action) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{roomID: roomID, text: text, actions: actions})
	m.nextMsgID++
	return m.nextMsgID, nil
}

func (m *mockClient) EditMessage(ctx context.Context, roomID, messageID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edited = append(m.edited, text)
	return nil
}

func (m *mockClient) DeleteMessage(ctx context.Context, roomID, messageID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *mockClient) DeleteMessages(ctx context.Context, roomID int64, messageIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, messageIDs)
	return nil
}

func (m *mockClient) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers = append(m.answers, text)
	return nil
}

func (m *mockClient) RestrictMember(ctx context.Context, roomID, userID int64, perms platform.Permissions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restricted[userID] = perms
	return nil
}

func (m *mockClient) BanMember(ctx context.Context, roomID, userID int64, revokeMessages bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.banned = append(m.banned, userID)
	return nil
}

func (m *mockClient) UnbanMember(ctx context.Context, roomID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unbanned = append(m.unbanned, userID)
	return nil
}

func (m *mockClient) GetMember(ctx context.Context, roomID, userID int64) (*platform.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if member, ok := m.members[userID]; ok {
		return member, nil
	}
	return &platform.Member{Status: platform.StatusMember, CanRestrict: true}, nil
}

func (m *mockClient) GetProfile(ctx context.Context, userID int64) (*platform.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[userID]; ok {
		return p, nil
	}
	return &platform.Profile{}, nil
}

func (m *mockClient) GetAvatar(ctx context.Context, userID int64) (*platform.Avatar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.avatars[userID], nil
}

func (m *mockClient) Self(ctx context.Context) (*platform.User, error) {
	return &platform.User{ID: 1, Username: "sentinel_bot", IsBot: true}, nil
}

type mockScheduler struct {
	jobs      map[string]func(ctx context.Context)
	cancelled []string
}

func newMockScheduler() *mockScheduler {
	return &mockScheduler{jobs: make(map[string]func(ctx context.Context))}
}

func (s *mockScheduler) RunOnce(name string, delay time.Duration, fn func(ctx context.Context)) {
	s.jobs[name] = fn
}

func (s *mockScheduler) RunPeriodic(name string, initial, interval time.Duration, fn func(ctx context.Context)) {
	s.jobs[name] = fn
}

func (s *mockScheduler) RunDaily(name string, hourUTC int, fn func(ctx context.Context)) {
	s.jobs[name] = fn
}

func (s *mockScheduler) Cancel(name string) bool {
	s.cancelled = append(s.cancelled, name)
	_, ok := s.jobs[name]
	delete(s.jobs, name)
	return ok
}

func (s *mockScheduler) fire(name string) bool {
	fn, ok := s.jobs[name]
	if !ok {
		return false
	}
	fn(context.Background())
	return true
}

type mockSettingsRepo struct {
	settings    map[int64]*repository.RoomSettings
	active      []int64
	deactivated []int64
}

func (m *mockSettingsRepo) GetSettings(roomID int64) (*repository.RoomSettings, error) {
	if s, ok := m.settings[roomID]; ok {
		return s, nil
	}
	return &repository.RoomSettings{RoomID: roomID, LinkBanEnabled: true, Active: true}, nil
}

func (m *mockSettingsRepo) InitSettings(roomID int64) error { return nil }

func (m *mockSettingsRepo) UpdateSettings(s *repository.RoomSettings) error {
	if m.settings == nil {
		m.settings = make(map[int64]*repository.RoomSettings)
	}
	m.settings[s.RoomID] = s
	return nil
}

func (m *mockSettingsRepo) GetActiveRooms() ([]int64, error) { return m.active, nil }

func (m *mockSettingsRepo) SetActive(roomID int64, active bool) error {
	if !active {
		m.deactivated = append(m.deactivated, roomID)
	}
	return nil
}

type mockWordRepo struct {
	byKind map[string][]string
	added  []string
}

func (m *mockWordRepo) GetWords(roomID int64, kind string) ([]string, error) {
	return m.byKind[kind], nil
}

func (m *mockWordRepo) AddWord(roomID int64, kind, word string, addedBy int64) error {
	m.added = append(m.added, kind+":"+word)
	return nil
}

func (m *mockWordRepo) RemoveWord(roomID int64, kind, word string) (bool, error) {
	return true, nil
}

type mockGlobalBanRepo struct {
	banned map[int64]string
}

func newMockGlobalBanRepo() *mockGlobalBanRepo {
	return &mockGlobalBanRepo{banned: make(map[int64]string)}
}

func (m *mockGlobalBanRepo) IsBanned(userID int64) (bool, error) {
	_, ok := m.banned[userID]
	return ok, nil
}

func (m *mockGlobalBanRepo) Ban(userID int64, reason string, adminID int64) error {
	m.banned[userID] = reason
	return nil
}

func (m *mockGlobalBanRepo) Unban(userID int64) (bool, error) {
	_, ok := m.banned[userID]
	delete(m.banned, userID)
	return ok, nil
}

func (m *mockGlobalBanRepo) Get(userID int64) (*repository.GlobalBan, error) {
	reason, ok := m.banned[userID]
	if !ok {
		return nil, nil
	}
	return &repository.GlobalBan{UserID: userID, Reason: reason, Active: true}, nil
}

type mockAvatarRepo struct {
	byContentID map[string]*repository.BannedAvatar
	all         []repository.BannedAvatar
	added       []string
}

func (m *mockAvatarRepo) FindByContentID(contentID string) (*repository.BannedAvatar, error) {
	return m.byContentID[contentID], nil
}

func (m *mockAvatarRepo) GetAll() ([]repository.BannedAvatar, error) { return m.all, nil }

func (m *mockAvatarRepo) Add(contentID, hash string, addedBy int64) error {
	m.added = append(m.added, contentID)
	return nil
}

func (m *mockAvatarRepo) Remove(contentID string) (bool, error) { return false, nil }

type mockMemberRepo struct {
	upserts   []int64
	checked   []int64
	reset     []int64
	unchecked []repository.KnownMember
	total     int64
}

func (m *mockMemberRepo) Upsert(roomID, userID int64, username, firstName, lastName string) error {
	m.upserts = append(m.upserts, userID)
	return nil
}

func (m *mockMemberRepo) MarkLeft(roomID, userID int64) error { return nil }

func (m *mockMemberRepo) MarkChecked(roomID, userID int64) error {
	m.checked = append(m.checked, userID)
	return nil
}

func (m *mockMemberRepo) ResetChecked(roomID, userID int64) error {
	m.reset = append(m.reset, userID)
	return nil
}

func (m *mockMemberRepo) GetUnchecked(roomID int64, limit int) ([]repository.KnownMember, error) {
	return m.unchecked, nil
}

func (m *mockMemberRepo) CountMembers(roomID int64) (int64, error) { return m.total, nil }

type mockAccessRepo struct {
	roles   map[string]bool // keyed role:room:user
	granted []string
	listed  []int64
}

func newMockAccessRepo() *mockAccessRepo {
	return &mockAccessRepo{roles: make(map[string]bool)}
}

func accessKey(roomID, userID int64, role string) string {
	return fmt.Sprintf("%s:%d:%d", role, roomID, userID)
}

func (m *mockAccessRepo) HasRole(roomID, userID int64, role string) (bool, error) {
	return m.roles[accessKey(roomID, userID, role)], nil
}

func (m *mockAccessRepo) Grant(roomID, userID int64, role string) error {
	m.roles[accessKey(roomID, userID, role)] = true
	m.granted = append(m.granted, role)
	return nil
}

func (m *mockAccessRepo) Revoke(roomID, userID int64, role string) error {
	delete(m.roles, accessKey(roomID, userID, role))
	return nil
}

func (m *mockAccessRepo) ListRole(roomID int64, role string) ([]int64, error) {
	return m.listed, nil
}

type mockModLogRepo struct {
	entries   []*repository.ModerationLog
	stats     repository.DailyStats
	warnCount int64
}

func (m *mockModLogRepo) Record(ctx context.Context, entry *repository.ModerationLog) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockModLogRepo) StatsSince(ctx context.Context, since time.Time) (repository.DailyStats, error) {
	return m.stats, nil
}

func (m *mockModLogRepo) CountActionsSince(ctx context.Context, roomID, userID int64, action string, since time.Time) (int64, error) {
	return m.warnCount, nil
}
