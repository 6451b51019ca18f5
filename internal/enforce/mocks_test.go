package enforce

import (
	"context"
	"time"

	"chat-sentinel-bot/internal/platform"
	"chat-sentinel-bot/internal/repository"
)

type mockClient struct {
	sentMessages    []string
	deletedSingles  []int64
	deletedBatches  [][]int64
	banned          []int64
	unbanned        []int64
	restricted      map[int64]platform.Permissions
	member          *platform.Member
	banErr          error
	deleteErr       error
	GetMemberFunc   func(ctx context.Context, roomID, userID int64) (*platform.Member, error)
	SendMessageFunc func(ctx context.Context, roomID int64, text string) (int64, error)
}

func newMockClient() *mockClient {
	return &mockClient{restricted: make(map[int64]platform.Permissions)}
}

func (m *mockClient) SendMessage(ctx context.Context, roomID int64, text string) (int64, error) {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, roomID, text)
	}
	m.sentMessages = append(m.sentMessages, text)
	return int64(1000 + len(m.sentMessages)), nil
}

func (m *mockClient) SendMessageWithActions(ctx context.Context, roomID int64, text string, actions []platform.Action) (int64, error) {
	m.sentMessages = append(m.sentMessages, text)
	return int64(1000 + len(m.sentMessages)), nil
}

func (m *mockClient) EditMessage(ctx context.Context, roomID, messageID int64, text string) error {
	return nil
}

func (m *mockClient) DeleteMessage(ctx context.Context, roomID, messageID int64) error {
	m.deletedSingles = append(m.deletedSingles, messageID)
	return m.deleteErr
}

func (m *mockClient) DeleteMessages(ctx context.Context, roomID int64, messageIDs []int64) error {
	m.deletedBatches = append(m.deletedBatches, messageIDs)
	return m.deleteErr
}

func (m *mockClient) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	return nil
}

func (m *mockClient) RestrictMember(ctx context.Context, roomID, userID int64, perms platform.Permissions) error {
	m.restricted[userID] = perms
	return nil
}

func (m *mockClient) BanMember(ctx context.Context, roomID, userID int64, revokeMessages bool) error {
	if m.banErr != nil {
		return m.banErr
	}
	m.banned = append(m.banned, userID)
	return nil
}

func (m *mockClient) UnbanMember(ctx context.Context, roomID, userID int64) error {
	m.unbanned = append(m.unbanned, userID)
	return nil
}

func (m *mockClient) GetMember(ctx context.Context, roomID, userID int64) (*platform.Member, error) {
	if m.GetMemberFunc != nil {
		return m.GetMemberFunc(ctx, roomID, userID)
	}
	return m.member, nil
}

func (m *mockClient) GetProfile(ctx context.Context, userID int64) (*platform.Profile, error) {
	return &platform.Profile{}, nil
}

func (m *mockClient) GetAvatar(ctx context.Context, userID int64) (*platform.Avatar, error) {
	return nil, nil
}

func (m *mockClient) Self(ctx context.Context) (*platform.User, error) {
	return &platform.User{ID: 1, IsBot: true}, nil
}

type mockModLog struct {
	entries []*repository.ModerationLog
}

func (m *mockModLog) Record(ctx context.Context, entry *repository.ModerationLog) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockModLog) StatsSince(ctx context.Context, since time.Time) (repository.DailyStats, error) {
	return repository.DailyStats{}, nil
}

func (m *mockModLog) CountActionsSince(ctx context.Context, roomID, userID int64, action string, since time.Time) (int64, error) {
	return 0, nil
}

// mockScheduler records scheduled jobs so tests can fire them on demand.
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
	delete(s.jobs, name)
	fn(context.Background())
	return true
}
