package joingate

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"chat-sentinel-bot/internal/cooldown"
	"chat-sentinel-bot/internal/enforce"
	"chat-sentinel-bot/internal/events"
	"chat-sentinel-bot/internal/msgcache"
	"chat-sentinel-bot/internal/platform"
	"chat-sentinel-bot/internal/repository"
	"chat-sentinel-bot/internal/screening"
	"chat-sentinel-bot/internal/tracker"
)

type mockClient struct {
	sent       []string
	actionMsgs []string
	deleted    []int64
	banned     []int64
	unbanned   []int64
	restricted map[int64]platform.Permissions
	answers    []string
	member     *platform.Member
	profile    *platform.Profile
	nextMsgID  int64
}

func newMockClient() *mockClient {
	return &mockClient{restricted: make(map[int64]platform.Permissions), nextMsgID: 500}
}

func (m *mockClient) SendMessage(ctx context.Context, roomID int64, text string) (int64, error) {
	m.sent = append(m.sent, text)
	m.nextMsgID++
	return m.nextMsgID, nil
}

func (m *mockClient) SendMessageWithActions(ctx context.Context, roomID int64, text string, actions []platform.Action) (int64, error) {
	m.actionMsgs = append(m.actionMsgs, text)
	m.nextMsgID++
	return m.nextMsgID, nil
}

func (m *mockClient) EditMessage(ctx context.Context, roomID, messageID int64, text string) error {
	return nil
}

func (m *mockClient) DeleteMessage(ctx context.Context, roomID, messageID int64) error {
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *mockClient) DeleteMessages(ctx context.Context, roomID int64, messageIDs []int64) error {
	m.deleted = append(m.deleted, messageIDs...)
	return nil
}

func (m *mockClient) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	m.answers = append(m.answers, text)
	return nil
}

func (m *mockClient) RestrictMember(ctx context.Context, roomID, userID int64, perms platform.Permissions) error {
	m.restricted[userID] = perms
	return nil
}

func (m *mockClient) BanMember(ctx context.Context, roomID, userID int64, revokeMessages bool) error {
	m.banned = append(m.banned, userID)
	return nil
}

func (m *mockClient) UnbanMember(ctx context.Context, roomID, userID int64) error {
	m.unbanned = append(m.unbanned, userID)
	return nil
}

func (m *mockClient) GetMember(ctx context.Context, roomID, userID int64) (*platform.Member, error) {
	return m.member, nil
}

func (m *mockClient) GetProfile(ctx context.Context, userID int64) (*platform.Profile, error) {
	if m.profile != nil {
		return m.profile, nil
	}
	return &platform.Profile{}, nil
}

func (m *mockClient) GetAvatar(ctx context.Context, userID int64) (*platform.Avatar, error) {
	return nil, nil
}

func (m *mockClient) Self(ctx context.Context) (*platform.User, error) {
	return &platform.User{ID: 1, IsBot: true}, nil
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
	delete(s.jobs, name)
	fn(context.Background())
	return true
}

type mockGlobalBans struct {
	banned map[int64]bool
}

func (m *mockGlobalBans) IsBanned(userID int64) (bool, error) { return m.banned[userID], nil }
func (m *mockGlobalBans) Ban(userID int64, reason string, adminID int64) error {
	return nil
}
func (m *mockGlobalBans) Unban(userID int64) (bool, error)                { return false, nil }
func (m *mockGlobalBans) Get(userID int64) (*repository.GlobalBan, error) { return nil, nil }

type mockMembers struct {
	upserts []int64
	left    []int64
	checked []int64
}

func (m *mockMembers) Upsert(roomID, userID int64, username, firstName, lastName string) error {
	m.upserts = append(m.upserts, userID)
	return nil
}
func (m *mockMembers) MarkLeft(roomID, userID int64) error {
	m.left = append(m.left, userID)
	return nil
}
func (m *mockMembers) MarkChecked(roomID, userID int64) error {
	m.checked = append(m.checked, userID)
	return nil
}
func (m *mockMembers) ResetChecked(roomID, userID int64) error { return nil }
func (m *mockMembers) GetUnchecked(roomID int64, limit int) ([]repository.KnownMember, error) {
	return nil, nil
}
func (m *mockMembers) CountMembers(roomID int64) (int64, error) { return 0, nil }

type mockAccess struct {
	whitelisted map[int64]bool
}

func (m *mockAccess) HasRole(roomID, userID int64, role string) (bool, error) {
	if role != repository.RoleWhitelist {
		return false, nil
	}
	return m.whitelisted[userID], nil
}
func (m *mockAccess) Grant(roomID, userID int64, role string) error  { return nil }
func (m *mockAccess) Revoke(roomID, userID int64, role string) error { return nil }
func (m *mockAccess) ListRole(roomID int64, role string) ([]int64, error) {
	return nil, nil
}

type mockSettings struct {
	captcha bool
}

func (m *mockSettings) GetSettings(roomID int64) (*repository.RoomSettings, error) {
	return &repository.RoomSettings{RoomID: roomID, CaptchaEnabled: m.captcha, LinkBanEnabled: true}, nil
}
func (m *mockSettings) InitSettings(roomID int64) error                 { return nil }
func (m *mockSettings) UpdateSettings(s *repository.RoomSettings) error { return nil }
func (m *mockSettings) GetActiveRooms() ([]int64, error)                { return nil, nil }
func (m *mockSettings) SetActive(roomID int64, active bool) error       { return nil }

type mockWords struct{}

func (mockWords) GetWords(roomID int64, kind string) ([]string, error)         { return nil, nil }
func (mockWords) AddWord(roomID int64, kind, word string, addedBy int64) error { return nil }
func (mockWords) RemoveWord(roomID int64, kind, word string) (bool, error)     { return false, nil }

type mockAvatars struct{}

func (mockAvatars) FindByContentID(contentID string) (*repository.BannedAvatar, error) {
	return nil, nil
}
func (mockAvatars) GetAll() ([]repository.BannedAvatar, error)      { return nil, nil }
func (mockAvatars) Add(contentID, hash string, addedBy int64) error { return nil }
func (mockAvatars) Remove(contentID string) (bool, error)           { return false, nil }

type gateFixture struct {
	gate    *Gate
	client  *mockClient
	sched   *mockScheduler
	members *mockMembers
	access  *mockAccess
}

func newGateFixture(t *testing.T, captcha bool, globallyBanned ...int64) *gateFixture {
	t.Helper()
	client := newMockClient()
	sched := newMockScheduler()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	enforcer := enforce.NewEnforcer(
		client,
		msgcache.NewUserLog(),
		msgcache.NewBotLog(),
		tracker.New(nil),
		&nopModLog{},
		events.NewBus(),
		sched,
		logger,
		enforce.Config{MaxWarnings: 2, MuteDuration: 30 * time.Minute, NoticeTTL: 15 * time.Second},
	)
	screener := screening.NewScreener(
		client,
		mockWords{},
		mockAvatars{},
		&mockSettings{captcha: captcha},
		enforcer,
		cooldown.New(cooldown.NewMemStore(100, 5*time.Minute)),
		nil,
		logger,
		5,
	)

	bans := &mockGlobalBans{banned: map[int64]bool{}}
	for _, id := range globallyBanned {
		bans.banned[id] = true
	}
	members := &mockMembers{}
	access := &mockAccess{whitelisted: make(map[int64]bool)}
	gate := NewGate(
		client,
		screener,
		enforcer,
		bans,
		members,
		&mockSettings{captcha: captcha},
		access,
		sched,
		logger,
		Config{CaptchaTimeout: 10 * time.Minute, MediaRestrictDuration: 30 * time.Minute},
	)
	return &gateFixture{gate: gate, client: client, sched: sched, members: members, access: access}
}

type nopModLog struct{}

func (nopModLog) Record(ctx context.Context, entry *repository.ModerationLog) error { return nil }
func (nopModLog) StatsSince(ctx context.Context, since time.Time) (repository.DailyStats, error) {
	return repository.DailyStats{}, nil
}
func (nopModLog) CountActionsSince(ctx context.Context, roomID, userID int64, action string, since time.Time) (int64, error) {
	return 0, nil
}

func TestHandleJoin_GloballyBannedRemovedImmediately(t *testing.T) {
	fx := newGateFixture(t, true, 10)

	fx.gate.HandleJoin(context.Background(), 1, platform.User{ID: 10, Username: "bad"})

	assert.Equal(t, []int64{10}, fx.client.banned)
	assert.Empty(t, fx.client.actionMsgs, "no challenge for a blacklisted joiner")
	assert.Equal(t, []int64{10}, fx.members.upserts, "member recorded even when removed")
}

func TestHandleJoin_WhitelistedSkipsGate(t *testing.T) {
	fx := newGateFixture(t, true)
	fx.access.whitelisted[10] = true

	fx.gate.HandleJoin(context.Background(), 1, platform.User{ID: 10, Username: "trusted"})

	assert.Empty(t, fx.client.restricted, "no restriction for a whitelisted joiner")
	assert.Empty(t, fx.client.actionMsgs, "no challenge for a whitelisted joiner")
	assert.Equal(t, []int64{10}, fx.members.checked)
}

func TestHandleJoin_AdminSkipsGate(t *testing.T) {
	fx := newGateFixture(t, true)
	fx.client.member = &platform.Member{Status: platform.StatusAdmin}

	fx.gate.HandleJoin(context.Background(), 1, platform.User{ID: 10, Username: "mod"})

	assert.Empty(t, fx.client.restricted)
	assert.Empty(t, fx.client.actionMsgs)
	assert.Equal(t, []int64{10}, fx.members.checked)
}

func TestHandleJoin_CaptchaFlow(t *testing.T) {
	fx := newGateFixture(t, true)
	ctx := context.Background()
	user := platform.User{ID: 10, Username: "newbie"}

	fx.gate.HandleJoin(ctx, 1, user)

	assert.Equal(t, platform.PermsFullRestrict, fx.client.restricted[10])
	assert.Len(t, fx.client.actionMsgs, 1, "challenge posted")
	assert.Contains(t, fx.sched.jobs, "captcha:1:10")

	// the challenged user clicks: restriction lifts, kick cancelled
	fx.gate.HandleVerify(ctx, platform.CallbackPressed{
		CallbackID: "cb1",
		From:       user,
		Data:       VerifyData(1, 10),
	})

	assert.Equal(t, platform.PermsUnrestricted, fx.client.restricted[10])
	assert.Contains(t, fx.sched.cancelled, "captcha:1:10")
	assert.NotContains(t, fx.sched.jobs, "captcha:1:10")
	assert.Len(t, fx.client.deleted, 1, "challenge message removed")
	assert.Contains(t, fx.client.answers[len(fx.client.answers)-1], "Welcome")
}

func TestHandleVerify_WrongUserRejected(t *testing.T) {
	fx := newGateFixture(t, true)
	ctx := context.Background()

	fx.gate.HandleJoin(ctx, 1, platform.User{ID: 10})
	fx.gate.HandleVerify(ctx, platform.CallbackPressed{
		CallbackID: "cb1",
		From:       platform.User{ID: 99},
		Data:       VerifyData(1, 10),
	})

	assert.Equal(t, platform.PermsFullRestrict, fx.client.restricted[10], "restriction stays")
	assert.Contains(t, fx.sched.jobs, "captcha:1:10", "kick still scheduled")
	assert.Contains(t, fx.client.answers[len(fx.client.answers)-1], "not for you")
}

func TestHandleVerify_MalformedData(t *testing.T) {
	fx := newGateFixture(t, true)

	fx.gate.HandleVerify(context.Background(), platform.CallbackPressed{
		CallbackID: "cb1",
		From:       platform.User{ID: 10},
		Data:       "verify:garbage",
	})

	assert.Contains(t, fx.client.answers[0], "expired or invalid")
}

func TestCaptchaTimeout_KicksIfStillRestricted(t *testing.T) {
	fx := newGateFixture(t, true)
	ctx := context.Background()

	fx.gate.HandleJoin(ctx, 1, platform.User{ID: 10})

	fx.client.member = &platform.Member{Status: platform.StatusRestricted}
	assert.True(t, fx.sched.fire("captcha:1:10"))

	assert.Equal(t, []int64{10}, fx.client.banned, "kick ban step")
	assert.Equal(t, []int64{10}, fx.client.unbanned, "kick unban step")
	assert.Len(t, fx.client.deleted, 1, "challenge message removed")
}

func TestCaptchaTimeout_SkipsVerifiedMember(t *testing.T) {
	fx := newGateFixture(t, true)
	ctx := context.Background()

	fx.gate.HandleJoin(ctx, 1, platform.User{ID: 10})

	fx.client.member = &platform.Member{Status: platform.StatusMember}
	fx.sched.fire("captcha:1:10")

	assert.Empty(t, fx.client.banned, "no kick after the member verified in a race")
}

func TestHandleJoin_MediaRestrictionFlow(t *testing.T) {
	fx := newGateFixture(t, false)
	ctx := context.Background()

	fx.gate.HandleJoin(ctx, 1, platform.User{ID: 10, Username: "newbie"})

	assert.Equal(t, platform.PermsMediaRestrict, fx.client.restricted[10])
	assert.Contains(t, fx.sched.jobs, "media:1:10")

	fx.client.member = &platform.Member{Status: platform.StatusRestricted}
	fx.sched.fire("media:1:10")
	assert.Equal(t, platform.PermsUnrestricted, fx.client.restricted[10])
}

func TestHandleLeave_CancelsGateState(t *testing.T) {
	fx := newGateFixture(t, true)
	ctx := context.Background()

	fx.gate.HandleJoin(ctx, 1, platform.User{ID: 10})
	fx.gate.HandleLeave(ctx, 1, 10)

	assert.Equal(t, []int64{10}, fx.members.left)
	assert.NotContains(t, fx.sched.jobs, "captcha:1:10")
	assert.Len(t, fx.client.deleted, 1, "challenge cleaned up")
}
