package handler

import (
	"context"
	"time"

	"chat-sentinel-bot/internal/platform"
)

type mockClient struct {
	platform.Client

	sent    []string
	deleted []int64
	answers []string
}

func (m *mockClient) SendMessage(ctx context.Context, roomID int64, text string) (int64, error) {
	m.sent = append(m.sent, text)
	return 1, nil
}

func (m *mockClient) DeleteMessage(ctx context.Context, roomID, messageID int64) error {
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *mockClient) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	m.answers = append(m.answers, text)
	return nil
}

type moderatedCall struct {
	msg    platform.Message
	edited bool
}

type mockService struct {
	isAdmin bool

	moderated   []moderatedCall
	callbacks   []platform.CallbackPressed
	handledCB   bool
	profileUser []platform.User

	bans      []platform.User
	banReason string
	unbans    []int64
	mutes     []platform.User
	muteFor   time.Duration
	unmutes   []int64
	warns     []platform.User
	words     []string
	removed   []string
	removeHit bool
	wl        []int64
	unwl      []int64
	toggled   []string
	toggleVal bool
	avatarIDs []int64
	gunbans   []int64
	gunbanHit bool
}

func (m *mockService) HandleMessage(ctx context.Context, msg platform.Message, edited bool) error {
	m.moderated = append(m.moderated, moderatedCall{msg: msg, edited: edited})
	return nil
}

func (m *mockService) HandleCallback(ctx context.Context, cb platform.CallbackPressed) bool {
	m.callbacks = append(m.callbacks, cb)
	return m.handledCB
}

func (m *mockService) OnProfileChange(ctx context.Context, roomID int64, user platform.User) {
	m.profileUser = append(m.profileUser, user)
}

func (m *mockService) IsRoomAdmin(ctx context.Context, roomID, userID int64) bool {
	return m.isAdmin
}

func (m *mockService) BanUser(ctx context.Context, roomID int64, user platform.User, reason string, actorID int64) {
	m.bans = append(m.bans, user)
	m.banReason = reason
}

func (m *mockService) UnbanUser(ctx context.Context, roomID, userID, actorID int64) error {
	m.unbans = append(m.unbans, userID)
	return nil
}

func (m *mockService) MuteUser(ctx context.Context, roomID int64, user platform.User, duration time.Duration, actorID int64) {
	m.mutes = append(m.mutes, user)
	m.muteFor = duration
}

func (m *mockService) UnmuteUser(ctx context.Context, roomID, userID, actorID int64) error {
	m.unmutes = append(m.unmutes, userID)
	return nil
}

func (m *mockService) WarnUser(ctx context.Context, roomID int64, user platform.User, reason string) bool {
	m.warns = append(m.warns, user)
	return false
}

func (m *mockService) AddWord(ctx context.Context, roomID int64, kind, word string, actorID int64) error {
	m.words = append(m.words, kind+":"+word)
	return nil
}

func (m *mockService) RemoveWord(ctx context.Context, roomID int64, kind, word string) (bool, error) {
	m.removed = append(m.removed, kind+":"+word)
	return m.removeHit, nil
}

func (m *mockService) Whitelist(ctx context.Context, roomID, userID int64) error {
	m.wl = append(m.wl, userID)
	return nil
}

func (m *mockService) Unwhitelist(ctx context.Context, roomID, userID int64) error {
	m.unwl = append(m.unwl, userID)
	return nil
}

func (m *mockService) ToggleSetting(ctx context.Context, roomID int64, setting string) (bool, error) {
	m.toggled = append(m.toggled, setting)
	return m.toggleVal, nil
}

func (m *mockService) BanAvatarOfUser(ctx context.Context, userID, actorID int64) error {
	m.avatarIDs = append(m.avatarIDs, userID)
	return nil
}

func (m *mockService) GlobalUnban(ctx context.Context, userID int64) (bool, error) {
	m.gunbans = append(m.gunbans, userID)
	return m.gunbanHit, nil
}

type mockGate struct {
	joins    []int64
	leaves   []int64
	verifies []platform.CallbackPressed
}

func (m *mockGate) HandleJoin(ctx context.Context, roomID int64, user platform.User) {
	m.joins = append(m.joins, user.ID)
}

func (m *mockGate) HandleLeave(ctx context.Context, roomID, userID int64) {
	m.leaves = append(m.leaves, userID)
}

func (m *mockGate) HandleVerify(ctx context.Context, cb platform.CallbackPressed) {
	m.verifies = append(m.verifies, cb)
}

var (
	_ ModerationService = (*mockService)(nil)
	_ JoinGate          = (*mockGate)(nil)
)
