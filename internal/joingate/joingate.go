// Package joingate holds the join-time state machine: global-ban check,
// profile screening, then either a captcha challenge under full restriction
// or a temporary media restriction. Deferred kicks and lifts re-validate the
// member's live state before acting.
package joingate

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"chat-sentinel-bot/internal/enforce"
	"chat-sentinel-bot/internal/messages"
	"chat-sentinel-bot/internal/metrics"
	"chat-sentinel-bot/internal/platform"
	"chat-sentinel-bot/internal/repository"
	"chat-sentinel-bot/internal/scheduler"
	"chat-sentinel-bot/internal/screening"
)

const verifyPrefix = "verify"

type Config struct {
	CaptchaTimeout        time.Duration
	MediaRestrictDuration time.Duration
}

type gateKey struct {
	roomID int64
	userID int64
}

type Gate struct {
	client     platform.Client
	screener   *screening.Screener
	enforcer   *enforce.Enforcer
	globalBans repository.GlobalBanRepository
	members    repository.KnownMemberRepository
	settings   repository.SettingsRepository
	access     repository.RoomAccessRepository
	sched      scheduler.Scheduler
	logger     *slog.Logger
	cfg        Config

	mu         sync.Mutex
	challenges map[gateKey]int64 // pending captcha message ids
}

func NewGate(
	client platform.Client,
	screener *screening.Screener,
	enforcer *enforce.Enforcer,
	globalBans repository.GlobalBanRepository,
	members repository.KnownMemberRepository,
	settings repository.SettingsRepository,
	access repository.RoomAccessRepository,
	sched scheduler.Scheduler,
	logger *slog.Logger,
	cfg Config,
) *Gate {
	return &Gate{
		client:     client,
		screener:   screener,
		enforcer:   enforcer,
		globalBans: globalBans,
		members:    members,
		settings:   settings,
		access:     access,
		sched:      sched,
		logger:     logger,
		cfg:        cfg,
		challenges: make(map[gateKey]int64),
	}
}

// HandleJoin runs the gate for a fresh member.
func (g *Gate) HandleJoin(ctx context.Context, roomID int64, user platform.User) {
	if err := g.members.Upsert(roomID, user.ID, user.Username, user.FirstName, user.LastName); err != nil {
		g.logger.Error("Failed to record member", "room_id", roomID, "user_id", user.ID, "error", err)
	}

	banned, err := g.globalBans.IsBanned(user.ID)
	if err != nil {
		g.logger.Error("Failed to check global ban on join", "user_id", user.ID, "error", err)
	}
	if banned {
		if err := g.client.BanMember(ctx, roomID, user.ID, true); err != nil {
			g.logger.Error("Failed to remove blacklisted joiner", "room_id", roomID, "user_id", user.ID, "error", err)
			return
		}
		g.enforcer.Notice(ctx, roomID, fmt.Sprintf(messages.MsgUserRemoved, user.DisplayName()))
		return
	}

	// whitelisted members and room admins pass straight through; they are
	// marked checked so the rescan backlog does not pick them up
	if g.isExempt(ctx, roomID, user.ID) {
		if err := g.members.MarkChecked(roomID, user.ID); err != nil {
			g.logger.Error("Failed to mark member checked", "room_id", roomID, "user_id", user.ID, "error", err)
		}
		return
	}

	// a profile violation removes the user before any gate state is created
	if g.screener.Screen(ctx, roomID, user) {
		return
	}

	settings, err := g.settings.GetSettings(roomID)
	if err != nil {
		g.logger.Error("Failed to load settings on join", "room_id", roomID, "error", err)
		return
	}
	if settings.CaptchaEnabled {
		g.startCaptcha(ctx, roomID, user)
		return
	}
	g.startMediaRestriction(ctx, roomID, user)
}

func (g *Gate) isExempt(ctx context.Context, roomID, userID int64) bool {
	if ok, err := g.access.HasRole(roomID, userID, repository.RoleWhitelist); err == nil && ok {
		return true
	}
	member, err := g.client.GetMember(ctx, roomID, userID)
	if err != nil {
		return false
	}
	return member != nil && member.IsAdmin()
}

func (g *Gate) startCaptcha(ctx context.Context, roomID int64, user platform.User) {
	if err := g.client.RestrictMember(ctx, roomID, user.ID, platform.PermsFullRestrict); err != nil {
		g.logger.Error("Failed to restrict joiner", "room_id", roomID, "user_id", user.ID, "error", err)
		return
	}

	text := fmt.Sprintf(messages.MsgCaptchaChallenge, user.DisplayName(), g.cfg.CaptchaTimeout)
	msgID, err := g.client.SendMessageWithActions(ctx, roomID, text, []platform.Action{
		{Label: messages.MsgCaptchaButton, Data: VerifyData(roomID, user.ID)},
	})
	if err != nil {
		g.logger.Error("Failed to post challenge", "room_id", roomID, "user_id", user.ID, "error", err)
		return
	}

	key := gateKey{roomID: roomID, userID: user.ID}
	g.mu.Lock()
	g.challenges[key] = msgID
	metrics.PendingVerifications.Set(float64(len(g.challenges)))
	g.mu.Unlock()

	userID := user.ID
	g.sched.RunOnce(captchaJob(roomID, userID), g.cfg.CaptchaTimeout, func(ctx context.Context) {
		g.expireCaptcha(ctx, roomID, userID)
	})
}

// expireCaptcha kicks the member on timeout, but only if they are still in
// the restricted state. A race with verification resolves in the member's
// favor.
func (g *Gate) expireCaptcha(ctx context.Context, roomID, userID int64) {
	member, err := g.client.GetMember(ctx, roomID, userID)
	if err != nil {
		g.logger.Error("Failed to check member on captcha timeout", "room_id", roomID, "user_id", userID, "error", err)
		return
	}
	if member != nil && member.Status == platform.StatusRestricted {
		if err := g.enforcer.Kick(ctx, roomID, userID, "captcha timeout"); err != nil {
			g.logger.Error("Failed to kick unverified member", "room_id", roomID, "user_id", userID, "error", err)
		}
	}
	g.cleanupChallenge(ctx, roomID, userID)
}

func (g *Gate) startMediaRestriction(ctx context.Context, roomID int64, user platform.User) {
	if err := g.client.RestrictMember(ctx, roomID, user.ID, platform.PermsMediaRestrict); err != nil {
		g.logger.Error("Failed to media-restrict joiner", "room_id", roomID, "user_id", user.ID, "error", err)
		return
	}
	g.enforcer.Notice(ctx, roomID, fmt.Sprintf(messages.MsgMediaRestricted, user.DisplayName(), g.cfg.MediaRestrictDuration))

	userID := user.ID
	g.sched.RunOnce(mediaJob(roomID, userID), g.cfg.MediaRestrictDuration, func(ctx context.Context) {
		member, err := g.client.GetMember(ctx, roomID, userID)
		if err != nil {
			g.logger.Error("Failed to check member before lift", "room_id", roomID, "user_id", userID, "error", err)
			return
		}
		if member == nil || member.Status != platform.StatusRestricted {
			return
		}
		if err := g.client.RestrictMember(ctx, roomID, userID, platform.PermsUnrestricted); err != nil {
			g.logger.Error("Failed to lift media restriction", "room_id", roomID, "user_id", userID, "error", err)
		}
	})
}

// HandleVerify processes a captcha button press. Only the challenged user may
// verify; anyone else gets a polite refusal.
func (g *Gate) HandleVerify(ctx context.Context, cb platform.CallbackPressed) {
	roomID, userID, ok := parseVerifyData(cb.Data)
	if !ok {
		g.answer(ctx, cb.CallbackID, messages.MsgProposalInvalid, true)
		return
	}
	if cb.From.ID != userID {
		g.answer(ctx, cb.CallbackID, messages.MsgCaptchaNotYours, true)
		return
	}

	if err := g.client.RestrictMember(ctx, roomID, userID, platform.PermsUnrestricted); err != nil {
		g.logger.Error("Failed to lift captcha restriction", "room_id", roomID, "user_id", userID, "error", err)
		return
	}
	g.sched.Cancel(captchaJob(roomID, userID))
	g.cleanupChallenge(ctx, roomID, userID)
	g.answer(ctx, cb.CallbackID, messages.MsgCaptchaPassed, false)
}

// HandleLeave cancels pending gate state for a departed member.
func (g *Gate) HandleLeave(ctx context.Context, roomID, userID int64) {
	if err := g.members.MarkLeft(roomID, userID); err != nil {
		g.logger.Error("Failed to mark member left", "room_id", roomID, "user_id", userID, "error", err)
	}
	g.sched.Cancel(captchaJob(roomID, userID))
	g.sched.Cancel(mediaJob(roomID, userID))
	g.cleanupChallenge(ctx, roomID, userID)
}

func (g *Gate) cleanupChallenge(ctx context.Context, roomID, userID int64) {
	key := gateKey{roomID: roomID, userID: userID}
	g.mu.Lock()
	msgID, ok := g.challenges[key]
	if ok {
		delete(g.challenges, key)
	}
	metrics.PendingVerifications.Set(float64(len(g.challenges)))
	g.mu.Unlock()

	if ok {
		if err := g.client.DeleteMessage(ctx, roomID, msgID); err != nil {
			g.logger.Debug("Failed to delete challenge", "room_id", roomID, "message_id", msgID, "error", err)
		}
	}
}

func (g *Gate) answer(ctx context.Context, callbackID, text string, alert bool) {
	if err := g.client.AnswerCallback(ctx, callbackID, text, alert); err != nil {
		g.logger.Debug("Failed to answer callback", "error", err)
	}
}

// VerifyData encodes the captcha callback payload.
func VerifyData(roomID, userID int64) string {
	return fmt.Sprintf("%s:%d:%d", verifyPrefix, roomID, userID)
}

// IsVerifyData reports whether a callback payload belongs to the gate.
func IsVerifyData(data string) bool {
	return strings.HasPrefix(data, verifyPrefix+":")
}

func parseVerifyData(data string) (roomID, userID int64, ok bool) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != verifyPrefix {
		return 0, 0, false
	}
	roomID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	userID, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return roomID, userID, true
}

func captchaJob(roomID, userID int64) string {
	return fmt.Sprintf("captcha:%d:%d", roomID, userID)
}

func mediaJob(roomID, userID int64) string {
	return fmt.Sprintf("media:%d:%d", roomID, userID)
}
