// Package enforce implements the shared enforcement primitive: message purge,
// platform ban/mute/kick, auto-deleted room notices, the audit log and the
// violation event. Automated filters, profile screening and manual admin
// commands all funnel through it.
package enforce

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chat-sentinel-bot/internal/events"
	"chat-sentinel-bot/internal/messages"
	"chat-sentinel-bot/internal/metrics"
	"chat-sentinel-bot/internal/msgcache"
	"chat-sentinel-bot/internal/platform"
	"chat-sentinel-bot/internal/repository"
	"chat-sentinel-bot/internal/scheduler"
	"chat-sentinel-bot/internal/tracker"
)

type Config struct {
	MaxWarnings  int
	MuteDuration time.Duration
	NoticeTTL    time.Duration
}

type Enforcer struct {
	client  platform.Client
	userLog *msgcache.UserLog
	botLog  *msgcache.BotLog
	tracker *tracker.Tracker
	modLog  repository.ModerationLogRepository
	bus     *events.Bus
	sched   scheduler.Scheduler
	logger  *slog.Logger
	cfg     Config
}

func NewEnforcer(
	client platform.Client,
	userLog *msgcache.UserLog,
	botLog *msgcache.BotLog,
	tr *tracker.Tracker,
	modLog repository.ModerationLogRepository,
	bus *events.Bus,
	sched scheduler.Scheduler,
	logger *slog.Logger,
	cfg Config,
) *Enforcer {
	return &Enforcer{
		client:  client,
		userLog: userLog,
		botLog:  botLog,
		tracker: tr,
		modLog:  modLog,
		bus:     bus,
		sched:   sched,
		logger:  logger,
		cfg:     cfg,
	}
}

// Ban purges the user's cached messages, issues the platform ban with history
// revocation, posts a notice and records the action. With propose set, the
// published event asks the proposal workflow to offer a global ban to the
// administrators. Each step is best-effort; a failed purge never blocks the
// ban itself.
func (e *Enforcer) Ban(ctx context.Context, roomID int64, user platform.User, reason, filterName string, propose bool, actorID int64) {
	e.purgeMessages(ctx, roomID, user.ID)

	if err := e.client.BanMember(ctx, roomID, user.ID, true); err != nil {
		e.logger.Error("Failed to ban member", "room_id", roomID, "user_id", user.ID, "error", err)
		return
	}
	metrics.IncEnforcement(repository.ActionBan)

	notice := fmt.Sprintf(messages.MsgUserBanned, user.DisplayName(), reason)
	if actorID != 0 {
		notice = fmt.Sprintf(messages.MsgManualBan, user.DisplayName())
	}
	e.Notice(ctx, roomID, notice)
	e.record(ctx, roomID, user.ID, repository.ActionBan, actorID, reason, "")
	e.tracker.Forget(roomID, user.ID)

	e.bus.Publish(ctx, events.Violation{
		RoomID:           roomID,
		UserID:           user.ID,
		UserName:         user.DisplayName(),
		FilterName:       filterName,
		Reason:           reason,
		Action:           repository.ActionBan,
		ProposeGlobalBan: propose,
		OccurredAt:       time.Now(),
	})
}

// Mute blocks all sending for the duration and schedules the restore. The
// restore re-checks live state and only lifts a restriction that is still in
// place.
func (e *Enforcer) Mute(ctx context.Context, roomID int64, user platform.User, duration time.Duration, reason, filterName string, actorID int64) {
	if err := e.client.RestrictMember(ctx, roomID, user.ID, platform.PermsFullRestrict); err != nil {
		e.logger.Error("Failed to mute member", "room_id", roomID, "user_id", user.ID, "error", err)
		return
	}
	metrics.IncEnforcement(repository.ActionMute)

	e.Notice(ctx, roomID, fmt.Sprintf(messages.MsgUserMuted, user.DisplayName(), duration))
	e.record(ctx, roomID, user.ID, repository.ActionMute, actorID, reason, duration.String())

	userID := user.ID
	e.sched.RunOnce(unmuteJob(roomID, userID), duration, func(ctx context.Context) {
		member, err := e.client.GetMember(ctx, roomID, userID)
		if err != nil {
			e.logger.Error("Failed to check member before unmute", "room_id", roomID, "user_id", userID, "error", err)
			return
		}
		if member == nil || member.Status != platform.StatusRestricted {
			return
		}
		if err := e.client.RestrictMember(ctx, roomID, userID, platform.PermsUnrestricted); err != nil {
			e.logger.Error("Failed to lift mute", "room_id", roomID, "user_id", userID, "error", err)
		}
	})

	e.bus.Publish(ctx, events.Violation{
		RoomID:     roomID,
		UserID:     user.ID,
		UserName:   user.DisplayName(),
		FilterName: filterName,
		Reason:     reason,
		Action:     repository.ActionMute,
		OccurredAt: time.Now(),
	})
}

// IssueWarning advances the shared warning ladder. Reaching the limit mutes
// the user and resets the counter; below it a counted warning notice is
// posted. Returns true when the ladder escalated to a mute.
func (e *Enforcer) IssueWarning(ctx context.Context, roomID int64, user platform.User, reason, filterName string) bool {
	count := e.tracker.IncrementWarnings(roomID, user.ID)
	if count >= e.cfg.MaxWarnings {
		e.tracker.ResetWarnings(roomID, user.ID)
		e.Mute(ctx, roomID, user, e.cfg.MuteDuration, reason, filterName, 0)
		return true
	}
	metrics.IncEnforcement(repository.ActionWarn)

	e.Notice(ctx, roomID, fmt.Sprintf(messages.MsgUserWarned, user.DisplayName(), reason, count, e.cfg.MaxWarnings))
	e.record(ctx, roomID, user.ID, repository.ActionWarn, 0, reason, "")

	e.bus.Publish(ctx, events.Violation{
		RoomID:     roomID,
		UserID:     user.ID,
		UserName:   user.DisplayName(),
		FilterName: filterName,
		Reason:     reason,
		Action:     repository.ActionWarn,
		OccurredAt: time.Now(),
	})
	return false
}

// Kick removes the member so they can rejoin: ban without history revocation,
// then an immediate unban.
func (e *Enforcer) Kick(ctx context.Context, roomID, userID int64, reason string) error {
	if err := e.client.BanMember(ctx, roomID, userID, false); err != nil {
		return fmt.Errorf("kick ban step: %w", err)
	}
	if err := e.client.UnbanMember(ctx, roomID, userID); err != nil {
		return fmt.Errorf("kick unban step: %w", err)
	}
	metrics.IncEnforcement(repository.ActionKick)
	e.record(ctx, roomID, userID, repository.ActionKick, 0, reason, "")
	return nil
}

// Unban lifts a room ban, for manual admin commands.
func (e *Enforcer) Unban(ctx context.Context, roomID, userID, actorID int64) error {
	if err := e.client.UnbanMember(ctx, roomID, userID); err != nil {
		return err
	}
	e.record(ctx, roomID, userID, repository.ActionUnban, actorID, "", "")
	return nil
}

// Unmute restores full permissions and cancels any pending restore job.
func (e *Enforcer) Unmute(ctx context.Context, roomID, userID, actorID int64) error {
	if err := e.client.RestrictMember(ctx, roomID, userID, platform.PermsUnrestricted); err != nil {
		return err
	}
	e.sched.Cancel(unmuteJob(roomID, userID))
	e.record(ctx, roomID, userID, repository.ActionUnmute, actorID, "", "")
	return nil
}

// Notice posts a room message that deletes itself after the configured TTL.
// The text is remembered in the bot-message cache so the mimicry filter can
// match replays of it.
func (e *Enforcer) Notice(ctx context.Context, roomID int64, text string) {
	msgID, err := e.client.SendMessage(ctx, roomID, text)
	if err != nil {
		e.logger.Error("Failed to send notice", "room_id", roomID, "error", err)
		return
	}
	e.botLog.Record(roomID, text)

	e.sched.RunOnce(fmt.Sprintf("notice:%d:%d", roomID, msgID), e.cfg.NoticeTTL, func(ctx context.Context) {
		if err := e.client.DeleteMessage(ctx, roomID, msgID); err != nil {
			e.logger.Debug("Failed to delete notice", "room_id", roomID, "message_id", msgID, "error", err)
		}
	})
}

// RecordSeenMessage remembers a message id for the purge-on-ban fallback.
func (e *Enforcer) RecordSeenMessage(roomID, userID, messageID int64) {
	e.userLog.Record(roomID, userID, messageID)
}

// PurgeMessages deletes every cached message of the user in chunks sized to
// the platform's batch limit.
func (e *Enforcer) PurgeMessages(ctx context.Context, roomID, userID int64) {
	e.purgeMessages(ctx, roomID, userID)
}

func (e *Enforcer) purgeMessages(ctx context.Context, roomID, userID int64) {
	ids := e.userLog.TakeAll(roomID, userID)
	for _, chunk := range msgcache.ChunkIDs(ids, msgcache.DeleteChunkSize) {
		if err := e.client.DeleteMessages(ctx, roomID, chunk); err != nil {
			e.logger.Error("Failed to purge messages", "room_id", roomID, "user_id", userID, "count", len(chunk), "error", err)
		}
	}
}

func (e *Enforcer) record(ctx context.Context, roomID, userID int64, action string, actorID int64, reason, duration string) {
	entry := &repository.ModerationLog{
		RoomID:   &roomID,
		UserID:   userID,
		Action:   action,
		ActorID:  actorID,
		Reason:   reason,
		Duration: duration,
	}
	if err := e.modLog.Record(ctx, entry); err != nil {
		e.logger.Error("Failed to write moderation log", "room_id", roomID, "user_id", userID, "action", action, "error", err)
	}
}

func unmuteJob(roomID, userID int64) string {
	return fmt.Sprintf("unmute:%d:%d", roomID, userID)
}
