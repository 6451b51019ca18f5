// Package service ties detection to enforcement: it runs the content pipeline
// over message events, executes filter verdicts, exposes the manual moderation
// operations for admin commands and owns the background tasks.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"chat-sentinel-bot/internal/avatarhash"
	"chat-sentinel-bot/internal/enforce"
	"chat-sentinel-bot/internal/events"
	"chat-sentinel-bot/internal/metrics"
	"chat-sentinel-bot/internal/pipeline"
	"chat-sentinel-bot/internal/platform"
	"chat-sentinel-bot/internal/repository"
	"chat-sentinel-bot/internal/scheduler"
	"chat-sentinel-bot/internal/screening"
)

type Config struct {
	AdminUserIDs   []int64
	ModerateAdmins bool
	ModerateBots   bool
	RescanInterval time.Duration
	RescanBatch    int
	ReportHourUTC  int
}

type ModerationService struct {
	logger       *slog.Logger
	client       platform.Client
	pipeline     *pipeline.Manager
	editPipeline *pipeline.Manager
	screener     *screening.Screener
	enforcer     *enforce.Enforcer
	settingsRepo repository.SettingsRepository
	wordRepo     repository.WordRepository
	globalBans   repository.GlobalBanRepository
	avatarRepo   repository.BannedAvatarRepository
	memberRepo   repository.KnownMemberRepository
	accessRepo   repository.RoomAccessRepository
	modLogRepo   repository.ModerationLogRepository
	sched        scheduler.Scheduler
	tracer       trace.Tracer
	cfg          Config

	mu        sync.Mutex
	proposals map[string]proposalCase
	linkCases map[string]linkCase
}

func NewModerationService(
	logger *slog.Logger,
	client platform.Client,
	fullPipeline *pipeline.Manager,
	editPipeline *pipeline.Manager,
	screener *screening.Screener,
	enforcer *enforce.Enforcer,
	settingsRepo repository.SettingsRepository,
	wordRepo repository.WordRepository,
	globalBans repository.GlobalBanRepository,
	avatarRepo repository.BannedAvatarRepository,
	memberRepo repository.KnownMemberRepository,
	accessRepo repository.RoomAccessRepository,
	modLogRepo repository.ModerationLogRepository,
	bus *events.Bus,
	sched scheduler.Scheduler,
	cfg Config,
) *ModerationService {
	s := &ModerationService{
		logger:       logger,
		client:       client,
		pipeline:     fullPipeline,
		editPipeline: editPipeline,
		screener:     screener,
		enforcer:     enforcer,
		settingsRepo: settingsRepo,
		wordRepo:     wordRepo,
		globalBans:   globalBans,
		avatarRepo:   avatarRepo,
		memberRepo:   memberRepo,
		accessRepo:   accessRepo,
		modLogRepo:   modLogRepo,
		sched:        sched,
		tracer:       otel.Tracer("service"),
		cfg:          cfg,
		proposals:    make(map[string]proposalCase),
		linkCases:    make(map[string]linkCase),
	}
	bus.Subscribe(s.onViolation)
	return s
}

// HandleMessage moderates one inbound message or edit: exemption probes,
// profile screening, then the content pipeline, and finally executes the
// verdict.
func (s *ModerationService) HandleMessage(ctx context.Context, msg platform.Message, edited bool) error {
	ctx, span := s.tracer.Start(ctx, "HandleMessage")
	defer span.End()

	if msg.Sender.IsBot && !s.cfg.ModerateBots {
		return nil
	}
	exempt, err := s.isExempt(ctx, msg.RoomID, msg.Sender.ID)
	if err != nil {
		s.logger.Error("Failed to probe sender status", "room_id", msg.RoomID, "user_id", msg.Sender.ID, "error", err)
	}
	if exempt {
		return nil
	}

	s.enforcer.RecordSeenMessage(msg.RoomID, msg.Sender.ID, msg.ID)
	if err := s.memberRepo.Upsert(msg.RoomID, msg.Sender.ID, msg.Sender.Username, msg.Sender.FirstName, msg.Sender.LastName); err != nil {
		s.logger.Error("Failed to record member", "room_id", msg.RoomID, "user_id", msg.Sender.ID, "error", err)
	}

	// whitelisted senders skip profile screening too; the pipeline still runs
	// so the global-ban re-check stays ahead of the whitelist bypass
	whitelisted, err := s.accessRepo.HasRole(msg.RoomID, msg.Sender.ID, repository.RoleWhitelist)
	if err != nil {
		s.logger.Error("Failed to probe whitelist", "room_id", msg.RoomID, "user_id", msg.Sender.ID, "error", err)
	}
	if !edited && !whitelisted {
		if s.screener.Screen(ctx, msg.RoomID, msg.Sender) {
			return nil
		}
	}

	pm := s.pipeline
	if edited {
		pm = s.editPipeline
	}
	res, err := pm.Process(ctx, pipeline.FromMessage(msg, edited))
	if err != nil {
		return err
	}
	if res.IsAllowed {
		return nil
	}

	s.execute(ctx, msg, res)
	return nil
}

func (s *ModerationService) execute(ctx context.Context, msg platform.Message, res *pipeline.Result) {
	s.logger.Info("Violation detected",
		"room_id", msg.RoomID,
		"user_id", msg.Sender.ID,
		"filter", res.FilterName,
		"reason", res.Reason,
	)
	metrics.IncViolation(res.FilterName)

	if res.DeleteMessage {
		if err := s.client.DeleteMessage(ctx, msg.RoomID, msg.ID); err != nil {
			s.logger.Error("Failed to delete message", "room_id", msg.RoomID, "message_id", msg.ID, "error", err)
		} else {
			metrics.IncDeletedMessages(res.FilterName)
		}
	}

	switch res.Action {
	case pipeline.ActionBan:
		s.enforcer.Ban(ctx, msg.RoomID, msg.Sender, res.Reason, res.FilterName, res.ProposeGlobalBan, 0)
	case pipeline.ActionMute:
		s.enforcer.Mute(ctx, msg.RoomID, msg.Sender, res.MuteDuration, res.Reason, res.FilterName, 0)
	case pipeline.ActionWarn:
		s.enforcer.IssueWarning(ctx, msg.RoomID, msg.Sender, res.Reason, res.FilterName)
	default:
		if res.Notice != "" {
			s.enforcer.Notice(ctx, msg.RoomID, res.Notice)
		}
	}
}

// isExempt probes whether the sender is outside moderation scope: configured
// bot admins always, room admins and owners unless the knob says otherwise.
func (s *ModerationService) isExempt(ctx context.Context, roomID, userID int64) (bool, error) {
	if s.isBotAdmin(userID) {
		return true, nil
	}
	if s.cfg.ModerateAdmins {
		return false, nil
	}
	if ok, err := s.accessRepo.HasRole(roomID, userID, repository.RoleAdmin); err == nil && ok {
		return true, nil
	}
	member, err := s.client.GetMember(ctx, roomID, userID)
	if err != nil {
		return false, err
	}
	return member != nil && member.IsAdmin(), nil
}

func (s *ModerationService) isBotAdmin(userID int64) bool {
	for _, id := range s.cfg.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsRoomAdmin reports whether the user may run admin commands in the room.
func (s *ModerationService) IsRoomAdmin(ctx context.Context, roomID, userID int64) bool {
	if s.isBotAdmin(userID) {
		return true
	}
	if ok, err := s.accessRepo.HasRole(roomID, userID, repository.RoleAdmin); err == nil && ok {
		return true
	}
	member, err := s.client.GetMember(ctx, roomID, userID)
	if err != nil {
		return false
	}
	return member != nil && member.IsAdmin()
}

// Manual moderation operations, reusing the same primitives the automated
// path runs through.

func (s *ModerationService) BanUser(ctx context.Context, roomID int64, user platform.User, reason string, actorID int64) {
	ctx, span := s.tracer.Start(ctx, "BanUser")
	defer span.End()
	s.enforcer.Ban(ctx, roomID, user, reason, "manual", false, actorID)
}

func (s *ModerationService) UnbanUser(ctx context.Context, roomID, userID, actorID int64) error {
	ctx, span := s.tracer.Start(ctx, "UnbanUser")
	defer span.End()
	return s.enforcer.Unban(ctx, roomID, userID, actorID)
}

func (s *ModerationService) MuteUser(ctx context.Context, roomID int64, user platform.User, duration time.Duration, actorID int64) {
	ctx, span := s.tracer.Start(ctx, "MuteUser")
	defer span.End()
	s.enforcer.Mute(ctx, roomID, user, duration, "manual mute", "manual", actorID)
}

func (s *ModerationService) UnmuteUser(ctx context.Context, roomID, userID, actorID int64) error {
	ctx, span := s.tracer.Start(ctx, "UnmuteUser")
	defer span.End()
	return s.enforcer.Unmute(ctx, roomID, userID, actorID)
}

func (s *ModerationService) WarnUser(ctx context.Context, roomID int64, user platform.User, reason string) bool {
	ctx, span := s.tracer.Start(ctx, "WarnUser")
	defer span.End()
	return s.enforcer.IssueWarning(ctx, roomID, user, reason, "manual")
}

func (s *ModerationService) AddWord(ctx context.Context, roomID int64, kind, word string, actorID int64) error {
	_, span := s.tracer.Start(ctx, "AddWord")
	defer span.End()
	return s.wordRepo.AddWord(roomID, kind, word, actorID)
}

func (s *ModerationService) RemoveWord(ctx context.Context, roomID int64, kind, word string) (bool, error) {
	_, span := s.tracer.Start(ctx, "RemoveWord")
	defer span.End()
	return s.wordRepo.RemoveWord(roomID, kind, word)
}

func (s *ModerationService) Whitelist(ctx context.Context, roomID, userID int64) error {
	_, span := s.tracer.Start(ctx, "Whitelist")
	defer span.End()
	return s.accessRepo.Grant(roomID, userID, repository.RoleWhitelist)
}

func (s *ModerationService) Unwhitelist(ctx context.Context, roomID, userID int64) error {
	_, span := s.tracer.Start(ctx, "Unwhitelist")
	defer span.End()
	return s.accessRepo.Revoke(roomID, userID, repository.RoleWhitelist)
}

// ToggleSetting flips a per-room boolean knob and returns the new value.
func (s *ModerationService) ToggleSetting(ctx context.Context, roomID int64, setting string) (bool, error) {
	_, span := s.tracer.Start(ctx, "ToggleSetting")
	defer span.End()

	settings, err := s.settingsRepo.GetSettings(roomID)
	if err != nil {
		return false, err
	}
	var val bool
	switch setting {
	case "link_ban":
		settings.LinkBanEnabled = !settings.LinkBanEnabled
		val = settings.LinkBanEnabled
	case "captcha":
		settings.CaptchaEnabled = !settings.CaptchaEnabled
		val = settings.CaptchaEnabled
	default:
		return false, errUnknownSetting
	}
	if err := s.settingsRepo.UpdateSettings(settings); err != nil {
		return false, err
	}
	return val, nil
}

// BanAvatarOfUser fetches the user's current avatar and adds it to the
// banned-avatar registry, both by content id and by perceptual hash.
func (s *ModerationService) BanAvatarOfUser(ctx context.Context, userID, actorID int64) error {
	ctx, span := s.tracer.Start(ctx, "BanAvatarOfUser")
	defer span.End()

	avatar, err := s.client.GetAvatar(ctx, userID)
	if err != nil {
		return err
	}
	if avatar == nil || avatar.ContentID == "" {
		return errNoAvatar
	}
	hash := ""
	if h, err := hashAvatarBytes(avatar.Data); err == nil {
		hash = h
	}
	return s.avatarRepo.Add(avatar.ContentID, hash, actorID)
}

// OnProfileChange queues the member for immediate re-screening.
func (s *ModerationService) OnProfileChange(ctx context.Context, roomID int64, user platform.User) {
	ctx, span := s.tracer.Start(ctx, "OnProfileChange")
	defer span.End()

	if err := s.memberRepo.ResetChecked(roomID, user.ID); err != nil {
		s.logger.Error("Failed to reset member check", "room_id", roomID, "user_id", user.ID, "error", err)
	}
	s.screener.ResetCooldown(ctx, user.ID)
	s.screener.Screen(ctx, roomID, user)
}

// GlobalUnban lifts a global ban, for the owner-level command.
func (s *ModerationService) GlobalUnban(ctx context.Context, userID int64) (bool, error) {
	_, span := s.tracer.Start(ctx, "GlobalUnban")
	defer span.End()
	return s.globalBans.Unban(userID)
}

var (
	errUnknownSetting = errors.New("unknown setting")
	errNoAvatar       = errors.New("user has no avatar")
)

func hashAvatarBytes(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errNoAvatar
	}
	h, err := avatarhash.FromBytes(data)
	if err != nil {
		return "", err
	}
	return h.String(), nil
}

func (s *ModerationService) notifyAdmins(ctx context.Context, text string, actions []platform.Action) {
	for _, adminID := range s.cfg.AdminUserIDs {
		var err error
		if len(actions) > 0 {
			_, err = s.client.SendMessageWithActions(ctx, adminID, text, actions)
		} else {
			_, err = s.client.SendMessage(ctx, adminID, text)
		}
		if err != nil {
			s.logger.Error("Failed to notify admin", "admin_id", adminID, "error", err)
		}
	}
}
