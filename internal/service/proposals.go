package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"chat-sentinel-bot/internal/events"
	"chat-sentinel-bot/internal/messages"
	"chat-sentinel-bot/internal/platform"
	"chat-sentinel-bot/internal/repository"
	"chat-sentinel-bot/internal/screening"
)

// Callback payload prefixes owned by the admin workflows.
const (
	cbGlobalBanConfirm = "global_ban_confirm"
	cbGlobalBanReject  = "global_ban_reject"
	cbLinkBan          = "link_mod_ban"
	cbLinkRestore      = "link_mod_restore"
)

type proposalCase struct {
	roomID   int64
	userID   int64
	userName string
	reason   string
}

type linkCase struct {
	roomID int64
	user   platform.User
	bio    string
}

// onViolation consumes enforcement events; automated bans marked for
// promotion become a global-ban proposal to the administrators.
func (s *ModerationService) onViolation(ctx context.Context, v events.Violation) {
	if !v.ProposeGlobalBan {
		return
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.proposals[token] = proposalCase{
		roomID:   v.RoomID,
		userID:   v.UserID,
		userName: v.UserName,
		reason:   v.Reason,
	}
	s.mu.Unlock()

	text := fmt.Sprintf(messages.MsgProposalTitle, v.UserName, v.UserID, v.RoomID, v.Reason)
	since := time.Now().Add(-7 * 24 * time.Hour)
	if n, err := s.modLogRepo.CountActionsSince(ctx, v.RoomID, v.UserID, repository.ActionWarn, since); err == nil && n > 0 {
		text += fmt.Sprintf(messages.MsgProposalHistory, n)
	}
	s.notifyAdmins(ctx, text, []platform.Action{
		{Label: messages.MsgProposalApprove, Data: cbGlobalBanConfirm + ":" + token},
		{Label: messages.MsgProposalReject, Data: cbGlobalBanReject + ":" + token},
	})
}

// RaiseLinkDecision posts the ban-or-restore request for a link found in a
// member's bio. Wired as the screener's deferral callback.
func (s *ModerationService) RaiseLinkDecision(ctx context.Context, ev screening.LinkInBio) {
	token := uuid.NewString()
	s.mu.Lock()
	s.linkCases[token] = linkCase{roomID: ev.RoomID, user: ev.User, bio: ev.Bio}
	s.mu.Unlock()

	text := fmt.Sprintf(messages.MsgLinkInBioTitle, ev.RoomID, ev.User.DisplayName(), ev.User.ID, ev.Bio)
	s.notifyAdmins(ctx, text, []platform.Action{
		{Label: messages.MsgLinkInBioBan, Data: cbLinkBan + ":" + token},
		{Label: messages.MsgLinkInBioRestore, Data: cbLinkRestore + ":" + token},
	})
}

// HandleCallback routes admin-workflow button presses. Returns false when the
// payload belongs to another component.
func (s *ModerationService) HandleCallback(ctx context.Context, cb platform.CallbackPressed) bool {
	ctx, span := s.tracer.Start(ctx, "HandleCallback")
	defer span.End()

	prefix, token, ok := strings.Cut(cb.Data, ":")
	if !ok {
		return false
	}
	switch prefix {
	case cbGlobalBanConfirm:
		s.confirmGlobalBan(ctx, cb, token)
	case cbGlobalBanReject:
		s.rejectGlobalBan(ctx, cb, token)
	case cbLinkBan:
		s.resolveLinkCase(ctx, cb, token, true)
	case cbLinkRestore:
		s.resolveLinkCase(ctx, cb, token, false)
	default:
		return false
	}
	return true
}

func (s *ModerationService) confirmGlobalBan(ctx context.Context, cb platform.CallbackPressed, token string) {
	s.mu.Lock()
	p, ok := s.proposals[token]
	if ok {
		delete(s.proposals, token)
	}
	s.mu.Unlock()
	if !ok {
		s.answer(ctx, cb.CallbackID, messages.MsgProposalInvalid, true)
		return
	}

	if err := s.globalBans.Ban(p.userID, p.reason, cb.From.ID); err != nil {
		s.logger.Error("Failed to write global ban", "user_id", p.userID, "error", err)
		s.answer(ctx, cb.CallbackID, messages.MsgProposalInvalid, true)
		return
	}
	s.editProposal(ctx, cb, fmt.Sprintf(messages.MsgProposalApproved, p.userID))
	s.answer(ctx, cb.CallbackID, fmt.Sprintf(messages.MsgProposalApproved, p.userID), false)
}

func (s *ModerationService) rejectGlobalBan(ctx context.Context, cb platform.CallbackPressed, token string) {
	s.mu.Lock()
	_, ok := s.proposals[token]
	if ok {
		delete(s.proposals, token)
	}
	s.mu.Unlock()
	if !ok {
		s.answer(ctx, cb.CallbackID, messages.MsgProposalInvalid, true)
		return
	}
	s.editProposal(ctx, cb, messages.MsgProposalRejected)
	s.answer(ctx, cb.CallbackID, messages.MsgProposalRejected, false)
}

func (s *ModerationService) resolveLinkCase(ctx context.Context, cb platform.CallbackPressed, token string, ban bool) {
	s.mu.Lock()
	c, ok := s.linkCases[token]
	if ok {
		delete(s.linkCases, token)
	}
	s.mu.Unlock()
	if !ok {
		s.answer(ctx, cb.CallbackID, messages.MsgProposalInvalid, true)
		return
	}

	if ban {
		if err := s.client.BanMember(ctx, c.roomID, c.user.ID, true); err != nil {
			s.logger.Error("Failed to ban for bio link", "room_id", c.roomID, "user_id", c.user.ID, "error", err)
			return
		}
		s.enforcer.Notice(ctx, c.roomID, fmt.Sprintf(messages.MsgLinkBanApplied, c.user.DisplayName()))
		s.recordModAction(ctx, c.roomID, c.user.ID, repository.ActionBan, cb.From.ID, "link in profile bio")
		s.editProposal(ctx, cb, fmt.Sprintf(messages.MsgLinkBanApplied, c.user.DisplayName()))
		return
	}

	if err := s.client.RestrictMember(ctx, c.roomID, c.user.ID, platform.PermsUnrestricted); err != nil {
		s.logger.Error("Failed to restore member", "room_id", c.roomID, "user_id", c.user.ID, "error", err)
		return
	}
	// a restored member is trusted from now on
	if err := s.accessRepo.Grant(c.roomID, c.user.ID, repository.RoleWhitelist); err != nil {
		s.logger.Error("Failed to whitelist restored member", "room_id", c.roomID, "user_id", c.user.ID, "error", err)
	}
	s.enforcer.Notice(ctx, c.roomID, fmt.Sprintf(messages.MsgLinkBanRestored, c.user.DisplayName()))
	s.recordModAction(ctx, c.roomID, c.user.ID, repository.ActionRestore, cb.From.ID, "bio link reviewed")
	s.editProposal(ctx, cb, fmt.Sprintf(messages.MsgLinkBanRestored, c.user.DisplayName()))
}

func (s *ModerationService) recordModAction(ctx context.Context, roomID, userID int64, action string, actorID int64, reason string) {
	entry := &repository.ModerationLog{
		RoomID:  &roomID,
		UserID:  userID,
		Action:  action,
		ActorID: actorID,
		Reason:  reason,
	}
	if err := s.modLogRepo.Record(ctx, entry); err != nil {
		s.logger.Error("Failed to write moderation log", "room_id", roomID, "user_id", userID, "error", err)
	}
}

func (s *ModerationService) editProposal(ctx context.Context, cb platform.CallbackPressed, text string) {
	if cb.MessageID == 0 {
		return
	}
	if err := s.client.EditMessage(ctx, cb.RoomID, cb.MessageID, text); err != nil {
		s.logger.Debug("Failed to edit proposal message", "message_id", cb.MessageID, "error", err)
	}
}

func (s *ModerationService) answer(ctx context.Context, callbackID, text string, alert bool) {
	if err := s.client.AnswerCallback(ctx, callbackID, text, alert); err != nil {
		s.logger.Debug("Failed to answer callback", "error", err)
	}
}
