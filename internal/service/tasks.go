package service

import (
	"context"
	"fmt"
	"time"

	"chat-sentinel-bot/internal/messages"
	"chat-sentinel-bot/internal/platform"
	"chat-sentinel-bot/internal/repository"
)

// StartRescanTask begins the periodic sweep over members that were never
// profile-screened.
func (s *ModerationService) StartRescanTask() {
	s.sched.RunPeriodic("rescan", s.cfg.RescanInterval, s.cfg.RescanInterval, s.rescan)
}

// StartDailyReportTask schedules the moderation summary for the configured
// UTC hour.
func (s *ModerationService) StartDailyReportTask() {
	s.sched.RunDaily("daily_report", s.cfg.ReportHourUTC, s.sendDailyReport)
}

// rescan walks every active room and screens the unscreened backlog.
// Administrators are marked checked without screening. Each member is marked
// checked afterward whatever the outcome, so the backlog only shrinks.
func (s *ModerationService) rescan(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "rescan")
	defer span.End()

	rooms, err := s.settingsRepo.GetActiveRooms()
	if err != nil {
		s.logger.Error("Failed to list active rooms", "error", err)
		return
	}
	self, err := s.client.Self(ctx)
	if err != nil {
		s.logger.Error("Failed to resolve own identity", "error", err)
		return
	}

	for _, roomID := range rooms {
		// cheap permission probe once per room instead of failing per member
		me, err := s.client.GetMember(ctx, roomID, self.ID)
		if err != nil {
			s.logger.Error("Failed to probe own membership", "room_id", roomID, "error", err)
			continue
		}
		if me == nil || me.Status == platform.StatusLeft || me.Status == platform.StatusBanned {
			s.logger.Warn("No longer a member, deactivating room", "room_id", roomID)
			if err := s.settingsRepo.SetActive(roomID, false); err != nil {
				s.logger.Error("Failed to deactivate room", "room_id", roomID, "error", err)
			}
			continue
		}
		if !me.CanRestrict {
			s.logger.Warn("Lacking restrict permission, skipping room", "room_id", roomID)
			continue
		}

		whitelist := make(map[int64]bool)
		if ids, err := s.accessRepo.ListRole(roomID, repository.RoleWhitelist); err == nil {
			for _, id := range ids {
				whitelist[id] = true
			}
		}

		unchecked, err := s.memberRepo.GetUnchecked(roomID, s.cfg.RescanBatch)
		if err != nil {
			s.logger.Error("Failed to list unchecked members", "room_id", roomID, "error", err)
			continue
		}
		for _, m := range unchecked {
			user := platform.User{
				ID:        m.UserID,
				Username:  m.Username,
				FirstName: m.FirstName,
				LastName:  m.LastName,
			}
			member, err := s.client.GetMember(ctx, roomID, m.UserID)
			if err != nil {
				s.logger.Error("Failed to fetch member", "room_id", roomID, "user_id", m.UserID, "error", err)
				continue
			}
			exempt := whitelist[m.UserID] || (member != nil && member.IsAdmin())
			if !exempt {
				s.screener.Screen(ctx, roomID, user)
			}
			if err := s.memberRepo.MarkChecked(roomID, m.UserID); err != nil {
				s.logger.Error("Failed to mark member checked", "room_id", roomID, "user_id", m.UserID, "error", err)
			}
		}
	}
}

// sendDailyReport posts the 24-hour enforcement totals to the administrators,
// unless there is nothing to report.
func (s *ModerationService) sendDailyReport(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "sendDailyReport")
	defer span.End()

	stats, err := s.modLogRepo.StatsSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		s.logger.Error("Failed to aggregate daily stats", "error", err)
		return
	}
	if stats.Bans == 0 && stats.Mutes == 0 {
		return
	}

	var total int64
	if rooms, err := s.settingsRepo.GetActiveRooms(); err == nil {
		for _, roomID := range rooms {
			n, err := s.memberRepo.CountMembers(roomID)
			if err != nil {
				s.logger.Error("Failed to count members", "room_id", roomID, "error", err)
				continue
			}
			total += n
		}
	}
	s.notifyAdmins(ctx, fmt.Sprintf(messages.MsgDailyReport, stats.Bans, stats.Mutes, total), nil)
}
