package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"chat-sentinel-bot/internal/messages"
	"chat-sentinel-bot/internal/platform"
	"chat-sentinel-bot/internal/repository"
)

const defaultMuteDuration = time.Hour

// wordCommands maps a word-list command to the list kind it edits.
var wordCommands = map[string]struct {
	kind string
	add  bool
}{
	"addword": {repository.WordKindContent, true},
	"delword": {repository.WordKindContent, false},
	"addbio":  {repository.WordKindBio, true},
	"delbio":  {repository.WordKindBio, false},
	"addnick": {repository.WordKindNick, true},
	"delnick": {repository.WordKindNick, false},
}

var commandUsage = map[string]string{
	"ban":       "/ban (as a reply, or /ban <user_id>) [reason]",
	"unban":     "/unban (as a reply, or /unban <user_id>)",
	"mute":      "/mute (as a reply) [duration, e.g. 30m]",
	"unmute":    "/unmute (as a reply, or /unmute <user_id>)",
	"warn":      "/warn (as a reply) [reason]",
	"wl":        "/wl (as a reply, or /wl <user_id>)",
	"unwl":      "/unwl (as a reply, or /unwl <user_id>)",
	"toggle":    "/toggle link_ban|captcha",
	"banavatar": "/banavatar (as a reply, or /banavatar <user_id>)",
	"gunban":    "/gunban <user_id>",
	"addword":   "/addword <word> [word...]",
	"delword":   "/delword <word> [word...]",
	"addbio":    "/addbio <word> [word...]",
	"delbio":    "/delbio <word> [word...]",
	"addnick":   "/addnick <word> [word...]",
	"delnick":   "/delnick <word> [word...]",
}

// handleCommand executes an admin command. Returns false when the text is not
// a command this bot knows, so the message falls through to moderation.
func (h *Handler) handleCommand(ctx context.Context, msg platform.Message) bool {
	fields := strings.Fields(msg.Text)
	if len(fields) == 0 {
		return false
	}
	cmd, _, _ := strings.Cut(strings.TrimPrefix(fields[0], "/"), "@")
	if _, known := commandUsage[cmd]; !known {
		return false
	}
	args := fields[1:]

	ctx, span := h.tracer.Start(ctx, "handleCommand")
	defer span.End()

	if !h.svc.IsRoomAdmin(ctx, msg.RoomID, msg.Sender.ID) {
		h.logger.Info("Command rejected", "command", cmd, "room_id", msg.RoomID, "user_id", msg.Sender.ID)
		h.reply(ctx, msg.RoomID, messages.MsgNotAdmin)
		h.deleteCommand(ctx, msg)
		return true
	}

	h.logger.Info("Admin command", "command", cmd, "room_id", msg.RoomID, "actor_id", msg.Sender.ID)

	if wc, ok := wordCommands[cmd]; ok {
		h.runWordCommand(ctx, msg, cmd, wc.kind, wc.add, args)
	} else {
		h.runModerationCommand(ctx, msg, cmd, args)
	}
	h.deleteCommand(ctx, msg)
	return true
}

func (h *Handler) runModerationCommand(ctx context.Context, msg platform.Message, cmd string, args []string) {
	actorID := msg.Sender.ID
	roomID := msg.RoomID

	switch cmd {
	case "ban":
		target, rest, ok := commandTarget(msg, args)
		if !ok {
			h.reply(ctx, roomID, messages.MsgTargetRequired)
			return
		}
		reason := strings.Join(rest, " ")
		if reason == "" {
			reason = "banned by an administrator"
		}
		h.svc.BanUser(ctx, roomID, target, reason, actorID)

	case "unban":
		target, _, ok := commandTarget(msg, args)
		if !ok {
			h.reply(ctx, roomID, messages.MsgTargetRequired)
			return
		}
		if err := h.svc.UnbanUser(ctx, roomID, target.ID, actorID); err != nil {
			h.logger.Error("Failed to unban", "room_id", roomID, "user_id", target.ID, "error", err)
			return
		}
		h.reply(ctx, roomID, fmt.Sprintf(messages.MsgManualUnban, target.ID))

	case "mute":
		target, rest, ok := commandTarget(msg, args)
		if !ok {
			h.reply(ctx, roomID, messages.MsgTargetRequired)
			return
		}
		duration := defaultMuteDuration
		if len(rest) > 0 {
			var err error
			if duration, err = time.ParseDuration(rest[0]); err != nil {
				h.reply(ctx, roomID, messages.MsgBadDuration)
				return
			}
		}
		h.svc.MuteUser(ctx, roomID, target, duration, actorID)

	case "unmute":
		target, _, ok := commandTarget(msg, args)
		if !ok {
			h.reply(ctx, roomID, messages.MsgTargetRequired)
			return
		}
		if err := h.svc.UnmuteUser(ctx, roomID, target.ID, actorID); err != nil {
			h.logger.Error("Failed to unmute", "room_id", roomID, "user_id", target.ID, "error", err)
			return
		}
		h.reply(ctx, roomID, fmt.Sprintf(messages.MsgManualUnmute, target.ID))

	case "warn":
		target, rest, ok := commandTarget(msg, args)
		if !ok {
			h.reply(ctx, roomID, messages.MsgTargetRequired)
			return
		}
		reason := strings.Join(rest, " ")
		if reason == "" {
			reason = "violating chat rules"
		}
		h.svc.WarnUser(ctx, roomID, target, reason)

	case "wl":
		target, _, ok := commandTarget(msg, args)
		if !ok {
			h.reply(ctx, roomID, messages.MsgTargetRequired)
			return
		}
		if err := h.svc.Whitelist(ctx, roomID, target.ID); err != nil {
			h.logger.Error("Failed to whitelist", "room_id", roomID, "user_id", target.ID, "error", err)
			return
		}
		h.reply(ctx, roomID, fmt.Sprintf(messages.MsgWhitelisted, target.ID))

	case "unwl":
		target, _, ok := commandTarget(msg, args)
		if !ok {
			h.reply(ctx, roomID, messages.MsgTargetRequired)
			return
		}
		if err := h.svc.Unwhitelist(ctx, roomID, target.ID); err != nil {
			h.logger.Error("Failed to unwhitelist", "room_id", roomID, "user_id", target.ID, "error", err)
			return
		}
		h.reply(ctx, roomID, fmt.Sprintf(messages.MsgUnwhitelisted, target.ID))

	case "toggle":
		if len(args) != 1 {
			h.reply(ctx, roomID, fmt.Sprintf(messages.MsgCommandUsage, commandUsage[cmd]))
			return
		}
		enabled, err := h.svc.ToggleSetting(ctx, roomID, args[0])
		if err != nil {
			h.reply(ctx, roomID, fmt.Sprintf(messages.MsgCommandUsage, commandUsage[cmd]))
			return
		}
		if enabled {
			h.reply(ctx, roomID, fmt.Sprintf(messages.MsgToggleOn, args[0]))
		} else {
			h.reply(ctx, roomID, fmt.Sprintf(messages.MsgToggleOff, args[0]))
		}

	case "banavatar":
		target, _, ok := commandTarget(msg, args)
		if !ok {
			h.reply(ctx, roomID, messages.MsgTargetRequired)
			return
		}
		if err := h.svc.BanAvatarOfUser(ctx, target.ID, actorID); err != nil {
			h.logger.Error("Failed to ban avatar", "user_id", target.ID, "error", err)
			h.reply(ctx, roomID, messages.MsgAvatarBanFailed)
			return
		}
		h.reply(ctx, roomID, messages.MsgAvatarBanListed)

	case "gunban":
		if len(args) != 1 {
			h.reply(ctx, roomID, fmt.Sprintf(messages.MsgCommandUsage, commandUsage[cmd]))
			return
		}
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			h.reply(ctx, roomID, fmt.Sprintf(messages.MsgCommandUsage, commandUsage[cmd]))
			return
		}
		lifted, err := h.svc.GlobalUnban(ctx, userID)
		if err != nil {
			h.logger.Error("Failed to lift global ban", "user_id", userID, "error", err)
			return
		}
		if lifted {
			h.reply(ctx, roomID, fmt.Sprintf(messages.MsgGlobalUnbanDone, userID))
		} else {
			h.reply(ctx, roomID, fmt.Sprintf(messages.MsgGlobalUnbanMissing, userID))
		}
	}
}

func (h *Handler) runWordCommand(ctx context.Context, msg platform.Message, cmd, kind string, add bool, args []string) {
	if len(args) == 0 {
		h.reply(ctx, msg.RoomID, fmt.Sprintf(messages.MsgCommandUsage, commandUsage[cmd]))
		return
	}
	for _, word := range args {
		if add {
			if err := h.svc.AddWord(ctx, msg.RoomID, kind, word, msg.Sender.ID); err != nil {
				h.logger.Error("Failed to add word", "room_id", msg.RoomID, "kind", kind, "error", err)
				continue
			}
			h.reply(ctx, msg.RoomID, fmt.Sprintf(messages.MsgWordAdded, word, kind))
			continue
		}
		removed, err := h.svc.RemoveWord(ctx, msg.RoomID, kind, word)
		if err != nil {
			h.logger.Error("Failed to remove word", "room_id", msg.RoomID, "kind", kind, "error", err)
			continue
		}
		if removed {
			h.reply(ctx, msg.RoomID, fmt.Sprintf(messages.MsgWordRemoved, word, kind))
		} else {
			h.reply(ctx, msg.RoomID, fmt.Sprintf(messages.MsgWordMissing, word, kind))
		}
	}
}

// commandTarget resolves the user a command acts on: the replied-to author
// when the command is a reply, otherwise a leading numeric ID argument.
func commandTarget(msg platform.Message, args []string) (platform.User, []string, bool) {
	if msg.ReplyTo != nil {
		return *msg.ReplyTo, args, true
	}
	if len(args) > 0 {
		if id, err := strconv.ParseInt(args[0], 10, 64); err == nil {
			return platform.User{ID: id}, args[1:], true
		}
	}
	return platform.User{}, nil, false
}

func (h *Handler) reply(ctx context.Context, roomID int64, text string) {
	if _, err := h.client.SendMessage(ctx, roomID, text); err != nil {
		h.logger.Error("Failed to send command reply", "room_id", roomID, "error", err)
	}
}

// deleteCommand keeps the room clean of command chatter.
func (h *Handler) deleteCommand(ctx context.Context, msg platform.Message) {
	if err := h.client.DeleteMessage(ctx, msg.RoomID, msg.ID); err != nil {
		h.logger.Debug("Failed to delete command message", "room_id", msg.RoomID, "message_id", msg.ID, "error", err)
	}
}
