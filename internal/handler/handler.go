// Package handler turns the inbound update stream into calls on the
// moderation service and the join gate. It owns the admin command surface.
package handler

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chat-sentinel-bot/internal/joingate"
	"chat-sentinel-bot/internal/messages"
	"chat-sentinel-bot/internal/metrics"
	"chat-sentinel-bot/internal/platform"
)

// ModerationService is the slice of the service layer the handler drives.
type ModerationService interface {
	HandleMessage(ctx context.Context, msg platform.Message, edited bool) error
	HandleCallback(ctx context.Context, cb platform.CallbackPressed) bool
	OnProfileChange(ctx context.Context, roomID int64, user platform.User)
	IsRoomAdmin(ctx context.Context, roomID, userID int64) bool

	BanUser(ctx context.Context, roomID int64, user platform.User, reason string, actorID int64)
	UnbanUser(ctx context.Context, roomID, userID, actorID int64) error
	MuteUser(ctx context.Context, roomID int64, user platform.User, duration time.Duration, actorID int64)
	UnmuteUser(ctx context.Context, roomID, userID, actorID int64) error
	WarnUser(ctx context.Context, roomID int64, user platform.User, reason string) bool
	AddWord(ctx context.Context, roomID int64, kind, word string, actorID int64) error
	RemoveWord(ctx context.Context, roomID int64, kind, word string) (bool, error)
	Whitelist(ctx context.Context, roomID, userID int64) error
	Unwhitelist(ctx context.Context, roomID, userID int64) error
	ToggleSetting(ctx context.Context, roomID int64, setting string) (bool, error)
	BanAvatarOfUser(ctx context.Context, userID, actorID int64) error
	GlobalUnban(ctx context.Context, userID int64) (bool, error)
}

// JoinGate is the slice of the join gate the handler drives.
type JoinGate interface {
	HandleJoin(ctx context.Context, roomID int64, user platform.User)
	HandleLeave(ctx context.Context, roomID, userID int64)
	HandleVerify(ctx context.Context, cb platform.CallbackPressed)
}

type Handler struct {
	logger *slog.Logger
	client platform.Client
	svc    ModerationService
	gate   JoinGate
	tracer trace.Tracer
}

func NewHandler(logger *slog.Logger, client platform.Client, svc ModerationService, gate JoinGate) *Handler {
	return &Handler{
		logger: logger,
		client: client,
		svc:    svc,
		gate:   gate,
		tracer: otel.Tracer("handler"),
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, upd platform.Update) {
	start := time.Now()
	defer func() {
		metrics.ObserveUpdateProcessing(upd.UpdateType(), time.Since(start).Seconds(), nil)
	}()

	ctx, span := h.tracer.Start(ctx, "HandleUpdate")
	defer span.End()
	span.SetAttributes(attribute.String("update_type", upd.UpdateType()))

	switch u := upd.(type) {
	case platform.MessageCreated:
		h.handleMessage(ctx, u.Message)
	case platform.MessageEdited:
		if err := h.svc.HandleMessage(ctx, u.Message, true); err != nil {
			h.logger.Error("Failed to moderate edited message", "room_id", u.Message.RoomID, "error", err)
		}
	case platform.MemberUpdated:
		h.handleMemberUpdated(ctx, u)
	case platform.CallbackPressed:
		h.handleCallback(ctx, u)
	default:
		h.logger.Debug("Unhandled update type", "type", upd.UpdateType())
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg platform.Message) {
	if strings.HasPrefix(msg.Text, "/") {
		if h.handleCommand(ctx, msg) {
			return
		}
	}
	if err := h.svc.HandleMessage(ctx, msg, false); err != nil {
		h.logger.Error("Failed to moderate message", "room_id", msg.RoomID, "error", err)
	}
}

func (h *Handler) handleMemberUpdated(ctx context.Context, u platform.MemberUpdated) {
	switch {
	case u.Joined():
		h.gate.HandleJoin(ctx, u.RoomID, u.User)
	case u.Left():
		h.gate.HandleLeave(ctx, u.RoomID, u.User.ID)
	case u.ProfileChanged():
		h.svc.OnProfileChange(ctx, u.RoomID, u.User)
	}
}

func (h *Handler) handleCallback(ctx context.Context, cb platform.CallbackPressed) {
	if joingate.IsVerifyData(cb.Data) {
		h.gate.HandleVerify(ctx, cb)
		return
	}
	if h.svc.HandleCallback(ctx, cb) {
		return
	}
	h.logger.Debug("Unroutable callback", "data", cb.Data)
	if err := h.client.AnswerCallback(ctx, cb.CallbackID, messages.MsgProposalInvalid, true); err != nil {
		h.logger.Debug("Failed to answer callback", "error", err)
	}
}
