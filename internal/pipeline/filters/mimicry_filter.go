package filters

import (
	"context"
	"fmt"
	"time"

	"chat-sentinel-bot/internal/messages"
	"chat-sentinel-bot/internal/msgcache"
	"chat-sentinel-bot/internal/pipeline"
	"chat-sentinel-bot/internal/tracker"
)

// MimicryFilter catches users replaying the bot's own messages. First strike
// is a standalone warning, second is a timed mute; the strike counter resets
// once the mute fires.
type MimicryFilter struct {
	botLog       *msgcache.BotLog
	tracker      *tracker.Tracker
	muteDuration time.Duration
}

func NewMimicryFilter(botLog *msgcache.BotLog, tr *tracker.Tracker, muteDuration time.Duration) *MimicryFilter {
	return &MimicryFilter{
		botLog:       botLog,
		tracker:      tr,
		muteDuration: muteDuration,
	}
}

func (f *MimicryFilter) Name() string {
	return "mimicry_filter"
}

func (f *MimicryFilter) Process(_ context.Context, payload pipeline.Payload) (*pipeline.Result, error) {
	if !f.botLog.Contains(payload.RoomID, payload.Text) {
		return pipeline.Allowed(), nil
	}

	strikes := f.tracker.IncrementMimic(payload.RoomID, payload.Sender.ID)
	if strikes >= 2 {
		f.tracker.ResetMimic(payload.RoomID, payload.Sender.ID)
		return &pipeline.Result{
			IsAllowed:     false,
			FilterName:    f.Name(),
			Reason:        messages.MsgReasonMimicry,
			DeleteMessage: true,
			Action:        pipeline.ActionMute,
			MuteDuration:  f.muteDuration,
		}, nil
	}
	return &pipeline.Result{
		IsAllowed:     false,
		FilterName:    f.Name(),
		Reason:        messages.MsgReasonMimicry,
		DeleteMessage: true,
		Notice:        fmt.Sprintf(messages.MsgMimicWarning, payload.Sender.DisplayName()),
	}, nil
}
