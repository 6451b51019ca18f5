package filters

import (
	"context"
	"time"

	"chat-sentinel-bot/internal/messages"
	"chat-sentinel-bot/internal/pipeline"
	"chat-sentinel-bot/internal/textnorm"
	"chat-sentinel-bot/internal/tracker"
)

// FloodFilter counts exact duplicates of the normalized text inside a rolling
// window. On a trigger the matching entries are dropped from the window so the
// same burst fires once per threshold crossing, not once per extra message.
type FloodFilter struct {
	tracker   *tracker.Tracker
	threshold int
	window    time.Duration
}

func NewFloodFilter(tr *tracker.Tracker, threshold int, window time.Duration) *FloodFilter {
	return &FloodFilter{
		tracker:   tr,
		threshold: threshold,
		window:    window,
	}
}

func (f *FloodFilter) Name() string {
	return "flood_filter"
}

func (f *FloodFilter) Process(_ context.Context, payload pipeline.Payload) (*pipeline.Result, error) {
	normalized := textnorm.Normalize(payload.Text)
	if normalized == "" {
		return pipeline.Allowed(), nil
	}

	at := payload.SentAt
	if at.IsZero() {
		at = time.Now()
	}
	count := f.tracker.RecordMessage(payload.RoomID, payload.Sender.ID, normalized, at, f.window)
	if count < f.threshold {
		return pipeline.Allowed(), nil
	}

	f.tracker.DropMatching(payload.RoomID, payload.Sender.ID, normalized)
	return &pipeline.Result{
		IsAllowed:     false,
		FilterName:    f.Name(),
		Reason:        messages.MsgReasonFlood,
		DeleteMessage: true,
		Action:        pipeline.ActionWarn,
	}, nil
}
