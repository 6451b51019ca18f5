package filters

import (
	"context"
	"fmt"

	"chat-sentinel-bot/internal/messages"
	"chat-sentinel-bot/internal/pipeline"
	"chat-sentinel-bot/internal/textnorm"
	"chat-sentinel-bot/internal/tracker"
)

// ZalgoFilter catches dense combining-mark spam. Two strikes: a standalone
// warning on the first offense, an immediate ban on the second. The counter
// is independent from the shared warning ladder.
type ZalgoFilter struct {
	tracker        *tracker.Tracker
	minMarks       int
	ratioThreshold float64
}

func NewZalgoFilter(tr *tracker.Tracker, minMarks int, ratioThreshold float64) *ZalgoFilter {
	return &ZalgoFilter{
		tracker:        tr,
		minMarks:       minMarks,
		ratioThreshold: ratioThreshold,
	}
}

func (f *ZalgoFilter) Name() string {
	return "zalgo_filter"
}

func (f *ZalgoFilter) Process(_ context.Context, payload pipeline.Payload) (*pipeline.Result, error) {
	if !textnorm.IsObfuscated(payload.Text, f.minMarks, f.ratioThreshold) {
		return pipeline.Allowed(), nil
	}

	strikes := f.tracker.IncrementZalgo(payload.RoomID, payload.Sender.ID)
	if strikes >= 2 {
		return &pipeline.Result{
			IsAllowed:        false,
			FilterName:       f.Name(),
			Reason:           messages.MsgReasonZalgoRepeat,
			DeleteMessage:    true,
			Action:           pipeline.ActionBan,
			ProposeGlobalBan: true,
		}, nil
	}
	return &pipeline.Result{
		IsAllowed:     false,
		FilterName:    f.Name(),
		Reason:        messages.MsgReasonZalgo,
		DeleteMessage: true,
		Notice:        fmt.Sprintf(messages.MsgZalgoWarning, payload.Sender.DisplayName()),
	}, nil
}
