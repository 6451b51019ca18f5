package filters

import (
	"context"

	"chat-sentinel-bot/internal/messages"
	"chat-sentinel-bot/internal/pipeline"
)

// ForwardFilter treats forwards from public channels as advertising. No
// warning tier; the ban is immediate.
type ForwardFilter struct{}

func NewForwardFilter() *ForwardFilter {
	return &ForwardFilter{}
}

func (f *ForwardFilter) Name() string {
	return "forward_filter"
}

func (f *ForwardFilter) Process(_ context.Context, payload pipeline.Payload) (*pipeline.Result, error) {
	if !payload.ForwardedFromPublic {
		return pipeline.Allowed(), nil
	}
	return &pipeline.Result{
		IsAllowed:        false,
		FilterName:       f.Name(),
		Reason:           messages.MsgReasonForwardedAd,
		DeleteMessage:    true,
		Action:           pipeline.ActionBan,
		ProposeGlobalBan: true,
	}, nil
}
