package filters

import (
	"context"
	"unicode"
	"unicode/utf8"

	"chat-sentinel-bot/internal/messages"
	"chat-sentinel-bot/internal/pipeline"
)

// CapsFilter flags shouting: messages of at least minLength runes carrying at
// least threshold uppercase letters.
type CapsFilter struct {
	minLength int
	threshold int
}

func NewCapsFilter(minLength, threshold int) *CapsFilter {
	return &CapsFilter{
		minLength: minLength,
		threshold: threshold,
	}
}

func (f *CapsFilter) Name() string {
	return "caps_filter"
}

func (f *CapsFilter) Process(_ context.Context, payload pipeline.Payload) (*pipeline.Result, error) {
	if utf8.RuneCountInString(payload.Text) < f.minLength {
		return pipeline.Allowed(), nil
	}

	upper := 0
	for _, r := range payload.Text {
		if unicode.IsUpper(r) {
			upper++
			if upper >= f.threshold {
				return &pipeline.Result{
					IsAllowed:     false,
					FilterName:    f.Name(),
					Reason:        messages.MsgReasonCaps,
					DeleteMessage: true,
					Action:        pipeline.ActionWarn,
				}, nil
			}
		}
	}
	return pipeline.Allowed(), nil
}
