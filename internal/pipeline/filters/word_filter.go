package filters

import (
	"context"
	"fmt"
	"strings"

	"chat-sentinel-bot/internal/messages"
	"chat-sentinel-bot/internal/pipeline"
	"chat-sentinel-bot/internal/repository"
	"chat-sentinel-bot/internal/textnorm"
)

// WordFilter scans the normalized text for the room's banned content words.
// A match is an immediate ban; an edit that introduces one is policed the
// same way under its own reason.
type WordFilter struct {
	repo repository.WordRepository
}

func NewWordFilter(repo repository.WordRepository) *WordFilter {
	return &WordFilter{repo: repo}
}

func (f *WordFilter) Name() string {
	return "word_filter"
}

func (f *WordFilter) Process(_ context.Context, payload pipeline.Payload) (*pipeline.Result, error) {
	words, err := f.repo.GetWords(payload.RoomID, repository.WordKindContent)
	if err != nil {
		return pipeline.Allowed(), nil
	}

	normalized := textnorm.Normalize(payload.Text)
	for _, word := range words {
		if word == "" || !strings.Contains(normalized, word) {
			continue
		}
		reason := fmt.Sprintf(messages.MsgReasonBannedWord, word)
		if payload.Edited {
			reason = fmt.Sprintf(messages.MsgReasonEditedWord, word)
		}
		return &pipeline.Result{
			IsAllowed:        false,
			FilterName:       f.Name(),
			Reason:           reason,
			DeleteMessage:    true,
			Action:           pipeline.ActionBan,
			ProposeGlobalBan: true,
		}, nil
	}
	return pipeline.Allowed(), nil
}
