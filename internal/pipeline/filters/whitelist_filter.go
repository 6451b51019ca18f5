package filters

import (
	"context"

	"chat-sentinel-bot/internal/pipeline"
	"chat-sentinel-bot/internal/repository"
)

// WhitelistFilter stops the pipeline with no action for trusted senders.
type WhitelistFilter struct {
	repo repository.RoomAccessRepository
}

func NewWhitelistFilter(repo repository.RoomAccessRepository) *WhitelistFilter {
	return &WhitelistFilter{repo: repo}
}

func (f *WhitelistFilter) Name() string {
	return "whitelist_filter"
}

func (f *WhitelistFilter) Process(_ context.Context, payload pipeline.Payload) (*pipeline.Result, error) {
	listed, err := f.repo.HasRole(payload.RoomID, payload.Sender.ID, repository.RoleWhitelist)
	if err != nil {
		return pipeline.Allowed(), nil
	}
	if listed {
		return &pipeline.Result{IsAllowed: true, Bypass: true}, nil
	}
	return pipeline.Allowed(), nil
}
