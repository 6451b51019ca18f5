package filters

import (
	"context"
	"fmt"

	"chat-sentinel-bot/internal/messages"
	"chat-sentinel-bot/internal/pipeline"
	"chat-sentinel-bot/internal/repository"
)

// GlobalBanFilter re-issues the local ban when a globally blacklisted user
// manages to post, e.g. after being banned while absent and rejoining. The
// re-ban notice carries the reason stored in the registry.
type GlobalBanFilter struct {
	repo repository.GlobalBanRepository
}

func NewGlobalBanFilter(repo repository.GlobalBanRepository) *GlobalBanFilter {
	return &GlobalBanFilter{repo: repo}
}

func (f *GlobalBanFilter) Name() string {
	return "global_ban_filter"
}

func (f *GlobalBanFilter) Process(_ context.Context, payload pipeline.Payload) (*pipeline.Result, error) {
	ban, err := f.repo.Get(payload.Sender.ID)
	if err != nil || ban == nil || !ban.Active {
		return pipeline.Allowed(), nil
	}
	reason := messages.MsgReasonGlobalBan
	if ban.Reason != "" {
		reason = fmt.Sprintf(messages.MsgReasonGlobalBanFor, ban.Reason)
	}
	return &pipeline.Result{
		IsAllowed:     false,
		FilterName:    f.Name(),
		Reason:        reason,
		DeleteMessage: true,
		Action:        pipeline.ActionBan,
	}, nil
}
