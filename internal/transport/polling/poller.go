// Package polling delivers updates by long polling the platform API.
package polling

import (
	"context"
	"log/slog"

	"chat-sentinel-bot/internal/platform"
)

type Poller struct {
	logger *slog.Logger
	source platform.Source
}

func NewPoller(logger *slog.Logger, source platform.Source) *Poller {
	return &Poller{
		logger: logger,
		source: source,
	}
}

func (p *Poller) Start(ctx context.Context) <-chan platform.Update {
	p.logger.Info("Starting long polling")
	return p.source.Updates(ctx)
}
