package market

import (
	"context"
	"time"

	"go.uber.org/zap"

	"trade-analytics-terminal/internal/quotes"
)

// Poller periodically imports quote feed snapshots into the market store.
type Poller struct {
	logger   *zap.Logger
	client   quotes.ClientInterface
	service  *Service
	interval time.Duration
}

// NewPoller creates a new Poller.
func NewPoller(logger *zap.Logger, client quotes.ClientInterface, service *Service, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Poller{
		logger:   logger.Named("poller"),
		client:   client,
		service:  service,
		interval: interval,
	}
}

// Run polls once immediately and then on every tick until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("Starting quote poller", zap.Duration("interval", p.interval))
	p.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Stopping quote poller...")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	snapshot, err := p.client.FetchSnapshot(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("Quote fetch failed", zap.Error(err))
		}
		return
	}
	count, err := p.service.ImportMTM(ctx, snapshot)
	if err != nil {
		p.logger.Error("Quote import failed", zap.Error(err))
		return
	}
	p.logger.Debug("Imported quote snapshot", zap.Int("count", count))
}
