package pipeline

import (
	"github.com/rs/zerolog"
	"github.com/wnt/curvewatch/internal/address"
	"github.com/wnt/curvewatch/internal/alert"
	"github.com/wnt/curvewatch/internal/config"
	"github.com/wnt/curvewatch/internal/market"
	"github.com/wnt/curvewatch/internal/notify"
	"github.com/wnt/curvewatch/internal/rpc"
	"github.com/wnt/curvewatch/internal/scoring"
	"github.com/wnt/curvewatch/internal/services"
	"github.com/wnt/curvewatch/internal/whale"
	"gorm.io/gorm"
)

// Build assembles the full pipeline from configuration. When no
// Telegram bot token is configured, deliveries go to the log channel so
// local runs stay side-effect free.
func Build(cfg config.Config, db *gorm.DB, logger zerolog.Logger) (*Pipeline, error) {
	pool := rpc.NewPool(cfg.RPCEndpoints, cfg.RPCTimeout, logger)
	chainClient := rpc.NewClient(pool, cfg.RPCMaxRetries, cfg.RPCBaseDelay, logger)

	recoverer := address.NewRecoverer()
	cache := market.NewSnapshotCache()

	aggregator := market.NewAggregator(
		services.NewCurveClient(cfg.CurveAPIURL),
		services.NewPairsClient(cfg.PairsAPIURL),
		chainClient,
		services.NewTrendingClient(cfg.TrendingAPIURL),
		recoverer,
		cache,
		scoring.DefaultWeights,
		market.Config{
			SnapshotTTL:      cfg.SnapshotTTL,
			StaleSnapshotMax: cfg.StaleSnapshotMax,
			PairChunkDelay:   cfg.PairChunkDelay,
			WhaleMinUsd:      cfg.WhaleMinUsd,
		},
		logger,
	)

	var channel notify.Channel
	if cfg.TelegramBotToken != "" {
		telegram, err := notify.NewTelegram(cfg.TelegramBotToken, "")
		if err != nil {
			return nil, err
		}
		channel = telegram
	} else {
		channel = notify.NewLogChannel(logger)
	}

	detector := whale.NewDetector(
		chainClient,
		whale.NewEventStore(db),
		channel,
		whale.Config{
			MinUsd:         cfg.WhaleMinUsd,
			TokenScanDelay: cfg.TokenScanDelay,
			TopTokenCount:  cfg.TopTokenCount,
			AlertChatID:    cfg.WhaleAlertChatID,
		},
		logger,
	)

	dispatcher := alert.NewDispatcher(alert.NewStore(db), channel, logger)

	return New(aggregator, market.NewSnapshotStore(db), detector, dispatcher, logger), nil
}
