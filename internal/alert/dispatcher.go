package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/curvewatch/internal/market"
	"github.com/wnt/curvewatch/internal/metrics"
	"github.com/wnt/curvewatch/internal/models"
	"github.com/wnt/curvewatch/internal/notify"
)

// Summary carries the totals of one dispatch cycle
type Summary struct {
	Subscriptions int
	Sent          int
	QuotaSkipped  int
	NoTarget      int
	Failed        int
}

// String renders the summary for the run status row
func (s Summary) String() string {
	return fmt.Sprintf("subscriptions=%d sent=%d quota_skipped=%d no_target=%d failed=%d",
		s.Subscriptions, s.Sent, s.QuotaSkipped, s.NoTarget, s.Failed)
}

// Dispatcher matches active subscriptions against the current token
// snapshot and delivers under per-tier daily quotas. Subscriptions are
// iterated serially since the channels themselves rate-limit per
// destination.
type Dispatcher struct {
	store   *Store
	channel notify.Channel
	logger  zerolog.Logger
	now     func() time.Time
}

// NewDispatcher creates an alert dispatcher
func NewDispatcher(store *Store, channel notify.Channel, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:   store,
		channel: channel,
		logger:  logger.With().Str("component", "alert_dispatcher").Logger(),
		now:     time.Now,
	}
}

// Run processes every active subscription against the snapshot. The
// history row written after each confirmed delivery is the only quota
// bookkeeping: a send that fails writes nothing and may legitimately be
// retried next cycle without violating at-most-once.
func (d *Dispatcher) Run(ctx context.Context, snapshot []market.TokenRecord) (Summary, error) {
	var summary Summary

	subs, err := d.store.ActiveSubscriptions()
	if err != nil {
		return summary, err
	}
	summary.Subscriptions = len(subs)

	for _, sub := range subs {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		d.dispatchSubscription(ctx, sub, snapshot, &summary)
	}

	d.logger.Info().
		Int("subscriptions", summary.Subscriptions).
		Int("sent", summary.Sent).
		Int("quota_skipped", summary.QuotaSkipped).
		Int("no_target", summary.NoTarget).
		Int("failed", summary.Failed).
		Msg("Alert dispatch completed")

	return summary, nil
}

// dispatchSubscription handles one subscription end to end. Failures
// are absorbed into the summary so one user never blocks the rest.
func (d *Dispatcher) dispatchSubscription(ctx context.Context, sub models.AlertSubscription, snapshot []market.TokenRecord, summary *Summary) {
	params := ParamsFor(sub.User.Tier)
	threshold := d.effectiveThreshold(sub, params)

	used, err := d.store.CountToday(sub.UserID, d.now())
	if err != nil {
		summary.Failed++
		d.logger.Error().Err(err).Uint("user_id", sub.UserID).Msg("Quota lookup failed, skipping subscription")
		return
	}

	remaining := int64(params.DailyQuota) - used
	if remaining <= 0 {
		summary.QuotaSkipped++
		metrics.RecordAlert("quota_skipped")
		return
	}

	matches := d.matchTokens(sub, snapshot, threshold)
	if len(matches) == 0 {
		return
	}

	chatID := sub.User.TelegramChatID
	if chatID == "" {
		summary.NoTarget++
		metrics.RecordAlert("no_target")
		return
	}

	for _, token := range matches {
		if remaining <= 0 {
			break
		}

		msg := formatAlert(sub.AlertType, token)
		if err := d.channel.Send(ctx, chatID, msg); err != nil {
			summary.Failed++
			metrics.RecordAlert("failed")
			d.logger.Warn().
				Err(err).
				Uint("user_id", sub.UserID).
				Str("token", token.Address).
				Msg("Alert delivery failed, no history written")
			continue
		}

		// Delivery confirmed; the history row is what makes the quota hold
		if err := d.store.AppendHistory(models.AlertHistory{
			UserID:       sub.UserID,
			TokenAddress: token.Address,
			AlertScore:   token.Score,
			SentAt:       d.now().UTC(),
		}); err != nil {
			summary.Failed++
			d.logger.Error().
				Err(err).
				Uint("user_id", sub.UserID).
				Str("token", token.Address).
				Msg("History write failed after delivery")
			continue
		}

		summary.Sent++
		remaining--
		metrics.RecordAlert("sent")
	}
}

// effectiveThreshold prefers the subscription's explicit override over
// the tier default
func (d *Dispatcher) effectiveThreshold(sub models.AlertSubscription, params TierParams) float64 {
	if sub.ThresholdValue != nil {
		return *sub.ThresholdValue
	}
	if sub.AlertType == models.AlertTypeProgress {
		return params.ProgressThreshold
	}
	return params.ScoreThreshold
}

// matchTokens filters the snapshot by the subscription's criteria
func (d *Dispatcher) matchTokens(sub models.AlertSubscription, snapshot []market.TokenRecord, threshold float64) []market.TokenRecord {
	var matches []market.TokenRecord

	for _, token := range snapshot {
		if sub.TokenAddress != nil && *sub.TokenAddress != token.Address {
			continue
		}

		value := token.Score
		if sub.AlertType == models.AlertTypeProgress {
			value = token.Progress
		}

		if value >= threshold {
			matches = append(matches, token)
		}
	}

	return matches
}

func formatAlert(alertType models.AlertType, token market.TokenRecord) string {
	if alertType == models.AlertTypeProgress {
		return fmt.Sprintf("📈 %s (%s) reached %.1f%% curve progress",
			token.Symbol, token.Address, token.Progress)
	}
	return fmt.Sprintf("🔥 %s (%s) scored %.1f (progress %.1f%%, liq $%.0f)",
		token.Symbol, token.Address, token.Score, token.Progress, token.LiquidityUsd)
}
