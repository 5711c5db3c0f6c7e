package remote

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"autoresponder/internal/common/logging"
)

// Refresher re-imports the subscribed rule URLs on a cron schedule, keeping
// rule sets shared across bots current without operator intervention. Each
// subscription failure is logged and the rest of the list still runs; the
// importer's own gates (feature flag, whitelist) apply to every fetch.
type Refresher struct {
	importer *Importer
	cron     *cron.Cron
	logger   logging.Logger
}

// NewRefresher creates a refresher over the importer's subscriptions.
func NewRefresher(importer *Importer, logger logging.Logger) *Refresher {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Refresher{
		importer: importer,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start schedules the refresh job and starts the cron runner. The schedule
// uses standard five-field cron syntax, e.g. "0 * * * *" for hourly.
func (r *Refresher) Start(schedule string) error {
	if _, err := r.cron.AddFunc(schedule, r.refreshAll); err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Info("Remote rule refresh scheduled", logging.String("schedule", schedule))
	return nil
}

// Stop stops the cron runner and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// RefreshAll imports every subscribed URL once, immediately.
func (r *Refresher) RefreshAll() {
	r.refreshAll()
}

func (r *Refresher) refreshAll() {
	subscriptions := r.importer.settings.Current().Subscriptions
	if len(subscriptions) == 0 {
		return
	}

	for _, url := range subscriptions {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		result, err := r.importer.Import(ctx, url)
		cancel()

		if err != nil {
			r.logger.Warn("Subscription refresh failed",
				logging.String("url", url),
				logging.Err(err),
			)
			continue
		}

		r.logger.Info("Subscription refreshed",
			logging.String("url", url),
			logging.Int("added", result.Added),
			logging.Int("overwritten", result.Overwritten),
		)
	}
}
