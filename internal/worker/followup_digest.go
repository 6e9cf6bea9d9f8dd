package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/opd-desk/internal/model"
)

type DigestSender interface {
	SendDigests(ctx context.Context, date model.Date) (int, error)
}

// FollowUpDigestWorker mails tomorrow's follow-ups on every tick.
type FollowUpDigestWorker struct {
	sender   DigestSender
	interval time.Duration
	today    func() model.Date
}

func NewFollowUpDigestWorker(sender DigestSender, interval time.Duration) *FollowUpDigestWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &FollowUpDigestWorker{
		sender:   sender,
		interval: interval,
		today:    model.Today,
	}
}

// Start runs once immediately, then on every interval until ctx is done.
func (w *FollowUpDigestWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", w.interval).Msg("follow-up digest worker started")
	w.run(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("follow-up digest worker stopped")
			return
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

func (w *FollowUpDigestWorker) run(ctx context.Context) {
	date := w.today().AddDays(1)
	sent, err := w.sender.SendDigests(ctx, date)
	if err != nil {
		log.Error().Err(err).Str("date", date.String()).Msg("follow-up digest run failed")
		return
	}
	log.Debug().Int("sent", sent).Str("date", date.String()).Msg("follow-up digest run finished")
}
