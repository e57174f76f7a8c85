package bot

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DefaultBroadcastWorkers bounds concurrent broadcast sends
const DefaultBroadcastWorkers = 8

// Broadcaster fans a reply out to many recipients. A failed recipient is
// counted and skipped.
type Broadcaster struct {
	notifier Notifier
	limiter  *rate.Limiter
	workers  int
	log      zerolog.Logger
}

// NewBroadcaster paces sends at perSecond across all workers
func NewBroadcaster(notifier Notifier, perSecond float64, workers int, log zerolog.Logger) *Broadcaster {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if workers < 1 {
		workers = DefaultBroadcastWorkers
	}
	return &Broadcaster{
		notifier: notifier,
		limiter:  rate.NewLimiter(limit, 1),
		workers:  workers,
		log:      log,
	}
}

// Send delivers reply to every recipient and returns how many succeeded.
// It only fails when ctx ends before every recipient was attempted.
func (b *Broadcaster) Send(ctx context.Context, recipients []int64, reply Reply) (int, error) {
	var sent atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for _, recipientID := range recipients {
		recipientID := recipientID
		g.Go(func() error {
			if err := b.limiter.Wait(gctx); err != nil {
				return err
			}
			if err := b.notifier.Notify(gctx, recipientID, reply); err != nil {
				b.log.Debug().Err(err).Int64("recipient_id", recipientID).Msg("broadcast delivery failed")
				return nil
			}
			sent.Add(1)
			return nil
		})
	}

	err := g.Wait()
	return int(sent.Load()), err
}
