package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/rxexchange-backend/internal/orders"
	"github.com/angelmondragon/rxexchange-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/rxexchange-backend/pkg/errors"
	"github.com/angelmondragon/rxexchange-backend/pkg/logger"
	"github.com/angelmondragon/rxexchange-backend/pkg/metrics"
)

const (
	defaultPendingTTL          = 24 * time.Hour
	defaultExpirationBatchSize = 200
)

type orderExpirer interface {
	ListExpirable(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	Expire(ctx context.Context, input orders.ExpireInput) (bool, error)
}

// OrderExpirationJobParams configure the stale pending order sweep.
type OrderExpirationJobParams struct {
	Logger     *logger.Logger
	Orders     orderExpirer
	Metrics    *metrics.OrderExpirationMetrics
	PendingTTL time.Duration
	BatchSize  int
	Reason     string
}

// SweepResult summarises one expiration sweep.
type SweepResult struct {
	Cutoff     time.Time `json:"cutoff"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Examined   int       `json:"examined"`
	Expired    int       `json:"expired"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Cancelled  bool      `json:"cancelled"`
}

// OrderExpirationJob cancels pending orders the supplier never confirmed and
// returns their reserved stock. Each order is expired in its own transaction.
type OrderExpirationJob struct {
	logg      *logger.Logger
	orders    orderExpirer
	metrics   *metrics.OrderExpirationMetrics
	ttl       time.Duration
	batchSize int
	reason    string
	now       func() time.Time

	mu   sync.RWMutex
	last *SweepResult
}

// NewOrderExpirationJob builds the expiration sweeper.
func NewOrderExpirationJob(params OrderExpirationJobParams) (*OrderExpirationJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.PendingTTL
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultExpirationBatchSize
	}
	return &OrderExpirationJob{
		logg:      params.Logger,
		orders:    params.Orders,
		metrics:   params.Metrics,
		ttl:       ttl,
		batchSize: batchSize,
		reason:    params.Reason,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (j *OrderExpirationJob) Name() string { return "order-expiration" }

// Run sweeps once. Per-order failures do not stop the sweep; they are combined
// into the returned error so the cron service records a failed run.
func (j *OrderExpirationJob) Run(ctx context.Context) error {
	_, err := j.Sweep(ctx)
	return err
}

// LastResult returns the summary of the most recent sweep.
func (j *OrderExpirationJob) LastResult() (SweepResult, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.last == nil {
		return SweepResult{}, false
	}
	return *j.last, true
}

// Sweep expires every pending order created at or before now minus the TTL,
// oldest first, in batches. Orders already processed in this sweep are never
// retried.
func (j *OrderExpirationJob) Sweep(ctx context.Context) (SweepResult, error) {
	started := j.now()
	result := SweepResult{
		Cutoff:    started.Add(-j.ttl),
		StartedAt: started,
	}
	seen := make(map[uuid.UUID]struct{})
	var errs error

sweep:
	for {
		// Orders that failed or were skipped may still match the query, so
		// widen the window past them.
		limit := j.batchSize + result.Failed + result.Skipped
		batch, err := j.orders.ListExpirable(ctx, result.Cutoff, limit)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("list expirable orders: %w", err))
			break
		}

		progressed := false
		for _, order := range batch {
			if _, done := seen[order.ID]; done {
				continue
			}
			if ctx.Err() != nil {
				result.Cancelled = true
				errs = multierr.Append(errs, ctx.Err())
				break sweep
			}
			seen[order.ID] = struct{}{}
			progressed = true
			result.Examined++

			expired, err := j.orders.Expire(ctx, orders.ExpireInput{
				OrderID: order.ID,
				Now:     j.now(),
				Cutoff:  result.Cutoff,
				Reason:  j.reason,
			})
			switch {
			case err != nil:
				result.Failed++
				errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
				logCtx := j.logg.WithFields(ctx, map[string]any{
					"order_id":     order.ID.String(),
					"order_number": order.OrderNumber,
					"retryable":    pkgerrors.IsRetryable(err),
				})
				j.logg.Error(logCtx, "order expiration failed", err)
			case expired:
				result.Expired++
			default:
				result.Skipped++
			}
		}

		if len(batch) < limit || !progressed {
			break
		}
	}

	result.FinishedAt = j.now()
	j.record(ctx, result)
	return result, errs
}

func (j *OrderExpirationJob) record(ctx context.Context, result SweepResult) {
	j.mu.Lock()
	j.last = &result
	j.mu.Unlock()

	j.metrics.AddOutcome(metrics.ExpirationOutcomeExpired, result.Expired)
	j.metrics.AddOutcome(metrics.ExpirationOutcomeSkipped, result.Skipped)
	j.metrics.AddOutcome(metrics.ExpirationOutcomeFailed, result.Failed)
	j.metrics.IncSweep()

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"event":     "orders.expiration_sweep",
		"cutoff":    result.Cutoff,
		"examined":  result.Examined,
		"expired":   result.Expired,
		"skipped":   result.Skipped,
		"failed":    result.Failed,
		"cancelled": result.Cancelled,
	})
	j.logg.Info(logCtx, "order expiration sweep complete")
}
