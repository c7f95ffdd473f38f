package cron

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/rxexchange-backend/internal/orders"
	"github.com/angelmondragon/rxexchange-backend/pkg/db/models"
	"github.com/angelmondragon/rxexchange-backend/pkg/enums"
	"github.com/angelmondragon/rxexchange-backend/pkg/logger"
	"github.com/angelmondragon/rxexchange-backend/pkg/metrics"
)

var sweepNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func TestOrderExpirationSweepExpiresStaleOrdersInBatches(t *testing.T) {
	store := newFakeExpirer()
	for i := 0; i < 5; i++ {
		store.add(sweepNow.Add(-48*time.Hour + time.Duration(i)*time.Minute))
	}
	fresh := store.add(sweepNow.Add(-2 * time.Hour))

	job := newTestExpirationJob(t, store, nil, 2)
	result, err := job.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, result.Examined)
	assert.Equal(t, 5, result.Expired)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, sweepNow.Add(-24*time.Hour), result.Cutoff)
	assert.Equal(t, enums.OrderStatusPending, store.status(fresh))
	assert.GreaterOrEqual(t, store.listCalls, 3)

	for _, in := range store.expireCalls {
		assert.Equal(t, result.Cutoff, in.Cutoff)
		assert.Equal(t, "timed out", in.Reason)
	}
}

func TestOrderExpirationSweepIsIdempotent(t *testing.T) {
	store := newFakeExpirer()
	store.add(sweepNow.Add(-30 * time.Hour))
	store.add(sweepNow.Add(-25 * time.Hour))

	job := newTestExpirationJob(t, store, nil, 10)
	first, err := job.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Expired)

	second, err := job.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Examined)
	assert.Equal(t, 0, second.Expired)
}

func TestOrderExpirationSweepContinuesPastFailures(t *testing.T) {
	store := newFakeExpirer()
	bad := store.add(sweepNow.Add(-40 * time.Hour))
	store.add(sweepNow.Add(-39 * time.Hour))
	store.add(sweepNow.Add(-38 * time.Hour))
	store.failures[bad] = errors.New("ledger unavailable")

	job := newTestExpirationJob(t, store, nil, 1)
	result, err := job.Sweep(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad.String())

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, result.Expired)
	assert.Equal(t, enums.OrderStatusPending, store.status(bad))
	assert.Equal(t, 1, store.expireCount[bad], "failed order must not be retried within one sweep")
}

func TestOrderExpirationSweepCountsRacedOrdersAsSkipped(t *testing.T) {
	store := newFakeExpirer()
	raced := store.add(sweepNow.Add(-30 * time.Hour))
	store.add(sweepNow.Add(-29 * time.Hour))
	store.confirmOnExpire[raced] = true

	job := newTestExpirationJob(t, store, nil, 10)
	result, err := job.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Expired)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, enums.OrderStatusConfirmed, store.status(raced))
}

func TestOrderExpirationSweepStopsOnCancellation(t *testing.T) {
	store := newFakeExpirer()
	store.add(sweepNow.Add(-30 * time.Hour))
	store.add(sweepNow.Add(-29 * time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := newTestExpirationJob(t, store, nil, 10)
	result, err := job.Sweep(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, result.Cancelled)
	assert.Equal(t, 0, result.Expired)
	assert.Empty(t, store.expireCalls)
}

func TestOrderExpirationSweepReportsListError(t *testing.T) {
	store := newFakeExpirer()
	store.listErr = errors.New("db down")

	job := newTestExpirationJob(t, store, nil, 10)
	_, err := job.Sweep(context.Background())
	require.Error(t, err)

	last, ok := job.LastResult()
	require.True(t, ok)
	assert.Equal(t, 0, last.Examined)
}

func TestOrderExpirationSweepRecordsMetricsAndLastResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewOrderExpirationMetrics(reg)
	store := newFakeExpirer()
	store.add(sweepNow.Add(-30 * time.Hour))
	store.add(sweepNow.Add(-26 * time.Hour))

	job := newTestExpirationJob(t, store, m, 10)
	_, ok := job.LastResult()
	assert.False(t, ok)

	require.NoError(t, job.Run(context.Background()))

	last, ok := job.LastResult()
	require.True(t, ok)
	assert.Equal(t, 2, last.Expired)
	assert.Equal(t, sweepNow, last.StartedAt)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			key := mf.GetName()
			for _, label := range metric.GetLabel() {
				key += "|" + label.GetValue()
			}
			values[key] = metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(2), values["rxexchange_order_expiration_orders_total|expired"])
	assert.Equal(t, float64(1), values["rxexchange_order_expiration_sweeps_total"])
}

func TestNewOrderExpirationJobValidatesParams(t *testing.T) {
	_, err := NewOrderExpirationJob(OrderExpirationJobParams{Orders: newFakeExpirer()})
	assert.Error(t, err)

	_, err = NewOrderExpirationJob(OrderExpirationJobParams{Logger: logger.New(logger.Options{ServiceName: "test"})})
	assert.Error(t, err)

	job, err := NewOrderExpirationJob(OrderExpirationJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Orders: newFakeExpirer(),
	})
	require.NoError(t, err)
	assert.Equal(t, defaultPendingTTL, job.ttl)
	assert.Equal(t, defaultExpirationBatchSize, job.batchSize)
	assert.Equal(t, "order-expiration", job.Name())
}

func newTestExpirationJob(t *testing.T, store *fakeExpirer, m *metrics.OrderExpirationMetrics, batch int) *OrderExpirationJob {
	t.Helper()
	job, err := NewOrderExpirationJob(OrderExpirationJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
		Orders:     store,
		Metrics:    m,
		PendingTTL: 24 * time.Hour,
		BatchSize:  batch,
		Reason:     "timed out",
	})
	require.NoError(t, err)
	job.now = func() time.Time { return sweepNow }
	return job
}

type fakeExpirer struct {
	mu              sync.Mutex
	orders          map[uuid.UUID]*models.Order
	failures        map[uuid.UUID]error
	confirmOnExpire map[uuid.UUID]bool
	expireCount     map[uuid.UUID]int
	expireCalls     []orders.ExpireInput
	listErr         error
	listCalls       int
}

func newFakeExpirer() *fakeExpirer {
	return &fakeExpirer{
		orders:          map[uuid.UUID]*models.Order{},
		failures:        map[uuid.UUID]error{},
		confirmOnExpire: map[uuid.UUID]bool{},
		expireCount:     map[uuid.UUID]int{},
	}
}

func (f *fakeExpirer) add(createdAt time.Time) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.orders[id] = &models.Order{
		ID:          id,
		OrderNumber: "RX-" + id.String()[:8],
		Status:      enums.OrderStatusPending,
		CreatedAt:   createdAt,
	}
	return id
}

func (f *fakeExpirer) status(id uuid.UUID) enums.OrderStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[id].Status
}

func (f *fakeExpirer) ListExpirable(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	rows := make([]models.Order, 0)
	for _, order := range f.orders {
		if order.Status == enums.OrderStatusPending && !order.CreatedAt.After(cutoff) {
			rows = append(rows, *order)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *fakeExpirer) Expire(ctx context.Context, input orders.ExpireInput) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expireCalls = append(f.expireCalls, input)
	f.expireCount[input.OrderID]++
	if err := f.failures[input.OrderID]; err != nil {
		return false, err
	}
	order := f.orders[input.OrderID]
	if f.confirmOnExpire[input.OrderID] {
		order.Status = enums.OrderStatusConfirmed
	}
	if order.Status != enums.OrderStatusPending || order.CreatedAt.After(input.Cutoff) {
		return false, nil
	}
	order.Status = enums.OrderStatusExpiredCancelled
	return true, nil
}
