package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hooklinehq/hookline/internal/domain"
)

// Sweeper periodically claims due retries and re-runs them through the
// coordinator. Claims use FOR UPDATE SKIP LOCKED, so multiple instances can
// sweep the same database without duplicating attempts.
type Sweeper struct {
	coordinator *Coordinator
	store       DeliveryStore
	subs        SubscriptionStore
	logger      *slog.Logger

	interval    time.Duration
	batchSize   int
	concurrency int
	stopCh      chan struct{}
}

func NewSweeper(coordinator *Coordinator, store DeliveryStore, subs SubscriptionStore, logger *slog.Logger, interval time.Duration, batchSize, concurrency int) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize < 1 {
		batchSize = 50
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Sweeper{
		coordinator: coordinator,
		store:       store,
		subs:        subs,
		logger:      logger,
		interval:    interval,
		batchSize:   batchSize,
		concurrency: concurrency,
		stopCh:      make(chan struct{}),
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("retry sweeper started", "interval", s.interval, "batch_size", s.batchSize)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retry sweeper stopped")
			return
		case <-s.stopCh:
			s.logger.Info("retry sweeper stopped")
			return
		case <-ticker.C:
			if err := s.RunDue(ctx); err != nil {
				s.logger.Error("retry sweep failed", "error", err)
			}
		}
	}
}

func (s *Sweeper) Stop() {
	close(s.stopCh)
}

// RunDue claims one batch of due deliveries and attempts each, fanning out
// across a bounded number of goroutines. It returns after the whole batch
// settles.
func (s *Sweeper) RunDue(ctx context.Context) error {
	claimed, err := s.store.ClaimDue(ctx, time.Now().UTC(), s.batchSize)
	if err != nil {
		return fmt.Errorf("claim due deliveries: %w", err)
	}

	if len(claimed) == 0 {
		return nil
	}

	s.logger.Info("sweeping due deliveries", "count", len(claimed))

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for i := range claimed {
		d := claimed[i]

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			s.attempt(ctx, &d)
		}()
	}
	wg.Wait()

	return nil
}

func (s *Sweeper) attempt(ctx context.Context, d *domain.Delivery) {
	sub, err := s.subs.GetByID(ctx, d.TenantID, d.SubscriptionID)
	if err != nil {
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			s.coordinator.settleFailed(ctx, d, "subscription deleted")
			return
		}
		s.logger.Error("load subscription for retry", "delivery_id", d.ID, "error", err)
		return
	}

	s.coordinator.Attempt(ctx, d, sub)
}
