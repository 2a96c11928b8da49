package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sokocart/sokocart-backend/internal/app/repository"
	"github.com/sokocart/sokocart-backend/pkg/logger"
)

// CartExpiryScheduler deactivates carts whose expiry has passed.
type CartExpiryScheduler struct {
	cron     *cron.Cron
	cartRepo repository.CartRepository
	schedule string
}

// NewCartExpiryScheduler creates the cart expiry scheduler
func NewCartExpiryScheduler(cartRepo repository.CartRepository, schedule string) *CartExpiryScheduler {
	return &CartExpiryScheduler{
		cron:     cron.New(),
		cartRepo: cartRepo,
		schedule: schedule,
	}
}

// Start registers the sweep job and starts the scheduler
func (s *CartExpiryScheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.sweep)
	if err != nil {
		logger.Error("Failed to add cron job for cart expiry sweep", err)
		return err
	}

	s.cron.Start()
	logger.Info("Cart expiry scheduler started", map[string]interface{}{
		"schedule": s.schedule,
	})

	return nil
}

// Stop stops the scheduler
func (s *CartExpiryScheduler) Stop() {
	logger.Info("Stopping cart expiry scheduler...", nil)
	s.cron.Stop()
	logger.Info("Cart expiry scheduler stopped", nil)
}

func (s *CartExpiryScheduler) sweep() {
	logger.Info("Starting scheduled cart expiry sweep", nil)

	count, err := s.cartRepo.DeactivateExpired(time.Now())
	if err != nil {
		logger.Error("Failed to deactivate expired carts", err)
		return
	}

	logger.Info("Cart expiry sweep completed", map[string]interface{}{
		"deactivated": count,
	})
}
