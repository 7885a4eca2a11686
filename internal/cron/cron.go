package cron

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/agendou/agenda-backend/internal/service"
)

// Scheduler handles scheduled background tasks
type Scheduler struct {
	cron      *cron.Cron
	services  *service.Services
	orphanTTL time.Duration
}

// NewScheduler creates a new scheduler
func NewScheduler(services *service.Services, orphanTTL time.Duration) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		services:  services,
		orphanTTL: orphanTTL,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	// Every 15 minutes, reclaim staff identities whose provisioning never
	// completed.
	s.cron.AddFunc("*/15 * * * *", func() {
		log.Println("[Cron] Running orphaned identity sweep...")
		s.sweepOrphanedIdentities()
	})

	s.cron.Start()
	log.Println("[Cron] ✅ Scheduler started")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[Cron] Scheduler stopped")
}

func (s *Scheduler) sweepOrphanedIdentities() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := s.services.Staff.SweepOrphanedIdentities(ctx, s.orphanTTL)
	if err != nil {
		log.Printf("[Cron] ❌ Orphan sweep failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("[Cron] 🧹 Removed %d orphaned identities", removed)
	}
}
