/*
scheduler.go - Stale booking reminder

PURPOSE:
  Pending table requests are money waiting on an admin's decision; one
  forgotten in the queue is a table that goes unconfirmed. A background
  goroutine periodically scans the pending queue and logs a warning for
  every request older than the configured age, so the back office sees
  stale items in the operational logs.

CONFIGURATION:
  - CheckInterval: How often to scan (default: 1 hour)
  - MaxAge:        Pending age before a request counts as stale (default: 24h)
  - Enabled:       Whether the reminder runs (default: true)

USAGE:
  reminder := NewStaleBookingReminder(store, log)
  reminder.Start()
  // ... on shutdown
  reminder.Stop()

SEE ALSO:
  - booking/workflow.go: The approve/reject decisions this nags about
  - cmd/server/main.go: Startup wiring
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clubhaus/commission-engine/hierarchy"
)

// StaleBookingReminder periodically flags pending bookings nobody decided on.
type StaleBookingReminder struct {
	Store         hierarchy.Store
	Log           logrus.FieldLogger
	CheckInterval time.Duration
	MaxAge        time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewStaleBookingReminder creates a reminder with default settings.
func NewStaleBookingReminder(store hierarchy.Store, log logrus.FieldLogger) *StaleBookingReminder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &StaleBookingReminder{
		Store:         store,
		Log:           log,
		CheckInterval: 1 * time.Hour,
		MaxAge:        24 * time.Hour,
		Enabled:       true,
		stop:          make(chan struct{}),
	}
}

// Start launches the background scan loop.
func (sr *StaleBookingReminder) Start() {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if !sr.Enabled {
		sr.Log.Info("stale booking reminder disabled")
		return
	}

	sr.ticker = time.NewTicker(sr.CheckInterval)
	sr.wg.Add(1)
	go sr.run()

	sr.Log.WithField("interval", sr.CheckInterval).Info("stale booking reminder started")
}

// Stop halts the loop and waits for an in-flight scan to finish.
func (sr *StaleBookingReminder) Stop() {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if sr.ticker != nil {
		sr.ticker.Stop()
		close(sr.stop)
		sr.wg.Wait()
		sr.Log.Info("stale booking reminder stopped")
	}
}

func (sr *StaleBookingReminder) run() {
	defer sr.wg.Done()

	// Scan once immediately on start.
	sr.Scan(context.Background())

	for {
		select {
		case <-sr.ticker.C:
			sr.Scan(context.Background())
		case <-sr.stop:
			return
		}
	}
}

// Scan flags pending bookings older than MaxAge and returns how many it found.
func (sr *StaleBookingReminder) Scan(ctx context.Context) int {
	pending, err := sr.Store.ListPendingBookings(ctx)
	if err != nil {
		sr.Log.WithError(err).Error("stale booking scan failed")
		return 0
	}

	cutoff := time.Now().Add(-sr.MaxAge)
	stale := 0
	for _, b := range pending {
		if b.CreatedAt.After(cutoff) {
			continue
		}
		stale++
		sr.Log.WithFields(logrus.Fields{
			"booking":  b.ID,
			"promoter": b.PromoterID,
			"date":     b.Date.Format("2006-01-02"),
			"age":      time.Since(b.CreatedAt).Round(time.Minute).String(),
		}).Warn("pending booking awaiting decision")
	}
	return stale
}
