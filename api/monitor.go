/*
monitor.go - Late-charge monitor

PURPOSE:
  Periodically re-classifies open charges and flips the ones that crossed
  past their grace window to the late status, notifying the configured
  sink. The stored status is bookkeeping for views and alerting - the
  derived classification never reads it.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Classifies every unsettled charge as of today
  - MarkLate is a no-op for charges already late or settled, so repeated
    sweeps are harmless
  - Notifies once per sweep per newly late charge

USAGE:
  monitor := NewLateChargeMonitor(handler, log)
  monitor.Start()
  // ... later
  monitor.Stop()

SEE ALSO:
  - billing/lateness.go: The classification the sweep applies
  - billing/ledger.go: MarkLate
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/edificio/billing-engine/billing"
)

// Notifier receives late-charge events. Email/SMS delivery is out of
// scope; the default implementation logs.
type Notifier interface {
	NotifyLate(ctx context.Context, charge billing.Charge, classification billing.Classification)
}

// LogNotifier writes late-charge events to the structured log.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) NotifyLate(_ context.Context, charge billing.Charge, classification billing.Classification) {
	n.Log.Warn().
		Str("charge", string(charge.ID)).
		Str("apartment", string(charge.ApartmentID)).
		Str("bill_type", string(charge.BillType)).
		Str("period", charge.Period.String()).
		Str("classification", string(classification)).
		Msg("charge past grace window")
}

// LateChargeMonitor sweeps open charges on an interval.
type LateChargeMonitor struct {
	Handler       *Handler
	Notifier      Notifier
	CheckInterval time.Duration
	Log           zerolog.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewLateChargeMonitor creates a monitor with a log-backed notifier.
func NewLateChargeMonitor(handler *Handler, log zerolog.Logger) *LateChargeMonitor {
	return &LateChargeMonitor{
		Handler:       handler,
		Notifier:      LogNotifier{Log: log},
		CheckInterval: time.Hour,
		Log:           log,
		stop:          make(chan struct{}),
	}
}

// Start begins the sweep loop.
func (m *LateChargeMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ticker = time.NewTicker(m.CheckInterval)
	m.wg.Add(1)
	go m.run()

	m.Log.Info().Dur("interval", m.CheckInterval).Msg("late-charge monitor started")
}

// Stop halts the sweep loop and waits for an in-flight sweep. Safe to call
// more than once; only the first call stops anything.
func (m *LateChargeMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ticker == nil {
		return
	}
	m.ticker.Stop()
	m.ticker = nil
	close(m.stop)
	m.wg.Wait()
	m.Log.Info().Msg("late-charge monitor stopped")
}

func (m *LateChargeMonitor) run() {
	defer m.wg.Done()

	// Sweep immediately on start
	m.Sweep(context.Background())

	for {
		select {
		case <-m.ticker.C:
			m.Sweep(context.Background())
		case <-m.stop:
			return
		}
	}
}

// Sweep classifies every open charge as of today and flips newly late
// ones. Exposed for tests and manual admin runs.
func (m *LateChargeMonitor) Sweep(ctx context.Context) {
	today := billing.Today()

	charges, err := m.Handler.Store.ListCharges(ctx)
	if err != nil {
		m.Log.Error().Err(err).Msg("late sweep: listing charges failed")
		return
	}

	flipped := 0
	for _, c := range charges {
		if c.Settled() || c.Status == billing.ChargeLate {
			continue
		}

		classification, err := m.Handler.Detector.ClassifyLoaded(ctx, c, today)
		if err != nil {
			m.Log.Error().Err(err).Str("charge", string(c.ID)).Msg("late sweep: classification failed")
			continue
		}
		if !classification.Delinquent() {
			continue
		}

		if err := m.Handler.Ledger.MarkLate(ctx, c.ID); err != nil {
			m.Log.Error().Err(err).Str("charge", string(c.ID)).Msg("late sweep: mark late failed")
			continue
		}
		m.Notifier.NotifyLate(ctx, c, classification)
		flipped++
	}

	if flipped > 0 {
		m.Log.Info().Int("flipped", flipped).Msg("late sweep completed")
	}
}
