package expiry

import (
	"context"
	"log"
	"time"

	"gympulse-backend/config"
	"gympulse-backend/internal/metrics"
	"gympulse-backend/internal/model"
	"gympulse-backend/internal/store"
)

// Sink receives advisory notifications. Delivery is fire-and-forget: the
// monitor never learns whether a message arrived.
type Sink interface {
	Warn(principalID, title, body string)
}

// AlertTitle is the heading of every expiry advisory.
const AlertTitle = "Subscription Alert"

// Monitor periodically classifies every principal's visitor collection by
// expiry urgency, reconciles stale active rows, and fires rate-limited
// advisories through the sink.
type Monitor struct {
	store      store.Store
	sink       Sink
	gate       *Gate
	now        Clock
	interval   time.Duration
	windowDays int
	reconcile  bool
	poke       chan struct{}
}

// NewMonitor creates a monitor from the application configuration.
func NewMonitor(cfg *config.MonitorConfig, s store.Store, sink Sink, gate *Gate, now Clock) *Monitor {
	return &Monitor{
		store:      s,
		sink:       sink,
		gate:       gate,
		now:        now,
		interval:   cfg.Interval,
		windowDays: cfg.ExpiringDays,
		reconcile:  cfg.ReconcileExpired != nil && *cfg.ReconcileExpired,
		poke:       make(chan struct{}, 1),
	}
}

// WindowDays returns the inclusive alerting window in days.
func (m *Monitor) WindowDays() int {
	return m.windowDays
}

// Gate exposes the suppression gate for the dismiss/refresh endpoints.
func (m *Monitor) Gate() *Gate {
	return m.gate
}

// Poke requests an out-of-band evaluation, used after visitor mutations.
// Non-blocking; coalesces with a pending request.
func (m *Monitor) Poke() {
	select {
	case m.poke <- struct{}{}:
	default:
	}
}

// Run evaluates once immediately, then on every timer tick and every poke,
// until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	log.Println("Starting expiry monitor...")

	m.EvaluateAll(ctx)

	timer := time.NewTimer(m.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Expiry monitor shutting down.")
			return
		case <-timer.C:
			m.EvaluateAll(ctx)
			timer.Reset(m.interval)
		case <-m.poke:
			m.EvaluateAll(ctx)
		}
	}
}

// EvaluateAll runs one evaluation cycle over every known principal.
func (m *Monitor) EvaluateAll(ctx context.Context) {
	userIDs, err := m.store.ListUserIDs(ctx)
	if err != nil {
		log.Printf("Error listing principals for expiry evaluation: %v", err)
		return
	}

	for _, userID := range userIDs {
		m.EvaluateUser(ctx, userID)
	}
}

// EvaluateUser classifies one principal's collection, kicks off best-effort
// reconciliation of lapsed rows, and fires at most one advisory. Returns the
// expiring projection computed from the snapshot.
func (m *Monitor) EvaluateUser(ctx context.Context, userID string) []ExpiringVisitor {
	visitors, err := m.store.ListVisitors(ctx, userID)
	if err != nil {
		// A failed fetch yields a stale or empty view, never an error to
		// the caller.
		log.Printf("Error listing visitors for %s: %v", userID, err)
		return nil
	}

	today := m.now()

	if m.reconcile {
		for _, lapsed := range Lapsed(visitors, today) {
			m.markExpired(ctx, lapsed)
		}
	}

	expiring := ComputeExpiring(visitors, today, m.windowDays)
	metrics.SetExpiringVisitors(userID, len(expiring))

	if len(expiring) == 0 {
		return expiring
	}

	if !m.gate.ShouldNotify(userID) {
		metrics.RecordAlertSuppressed()
		return expiring
	}

	message, ok := SummaryMessage(expiring)
	if !ok {
		return expiring
	}

	m.sink.Warn(userID, AlertTitle, message)
	m.gate.MarkNotified(userID)
	metrics.RecordAlertFired()
	log.Printf("Expiry alert fired for %s: %s", userID, message)

	return expiring
}

// markExpired writes status=expired for a lapsed visitor in the background.
// Best-effort: failures are logged, never retried, and never block the
// evaluation that found the row. The write is detached from the caller's
// context so a finished HTTP request cannot abort it mid-flight.
func (m *Monitor) markExpired(ctx context.Context, v model.Visitor) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := m.store.MarkExpired(ctx, v.UserID, v.ID); err != nil {
			metrics.RecordReconciliation("error")
			log.Printf("Error marking visitor %s expired: %v", v.ID, err)
			return
		}
		metrics.RecordReconciliation("success")
	}()
}
