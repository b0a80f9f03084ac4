package usage

import (
	"sync"
	"time"

	"github.com/BaSui01/agentflow/gatewaytypes"
	"go.uber.org/zap"
)

// clock is indirected so tests can inject deterministic time, mirroring the
// teacher's approach in llm/budget/token_budget.go of deriving window
// boundaries from time.Now() at each call site.
type clock func() time.Time

// Manager owns the nine limiters per provider (only those actually
// configured — absent limits means no limiter, and therefore never
// refused). Only provider-wide Limits are enforced; per-model Limits are
// carried on gatewaytypes.Model but deliberately NOT consulted here (see
// SPEC_FULL.md §9 Open Questions — the source mixes provider- and
// model-scoped limits inconsistently, so this implementation does not
// guess at per-model enforcement semantics).
type Manager struct {
	mu       sync.RWMutex
	limiters map[string]*limiter // key: providerID + "\x00" + LimitType
	logger   *zap.Logger
	now      clock
}

// NewManager creates an empty Manager. Call LoadProviders once at startup
// (or Reconcile on reload) to populate limiters.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		limiters: make(map[string]*limiter),
		logger:   logger,
		now:      time.Now,
	}
}

func limiterKey(providerID string, t LimitType) string {
	return providerID + "\x00" + string(rune('a'+int(t)))
}

// LoadProviders builds one limiter per configured dimension for each
// provider. Call this once before serving traffic; subsequent reloads go
// through Reconcile instead so unchanged limiters are not reset.
func (m *Manager) LoadProviders(providers []gatewaytypes.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters = make(map[string]*limiter)
	now := m.now()
	for _, p := range providers {
		m.addProviderLocked(p, now)
	}
}

func (m *Manager) addProviderLocked(p gatewaytypes.Provider, now time.Time) {
	if p.Limits == nil || p.Limits.IsZero() {
		return
	}
	for t, points := range limitPoints(*p.Limits) {
		if points <= 0 {
			continue
		}
		m.limiters[limiterKey(p.ID, t)] = newLimiter(points, t.windowDuration(), now)
	}
}

// limitPoints converts a Limits record's positive fields into per-dimension
// integer capacities, converting USD cost fields into points.
func limitPoints(l gatewaytypes.Limits) map[LimitType]int64 {
	toPoints := func(usd float64) int64 {
		return int64(usd*pointsPerUSD + 0.5)
	}
	return map[LimitType]int64{
		RequestsPerMinute: int64(l.RequestsPerMinute),
		RequestsPerHour:   int64(l.RequestsPerHour),
		RequestsPerDay:    int64(l.RequestsPerDay),
		TokensPerMinute:   int64(l.TokensPerMinute),
		TokensPerHour:     int64(l.TokensPerHour),
		TokensPerDay:      int64(l.TokensPerDay),
		CostPerMinute:     toPoints(l.CostPerMinute),
		CostPerHour:       toPoints(l.CostPerHour),
		CostPerDay:        toPoints(l.CostPerDay),
	}
}

// Reconcile rebuilds the limiter set for a new provider snapshot: limiters
// for vanished providers are discarded, limiters for new providers are
// created, and limiters whose (points, duration) are unchanged are
// preserved in place so counters are not reset by an unrelated reload.
func (m *Manager) Reconcile(providers []gatewaytypes.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	wanted := make(map[string]int64) // key -> points, for identity comparison
	byKey := make(map[string]LimitType)
	for _, p := range providers {
		if p.Limits == nil || p.Limits.IsZero() {
			continue
		}
		for t, points := range limitPoints(*p.Limits) {
			if points <= 0 {
				continue
			}
			k := limiterKey(p.ID, t)
			wanted[k] = points
			byKey[k] = t
		}
	}

	next := make(map[string]*limiter, len(wanted))
	for k, points := range wanted {
		t := byKey[k]
		duration := t.windowDuration()
		if existing, ok := m.limiters[k]; ok {
			if exPoints, exDuration := existing.identity(); exPoints == points && exDuration == duration {
				next[k] = existing
				continue
			}
		}
		next[k] = newLimiter(points, duration, now)
	}

	discarded := len(m.limiters) - len(next)
	m.limiters = next
	if discarded > 0 {
		m.logger.Info("usage manager: reconciled limiters", zap.Int("kept_or_new", len(next)))
	}
}

// IsUnderLimit peeks whether the provider has remaining request- and
// token-based capacity. Cost-based limiters are never consulted here:
// per-call cost is unknown until the response arrives, so they are
// enforced only in Consume (post-hoc throttling), per the core spec.
func (m *Manager) IsUnderLimit(providerID, modelName string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.now()
	for _, t := range []LimitType{
		RequestsPerMinute, RequestsPerHour, RequestsPerDay,
		TokensPerMinute, TokensPerHour, TokensPerDay,
	} {
		if l, ok := m.limiters[limiterKey(providerID, t)]; ok {
			if !l.underLimit(now) {
				return false
			}
		}
	}
	return true
}

// Consume atomically increments all nine counters by the appropriate
// amounts for one completed call: 1 for request-based counters,
// promptTokens+completionTokens for token-based counters, and
// round(costUSD*10000) for cost-based counters. Overshoot is persisted and
// logged, never refused — the call already happened upstream.
func (m *Manager) Consume(providerID, modelName string, promptTokens, completionTokens int, costUSD float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.now()
	totalTokens := int64(promptTokens + completionTokens)
	costPoints := int64(costUSD*pointsPerUSD + 0.5)

	amounts := map[LimitType]int64{
		RequestsPerMinute: 1, RequestsPerHour: 1, RequestsPerDay: 1,
		TokensPerMinute: totalTokens, TokensPerHour: totalTokens, TokensPerDay: totalTokens,
		CostPerMinute: costPoints, CostPerHour: costPoints, CostPerDay: costPoints,
	}
	for t, n := range amounts {
		if l, ok := m.limiters[limiterKey(providerID, t)]; ok {
			if over := l.consume(n, now); over {
				m.logger.Warn("usage manager: limiter exceeded capacity",
					zap.String("provider_id", providerID),
					zap.Int("limit_type", int(t)),
				)
			}
		}
	}
}

// Snapshot returns a read-only view of every configured limiter, keyed by
// providerID, for the observability surface.
func (m *Manager) Snapshot() map[string]map[LimitType]LimiterSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.now()
	out := make(map[string]map[LimitType]LimiterSnapshot)
	for k, l := range m.limiters {
		providerID, t := splitKey(k)
		if out[providerID] == nil {
			out[providerID] = make(map[LimitType]LimiterSnapshot)
		}
		out[providerID][t] = l.snapshot(now)
	}
	return out
}

func splitKey(k string) (providerID string, t LimitType) {
	for i := len(k) - 1; i >= 0; i-- {
		if k[i] == 0 {
			providerID = k[:i]
			t = LimitType(k[i+1] - 'a')
			return
		}
	}
	return k, 0
}
