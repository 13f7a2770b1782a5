package achievement

import (
	"context"
	"fmt"
	"sync"

	"github.com/sanskritiar/heritage/internal/catalog"
	"github.com/sanskritiar/heritage/internal/domain"
	"github.com/sanskritiar/heritage/internal/event"
	"github.com/sanskritiar/heritage/internal/rewards"
)

type Config struct {
	SessionID string
	EventBus  *event.Bus
	Ledger    *rewards.Ledger
	Catalog   []catalog.Achievement
}

// Tracker holds one visitor's progress against the fixed achievement catalog.
// Progress only moves forward; completion flips exactly once per achievement
// and credits the reward exactly once. An achievement that starts at its
// target is born completed and is never credited.
type Tracker struct {
	session string
	eb      *event.Bus
	ledger  *rewards.Ledger

	mu      sync.Mutex
	order   []string
	entries map[string]*domain.AchievementProgress
}

func NewTracker(c Config) *Tracker {
	t := &Tracker{
		session: c.SessionID,
		eb:      c.EventBus,
		ledger:  c.Ledger,
		entries: make(map[string]*domain.AchievementProgress, len(c.Catalog)),
	}

	for _, a := range c.Catalog {
		t.order = append(t.order, a.AchievementID)
		t.entries[a.AchievementID] = &domain.AchievementProgress{
			Achievement:   a.Achievement,
			ProgressCount: a.StartProgress,
			Completed:     a.StartProgress >= a.Target,
		}
	}

	return t
}

// RecordProgress advances the named achievement by delta, clamped to its
// target. Delta must be positive; an unknown id is a programming fault and
// panics.
func (t *Tracker) RecordProgress(ctx context.Context, id string, delta int) domain.AchievementProgress {
	t.mu.Lock()

	a, ok := t.entries[id]
	if !ok {
		t.mu.Unlock()
		panic(fmt.Sprintf("achievement: unknown id %q", id))
	}

	a.ProgressCount += delta
	if a.ProgressCount > a.Target {
		a.ProgressCount = a.Target
	}

	justCompleted := a.ProgressCount >= a.Target && !a.Completed
	if justCompleted {
		a.Completed = true
	}

	snapshot := *a
	t.mu.Unlock()

	if justCompleted {
		t.ledger.Credit(ctx, a.RewardCoins, "achievement:"+id)
		t.eb.Publish(ctx, domain.EventAchievementCompleted{
			SessionID:     t.session,
			AchievementID: id,
			RewardCoins:   a.RewardCoins,
		})
	}

	return snapshot
}

// Known reports whether id exists in the catalog. The API layer uses it to
// turn a bad client id into a 404 instead of tripping the contract panic.
func (t *Tracker) Known(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.entries[id]
	return ok
}

// Snapshot returns every achievement in catalog order.
func (t *Tracker) Snapshot() []domain.AchievementProgress {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]domain.AchievementProgress, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.entries[id])
	}
	return out
}

// Percent is the floored display percentage for a progress entry. It is
// computed for views, never stored.
func Percent(a domain.AchievementProgress) int {
	if a.Target <= 0 {
		return 0
	}
	return a.ProgressCount * 100 / a.Target
}
