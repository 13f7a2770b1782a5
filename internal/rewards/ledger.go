package rewards

import (
	"context"
	"sort"
	"sync"

	"github.com/sanskritiar/heritage/internal/domain"
	"github.com/sanskritiar/heritage/internal/errors"
	"github.com/sanskritiar/heritage/internal/event"
)

type Config struct {
	SessionID       string
	EventBus        *event.Bus
	StartingBalance int
	InitialOwned    []string
}

// Ledger tracks one visitor's Culture Coin balance and unlocked souvenirs.
// The balance never goes negative and an unlocked souvenir is never removed.
type Ledger struct {
	session string
	eb      *event.Bus

	mu      sync.Mutex
	balance int
	owned   map[string]struct{}
}

func NewLedger(c Config) *Ledger {
	l := &Ledger{
		session: c.SessionID,
		eb:      c.EventBus,
		balance: c.StartingBalance,
		owned:   make(map[string]struct{}, len(c.InitialOwned)),
	}

	for _, item := range c.InitialOwned {
		l.owned[item] = struct{}{}
	}

	return l
}

// Credit adds amount coins to the balance and returns the new balance.
// Amount must be positive; callers own that contract.
func (l *Ledger) Credit(ctx context.Context, amount int, reason string) int {
	l.mu.Lock()
	l.balance += amount
	balance := l.balance
	l.mu.Unlock()

	l.eb.Publish(ctx, domain.EventCoinsCredited{
		SessionID: l.session,
		Amount:    amount,
		Balance:   balance,
		Reason:    reason,
	})

	return balance
}

// Purchase deducts cost and unlocks item. Buying an already-owned item is a
// no-op success; the shop disables the button once owned, so that path only
// guards against racing or replayed requests. An unaffordable purchase leaves
// the ledger untouched.
func (l *Ledger) Purchase(ctx context.Context, item string, cost int) error {
	l.mu.Lock()

	if _, ok := l.owned[item]; ok {
		l.mu.Unlock()
		return nil
	}

	if l.balance < cost {
		balance := l.balance
		l.mu.Unlock()
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("insufficient Culture Coins: have %d, need %d", balance, cost))
	}

	l.balance -= cost
	l.owned[item] = struct{}{}
	balance := l.balance
	l.mu.Unlock()

	l.eb.Publish(ctx, domain.EventSouvenirPurchased{
		SessionID: l.session,
		ItemID:    item,
		Cost:      cost,
		Balance:   balance,
	})

	return nil
}

func (l *Ledger) Balance() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balance
}

func (l *Ledger) Owns(item string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.owned[item]
	return ok
}

// Snapshot returns the balance and the owned items in a stable order.
func (l *Ledger) Snapshot() (int, []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	owned := make([]string, 0, len(l.owned))
	for item := range l.owned {
		owned = append(owned, item)
	}
	sort.Strings(owned)

	return l.balance, owned
}
