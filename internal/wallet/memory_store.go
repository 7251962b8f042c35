package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/idgen"
)

// MemoryStore is an in-memory wallet store for demo/development.
type MemoryStore struct {
	mu       sync.Mutex
	balances map[string]*Balance
	txs      map[string][]*Transaction // by player, append order
	idemKeys map[string]*Transaction   // playerID+"\x00"+key → tx
	currency string
}

// NewMemoryStore creates a new in-memory wallet store.
func NewMemoryStore(currency string) *MemoryStore {
	if currency == "" {
		currency = "USD"
	}
	return &MemoryStore{
		balances: make(map[string]*Balance),
		txs:      make(map[string][]*Transaction),
		idemKeys: make(map[string]*Transaction),
		currency: currency,
	}
}

func (s *MemoryStore) balanceLocked(playerID string) *Balance {
	b, ok := s.balances[playerID]
	if !ok {
		b = &Balance{PlayerID: playerID, Currency: s.currency, UpdatedAt: time.Now().UTC()}
		s.balances[playerID] = b
	}
	return b
}

func (s *MemoryStore) GetBalance(_ context.Context, playerID string) (*Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.balanceLocked(playerID)
	return &cp, nil
}

func (s *MemoryStore) Apply(_ context.Context, m Mutation) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.balanceLocked(m.PlayerID)

	newAvailable := b.AvailableCents + m.AvailableDelta
	newHeld := b.HeldCents + m.HeldDelta
	newBonus := b.BonusCents + m.BonusDelta
	if newAvailable < 0 {
		return nil, ErrInsufficientFunds
	}
	if newHeld < 0 {
		return nil, ErrInsufficientHold
	}
	if newBonus < 0 {
		return nil, ErrInsufficientFunds
	}

	b.AvailableCents = newAvailable
	b.HeldCents = newHeld
	b.BonusCents = newBonus
	b.UpdatedAt = time.Now().UTC()

	tx := &Transaction{
		ID:             idgen.WithPrefix(idgen.PrefixTx),
		PlayerID:       m.PlayerID,
		Type:           m.Type,
		AmountCents:    m.AmountCents,
		AvailableAfter: newAvailable,
		HeldAfter:      newHeld,
		Reference:      m.Reference,
		IdempotencyKey: m.IdempotencyKey,
		CreatedAt:      time.Now().UTC(),
	}
	s.txs[m.PlayerID] = append(s.txs[m.PlayerID], tx)
	if m.IdempotencyKey != "" {
		s.idemKeys[m.PlayerID+"\x00"+m.IdempotencyKey] = tx
	}

	cp := *tx
	return &cp, nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, playerID string, limit int, before *time.Time) ([]*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Transaction
	list := s.txs[playerID]
	for i := len(list) - 1; i >= 0; i-- {
		tx := list[i]
		if before != nil && !tx.CreatedAt.Before(*before) {
			continue
		}
		cp := *tx
		out = append(out, &cp)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) GetByIdempotencyKey(_ context.Context, playerID, key string) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.idemKeys[playerID+"\x00"+key]
	if !ok {
		return nil, ErrTxNotFound
	}
	cp := *tx
	return &cp, nil
}

func (s *MemoryStore) SumSince(_ context.Context, playerID, txType string, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, tx := range s.txs[playerID] {
		if tx.Type == txType && !tx.CreatedAt.Before(since) {
			total += tx.AmountCents
		}
	}
	return total, nil
}

func (s *MemoryStore) AggregateSince(_ context.Context, since time.Time) (*Aggregates, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg := &Aggregates{}
	active := make(map[string]bool)
	for playerID, list := range s.txs {
		for _, tx := range list {
			if tx.CreatedAt.Before(since) {
				continue
			}
			active[playerID] = true
			switch tx.Type {
			case TxDeposit:
				agg.DepositCents += tx.AmountCents
			case TxPayout:
				agg.PayoutCents += tx.AmountCents
			case TxAdminCredit:
				agg.CreditCents += tx.AmountCents
			case TxAdminDebit:
				agg.DebitCents += tx.AmountCents
			case TxBonus:
				agg.BonusCents += tx.AmountCents
			}
		}
	}
	for _, b := range s.balances {
		agg.HeldNowCents += b.HeldCents
	}
	agg.ActivePlayers = len(active)
	return agg, nil
}

var _ Store = (*MemoryStore)(nil)
