package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreecahyadi/digital-bank-system/shared/apperr"
)

// MemoryStore is an in-memory Store used by tests and local development.
// All operations are guarded by a single mutex, which also gives Finalize
// its per-reference linearizability for free.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*Entry // keyed by reference
	byKey   map[string]string // idempotency key -> reference
	order   []string          // references in insertion order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*Entry),
		byKey:   make(map[string]string),
	}
}

func (m *MemoryStore) Create(_ context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[entry.Reference]; exists {
		return apperr.Newf(apperr.KindConflict, "ledger entry %s already exists", entry.Reference)
	}
	if entry.IdempotencyKey != "" {
		if _, exists := m.byKey[entry.IdempotencyKey]; exists {
			return apperr.New(apperr.KindConflict, "idempotency key already used")
		}
	}

	stored := *entry
	m.entries[entry.Reference] = &stored
	m.order = append(m.order, entry.Reference)
	if entry.IdempotencyKey != "" {
		m.byKey[entry.IdempotencyKey] = entry.Reference
	}
	return nil
}

func (m *MemoryStore) Finalize(_ context.Context, reference string, status Status, completedAt time.Time) error {
	if !status.Terminal() {
		return apperr.Newf(apperr.KindInvalidTransition, "%s is not a terminal status", status)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.entries[reference]
	if !exists {
		return apperr.Newf(apperr.KindNotFound, "ledger entry %s not found", reference)
	}
	if entry.Status.Terminal() {
		return apperr.Newf(apperr.KindInvalidTransition, "ledger entry %s is already %s", reference, entry.Status)
	}

	entry.Status = status
	at := completedAt
	entry.CompletedAt = &at
	return nil
}

func (m *MemoryStore) GetByReference(_ context.Context, reference string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.entries[reference]
	if !exists {
		return nil, apperr.Newf(apperr.KindNotFound, "ledger entry %s not found", reference)
	}
	copied := *entry
	return &copied, nil
}

func (m *MemoryStore) GetByIdempotencyKey(_ context.Context, key string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reference, exists := m.byKey[key]
	if !exists {
		return nil, apperr.New(apperr.KindNotFound, "no ledger entry for idempotency key")
	}
	copied := *m.entries[reference]
	return &copied, nil
}

func (m *MemoryStore) ListByParticipant(_ context.Context, userID string, status Status) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Entry
	for _, ref := range m.order {
		e := m.entries[ref]
		if e.SenderID != userID && e.ReceiverID != userID {
			continue
		}
		if status != "" && e.Status != status {
			continue
		}
		result = append(result, *e)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MemoryStore) Summarize(_ context.Context, userID string, since time.Time) (*Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	summary := &Summary{
		TotalSent:     decimal.Zero,
		TotalReceived: decimal.Zero,
		Net:           decimal.Zero,
	}
	for _, e := range m.entries {
		if e.Status != StatusCompleted || e.CreatedAt.Before(since) {
			continue
		}
		switch userID {
		case e.SenderID:
			summary.TotalSent = summary.TotalSent.Add(e.Amount)
		case e.ReceiverID:
			summary.TotalReceived = summary.TotalReceived.Add(e.Amount)
		default:
			continue
		}
		summary.Count++
	}
	summary.Net = summary.TotalReceived.Sub(summary.TotalSent)
	return summary, nil
}

func (m *MemoryStore) TopCounterparties(_ context.Context, userID string, limit int) ([]Counterparty, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byReceiver := make(map[string]*Counterparty)
	for _, e := range m.entries {
		if e.Status != StatusCompleted || e.SenderID != userID {
			continue
		}
		cp, ok := byReceiver[e.ReceiverID]
		if !ok {
			cp = &Counterparty{CounterpartyID: e.ReceiverID, TotalAmount: decimal.Zero}
			byReceiver[e.ReceiverID] = cp
		}
		cp.Count++
		cp.TotalAmount = cp.TotalAmount.Add(e.Amount)
	}

	result := make([]Counterparty, 0, len(byReceiver))
	for _, cp := range byReceiver {
		result = append(result, *cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].CounterpartyID < result[j].CounterpartyID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MemoryStore) DailyVolume(_ context.Context, since time.Time) ([]DayVolume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byDay := make(map[string]*DayVolume)
	for _, e := range m.entries {
		if e.Status != StatusCompleted || e.CreatedAt.Before(since) {
			continue
		}
		day := e.CreatedAt.UTC().Format("2006-01-02")
		dv, ok := byDay[day]
		if !ok {
			dv = &DayVolume{Date: day, TotalVolume: decimal.Zero}
			byDay[day] = dv
		}
		dv.Count++
		dv.TotalVolume = dv.TotalVolume.Add(e.Amount)
	}

	result := make([]DayVolume, 0, len(byDay))
	for _, dv := range byDay {
		result = append(result, *dv)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date > result[j].Date
	})
	return result, nil
}

func (m *MemoryStore) LargeTransfers(_ context.Context, minAmount decimal.Decimal, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Entry
	for _, e := range m.entries {
		if e.Status != StatusCompleted || e.Amount.LessThan(minAmount) {
			continue
		}
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Amount.GreaterThan(result[j].Amount)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Compile-time check: MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
