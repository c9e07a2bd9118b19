package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreecahyadi/digital-bank-system/shared/apperr"
	"github.com/andreecahyadi/digital-bank-system/shared/cqrs"
	"github.com/andreecahyadi/digital-bank-system/shared/events"
	"github.com/andreecahyadi/digital-bank-system/transfer-service/internal/ledger"
)

// ---- fake collaborators ----

type fakeIdentity struct {
	users     map[string]bool
	pinValid  bool
	existsErr error
	verifyErr error
}

func (f *fakeIdentity) Exists(_ context.Context, userID string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.users[userID], nil
}

func (f *fakeIdentity) VerifyPIN(_ context.Context, _, _ string) (bool, error) {
	if f.verifyErr != nil {
		return false, f.verifyErr
	}
	return f.pinValid, nil
}

// fakeWallet mirrors the wallet service's contract: the debit is an atomic
// check-and-subtract, so concurrent transfers can never jointly overdraw.
type fakeWallet struct {
	mu           sync.Mutex
	balances     map[string]decimal.Decimal
	creditErr    map[string]error
	afterBalance func()
	debits       int
	credits      int
}

func newFakeWallet(balances map[string]decimal.Decimal) *fakeWallet {
	return &fakeWallet{balances: balances, creditErr: map[string]error{}}
}

func (f *fakeWallet) Balance(_ context.Context, userID string) (decimal.Decimal, error) {
	f.mu.Lock()
	balance, ok := f.balances[userID]
	f.mu.Unlock()
	if !ok {
		return decimal.Zero, apperr.New(apperr.KindNotFound, "wallet not found")
	}
	if f.afterBalance != nil {
		f.afterBalance()
	}
	return balance, nil
}

func (f *fakeWallet) Debit(_ context.Context, userID string, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	balance, ok := f.balances[userID]
	if !ok {
		return apperr.New(apperr.KindNotFound, "wallet not found")
	}
	if balance.LessThan(amount) {
		return apperr.New(apperr.KindInsufficientFunds, "insufficient funds")
	}
	f.balances[userID] = balance.Sub(amount)
	f.debits++
	return nil
}

func (f *fakeWallet) Credit(_ context.Context, userID string, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.creditErr[userID]; err != nil {
		return err
	}
	balance, ok := f.balances[userID]
	if !ok {
		return apperr.New(apperr.KindNotFound, "wallet not found")
	}
	f.balances[userID] = balance.Add(amount)
	f.credits++
	return nil
}

func (f *fakeWallet) balanceOf(userID string) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[userID]
}

type seqRefs struct {
	mu sync.Mutex
	n  int
}

func (s *seqRefs) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("TXN%08d", s.n)
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.TransferFinalizedEvent
}

func (p *capturePublisher) Publish(_ context.Context, _, _ string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if evt, ok := data.(events.TransferFinalizedEvent); ok {
		p.events = append(p.events, evt)
	}
	return nil
}

// ---- helpers ----

type fixture struct {
	svc       *Service
	store     *ledger.MemoryStore
	identity  *fakeIdentity
	wallet    *fakeWallet
	publisher *capturePublisher
}

func newFixture(balances map[string]decimal.Decimal) *fixture {
	store := ledger.NewMemoryStore()
	identity := &fakeIdentity{
		users:    map[string]bool{"usr-alice": true, "usr-bob": true},
		pinValid: true,
	}
	wallet := newFakeWallet(balances)
	publisher := &capturePublisher{}
	svc := NewService(store, identity, wallet, &seqRefs{}, publisher)
	return &fixture{svc: svc, store: store, identity: identity, wallet: wallet, publisher: publisher}
}

func transferCmd(amount string) cqrs.TransferFundsCommand {
	return cqrs.TransferFundsCommand{
		SenderID:   "usr-alice",
		ReceiverID: "usr-bob",
		Amount:     decimal.RequireFromString(amount),
		PIN:        "123456",
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// requireNoPending asserts every ledger entry reached a terminal status.
func requireNoPending(t *testing.T, store *ledger.MemoryStore, userID string) {
	t.Helper()
	entries, err := store.ListByParticipant(context.Background(), userID, "")
	require.NoError(t, err)
	for _, e := range entries {
		assert.True(t, e.Status.Terminal(), "entry %s left in status %s", e.Reference, e.Status)
		assert.NotNil(t, e.CompletedAt, "entry %s has no completedAt", e.Reference)
	}
}

// ---- tests ----

func TestTransferCompleted(t *testing.T) {
	f := newFixture(map[string]decimal.Decimal{"usr-alice": dec("100"), "usr-bob": dec("10")})

	entry, err := f.svc.Transfer(context.Background(), transferCmd("40"))
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusCompleted, entry.Status)
	assert.NotNil(t, entry.CompletedAt)
	assert.Equal(t, "USD", entry.Currency)
	assert.True(t, f.wallet.balanceOf("usr-alice").Equal(dec("60")))
	assert.True(t, f.wallet.balanceOf("usr-bob").Equal(dec("50")))

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, string(ledger.StatusCompleted), f.publisher.events[0].Status)
	requireNoPending(t, f.store, "usr-alice")
}

func TestTransferValidation(t *testing.T) {
	f := newFixture(map[string]decimal.Decimal{"usr-alice": dec("100"), "usr-bob": dec("0")})

	tests := []struct {
		name   string
		mutate func(*cqrs.TransferFundsCommand)
	}{
		{"missing sender", func(c *cqrs.TransferFundsCommand) { c.SenderID = "" }},
		{"same sender and receiver", func(c *cqrs.TransferFundsCommand) { c.ReceiverID = c.SenderID }},
		{"zero amount", func(c *cqrs.TransferFundsCommand) { c.Amount = decimal.Zero }},
		{"negative amount", func(c *cqrs.TransferFundsCommand) { c.Amount = dec("-5") }},
		{"missing PIN", func(c *cqrs.TransferFundsCommand) { c.PIN = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := transferCmd("10")
			tt.mutate(&cmd)
			_, err := f.svc.Transfer(context.Background(), cmd)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}

	// Validation failures leave no trace.
	entries, err := f.store.ListByParticipant(context.Background(), "usr-alice", "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTransferUnknownParticipants(t *testing.T) {
	f := newFixture(map[string]decimal.Decimal{"usr-alice": dec("100")})

	cmd := transferCmd("10")
	cmd.ReceiverID = "usr-ghost"
	_, err := f.svc.Transfer(context.Background(), cmd)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	cmd = transferCmd("10")
	cmd.SenderID = "usr-ghost"
	cmd.ReceiverID = "usr-bob"
	_, err = f.svc.Transfer(context.Background(), cmd)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestTransferInvalidPIN(t *testing.T) {
	f := newFixture(map[string]decimal.Decimal{"usr-alice": dec("100"), "usr-bob": dec("0")})
	f.identity.pinValid = false

	_, err := f.svc.Transfer(context.Background(), transferCmd("10"))
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	// Rejected before any ledger write or balance move.
	entries, listErr := f.store.ListByParticipant(context.Background(), "usr-alice", "")
	require.NoError(t, listErr)
	assert.Empty(t, entries)
	assert.True(t, f.wallet.balanceOf("usr-alice").Equal(dec("100")))
}

func TestTransferInsufficientFunds(t *testing.T) {
	f := newFixture(map[string]decimal.Decimal{"usr-alice": dec("5"), "usr-bob": dec("0")})

	_, err := f.svc.Transfer(context.Background(), transferCmd("10"))
	assert.True(t, apperr.Is(err, apperr.KindInsufficientFunds))

	entries, listErr := f.store.ListByParticipant(context.Background(), "usr-alice", "")
	require.NoError(t, listErr)
	assert.Empty(t, entries, "advisory rejection must not mint an entry")
}

func TestTransferUpstreamUnavailable(t *testing.T) {
	f := newFixture(map[string]decimal.Decimal{"usr-alice": dec("100"), "usr-bob": dec("0")})
	f.identity.existsErr = apperr.New(apperr.KindUpstreamUnavailable, "identity service unavailable")

	_, err := f.svc.Transfer(context.Background(), transferCmd("10"))
	assert.True(t, apperr.Is(err, apperr.KindUpstreamUnavailable))

	entries, listErr := f.store.ListByParticipant(context.Background(), "usr-alice", "")
	require.NoError(t, listErr)
	assert.Empty(t, entries)
}

func TestTransferReversedOnCreditFailure(t *testing.T) {
	f := newFixture(map[string]decimal.Decimal{"usr-alice": dec("100"), "usr-bob": dec("0")})
	f.wallet.creditErr["usr-bob"] = apperr.New(apperr.KindInactiveAccount, "wallet is not active")

	_, err := f.svc.Transfer(context.Background(), transferCmd("40"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInactiveAccount))

	// Compensation restored the sender in full.
	assert.True(t, f.wallet.balanceOf("usr-alice").Equal(dec("100")))
	assert.True(t, f.wallet.balanceOf("usr-bob").Equal(dec("0")))

	entries, listErr := f.store.ListByParticipant(context.Background(), "usr-alice", "")
	require.NoError(t, listErr)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.StatusReversed, entries[0].Status)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, string(ledger.StatusReversed), f.publisher.events[0].Status)
}

func TestTransferCompensationFailure(t *testing.T) {
	f := newFixture(map[string]decimal.Decimal{"usr-alice": dec("100"), "usr-bob": dec("0")})
	f.wallet.creditErr["usr-bob"] = apperr.New(apperr.KindUpstreamUnavailable, "wallet service unavailable")
	f.wallet.creditErr["usr-alice"] = apperr.New(apperr.KindUpstreamUnavailable, "wallet service unavailable")

	_, err := f.svc.Transfer(context.Background(), transferCmd("40"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInconsistentState),
		"a stuck debit must be distinguishable from an ordinary failure, got %v", err)

	// The sender stays debited; the ledger records FAILED, not PENDING.
	assert.True(t, f.wallet.balanceOf("usr-alice").Equal(dec("60")))
	entries, listErr := f.store.ListByParticipant(context.Background(), "usr-alice", "")
	require.NoError(t, listErr)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.StatusFailed, entries[0].Status)
}

func TestTransferDebitRace(t *testing.T) {
	// The advisory check passes but the balance drops before the debit.
	// The wallet's atomic debit is authoritative, so this finalizes FAILED.
	f := newFixture(map[string]decimal.Decimal{"usr-alice": dec("100"), "usr-bob": dec("0")})
	f.wallet.afterBalance = func() {
		f.wallet.mu.Lock()
		f.wallet.balances["usr-alice"] = dec("10")
		f.wallet.mu.Unlock()
	}

	_, err := f.svc.Transfer(context.Background(), transferCmd("50"))
	assert.True(t, apperr.Is(err, apperr.KindInsufficientFunds))

	entries, listErr := f.store.ListByParticipant(context.Background(), "usr-alice", "")
	require.NoError(t, listErr)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.StatusFailed, entries[0].Status)
	requireNoPending(t, f.store, "usr-alice")
}

func TestTransferConcurrentNoOverdraw(t *testing.T) {
	f := newFixture(map[string]decimal.Decimal{"usr-alice": dec("100"), "usr-bob": dec("0")})

	const workers = 10
	amount := "30"

	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.svc.Transfer(context.Background(), transferCmd(amount))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, apperr.Is(err, apperr.KindInsufficientFunds), "got %v", err)
		}
	}

	// 100 / 30: at most 3 can complete and the books must balance.
	assert.Equal(t, 3, succeeded)
	assert.True(t, f.wallet.balanceOf("usr-alice").Equal(dec("10")))
	assert.True(t, f.wallet.balanceOf("usr-bob").Equal(dec("90")))
	requireNoPending(t, f.store, "usr-alice")
}

func TestTransferIdempotencyKeyReuse(t *testing.T) {
	f := newFixture(map[string]decimal.Decimal{"usr-alice": dec("100"), "usr-bob": dec("0")})

	cmd := transferCmd("40")
	cmd.IdempotencyKey = "idem-001"

	first, err := f.svc.Transfer(context.Background(), cmd)
	require.NoError(t, err)

	second, err := f.svc.Transfer(context.Background(), cmd)
	require.NoError(t, err)

	assert.Equal(t, first.Reference, second.Reference)
	assert.Equal(t, 1, f.wallet.debits, "replay must not debit twice")
	assert.True(t, f.wallet.balanceOf("usr-alice").Equal(dec("60")))
}

func TestTransferIdempotencyKeyReplaysFailures(t *testing.T) {
	f := newFixture(map[string]decimal.Decimal{"usr-alice": dec("100"), "usr-bob": dec("0")})
	f.wallet.creditErr["usr-bob"] = apperr.New(apperr.KindInactiveAccount, "wallet is not active")

	cmd := transferCmd("40")
	cmd.IdempotencyKey = "idem-002"

	_, err := f.svc.Transfer(context.Background(), cmd)
	require.Error(t, err)

	// The key now resolves to the REVERSED entry; no second attempt runs.
	entry, err := f.svc.Transfer(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusReversed, entry.Status)
	assert.Equal(t, 1, f.wallet.debits)
}

func TestTransferConcurrentSameIdempotencyKey(t *testing.T) {
	f := newFixture(map[string]decimal.Decimal{"usr-alice": dec("100"), "usr-bob": dec("0")})

	cmd := transferCmd("40")
	cmd.IdempotencyKey = "idem-race"

	const workers = 5
	var wg sync.WaitGroup
	entries := make([]*ledger.Entry, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entries[i], errs[i] = f.svc.Transfer(context.Background(), cmd)
		}(i)
	}
	wg.Wait()

	// Every caller gets an answer, and they all resolve to one entry.
	reference := ""
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		if reference == "" {
			reference = entries[i].Reference
		}
		assert.Equal(t, reference, entries[i].Reference)
	}
	assert.Equal(t, 1, f.wallet.debits)
	assert.True(t, f.wallet.balanceOf("usr-alice").Equal(dec("60")))
}

func TestTransferDefaultsCurrency(t *testing.T) {
	f := newFixture(map[string]decimal.Decimal{"usr-alice": dec("100"), "usr-bob": dec("0")})

	cmd := transferCmd("10")
	cmd.Currency = "EUR"
	entry, err := f.svc.Transfer(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, "EUR", entry.Currency)
}
