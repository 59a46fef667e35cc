package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/accrual"
	interfaces "github.com/sheikh-saqib/yield-bearing-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/models"
)

var (
	// ErrInsufficientBalance means a debit or transfer asked for more than
	// the settled principal. No state changes.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrRateRegression means a global-rate update tried to raise the rate.
	// The configured policy only allows the rate to stay equal or decrease.
	ErrRateRegression = errors.New("global rate may only stay equal or decrease")
)

// Clock supplies the ledger's notion of now, in whole time units. It must
// be monotonically non-decreasing; the ledger additionally clamps elapsed
// time at zero so a misbehaving clock can never shrink a balance.
type Clock func() uint64

// Ledger owns every account record and the global rate. Each public
// operation settles the touched accounts first, so interest is folded into
// principal before any mutation is applied.
//
// Concurrency follows a per-account mutex map: operations on the same
// identity serialize, operations on disjoint identities proceed in
// parallel.
type Ledger struct {
	store interfaces.AccountStore
	now   Clock

	muMap map[string]*sync.Mutex // per-account locks
	mapMu sync.Mutex             // protects the muMap itself

	rateMu     sync.RWMutex
	globalRate *uint256.Int // rate assigned to accounts credited from a zero base
}

// NewLedger wires a ledger over a storage implementation. The initial
// global rate and the clock are injected so several independent instances
// can coexist in one process (bridging needs at least two).
func NewLedger(store interfaces.AccountStore, initialRate *uint256.Int, now Clock) *Ledger {
	return &Ledger{
		store:      store,
		now:        now,
		muMap:      make(map[string]*sync.Mutex),
		globalRate: initialRate.Clone(),
	}
}

func (l *Ledger) getAccountLock(accountId string) *sync.Mutex {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	if _, exists := l.muMap[accountId]; !exists {
		l.muMap[accountId] = &sync.Mutex{}
	}
	return l.muMap[accountId]
}

// load fetches an account, materializing a fresh zero record for an
// identity that was never credited. Accounts are created implicitly on
// first credit and never deleted.
func (l *Ledger) load(ctx context.Context, accountId string) (*models.Account, error) {
	account, err := l.store.GetByID(ctx, accountId)
	if err != nil {
		return nil, fmt.Errorf("could not load account %s: %w", accountId, err)
	}
	if account == nil {
		account = &models.Account{
			ID:              accountId,
			Principal:       uint256.NewInt(0),
			AssignedRate:    l.GlobalRate(),
			LastAccrualTime: l.now(),
		}
	}
	return account, nil
}

// settle folds accrued interest into principal and resets the accrual
// clock. After settle, principal equals the effective balance for this
// instant. Settling twice at the same logical time is a no-op.
func (l *Ledger) settle(account *models.Account) error {
	now := l.now()
	elapsed := uint64(0)
	if now > account.LastAccrualTime {
		elapsed = now - account.LastAccrualTime
		account.LastAccrualTime = now
	}

	effective, err := accrual.EffectiveBalance(account.Principal, account.AssignedRate, elapsed)
	if err != nil {
		return err
	}
	account.Principal = effective
	return nil
}

// Credit settles the account and adds amount to its principal. An account
// whose effective balance is zero before the credit is re-activated and
// picks up the current global rate; a funded account keeps its assigned
// rate untouched.
func (l *Ledger) Credit(ctx context.Context, accountId string, amount *uint256.Int) error {
	mu := l.getAccountLock(accountId)
	mu.Lock()
	defer mu.Unlock()

	return l.creditLocked(ctx, accountId, amount, nil)
}

// CreditWithRate is the bridge inbound path: identical to Credit except the
// assigned rate is forced unconditionally, so bridged value resumes
// accruing at the rate it already held on the source ledger.
func (l *Ledger) CreditWithRate(ctx context.Context, accountId string, amount, forcedRate *uint256.Int) error {
	mu := l.getAccountLock(accountId)
	mu.Lock()
	defer mu.Unlock()

	return l.creditLocked(ctx, accountId, amount, forcedRate)
}

func (l *Ledger) creditLocked(ctx context.Context, accountId string, amount, forcedRate *uint256.Int) error {
	account, err := l.load(ctx, accountId)
	if err != nil {
		return err
	}
	if err := l.settle(account); err != nil {
		return err
	}

	if forcedRate != nil {
		account.AssignedRate = forcedRate.Clone()
	} else if account.Principal.IsZero() {
		account.AssignedRate = l.GlobalRate()
	}

	sum, overflow := new(uint256.Int).AddOverflow(account.Principal, amount)
	if overflow {
		return accrual.ErrOverflow
	}
	account.Principal = sum

	return l.store.Save(ctx, account)
}

// Debit settles the account, resolves the request against the settled
// principal, and subtracts it. Returns the amount actually debited so a
// FullBalance request reports the figure it resolved to.
func (l *Ledger) Debit(ctx context.Context, accountId string, req Amount) (*uint256.Int, error) {
	mu := l.getAccountLock(accountId)
	mu.Lock()
	defer mu.Unlock()

	account, err := l.load(ctx, accountId)
	if err != nil {
		return nil, err
	}
	if err := l.settle(account); err != nil {
		return nil, err
	}

	amount := req.resolve(account.Principal)
	if amount.Gt(account.Principal) {
		return nil, ErrInsufficientBalance
	}
	account.Principal = new(uint256.Int).Sub(account.Principal, amount)

	if err := l.store.Save(ctx, account); err != nil {
		return nil, err
	}
	return amount, nil
}

// Transfer settles both accounts and moves value between them without
// re-settling. A recipient with zero effective balance inherits the
// sender's assigned rate, mirroring Credit's newly-active rule.
func (l *Ledger) Transfer(ctx context.Context, fromId, toId string, req Amount) (*uint256.Int, error) {
	fromMu := l.getAccountLock(fromId)
	toMu := l.getAccountLock(toId)

	// Lock in order to avoid deadlocks.
	switch {
	case fromId == toId:
		fromMu.Lock()
		defer fromMu.Unlock()
	case fromId < toId:
		fromMu.Lock()
		toMu.Lock()
		defer fromMu.Unlock()
		defer toMu.Unlock()
	default:
		toMu.Lock()
		fromMu.Lock()
		defer toMu.Unlock()
		defer fromMu.Unlock()
	}

	from, err := l.load(ctx, fromId)
	if err != nil {
		return nil, err
	}
	if err := l.settle(from); err != nil {
		return nil, err
	}

	amount := req.resolve(from.Principal)
	if amount.Gt(from.Principal) {
		return nil, ErrInsufficientBalance
	}

	if fromId == toId {
		// Settled above; moving value onto itself changes nothing else.
		if err := l.store.Save(ctx, from); err != nil {
			return nil, err
		}
		return amount, nil
	}

	to, err := l.load(ctx, toId)
	if err != nil {
		return nil, err
	}
	if err := l.settle(to); err != nil {
		return nil, err
	}

	if to.Principal.IsZero() {
		to.AssignedRate = from.AssignedRate.Clone()
	}

	sum, overflow := new(uint256.Int).AddOverflow(to.Principal, amount)
	if overflow {
		return nil, accrual.ErrOverflow
	}
	from.Principal = new(uint256.Int).Sub(from.Principal, amount)
	to.Principal = sum

	if err := l.store.Save(ctx, from); err != nil {
		return nil, err
	}
	if err := l.store.Save(ctx, to); err != nil {
		return nil, err
	}
	return amount, nil
}

// SetGlobalRate updates the rate newly-activated accounts will receive.
// Updates that raise the rate are rejected; already-funded accounts are
// unaffected either way.
func (l *Ledger) SetGlobalRate(newRate *uint256.Int) error {
	l.rateMu.Lock()
	defer l.rateMu.Unlock()

	if newRate.Gt(l.globalRate) {
		return ErrRateRegression
	}
	l.globalRate = newRate.Clone()
	return nil
}

// GlobalRate returns the current global rate.
func (l *Ledger) GlobalRate() *uint256.Int {
	l.rateMu.RLock()
	defer l.rateMu.RUnlock()
	return l.globalRate.Clone()
}

// EffectiveBalance returns principal plus accrued-but-unsettled interest at
// this instant. Read-only: no settlement side effect.
func (l *Ledger) EffectiveBalance(ctx context.Context, accountId string) (*uint256.Int, error) {
	account, err := l.store.GetByID(ctx, accountId)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return uint256.NewInt(0), nil
	}

	now := l.now()
	elapsed := uint64(0)
	if now > account.LastAccrualTime {
		elapsed = now - account.LastAccrualTime
	}
	return accrual.EffectiveBalance(account.Principal, account.AssignedRate, elapsed)
}

// Principal returns the settled figure only, deliberately excluding accrued
// interest, so callers can tell "what was minted" from "what is owed".
func (l *Ledger) Principal(ctx context.Context, accountId string) (*uint256.Int, error) {
	account, err := l.store.GetByID(ctx, accountId)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return uint256.NewInt(0), nil
	}
	return account.Principal.Clone(), nil
}

// AssignedRate returns the account's captured rate, or the current global
// rate for an identity that was never credited (what a first credit would
// assign).
func (l *Ledger) AssignedRate(ctx context.Context, accountId string) (*uint256.Int, error) {
	account, err := l.store.GetByID(ctx, accountId)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return l.GlobalRate(), nil
	}
	return account.AssignedRate.Clone(), nil
}
