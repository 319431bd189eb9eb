package backtest

import "fmt"

// Ledger owns the open positions of one simulation run. Iteration follows
// insertion order: simulation results must be reproducible, and walking a map
// would not be.
type Ledger struct {
	byID  map[string]*Position
	order []string
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{byID: make(map[string]*Position)}
}

// Open adds a position. An instrument may hold at most one open position;
// opening a duplicate is a programming error in the execution rules.
func (l *Ledger) Open(pos *Position) error {
	if pos.Shares <= 0 {
		return fmt.Errorf("position %s must have positive shares, got %d", pos.Instrument, pos.Shares)
	}
	if _, exists := l.byID[pos.Instrument]; exists {
		return fmt.Errorf("instrument %s already has an open position", pos.Instrument)
	}
	l.byID[pos.Instrument] = pos
	l.order = append(l.order, pos.Instrument)
	return nil
}

// Get returns the open position for an instrument, if any.
func (l *Ledger) Get(instrument string) (*Position, bool) {
	pos, ok := l.byID[instrument]
	return pos, ok
}

// Has reports whether an instrument is currently held.
func (l *Ledger) Has(instrument string) bool {
	_, ok := l.byID[instrument]
	return ok
}

// Close removes the position for an instrument.
func (l *Ledger) Close(instrument string) {
	if _, ok := l.byID[instrument]; !ok {
		return
	}
	delete(l.byID, instrument)
	for i, id := range l.order {
		if id == instrument {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// Positions returns the open positions in insertion order. The slice is a
// copy; the pointed-to positions are live.
func (l *Ledger) Positions() []*Position {
	out := make([]*Position, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.byID[id])
	}
	return out
}

// Len returns the number of open positions.
func (l *Ledger) Len() int {
	return len(l.byID)
}

// CashAccount holds the run's available capital. It is mutated only by trade
// settlement and can never go negative: a debit that would overdraw is
// rejected and the prospective trade simply does not happen.
type CashAccount struct {
	balance float64
}

// NewCashAccount creates an account holding the initial capital.
func NewCashAccount(initial float64) *CashAccount {
	return &CashAccount{balance: initial}
}

// Balance returns the current available capital.
func (c *CashAccount) Balance() float64 {
	return c.balance
}

// Debit withdraws the total cost of a buy. It reports whether the account
// could fund it; on false the balance is untouched (no partial fills).
func (c *CashAccount) Debit(amount float64) bool {
	if amount > c.balance {
		return false
	}
	c.balance -= amount
	return true
}

// Credit deposits the net proceeds of a sell.
func (c *CashAccount) Credit(amount float64) {
	c.balance += amount
}
