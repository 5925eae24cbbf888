// Package checkout drives one checkout session from cart to recorded sale.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zaypos/backend/internal/cart"
	"zaypos/backend/internal/domain"
	"zaypos/backend/internal/settlement"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInsufficientTender = errors.New("insufficient tender")
	ErrNotOpen            = errors.New("checkout is not in tender entry")
)

type State string

const (
	StateIdle        State = "IDLE"
	StateTenderEntry State = "TENDER_ENTRY"
	StateSubmitting  State = "SUBMITTING"
	StateComplete    State = "COMPLETE"
	StateRejected    State = "REJECTED"
)

// Recorder persists a confirmed settlement. Implemented by the service layer.
type Recorder interface {
	RecordSale(ctx context.Context, out settlement.Outcome, lines []cart.Line) (*domain.Sale, error)
}

// Session is the confirmation gate for a single register. Tender fields may
// be re-entered any number of times with no side effects; only Confirm
// touches the outside world.
type Session struct {
	state         State
	cart          *cart.Cart
	input         settlement.Input
	outcome       settlement.Outcome
	submitTimeout time.Duration
}

func NewSession(c *cart.Cart, submitTimeout time.Duration) *Session {
	if submitTimeout <= 0 {
		submitTimeout = 10 * time.Second
	}
	return &Session{state: StateIdle, cart: c, submitTimeout: submitTimeout}
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) Cart() *cart.Cart {
	return s.cart
}

// Open enters tender entry for the current cart, resetting tender fields and
// defaulting change to the cash drawer.
func (s *Session) Open() error {
	if s.state == StateSubmitting {
		return ErrNotOpen
	}
	if s.cart.IsEmpty() {
		return ErrEmptyCart
	}
	s.input = settlement.Input{
		TotalDue:      s.cart.Total(),
		ChangeChannel: domain.ChangeViaCash,
	}
	s.state = StateTenderEntry
	s.recompute()
	return nil
}

// EnterCashTendered records the raw cash field. Malformed input coerces to
// zero and never interrupts typing.
func (s *Session) EnterCashTendered(raw string) {
	if !s.entryAllowed() {
		return
	}
	s.input.CashTendered = domain.ParseMoney(raw)
	s.recompute()
}

func (s *Session) EnterKPayTendered(raw string) {
	if !s.entryAllowed() {
		return
	}
	s.input.KPayTendered = domain.ParseMoney(raw)
	s.recompute()
}

func (s *Session) SelectChangeChannel(channel domain.ChangeChannel) {
	if !s.entryAllowed() {
		return
	}
	s.input.ChangeChannel = channel
	s.recompute()
}

// Outcome returns the settlement for the current inputs.
func (s *Session) Outcome() settlement.Outcome {
	return s.outcome
}

// Confirm records the sale. It is only permitted while the outcome is
// sufficient; on persistence failure the session returns to tender entry
// with all inputs preserved so the cashier can retry as-is.
func (s *Session) Confirm(ctx context.Context, recorder Recorder) (*domain.Sale, error) {
	if s.state != StateTenderEntry && s.state != StateRejected {
		return nil, ErrNotOpen
	}
	if s.cart.IsEmpty() {
		return nil, ErrEmptyCart
	}
	s.recompute()
	if !s.outcome.Sufficient {
		return nil, fmt.Errorf("%w: short by %d", ErrInsufficientTender, -s.outcome.Change)
	}

	s.state = StateSubmitting
	submitCtx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	defer cancel()

	sale, err := recorder.RecordSale(submitCtx, s.outcome, s.cart.Lines())
	if err != nil {
		s.state = StateRejected
		return nil, err
	}

	s.cart.Clear()
	s.state = StateComplete
	return sale, nil
}

func (s *Session) entryAllowed() bool {
	return s.state == StateTenderEntry || s.state == StateRejected
}

func (s *Session) recompute() {
	if s.state == StateRejected {
		s.state = StateTenderEntry
	}
	s.input.TotalDue = s.cart.Total()
	s.outcome = settlement.Compute(s.input)
}
