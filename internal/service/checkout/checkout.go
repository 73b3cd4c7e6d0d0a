// Package checkout sequences the four-step flow from cart review to order
// confirmation. Step transitions are guarded by pure predicates over the cart
// and the data collected so far; the in-progress state is kept in the
// key-value store per user.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/storefront/internal/kvstore"
	"github.com/Skotchmaster/storefront/internal/service/cart"
)

type Step string

const (
	StepCart         Step = "cart"
	StepShipping     Step = "shipping"
	StepPayment      Step = "payment"
	StepConfirmation Step = "confirmation"
)

var ErrValidation = errors.New("validation")

// RedirectError reports a guard violation together with the step the caller
// should be sent back to.
type RedirectError struct {
	To Step
}

func (e *RedirectError) Error() string {
	return "redirect to " + string(e.To)
}

// State is the transient per-user checkout context. Payment data is masked
// before it is stored, so the state never holds a full card number or CVV.
type State struct {
	Step     Step          `json:"step"`
	Shipping *ShippingForm `json:"shipping,omitempty"`
	Payment  *PaymentData  `json:"payment,omitempty"`
}

// Allowed reports whether the step can be entered. When it cannot, the second
// return value names the step to redirect to.
func Allowed(step Step, totals cart.Totals, st *State) (Step, bool) {
	if step != StepCart && totals.TotalItems == 0 {
		return StepCart, false
	}
	switch step {
	case StepPayment:
		if st == nil || st.Shipping == nil {
			return StepShipping, false
		}
	case StepConfirmation:
		if st == nil || st.Shipping == nil {
			return StepShipping, false
		}
		if st.Payment == nil {
			return StepPayment, false
		}
	}
	return step, true
}

type Service struct {
	KV   kvstore.Store
	Cart *cart.Service

	// now is swapped out in tests; defaults to time.Now.
	now func() time.Time
}

func NewService(kv kvstore.Store, c *cart.Service) *Service {
	return &Service{KV: kv, Cart: c, now: time.Now}
}

func key(userID uint) string {
	return fmt.Sprintf("checkout:%d", userID)
}

func (s *Service) State(ctx context.Context, userID uint) (*State, error) {
	raw, err := s.KV.Get(ctx, key(userID))
	if errors.Is(err, kvstore.ErrNotFound) {
		return &State{Step: StepCart}, nil
	}
	if err != nil {
		return nil, err
	}

	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return &State{Step: StepCart}, nil
	}
	return &st, nil
}

func (s *Service) save(ctx context.Context, userID uint, st *State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal checkout state: %w", err)
	}
	return s.KV.Set(ctx, key(userID), string(data))
}

// Enter applies the transition guards for the requested step and returns the
// current state on success. A guard violation comes back as a RedirectError.
func (s *Service) Enter(ctx context.Context, userID uint, step Step) (*State, error) {
	totals, err := s.Cart.Totals(ctx, userID)
	if err != nil {
		return nil, err
	}
	st, err := s.State(ctx, userID)
	if err != nil {
		return nil, err
	}

	if to, ok := Allowed(step, totals, st); !ok {
		return nil, &RedirectError{To: to}
	}
	return st, nil
}

// SubmitShipping validates the shipping form. On success the form is stored
// and the flow advances to the payment step; on failure the per-field errors
// are returned and nothing changes.
func (s *Service) SubmitShipping(ctx context.Context, userID uint, form ShippingForm) (*State, FieldErrors, error) {
	st, err := s.Enter(ctx, userID, StepShipping)
	if err != nil {
		return nil, nil, err
	}

	if fieldErrs := form.Validate(); len(fieldErrs) > 0 {
		return nil, fieldErrs, fmt.Errorf("shipping form: %w", ErrValidation)
	}

	st.Shipping = &form
	st.Step = StepPayment
	if err := s.save(ctx, userID, st); err != nil {
		return nil, nil, err
	}
	return st, nil, nil
}

// SubmitPayment validates the payment form and stores only the masked
// remnants of the card data.
func (s *Service) SubmitPayment(ctx context.Context, userID uint, form PaymentForm) (*State, FieldErrors, error) {
	st, err := s.Enter(ctx, userID, StepPayment)
	if err != nil {
		return nil, nil, err
	}

	if fieldErrs := form.Validate(s.now()); len(fieldErrs) > 0 {
		return nil, fieldErrs, fmt.Errorf("payment form: %w", ErrValidation)
	}

	st.Payment = form.Masked()
	st.Step = StepConfirmation
	if err := s.save(ctx, userID, st); err != nil {
		return nil, nil, err
	}
	return st, nil, nil
}

// Reset drops the in-progress checkout, called after an order is placed.
func (s *Service) Reset(ctx context.Context, userID uint) error {
	return s.KV.Delete(ctx, key(userID))
}
