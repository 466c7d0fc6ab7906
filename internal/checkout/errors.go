package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInsufficientPoints = errors.New("insufficient loyalty points")
	ErrPointsUnavailable  = errors.New("cart has items that cannot be bought with points")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrUnknownMode        = errors.New("unknown checkout mode")
)

// StepError reports which checkout step failed. OrderCreated is true when
// the order exists on the server even though a later step failed.
type StepError struct {
	Step         string
	OrderCreated bool
	Err          error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("checkout step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
