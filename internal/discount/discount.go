package discount

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const InvalidCodeMessage = "Invalid discount code"

var ErrInvalidCode = errors.New("invalid discount code")

var codes = map[string]int64{
	"SAVE10":    10,
	"SAVE20":    20,
	"WELCOME15": 15,
	"STUDENT":   25,
}

// Lookup returns the percentage for code, ignoring case.
func Lookup(code string) (decimal.Decimal, error) {
	percent, ok := codes[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return decimal.Zero, ErrInvalidCode
	}
	return decimal.NewFromInt(percent), nil
}

// Form holds the discount entry state of one cart view. Applying a code
// replaces the previous percentage; percentages never stack.
type Form struct {
	Input   string
	Percent decimal.Decimal
	Error   string
}

func (f *Form) SetInput(input string) {
	f.Input = input
	f.Error = ""
}

func (f *Form) CanApply() bool {
	return strings.TrimSpace(f.Input) != ""
}

// Apply evaluates Input. On success the percentage is replaced and the
// input cleared; on failure the percentage is kept and Error is set.
func (f *Form) Apply() error {
	f.Error = ""
	if !f.CanApply() {
		return nil
	}

	percent, err := Lookup(f.Input)
	if err != nil {
		f.Error = InvalidCodeMessage
		return err
	}
	f.Percent = percent
	f.Input = ""
	return nil
}

func (f *Form) Active() bool {
	return f.Percent.IsPositive()
}

func (f *Form) Clear() {
	*f = Form{}
}
