package checkout

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

const (
	NoticeMoneySuccess      = "Order placed successfully!"
	NoticeMoneyFailure      = "Failed to place order. Please try again."
	NoticePointsSuccess     = "Order placed with loyalty points!"
	NoticePointsFailure     = "Checkout with points failed. Please try again."
	NoticeNotEnoughPoints   = "Not enough loyalty points"
	NoticePointsUnavailable = "Some items cannot be bought with points"

	draftDiscountApplied = "Applied"
)

const (
	StepCreateOrder = "create_order"
	StepClearCart   = "clear_cart"
	StepRefreshUser = "refresh_user"
)

type StepStatus string

const (
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

type Step struct {
	Name   string
	Status StepStatus
	Error  error
}

// Remote is the part of the resource store checkout drives.
type Remote interface {
	Cart(ctx context.Context) (*models.Cart, error)
	CurrentUser(ctx context.Context) (*models.User, error)
	RefreshCurrentUser(ctx context.Context) (*models.User, error)
	CreateOrder(ctx context.Context, draft models.OrderDraft) (*models.Order, error)
	ClearCart(ctx context.Context) error
	UpdateCartItem(ctx context.Context, req models.UpdateCartItemRequest) (*models.Cart, error)
	RemoveCartItem(ctx context.Context, req models.RemoveCartItemRequest) error
}

type Request struct {
	Mode            string
	DiscountPercent decimal.Decimal
}

// Result is returned for every checkout that got past the in-flight guard.
// Notice is the message to show the user; empty means show nothing.
type Result struct {
	Notice  string
	Pricing Pricing
	Draft   *models.OrderDraft
	Order   *models.Order
	Steps   []Step
}

type Orchestrator struct {
	remote      Remote
	shippingFee decimal.Decimal
	inFlight    atomic.Bool
	now         func() time.Time
}

func NewOrchestrator(remote Remote, shippingFee decimal.Decimal) *Orchestrator {
	return &Orchestrator{
		remote:      remote,
		shippingFee: shippingFee,
		now:         time.Now,
	}
}

func (o *Orchestrator) InFlight() bool {
	return o.inFlight.Load()
}

// Pricing prices the current cart.
func (o *Orchestrator) Pricing(ctx context.Context, discountPercent decimal.Decimal) (Pricing, error) {
	cart, err := o.remote.Cart(ctx)
	if err != nil {
		return Pricing{}, fmt.Errorf("load cart: %w", err)
	}
	return Price(cart, discountPercent, o.shippingFee), nil
}

// SetQuantity updates one line. A quantity below 1 removes the line instead.
func (o *Orchestrator) SetQuantity(ctx context.Context, item models.CartItem, quantity int) error {
	if quantity < 1 {
		return o.remote.RemoveCartItem(ctx, models.RemoveCartItemRequest{
			Product: item.Product.ID,
			Variant: item.Variant,
			Size:    item.Size,
		})
	}
	_, err := o.remote.UpdateCartItem(ctx, models.UpdateCartItemRequest{
		Product:  item.Product.ID,
		Quantity: quantity,
		Variant:  item.Variant,
		Size:     item.Size,
	})
	return err
}

// Checkout places an order for the current cart, then clears the cart and
// re-reads the user. The steps run strictly in order and stop at the first
// failure. A second call while one is running fails with
// ErrCheckoutInProgress without touching the network.
func (o *Orchestrator) Checkout(ctx context.Context, req Request) (*Result, error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return nil, ErrCheckoutInProgress
	}
	defer o.inFlight.Store(false)

	var successNotice, failureNotice string
	switch req.Mode {
	case models.CheckoutMoney:
		successNotice, failureNotice = NoticeMoneySuccess, NoticeMoneyFailure
	case models.CheckoutPoints:
		successNotice, failureNotice = NoticePointsSuccess, NoticePointsFailure
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode)
	}

	result := &Result{}

	cart, err := o.remote.Cart(ctx)
	if err != nil {
		result.Notice = failureNotice
		return result, fmt.Errorf("load cart: %w", err)
	}
	if cart.IsEmpty() {
		return result, ErrEmptyCart
	}

	result.Pricing = Price(cart, req.DiscountPercent, o.shippingFee)

	if req.Mode == models.CheckoutPoints {
		if !result.Pricing.AllPoints {
			result.Notice = NoticePointsUnavailable
			return result, ErrPointsUnavailable
		}
		user, err := o.remote.CurrentUser(ctx)
		if err != nil {
			result.Notice = failureNotice
			return result, fmt.Errorf("load user: %w", err)
		}
		if user.LoyaltyPoints.LessThan(result.Pricing.PointsRequired) {
			result.Notice = NoticeNotEnoughPoints
			return result, ErrInsufficientPoints
		}
	}

	draft := o.draft(cart, req.Mode, result.Pricing)
	result.Draft = &draft

	order, err := o.remote.CreateOrder(ctx, draft)
	if err = result.record(StepCreateOrder, err); err != nil {
		result.Notice = failureNotice
		glog.Infof("[checkout]%s failed: %s", req.Mode, err)
		return result, &StepError{Step: StepCreateOrder, Err: err}
	}
	result.Order = order

	if err = result.record(StepClearCart, o.remote.ClearCart(ctx)); err != nil {
		result.Notice = failureNotice
		glog.Infof("[checkout]%s order %s placed but cart not cleared: %s", req.Mode, order.ID, err)
		return result, &StepError{Step: StepClearCart, OrderCreated: true, Err: err}
	}

	_, err = o.remote.RefreshCurrentUser(ctx)
	if err = result.record(StepRefreshUser, err); err != nil {
		result.Notice = failureNotice
		glog.Infof("[checkout]%s order %s placed but user not refreshed: %s", req.Mode, order.ID, err)
		return result, &StepError{Step: StepRefreshUser, OrderCreated: true, Err: err}
	}

	glog.V(1).Infof("[checkout]%s order %s placed", req.Mode, order.ID)
	result.Notice = successNotice
	return result, nil
}

func (o *Orchestrator) draft(cart *models.Cart, mode string, p Pricing) models.OrderDraft {
	items := make([]models.OrderDraftItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, models.OrderDraftItem{
			Product:  item.Product.ID,
			Variant:  item.Variant,
			Size:     item.Size,
			Quantity: item.Quantity,
			Price:    item.Product.Price,
		})
	}

	draft := models.OrderDraft{
		Items:        items,
		Subtotal:     p.Subtotal,
		CheckoutType: mode,
		Status:       models.OrderStatusPending,
		CreatedAt:    o.now().UTC(),
	}

	if mode == models.CheckoutPoints {
		draft.Discount = decimal.Zero
		draft.Shipping = decimal.Zero
		draft.Total = p.PointsRequired
		return draft
	}

	draft.Discount = p.Discount
	draft.Shipping = p.Shipping
	draft.Total = p.Total
	if p.DiscountPercent.IsPositive() {
		draft.DiscountCode = draftDiscountApplied
	}
	return draft
}

func (r *Result) record(name string, err error) error {
	step := Step{Name: name, Status: StepStatusCompleted}
	if err != nil {
		step.Status = StepStatusFailed
		step.Error = err
	}
	r.Steps = append(r.Steps, step)
	return err
}
