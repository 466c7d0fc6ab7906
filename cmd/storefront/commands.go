package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/docopt/docopt-go"
	"github.com/golang/glog"
	"github.com/safar/storefront/internal/checkout"
	"github.com/safar/storefront/internal/discount"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/notify"
	"github.com/safar/storefront/internal/push"
	"github.com/safar/storefront/internal/store"
)

func (a *app) login(ctx context.Context, opts docopt.Opts) error {
	token, _ := opts.String("<token>")
	roles, _ := opts["--role"].([]string)

	if err := a.session.SetCredentials(ctx, token, roles); err != nil {
		return err
	}
	a.store.Reset()
	Out.Printf("Logged in with roles %v", a.session.Snapshot().Roles)
	return nil
}

func (a *app) logout(ctx context.Context, opts docopt.Opts) error {
	a.store.Reset()
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	Out.Printf("Logged out")
	return nil
}

func (a *app) whoami(ctx context.Context, opts docopt.Opts) error {
	user, err := a.store.CurrentUser(ctx)
	if err != nil {
		return err
	}
	Out.Printf("%s <%s> roles=%v loyalty=%s", user.Name, user.Email, user.Roles, user.LoyaltyPoints)
	return nil
}

func (a *app) products(ctx context.Context, opts docopt.Opts) error {
	q := models.ProductQuery{}
	q.Type, _ = opts.String("--type")
	q.Category, _ = opts.String("--category")
	q.Search, _ = opts.String("--search")

	page, err := a.store.Products(ctx, q)
	if err != nil {
		return err
	}
	for _, p := range page.Items {
		Out.Printf("%s  %-30s %8s  %s", p.ID, p.Name, p.Price, p.Type)
	}
	Out.Printf("%d product(s)", page.Total)
	return nil
}

func (a *app) discountForm(opts docopt.Opts) (discount.Form, error) {
	var form discount.Form
	code, _ := opts.String("--code")
	if code == "" {
		return form, nil
	}
	form.SetInput(code)
	if err := form.Apply(); err != nil {
		return form, errors.New(form.Error)
	}
	return form, nil
}

func (a *app) cart(ctx context.Context, opts docopt.Opts) error {
	form, err := a.discountForm(opts)
	if err != nil {
		return err
	}

	cart, err := a.store.Cart(ctx)
	if err != nil {
		return err
	}
	if cart.IsEmpty() {
		Out.Printf("Your cart is empty")
		return nil
	}

	for _, item := range cart.Items {
		Out.Printf("%s  %-30s x%-3d %8s  %s %s", item.Product.ID, item.Product.Name, item.Quantity, item.Product.Price, item.Variant, item.Size)
		if image := item.Product.Image(item.Variant); image != "" {
			Out.Printf("    %s", image)
		}
	}

	p := checkout.Price(cart, form.Percent, a.cfg.Checkout.ShippingFee)
	Out.Printf("Subtotal  %s", p.Subtotal.StringFixed(2))
	if form.Active() {
		Out.Printf("Discount (%s%%)  -%s", p.DiscountPercent, p.Discount.StringFixed(2))
	}
	Out.Printf("Shipping  %s", p.Shipping.StringFixed(2))
	Out.Printf("Total     %s", p.Total.StringFixed(2))
	if p.AllPoints {
		Out.Printf("Points checkout available: %s points", p.PointsRequired)
	}
	return nil
}

func (a *app) add(ctx context.Context, opts docopt.Opts) error {
	product, _ := opts.String("<product>")
	qty, err := opts.Int("--qty")
	if err != nil {
		return fmt.Errorf("parse --qty: %w", err)
	}
	variant, _ := opts.String("--variant")
	size, _ := opts.String("--size")

	_, err = a.store.AddToCart(ctx, models.AddToCartRequest{Product: product, Quantity: qty, Variant: variant, Size: size})
	if err != nil {
		return err
	}
	Out.Printf("Added %d x %s", qty, product)
	return nil
}

func (a *app) findLine(ctx context.Context, opts docopt.Opts) (models.CartItem, error) {
	product, _ := opts.String("<product>")
	variant, _ := opts.String("--variant")
	size, _ := opts.String("--size")

	cart, err := a.store.Cart(ctx)
	if err != nil {
		return models.CartItem{}, err
	}
	for _, item := range cart.Items {
		if item.Product.ID == product && item.Variant == variant && item.Size == size {
			return item, nil
		}
	}
	return models.CartItem{}, fmt.Errorf("%s is not in the cart", product)
}

func (a *app) qty(ctx context.Context, opts docopt.Opts) error {
	raw, _ := opts.String("<qty>")
	qty, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("parse quantity: %w", err)
	}
	item, err := a.findLine(ctx, opts)
	if err != nil {
		return err
	}
	return a.orchestrator.SetQuantity(ctx, item, qty)
}

func (a *app) remove(ctx context.Context, opts docopt.Opts) error {
	item, err := a.findLine(ctx, opts)
	if err != nil {
		return err
	}
	return a.orchestrator.SetQuantity(ctx, item, 0)
}

func (a *app) clear(ctx context.Context, opts docopt.Opts) error {
	return a.store.ClearCart(ctx)
}

func (a *app) checkout(ctx context.Context, opts docopt.Opts) error {
	form, err := a.discountForm(opts)
	if err != nil {
		return err
	}

	mode := models.CheckoutMoney
	if points, _ := opts.Bool("--points"); points {
		mode = models.CheckoutPoints
	}

	result, err := a.orchestrator.Checkout(ctx, checkout.Request{Mode: mode, DiscountPercent: form.Percent})
	if result != nil && result.Notice != "" {
		Out.Printf("%s", result.Notice)
	}
	if err != nil {
		var stepErr *checkout.StepError
		if errors.As(err, &stepErr) && stepErr.OrderCreated {
			glog.Infof("order was created before step %s failed", stepErr.Step)
		}
		return err
	}
	Out.Printf("Order %s total %s", result.Order.ID, result.Order.TotalAmount)
	return nil
}

func (a *app) orders(ctx context.Context, opts docopt.Opts) error {
	list := a.store.Orders
	if recent, _ := opts.Bool("--recent"); recent {
		list = a.store.RecentOrders
	}
	orders, err := list(ctx)
	if err != nil {
		return err
	}
	for _, o := range orders {
		Out.Printf("%s  %-10s %8s  %s", o.ID, o.Status, o.TotalAmount, o.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func (a *app) notifications(ctx context.Context, opts docopt.Opts) error {
	events := push.NewClient(ctx, push.DefaultSettings(&a.cfg.Push), a.session)
	defer events.Close()

	engine := notify.NewEngine(a.store, events, notify.Options{
		PageLimit: a.cfg.Notifications.PageLimit,
		Dedup:     a.cfg.Notifications.Dedup,
		Notice:    func(message string) { Out.Printf("%s", message) },
	})
	if err := engine.Mount(ctx); err != nil {
		return err
	}
	defer engine.Unmount()

	if open, _ := opts.Bool("--open"); open {
		if err := engine.OpenModal(ctx); err != nil {
			glog.Infof("mark all read: %v", err)
		}
	}

	printView(engine.View())

	if watch, _ := opts.Bool("--watch"); watch {
		<-ctx.Done()
	}
	return nil
}

func printView(v notify.View) {
	badge := v.BadgeLabel()
	if badge == "" {
		badge = "0"
	}
	Out.Printf("Unread: %s", badge)
	for _, item := range v.Items {
		marker := " "
		if !item.Read {
			marker = "*"
		}
		Out.Printf("%s %s  %s: %s", marker, item.CreatedAt.Format("2006-01-02 15:04"), item.Title, item.Message)
	}
}

func (a *app) reviews(ctx context.Context, opts docopt.Opts) error {
	product, _ := opts.String("<product>")
	reviews, err := a.store.ProductReviews(ctx, product)
	if err != nil {
		return err
	}
	for _, r := range reviews {
		Out.Printf("%d/5  %s: %s", r.Rating, r.User.Name, r.Comment)
	}
	return nil
}

func (a *app) review(ctx context.Context, opts docopt.Opts) error {
	product, _ := opts.String("<product>")
	raw, _ := opts.String("<rating>")
	rating, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("parse rating: %w", err)
	}
	comment, _ := opts.String("<comment>")

	existing, err := a.store.UserProductReview(ctx, product)
	if err != nil {
		return err
	}
	if existing != nil {
		_, err = a.store.UpdateReview(ctx, existing.ID, models.UpdateReviewRequest{Rating: &rating, Comment: &comment})
	} else {
		_, err = a.store.CreateReview(ctx, models.CreateReviewRequest{Product: product, Rating: rating, Comment: comment})
	}
	return err
}

var _ notify.Remote = (*store.Store)(nil)
var _ checkout.Remote = (*store.Store)(nil)
