// Command fakeapi serves the in-memory storefront API for local use of the
// storefront CLI. Sign in with the printed tokens.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/safar/storefront/internal/apitest"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	pushEvery := flag.Duration("push-every", 0, "push a notification to the default user at this interval; 0 disables")
	flag.Parse()

	api := apitest.New()
	seed(api)

	server := &http.Server{
		Addr:              *addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *pushEvery > 0 {
		go pushLoop(ctx, api, *pushEvery)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown: %v", err)
		}
	}()

	log.Printf("Fake API listening on %s", *addr)
	log.Printf("User token: %s  Admin token: %s", apitest.DefaultToken, apitest.AdminToken)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}
}

func seed(api *apitest.Server) {
	api.SeedProduct(models.Product{Name: "Canvas Tote", Price: decimal.NewFromInt(20), Type: models.ProductTypeMoney, Category: "bags", Stock: 40})
	api.SeedProduct(models.Product{Name: "Logo Mug", Price: decimal.NewFromInt(12), Type: models.ProductTypeHybrid, Category: "kitchen", Stock: 25})
	api.SeedProduct(models.Product{Name: "Sticker Pack", Price: decimal.NewFromInt(50), Type: models.ProductTypePoints, Category: "rewards", Stock: 100})
	api.SeedProduct(models.Product{
		Name:     "Hoodie",
		Price:    decimal.NewFromInt(45),
		Type:     models.ProductTypeMoney,
		Category: "apparel",
		Stock:    10,
		Variants: []models.ProductVariant{
			{Color: "black", Sizes: []string{"S", "M", "L"}},
			{Color: "grey", Sizes: []string{"M", "L"}},
		},
	})
	api.SetLoyaltyPoints(apitest.DefaultUserID, decimal.NewFromInt(120))
}

func pushLoop(ctx context.Context, api *apitest.Server, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			n := api.Push(apitest.DefaultUserID, models.Notification{
				Type:    "promotion",
				Title:   "Flash sale",
				Message: "Everything is 10% off for the next hour",
			})
			log.Printf("Pushed notification %s at %s", n.ID, t.Format(time.Kitchen))
		}
	}
}
