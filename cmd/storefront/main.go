package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/docopt/docopt-go"
	"github.com/golang/glog"
	"github.com/safar/storefront/internal/api"
	"github.com/safar/storefront/internal/cache"
	"github.com/safar/storefront/internal/checkout"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/session"
	"github.com/safar/storefront/internal/store"
)

const StorefrontVersion = "0.1.0"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

func main() {
	usage := `Storefront client.

Configuration is read from the environment and an optional .env file
(API_BASE_URL, PUSH_URL, STORAGE_DRIVER, STORAGE_URL, ...).

Usage:
    storefront login <token> [--role=<role>...] [--verbosity=<level>]
    storefront logout [--verbosity=<level>]
    storefront whoami [--verbosity=<level>]
    storefront products [--type=<type>] [--category=<category>] [--search=<search>] [--verbosity=<level>]
    storefront cart [--code=<code>] [--verbosity=<level>]
    storefront add <product> [--qty=<qty>] [--variant=<variant>] [--size=<size>] [--verbosity=<level>]
    storefront qty <product> <qty> [--variant=<variant>] [--size=<size>] [--verbosity=<level>]
    storefront remove <product> [--variant=<variant>] [--size=<size>] [--verbosity=<level>]
    storefront clear [--verbosity=<level>]
    storefront checkout [--points] [--code=<code>] [--verbosity=<level>]
    storefront orders [--recent] [--verbosity=<level>]
    storefront notifications [--open] [--watch] [--verbosity=<level>]
    storefront reviews <product> [--verbosity=<level>]
    storefront review <product> <rating> [<comment>] [--verbosity=<level>]

Options:
    -h --help                  Show this screen.
    --version                  Show version.
    --role=<role>              Role to record with the token. Read from the token when omitted.
    --type=<type>              Product type: money, points or hybrid.
    --category=<category>
    --search=<search>
    --qty=<qty>                Quantity to add [default: 1].
    --variant=<variant>        Color variant.
    --size=<size>
    --code=<code>              Discount code.
    --points                   Pay with loyalty points.
    --recent                   Only the latest orders.
    --open                     Open the notification list, marking everything read.
    --watch                    Keep listening for new notifications until interrupted.
    --verbosity=<level>        glog V level [default: 0].`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], StorefrontVersion)
	if err != nil {
		panic(err)
	}

	flag.Set("logtostderr", "true")
	if level, _ := opts.String("--verbosity"); level != "" {
		flag.Set("v", level)
	}
	flag.CommandLine.Parse(nil)
	defer glog.Flush()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		Err.Fatalf("Start: %v", err)
	}
	defer app.Close()

	commands := []struct {
		name string
		run  func(ctx context.Context, opts docopt.Opts) error
	}{
		{"login", app.login},
		{"logout", app.logout},
		{"whoami", app.whoami},
		{"products", app.products},
		{"cart", app.cart},
		{"add", app.add},
		{"qty", app.qty},
		{"remove", app.remove},
		{"clear", app.clear},
		{"checkout", app.checkout},
		{"orders", app.orders},
		{"notifications", app.notifications},
		{"reviews", app.reviews},
		{"review", app.review},
	}
	for _, c := range commands {
		if selected, _ := opts.Bool(c.name); selected {
			if err := c.run(ctx, opts); err != nil {
				glog.Flush()
				Err.Fatalf("%s: %v", c.name, err)
			}
			return
		}
	}
}

type app struct {
	cfg          *config.Config
	db           *database.DB
	session      *session.Store
	store        *store.Store
	orchestrator *checkout.Orchestrator
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	db, err := database.NewConnection(&cfg.Storage)
	if err != nil {
		return nil, err
	}
	if _, err := database.Migrate(ctx, db, database.MigrateUp); err != nil {
		db.Close()
		return nil, err
	}

	sessions := session.NewStore(database.NewKV(db))
	if err := sessions.Load(ctx); err != nil {
		db.Close()
		return nil, err
	}

	client := api.NewClient(&cfg.API, sessions)
	s := store.New(client, cache.New())

	return &app{
		cfg:          cfg,
		db:           db,
		session:      sessions,
		store:        s,
		orchestrator: checkout.NewOrchestrator(s, cfg.Checkout.ShippingFee),
	}, nil
}

func (a *app) Close() {
	a.db.Close()
}
