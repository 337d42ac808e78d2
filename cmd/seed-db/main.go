// Command seed-db loads the demo catalog, a couple of starter coupons, and
// test sessions into the database. It is idempotent: rows are upserted, so
// running it twice is safe.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/kstorelabs/kstore-cart/internal/domain/coupon"
	"github.com/kstorelabs/kstore-cart/internal/domain/product"
	"github.com/kstorelabs/kstore-cart/internal/domain/session"
	"github.com/kstorelabs/kstore-cart/internal/storage/postgres"
)

type productJSON struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Category     string          `json:"category"`
	Image        string          `json:"image"`
	CountInStock int             `json:"countInStock"`
}

func main() {
	var (
		databaseURL   string
		productsFile  string
		userToken     string
		adminToken    string
		sessionPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&userToken, "user-token", "", "bearer token for the demo user session (or KSTORE_SEED_USER_TOKEN env)")
	flag.StringVar(&adminToken, "admin-token", "", "bearer token for the demo admin session (or KSTORE_SEED_ADMIN_TOKEN env)")
	flag.StringVar(&sessionPepper, "session-pepper", "", "HMAC pepper for session token hashing (or KSTORE_SESSION_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if userToken == "" {
		userToken = os.Getenv("KSTORE_SEED_USER_TOKEN")
	}
	if adminToken == "" {
		adminToken = os.Getenv("KSTORE_SEED_ADMIN_TOKEN")
	}
	if sessionPepper == "" {
		sessionPepper = os.Getenv("KSTORE_SESSION_PEPPER")
	}
	if (userToken != "" || adminToken != "") && sessionPepper == "" {
		slog.Error("session pepper is required to seed sessions: set --session-pepper or KSTORE_SESSION_PEPPER")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, userToken, adminToken, sessionPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, userToken, adminToken, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, postgres.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCoupons(ctx, postgres.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedSessions(ctx, postgres.NewSessionRepository(pool), userToken, adminToken, pepper); err != nil {
		return errors.Wrap(err, "seed sessions")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *postgres.ProductRepository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if err := repo.Upsert(ctx, product.Product{
			ID:           p.ID,
			Name:         p.Name,
			Price:        p.Price,
			Category:     p.Category,
			Image:        p.Image,
			CountInStock: p.CountInStock,
		}); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedCoupons(ctx context.Context, repo *postgres.CouponRepository) error {
	slog.Info("seeding starter coupons")

	coupons := []coupon.Rule{
		{
			Code:           "WELCOME10",
			DiscountType:   coupon.DiscountPercentage,
			Value:          decimal.NewFromInt(10),
			MinOrderAmount: decimal.NewFromInt(50),
			Description:    "Welcome: 10% off orders over 50",
		},
		{
			Code:         "FLAT25",
			DiscountType: coupon.DiscountFixed,
			Value:        decimal.NewFromInt(25),
			Description:  "25 off any order",
			MaxUses:      1000,
		},
	}

	for _, c := range coupons {
		if err := repo.Upsert(ctx, c); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}

		slog.Info("upserted coupon", slog.String("code", c.Code), slog.String("description", c.Description))
	}

	return nil
}

func seedSessions(ctx context.Context, repo *postgres.SessionRepository, userToken, adminToken, pepper string) error {
	if userToken == "" && adminToken == "" {
		slog.Info("no session tokens provided, skipping session seed")
		return nil
	}

	if userToken != "" {
		if err := repo.Upsert(ctx, session.Record{
			UserID:    "demo-user",
			TokenHash: session.HashToken(userToken, []byte(pepper)),
			Name:      "Demo User",
			Email:     "demo@kstore.example",
		}); err != nil {
			return errors.Wrap(err, "upsert user session")
		}
		slog.Info("upserted session", slog.String("user_id", "demo-user"))
	}

	if adminToken != "" {
		if err := repo.Upsert(ctx, session.Record{
			UserID:    "demo-admin",
			TokenHash: session.HashToken(adminToken, []byte(pepper)),
			Name:      "Demo Admin",
			Email:     "admin@kstore.example",
			IsAdmin:   true,
		}); err != nil {
			return errors.Wrap(err, "upsert admin session")
		}
		slog.Info("upserted session", slog.String("user_id", "demo-admin"))
	}

	return nil
}
