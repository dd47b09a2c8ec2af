package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/glowspa/glowspa-backend/internal/domain/catalog"
	"github.com/glowspa/glowspa-backend/internal/repository"
)

type serviceJSON struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	Price           decimal.Decimal `json:"price"`
	DurationMinutes int             `json:"durationMinutes"`
	Active          *bool           `json:"active"`
}

func main() {
	var (
		databaseURL  string
		servicesFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&servicesFile, "services-file", "db/seed/services.json", "path to services JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, servicesFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, servicesFile string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return seedServices(ctx, repository.NewCatalogRepository(pool), servicesFile)
}

func seedServices(ctx context.Context, repo *repository.CatalogRepository, servicesFile string) error {
	slog.Info("reading services file", slog.String("path", servicesFile))

	data, err := os.ReadFile(servicesFile)
	if err != nil {
		return errors.Wrap(err, "read services file")
	}

	var services []serviceJSON
	if err := json.Unmarshal(data, &services); err != nil {
		return errors.Wrap(err, "parse services JSON")
	}

	slog.Info("upserting services", slog.Int("count", len(services)))

	for _, s := range services {
		active := true
		if s.Active != nil {
			active = *s.Active
		}
		svc := &catalog.Service{
			ID:       s.ID,
			Name:     s.Name,
			Category: s.Category,
			Price:    s.Price,
			Duration: time.Duration(s.DurationMinutes) * time.Minute,
			Active:   active,
		}
		if err := repo.Upsert(ctx, svc); err != nil {
			return errors.Wrapf(err, "upsert service %s", s.ID)
		}

		slog.Info("upserted service", slog.String("id", s.ID), slog.String("name", s.Name))
	}

	return nil
}
